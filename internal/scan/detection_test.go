package scan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/radar-tracker/internal/config"
	"github.com/banshee-data/radar-tracker/internal/tracking"
	"github.com/banshee-data/radar-tracker/internal/tracking/kalman"
	"github.com/banshee-data/radar-tracker/internal/units"
)

func TestMeasurement_NorthAxisCovariance(t *testing.T) {
	t.Parallel()
	d := Detection{Range: 500, Azimuth: 0, Elevation: 0}
	n := Noise{SigmaRange: 2, SigmaAzimuthDeg: 0.5, SigmaElevationDeg: 0.25, MinVariance: 1e-6}
	m := d.Measurement(n)
	require.NoError(t, m.Validate())

	// Along +Y range error maps to y, azimuth to x and elevation to z.
	sa := 500 * units.DegToRad(0.5)
	se := 500 * units.DegToRad(0.25)
	assert.InDelta(t, sa*sa, m.R.At(0, 0), 1e-9)
	assert.InDelta(t, 4, m.R.At(1, 1), 1e-9)
	assert.InDelta(t, se*se, m.R.At(2, 2), 1e-9)
	assert.InDelta(t, 0, m.R.At(0, 1), 1e-9)

	assert.InDelta(t, 0, m.Z.AtVec(0), 1e-9)
	assert.InDelta(t, 500, m.Z.AtVec(1), 1e-9)
}

func TestMeasurement_PerDetectionSigmasOverrideDefaults(t *testing.T) {
	t.Parallel()
	n := Noise{SigmaRange: 1, SigmaAzimuthDeg: 0.2, SigmaElevationDeg: 0.2, MinVariance: 1e-6}
	d := Detection{Range: 100, Azimuth: 0, SigmaRange: 3}
	assert.InDelta(t, 9, d.Measurement(n).R.At(1, 1), 1e-9)
}

func TestMeasurement_FloorsDegenerateCovariance(t *testing.T) {
	t.Parallel()
	// At zero range the angular terms vanish.
	d := Detection{Range: 0}
	m := d.Measurement(Noise{SigmaRange: 1, SigmaAzimuthDeg: 1, SigmaElevationDeg: 1, MinVariance: 1e-3})
	assert.True(t, kalman.IsPSD(m.R, 1e-12))
	assert.GreaterOrEqual(t, m.R.At(0, 0), 1e-3-1e-12)
	assert.GreaterOrEqual(t, m.R.At(2, 2), 1e-3-1e-12)
}

func TestNormalizeAzimuth(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, NormalizeAzimuth(360))
	assert.Equal(t, 330.0, NormalizeAzimuth(-30))
	assert.Equal(t, 45.0, NormalizeAzimuth(405))
}

func TestValidate(t *testing.T) {
	t.Parallel()
	b := BoundsFromTuning(config.EmptyTuningConfig())
	tests := []struct {
		name    string
		det     Detection
		wantErr bool
	}{
		{"valid", Detection{Range: 500, Azimuth: 90, Elevation: 5}, false},
		{"negative azimuth wraps", Detection{Range: 500, Azimuth: -30, Elevation: 5}, false},
		{"range too far", Detection{Range: 1500, Azimuth: 90, Elevation: 5}, true},
		{"negative range", Detection{Range: -1}, true},
		{"below horizon", Detection{Range: 500, Elevation: -1}, true},
		{"nan range", Detection{Range: math.NaN()}, true},
		{"infinite time", Detection{Time: math.Inf(1), Range: 10}, true},
		{"negative sigma", Detection{Range: 10, SigmaRange: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.det.Validate(b)
			if tt.wantErr {
				assert.ErrorIs(t, err, tracking.ErrInvalidMeasurement)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_Altitude(t *testing.T) {
	t.Parallel()
	b := BoundsFromTuning(config.EmptyTuningConfig())
	b.Altitude = config.Range{0, 50}
	assert.NoError(t, Detection{Range: 100, Elevation: 20}.Validate(b))
	assert.ErrorIs(t, Detection{Range: 1000, Elevation: 20}.Validate(b), tracking.ErrInvalidMeasurement)
}
