// Package scan turns a detection log into time-ordered scans and drives the
// track manager over them.
package scan

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/radar-tracker/internal/config"
	"github.com/banshee-data/radar-tracker/internal/tracking"
	"github.com/banshee-data/radar-tracker/internal/tracking/kalman"
	"github.com/banshee-data/radar-tracker/internal/units"
)

// Detection is one sensor observation. It is immutable once read.
type Detection struct {
	ID        int     // 0-based row order in the dataset
	Time      float64 // seconds
	Range     float64 // metres
	Azimuth   float64 // degrees clockwise from north
	Elevation float64 // degrees above the horizontal

	// Optional per-detection standard deviations; zero means "use the
	// configured default". Angles are in degrees.
	SigmaRange     float64
	SigmaAzimuth   float64
	SigmaElevation float64
}

// Position returns the detection in east/north/up metres.
func (d Detection) Position() [3]float64 {
	x, y, z := units.SphericalToCartesian(d.Range, d.Azimuth, d.Elevation)
	return [3]float64{x, y, z}
}

// Noise holds the default sensor accuracy used when a detection carries no
// sigmas of its own.
type Noise struct {
	SigmaRange        float64 // metres
	SigmaAzimuthDeg   float64
	SigmaElevationDeg float64
	MinVariance       float64 // eigenvalue floor of the Cartesian covariance
}

// NoiseFromTuning reads the measurement noise settings.
func NoiseFromTuning(cfg *config.TuningConfig) Noise {
	return Noise{
		SigmaRange:        cfg.GetSigmaRange(),
		SigmaAzimuthDeg:   cfg.GetSigmaAzimuthDeg(),
		SigmaElevationDeg: cfg.GetSigmaElevationDeg(),
		MinVariance:       cfg.GetMinMeasurementVariance(),
	}
}

// Measurement converts d to a Cartesian measurement. The covariance is the
// spherical noise carried through the conversion Jacobian, J·Σ·Jᵀ, with its
// eigenvalues floored at n.MinVariance.
func (d Detection) Measurement(n Noise) kalman.Measurement {
	sr := pick(d.SigmaRange, n.SigmaRange)
	sa := units.DegToRad(pick(d.SigmaAzimuth, n.SigmaAzimuthDeg))
	se := units.DegToRad(pick(d.SigmaElevation, n.SigmaElevationDeg))

	jac := units.SphericalJacobian(d.Range, d.Azimuth, d.Elevation)
	J := mat.NewDense(3, 3, jac[:])
	sigma := mat.NewDiagDense(3, []float64{sr * sr, sa * sa, se * se})

	var js, jsj mat.Dense
	js.Mul(J, sigma)
	jsj.Mul(&js, J.T())
	R := kalman.Symmetrize(&jsj)
	if floored, ok := kalman.FloorEigen(R, n.MinVariance); ok {
		R = floored
	}
	return kalman.NewMeasurement(d.Position(), R)
}

func pick(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}

// Bounds are the validation limits a detection must satisfy.
type Bounds struct {
	Range     config.Range // metres
	Azimuth   config.Range // degrees, after normalisation to [0, 360)
	Elevation config.Range // degrees
	Altitude  config.Range // metres, z of the converted position
}

// BoundsFromTuning reads the detection gates from cfg.
func BoundsFromTuning(cfg *config.TuningConfig) Bounds {
	return Bounds{
		Range:     cfg.GetRangeGate(),
		Azimuth:   cfg.GetAzimuthGate(),
		Elevation: cfg.GetElevationGate(),
		Altitude:  cfg.GetTargetAltitude(),
	}
}

// NormalizeAzimuth maps an azimuth in degrees into [0, 360).
func NormalizeAzimuth(az float64) float64 {
	az = math.Mod(az, 360)
	if az < 0 {
		az += 360
	}
	return az
}

// Validate checks that d is finite and inside b. Failures wrap
// tracking.ErrInvalidMeasurement.
func (d Detection) Validate(b Bounds) error {
	for _, v := range []float64{d.Time, d.Range, d.Azimuth, d.Elevation, d.SigmaRange, d.SigmaAzimuth, d.SigmaElevation} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: detection %d has non-finite fields", tracking.ErrInvalidMeasurement, d.ID)
		}
	}
	if d.SigmaRange < 0 || d.SigmaAzimuth < 0 || d.SigmaElevation < 0 {
		return fmt.Errorf("%w: detection %d has a negative sigma", tracking.ErrInvalidMeasurement, d.ID)
	}
	if !b.Range.Contains(d.Range) {
		return fmt.Errorf("%w: detection %d range %.3f outside %v", tracking.ErrInvalidMeasurement, d.ID, d.Range, b.Range)
	}
	if az := NormalizeAzimuth(d.Azimuth); !b.Azimuth.Contains(az) {
		return fmt.Errorf("%w: detection %d azimuth %.3f outside %v", tracking.ErrInvalidMeasurement, d.ID, az, b.Azimuth)
	}
	if !b.Elevation.Contains(d.Elevation) {
		return fmt.Errorf("%w: detection %d elevation %.3f outside %v", tracking.ErrInvalidMeasurement, d.ID, d.Elevation, b.Elevation)
	}
	if z := d.Position()[2]; !b.Altitude.Contains(z) {
		return fmt.Errorf("%w: detection %d altitude %.3f outside %v", tracking.ErrInvalidMeasurement, d.ID, z, b.Altitude)
	}
	return nil
}
