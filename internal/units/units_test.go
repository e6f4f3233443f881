package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name     string
		speedMPS float64
		units    string
		expected float64
	}{
		{"10 m/s to mph", 10.0, MPH, 22.3694},
		{"10 m/s to kmph", 10.0, KMPH, 36.0},
		{"10 m/s to kph", 10.0, KPH, 36.0},
		{"10 m/s to mps", 10.0, MPS, 10.0},
		{"unknown units default to mps", 10.0, "unknown", 10.0},
		{"0 m/s to mph", 0.0, MPH, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertSpeed(tt.speedMPS, tt.units)
			if math.Abs(result-tt.expected) > 0.01 {
				t.Errorf("ConvertSpeed(%f, %s) = %f, want %f", tt.speedMPS, tt.units, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	for _, u := range ValidUnits {
		assert.True(t, IsValid(u), u)
	}
	assert.False(t, IsValid("furlongs"))
	assert.False(t, IsValid(""))
	assert.Equal(t, "mps, mph, kmph, kph", GetValidUnitsString())
}

func TestSphericalRoundTrip(t *testing.T) {
	cases := []struct {
		r, az, el float64
	}{
		{1000, 0, 0},
		{1000, 90, 0},
		{500, 225, 10},
		{12.5, 359, 45},
	}
	for _, c := range cases {
		x, y, z := SphericalToCartesian(c.r, c.az, c.el)
		r, az, el := CartesianToSpherical(x, y, z)
		assert.InDelta(t, c.r, r, 1e-9)
		assert.InDelta(t, c.az, az, 1e-9)
		assert.InDelta(t, c.el, el, 1e-9)
	}
}

func TestSphericalAxes(t *testing.T) {
	x, y, z := SphericalToCartesian(100, 0, 0)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 100, y, 1e-9)
	assert.InDelta(t, 0, z, 1e-9)

	x, y, _ = SphericalToCartesian(100, 90, 0)
	assert.InDelta(t, 100, x, 1e-9)
	assert.InDelta(t, 0, y, 1e-9)

	_, _, z = SphericalToCartesian(100, 0, 90)
	assert.InDelta(t, 100, z, 1e-9)
}

func TestSphericalJacobianMatchesFiniteDifference(t *testing.T) {
	r, az, el := 800.0, 30.0, 5.0
	J := SphericalJacobian(r, az, el)

	const h = 1e-6
	perturb := func(dr, daz, del float64) (float64, float64, float64) {
		return SphericalToCartesian(r+dr, az+RadToDeg(daz), el+RadToDeg(del))
	}
	for col := 0; col < 3; col++ {
		d := [3]float64{}
		d[col] = h
		xp, yp, zp := perturb(d[0], d[1], d[2])
		xm, ym, zm := perturb(-d[0], -d[1], -d[2])
		num := [3]float64{(xp - xm) / (2 * h), (yp - ym) / (2 * h), (zp - zm) / (2 * h)}
		for row := 0; row < 3; row++ {
			assert.InDelta(t, num[row], J[row*3+col], 1e-3, "row %d col %d", row, col)
		}
	}
}
