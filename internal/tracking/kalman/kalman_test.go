package kalman

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/radar-tracker/internal/tracking/motion"
)

const psdTol = 1e-9

func diagSym(vals ...float64) *mat.SymDense {
	s := mat.NewSymDense(len(vals), nil)
	for i, v := range vals {
		s.SetSym(i, i, v)
	}
	return s
}

func newFilter(t *testing.T, kind motion.Kind, layout motion.Layout) Filter {
	t.Helper()
	m, err := motion.New(kind, layout, motion.Params{PlantNoise: 1})
	require.NoError(t, err)
	return Filter{Model: m, MaxDt: 10, MinVariance: 1e-9}
}

// --- Predict ---

func TestPredict_ConstantVelocity(t *testing.T) {
	t.Parallel()
	f := newFilter(t, motion.CV, motion.State5)
	x := mat.NewVecDense(5, []float64{0, 0, 100, 10, -5})
	P := diagSym(1, 1, 1, 4, 4)

	x1, P1 := f.Predict(x, P, 2)
	assert.InDelta(t, 20, x1.AtVec(motion.X), 1e-12)
	assert.InDelta(t, -10, x1.AtVec(motion.Y), 1e-12)
	assert.Greater(t, P1.At(0, 0), P.At(0, 0))
	assert.True(t, IsPSD(P1, psdTol))

	// Inputs are not modified.
	assert.Equal(t, 0.0, x.AtVec(0))
	assert.Equal(t, 1.0, P.At(0, 0))
}

func TestPredict_ClampsDt(t *testing.T) {
	t.Parallel()
	f := newFilter(t, motion.CV, motion.State5)
	x := mat.NewVecDense(5, []float64{0, 0, 0, 1, 1})
	P := diagSym(1, 1, 1, 1, 1)

	capped, _ := f.Predict(x, P, 1000)
	atMax, _ := f.Predict(x, P, f.MaxDt)
	assert.True(t, mat.Equal(capped, atMax))

	back, Pb := f.Predict(x, P, -3)
	assert.True(t, mat.Equal(x, back))
	assert.True(t, mat.EqualApprox(P, Pb, 1e-12))
}

func TestPredict_AllModelsStayPSD(t *testing.T) {
	t.Parallel()
	for layout, kinds := range motion.Compatible {
		for _, kind := range kinds {
			f := newFilter(t, kind, layout)
			n := layout.Dim()
			x := mat.NewVecDense(n, nil)
			for i := 0; i < n; i++ {
				x.SetVec(i, float64(i+1))
			}
			P := mat.NewSymDense(n, nil)
			for i := 0; i < n; i++ {
				P.SetSym(i, i, 2)
			}
			for step := 0; step < 20; step++ {
				x, P = f.Predict(x, P, 0.5)
				require.True(t, IsPSD(P, psdTol), "%s/%s step %d", kind, layout, step)
			}
		}
	}
}

// --- Update ---

func TestUpdate_MovesTowardMeasurement(t *testing.T) {
	t.Parallel()
	f := newFilter(t, motion.CV, motion.State3)
	x := mat.NewVecDense(3, nil)
	P := diagSym(100, 100, 100)
	m := NewMeasurement([3]float64{1, 2, 3}, diagSym(1, 1, 1))

	x1, P1, in, err := f.Update(x, P, m)
	require.NoError(t, err)

	w := 100.0 / 101.0
	assert.InDelta(t, 1*w, x1.AtVec(0), 1e-9)
	assert.InDelta(t, 2*w, x1.AtVec(1), 1e-9)
	assert.InDelta(t, 3*w, x1.AtVec(2), 1e-9)
	assert.InDelta(t, 100.0/101.0, P1.At(0, 0), 1e-9)
	assert.True(t, IsPSD(P1, psdTol))
	assert.InDelta(t, (1+4+9)/101.0, in.Distance2(), 1e-9)
}

func TestUpdate_VelocityObservedThroughCorrelation(t *testing.T) {
	t.Parallel()
	f := newFilter(t, motion.CV, motion.State5)
	x := mat.NewVecDense(5, nil)
	P := diagSym(1, 1, 1, 100, 100)

	xp, Pp := f.Predict(x, P, 1)
	m := NewMeasurement([3]float64{10, 0, 0}, diagSym(1, 1, 1))
	x1, P1, _, err := f.Update(xp, Pp, m)
	require.NoError(t, err)

	assert.Greater(t, x1.AtVec(motion.VX), 0.0)
	assert.Less(t, P1.At(motion.VX, motion.VX), Pp.At(motion.VX, motion.VX))
	assert.True(t, IsPSD(P1, psdTol))
}

func TestUpdate_InvalidMeasurement(t *testing.T) {
	t.Parallel()
	f := newFilter(t, motion.CV, motion.State5)
	x := mat.NewVecDense(5, nil)
	P := diagSym(1, 1, 1, 1, 1)

	tests := []struct {
		name string
		m    Measurement
	}{
		{"two components", Measurement{Z: mat.NewVecDense(2, []float64{1, 2}), R: diagSym(1, 1, 1)}},
		{"nil covariance", Measurement{Z: mat.NewVecDense(3, nil)}},
		{"covariance dims", Measurement{Z: mat.NewVecDense(3, nil), R: diagSym(1, 1)}},
		{"nan position", NewMeasurement([3]float64{math.NaN(), 0, 0}, diagSym(1, 1, 1))},
		{"inf covariance", NewMeasurement([3]float64{0, 0, 0}, diagSym(math.Inf(1), 1, 1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := f.Update(x, P, tt.m)
			assert.True(t, errors.Is(err, ErrInvalidMeasurement), "got %v", err)
		})
	}
}

func TestUpdate_DegenerateCovarianceIsFloored(t *testing.T) {
	t.Parallel()
	f := newFilter(t, motion.CV, motion.State3)
	x := mat.NewVecDense(3, []float64{5, 5, 5})
	P := mat.NewSymDense(3, nil)
	m := NewMeasurement([3]float64{5, 5, 5}, mat.NewSymDense(3, nil))

	x1, P1, _, err := f.Update(x, P, m)
	require.NoError(t, err)
	assert.True(t, IsFinite(x1))
	assert.True(t, IsPSD(P1, psdTol))
}

func TestUpdate_StationaryConvergence(t *testing.T) {
	t.Parallel()
	f := newFilter(t, motion.CV, motion.State5)
	x := mat.NewVecDense(5, []float64{0, 0, 0, 0, 0})
	P := diagSym(1, 1, 1, 400, 400)
	R := diagSym(1e-6, 1e-6, 1e-6)
	target := [3]float64{50, -20, 10}

	for scan := 0; scan < 30; scan++ {
		x, P = f.Predict(x, P, 1)
		var err error
		x, P, _, err = f.Update(x, P, NewMeasurement(target, R))
		require.NoError(t, err)
		require.True(t, IsPSD(P, psdTol))
	}
	for i, want := range target {
		assert.InDelta(t, want, x.AtVec(i), 1e-3)
	}
	assert.InDelta(t, 0, x.AtVec(motion.VX), 1e-2)
	assert.InDelta(t, 0, x.AtVec(motion.VY), 1e-2)
}

// --- UpdateWeighted ---

func TestUpdateWeighted_SingleCertainCandidateMatchesUpdate(t *testing.T) {
	t.Parallel()
	f := newFilter(t, motion.CV, motion.State5)
	x := mat.NewVecDense(5, []float64{1, 1, 1, 0, 0})
	P := diagSym(4, 4, 4, 9, 9)
	m := NewMeasurement([3]float64{2, 0, 1.5}, diagSym(1, 1, 1))

	hx, hP, _, err := f.Update(x, P, m)
	require.NoError(t, err)
	wx, wP, err := f.UpdateWeighted(x, P, []WeightedMeasurement{{Measurement: m, Beta: 1}}, 0)
	require.NoError(t, err)

	assert.True(t, mat.EqualApprox(hx, wx, 1e-9))
	assert.True(t, mat.EqualApprox(hP, wP, 1e-9))
}

func TestUpdateWeighted_NoCandidates(t *testing.T) {
	t.Parallel()
	f := newFilter(t, motion.CV, motion.State3)
	x := mat.NewVecDense(3, []float64{1, 2, 3})
	P := diagSym(1, 2, 3)

	wx, wP, err := f.UpdateWeighted(x, P, nil, 1)
	require.NoError(t, err)
	assert.True(t, mat.Equal(x, wx))
	assert.True(t, mat.Equal(P, wP))
	wx.SetVec(0, 99)
	assert.Equal(t, 1.0, x.AtVec(0))
}

func TestUpdateWeighted_SymmetricAmbiguity(t *testing.T) {
	t.Parallel()
	f := newFilter(t, motion.CV, motion.State3)
	x := mat.NewVecDense(3, nil)
	P := diagSym(10, 10, 10)
	R := diagSym(1, 1, 1)
	left := NewMeasurement([3]float64{-2, 0, 0}, R)
	right := NewMeasurement([3]float64{2, 0, 0}, R)

	wx, wP, err := f.UpdateWeighted(x, P, []WeightedMeasurement{
		{Measurement: left, Beta: 0.45},
		{Measurement: right, Beta: 0.45},
	}, 0.1)
	require.NoError(t, err)

	assert.InDelta(t, 0, wx.AtVec(0), 1e-12)
	assert.True(t, IsPSD(wP, psdTol))

	// The spread of candidates keeps x-variance above a certain update.
	_, hP, _, err := f.Update(x, P, NewMeasurement([3]float64{0, 0, 0}, R))
	require.NoError(t, err)
	assert.Greater(t, wP.At(0, 0), hP.At(0, 0))
}

func TestUpdateWeighted_RejectsBadWeight(t *testing.T) {
	t.Parallel()
	f := newFilter(t, motion.CV, motion.State3)
	x := mat.NewVecDense(3, nil)
	P := diagSym(1, 1, 1)
	m := NewMeasurement([3]float64{0, 0, 0}, diagSym(1, 1, 1))

	_, _, err := f.UpdateWeighted(x, P, []WeightedMeasurement{{Measurement: m, Beta: -0.5}}, 0)
	assert.True(t, errors.Is(err, ErrNumericInstability))
}

// --- Innovation ---

func TestInnovation(t *testing.T) {
	t.Parallel()
	f := newFilter(t, motion.CV, motion.State3)
	x := mat.NewVecDense(3, nil)
	P := diagSym(1, 1, 1)
	m := NewMeasurement([3]float64{2, 0, 0}, diagSym(1, 1, 1))

	in, err := f.Innovation(x, P, m)
	require.NoError(t, err)
	assert.InDelta(t, 2, in.Distance2(), 1e-12)

	want := math.Exp(-1) / math.Sqrt(math.Pow(2*math.Pi, 3)*8)
	assert.InDelta(t, want, in.Likelihood(), 1e-12)
}
