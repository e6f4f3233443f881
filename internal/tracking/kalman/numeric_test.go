package kalman

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSymmetrize(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 4, 3})
	s := Symmetrize(a)
	assert.Equal(t, 3.0, s.At(0, 1))
	assert.Equal(t, 3.0, s.At(1, 0))
	assert.Equal(t, 1.0, s.At(0, 0))
}

func TestFloorEigen(t *testing.T) {
	// Eigenvalues 3 and -1.
	P := mat.NewSymDense(2, []float64{1, 2, 2, 1})
	assert.False(t, IsPSD(P, 1e-12))

	floored, ok := FloorEigen(P, 0.5)
	require.True(t, ok)
	assert.True(t, IsPSD(floored, 1e-12))

	var es mat.EigenSym
	require.True(t, es.Factorize(floored, false))
	vals := es.Values(nil)
	assert.InDelta(t, 0.5, vals[0], 1e-9)
	assert.InDelta(t, 3, vals[1], 1e-9)

	// Already above the floor: returned unchanged.
	good := diagSym(2, 3)
	same, ok := FloorEigen(good, 1)
	require.True(t, ok)
	assert.Same(t, good, same)
}

func TestIsPSD(t *testing.T) {
	assert.True(t, IsPSD(diagSym(1, 0, 2), 1e-12))
	assert.False(t, IsPSD(diagSym(1, -1e-3, 2), 1e-9))
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(mat.NewVecDense(2, []float64{1, 2})))
	assert.False(t, IsFinite(mat.NewVecDense(2, []float64{1, math.NaN()})))
	assert.False(t, IsFinite(mat.NewDense(1, 2, []float64{math.Inf(-1), 0})))
}
