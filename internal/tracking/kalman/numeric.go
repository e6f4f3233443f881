package kalman

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// minFloor is the smallest eigenvalue floor used when rescuing an
// innovation covariance with no configured floor.
const minFloor = 1e-9

// Symmetrize returns (A + Aᵀ)/2 as a SymDense.
func Symmetrize(a mat.Matrix) *mat.SymDense {
	n, _ := a.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
	return s
}

// FloorEigen raises every eigenvalue of P below floor to floor. P is returned
// as-is when no eigenvalue needs raising. ok is false if the
// eigendecomposition fails.
func FloorEigen(P *mat.SymDense, floor float64) (*mat.SymDense, bool) {
	var es mat.EigenSym
	if !es.Factorize(P, true) {
		return nil, false
	}
	values := es.Values(nil)
	raised := false
	for i, v := range values {
		if v < floor {
			values[i] = floor
			raised = true
		}
	}
	if !raised {
		return P, true
	}

	var V mat.Dense
	es.VectorsTo(&V)
	n := len(values)
	var vd, rebuilt mat.Dense
	vd.Mul(&V, mat.NewDiagDense(n, values))
	rebuilt.Mul(&vd, V.T())
	return Symmetrize(&rebuilt), true
}

// IsPSD reports whether P is symmetric and has no eigenvalue below -tol.
func IsPSD(P mat.Symmetric, tol float64) bool {
	n := P.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if math.Abs(P.At(i, j)-P.At(j, i)) > tol {
				return false
			}
		}
	}
	var es mat.EigenSym
	if !es.Factorize(P, false) {
		return false
	}
	for _, v := range es.Values(nil) {
		if v < -tol {
			return false
		}
	}
	return true
}

// IsFinite reports whether every element of m is finite.
func IsFinite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
