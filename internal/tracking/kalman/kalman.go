// Package kalman implements the predict/update cycle for one track's state.
//
// The observation is always the Cartesian position [x y z], taken from the
// first three state components, so H is a fixed selector for every layout.
// Covariance updates use the Joseph form and are symmetrised and
// eigen-floored before being returned, keeping P symmetric positive
// semi-definite. On any failure the caller's state is left untouched.
package kalman

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/radar-tracker/internal/tracking/motion"
)

// MeasDim is the dimension of the position measurement space.
const MeasDim = 3

var (
	// ErrInvalidMeasurement is returned when a measurement's shape or values
	// do not fit the position observation model.
	ErrInvalidMeasurement = errors.New("invalid measurement")
	// ErrNumericInstability is returned when the innovation covariance is not
	// positive definite or an update produced non-finite values.
	ErrNumericInstability = errors.New("numeric instability")
)

// Measurement is a Cartesian position observation with its covariance.
type Measurement struct {
	Z *mat.VecDense
	R *mat.SymDense
}

// NewMeasurement builds a measurement from a position and covariance.
func NewMeasurement(pos [MeasDim]float64, R *mat.SymDense) Measurement {
	return Measurement{Z: mat.NewVecDense(MeasDim, pos[:]), R: R}
}

// Validate checks dimensions and finiteness.
func (m Measurement) Validate() error {
	if m.Z == nil || m.Z.Len() != MeasDim {
		return fmt.Errorf("%w: measurement must have %d components", ErrInvalidMeasurement, MeasDim)
	}
	if m.R == nil || m.R.SymmetricDim() != MeasDim {
		return fmt.Errorf("%w: measurement covariance must be %dx%d", ErrInvalidMeasurement, MeasDim, MeasDim)
	}
	if !IsFinite(m.Z) || !IsFinite(m.R) {
		return fmt.Errorf("%w: non-finite measurement", ErrInvalidMeasurement)
	}
	return nil
}

// WeightedMeasurement is one JPDA candidate with its association probability.
type WeightedMeasurement struct {
	Measurement
	Beta float64
}

// Filter holds the immutable parameters of the estimator.
type Filter struct {
	Model motion.Model
	// MaxDt caps the prediction interval. Zero disables the cap.
	MaxDt float64
	// MinVariance is the eigenvalue floor applied to covariances.
	MinVariance float64
}

// Predict propagates x and P forward by dt seconds. It never fails; negative
// dt is treated as zero.
func (f Filter) Predict(x *mat.VecDense, P *mat.SymDense, dt float64) (*mat.VecDense, *mat.SymDense) {
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}
	if f.MaxDt > 0 && dt > f.MaxDt {
		dt = f.MaxDt
	}

	F := f.Model.Transition(x, dt)
	next := f.Model.Propagate(x, dt)

	var fp, fpf mat.Dense
	fp.Mul(F, P)
	fpf.Mul(&fp, F.T())
	fpf.Add(&fpf, f.Model.ProcessNoise(dt))

	cov := Symmetrize(&fpf)
	if floored, ok := FloorEigen(cov, f.MinVariance); ok {
		cov = floored
	}
	return next, cov
}

// Innovation is the measurement residual and its covariance for one
// (state, measurement) pair.
type Innovation struct {
	Nu *mat.VecDense
	S  *mat.SymDense

	chol mat.Cholesky
}

// Distance2 returns the squared Mahalanobis distance νᵀS⁻¹ν.
func (in *Innovation) Distance2() float64 {
	var sol mat.VecDense
	if err := in.chol.SolveVecTo(&sol, in.Nu); err != nil {
		return math.Inf(1)
	}
	return mat.Dot(in.Nu, &sol)
}

// Likelihood returns the Gaussian density N(ν; 0, S).
func (in *Innovation) Likelihood() float64 {
	d2 := in.Distance2()
	if math.IsInf(d2, 1) {
		return 0
	}
	logNorm := 0.5 * (float64(MeasDim)*math.Log(2*math.Pi) + in.chol.LogDet())
	return math.Exp(-0.5*d2 - logNorm)
}

// Innovation computes ν = z − Hx and S = HPHᵀ + R. If S is not positive
// definite it is floored once before giving up with ErrNumericInstability.
func (f Filter) Innovation(x *mat.VecDense, P *mat.SymDense, m Measurement) (*Innovation, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if x.Len() < MeasDim {
		return nil, fmt.Errorf("%w: state dimension %d below measurement dimension", ErrInvalidMeasurement, x.Len())
	}
	return f.innovation(x, P, m.Z, m.R)
}

func (f Filter) innovation(x *mat.VecDense, P *mat.SymDense, z mat.Vector, R mat.Symmetric) (*Innovation, error) {
	in := &Innovation{
		Nu: mat.NewVecDense(MeasDim, nil),
		S:  mat.NewSymDense(MeasDim, nil),
	}
	for i := 0; i < MeasDim; i++ {
		in.Nu.SetVec(i, z.AtVec(i)-x.AtVec(i))
		for j := i; j < MeasDim; j++ {
			in.S.SetSym(i, j, P.At(i, j)+R.At(i, j))
		}
	}
	if in.chol.Factorize(in.S) {
		return in, nil
	}
	floored, ok := FloorEigen(in.S, math.Max(f.MinVariance, minFloor))
	if !ok || !in.chol.Factorize(floored) {
		return nil, fmt.Errorf("%w: innovation covariance not positive definite", ErrNumericInstability)
	}
	in.S = floored
	return in, nil
}

// Update applies one hard-associated measurement.
func (f Filter) Update(x *mat.VecDense, P *mat.SymDense, m Measurement) (*mat.VecDense, *mat.SymDense, *Innovation, error) {
	in, err := f.Innovation(x, P, m)
	if err != nil {
		return nil, nil, nil, err
	}
	K, err := gain(P, in)
	if err != nil {
		return nil, nil, nil, err
	}

	next := mat.NewVecDense(x.Len(), nil)
	next.MulVec(K, in.Nu)
	next.AddVec(next, x)

	cov, err := f.finish(next, joseph(P, K, m.R))
	if err != nil {
		return nil, nil, nil, err
	}
	return next, cov, in, nil
}

// UpdateWeighted applies a JPDA update from candidate measurements weighted
// by their association probabilities; beta0 is the probability that none of
// them originated from the track. With no candidates the inputs are
// returned unchanged.
func (f Filter) UpdateWeighted(x *mat.VecDense, P *mat.SymDense, ms []WeightedMeasurement, beta0 float64) (*mat.VecDense, *mat.SymDense, error) {
	var total float64
	for _, wm := range ms {
		if err := wm.Validate(); err != nil {
			return nil, nil, err
		}
		if wm.Beta < 0 || math.IsNaN(wm.Beta) {
			return nil, nil, fmt.Errorf("%w: association weight %v", ErrNumericInstability, wm.Beta)
		}
		total += wm.Beta
	}
	if len(ms) == 0 || total == 0 {
		return mat.VecDenseCopyOf(x), mat.NewSymDense(P.SymmetricDim(), symData(P)), nil
	}

	// S uses the weighted mean measurement noise.
	Rbar := mat.NewSymDense(MeasDim, nil)
	for _, wm := range ms {
		for i := 0; i < MeasDim; i++ {
			for j := i; j < MeasDim; j++ {
				Rbar.SetSym(i, j, Rbar.At(i, j)+wm.Beta/total*wm.R.At(i, j))
			}
		}
	}

	in, err := f.innovation(x, P, ms[0].Z, Rbar)
	if err != nil {
		return nil, nil, err
	}
	K, err := gain(P, in)
	if err != nil {
		return nil, nil, err
	}

	nu := mat.NewVecDense(MeasDim, nil)
	spread := mat.NewSymDense(MeasDim, nil)
	nuj := mat.NewVecDense(MeasDim, nil)
	for _, wm := range ms {
		for i := 0; i < MeasDim; i++ {
			nuj.SetVec(i, wm.Z.AtVec(i)-x.AtVec(i))
		}
		nu.AddScaledVec(nu, wm.Beta, nuj)
		spread.SymRankOne(spread, wm.Beta, nuj)
	}
	spread.SymRankOne(spread, -1, nu)

	next := mat.NewVecDense(x.Len(), nil)
	next.MulVec(K, nu)
	next.AddVec(next, x)

	// P' = β0·P + (1−β0)·Pc + K·spread·Kᵀ
	var pc mat.Dense
	pc.Scale(1-beta0, joseph(P, K, Rbar))
	var ks, kspread mat.Dense
	ks.Mul(K, spread)
	kspread.Mul(&ks, K.T())
	var blended mat.Dense
	blended.Scale(beta0, P)
	blended.Add(&blended, &pc)
	blended.Add(&blended, &kspread)

	cov, err := f.finish(next, &blended)
	if err != nil {
		return nil, nil, err
	}
	return next, cov, nil
}

// finish symmetrises and floors a posterior covariance and rejects
// non-finite results.
func (f Filter) finish(x *mat.VecDense, P mat.Matrix) (*mat.SymDense, error) {
	cov := Symmetrize(P)
	if floored, ok := FloorEigen(cov, f.MinVariance); ok {
		cov = floored
	} else {
		return nil, fmt.Errorf("%w: posterior covariance eigendecomposition failed", ErrNumericInstability)
	}
	if !IsFinite(x) || !IsFinite(cov) {
		return nil, fmt.Errorf("%w: non-finite posterior", ErrNumericInstability)
	}
	return cov, nil
}

// gain returns K = PHᵀS⁻¹ using the innovation's Cholesky factor.
func gain(P *mat.SymDense, in *Innovation) (*mat.Dense, error) {
	n := P.SymmetricDim()
	// HP is the first MeasDim rows of P; solve S·Kᵀ = HP.
	hp := mat.NewDense(MeasDim, n, nil)
	for i := 0; i < MeasDim; i++ {
		for j := 0; j < n; j++ {
			hp.Set(i, j, P.At(i, j))
		}
	}
	var kt mat.Dense
	if err := in.chol.SolveTo(&kt, hp); err != nil {
		return nil, fmt.Errorf("%w: gain solve: %v", ErrNumericInstability, err)
	}
	K := mat.DenseCopyOf(kt.T())
	return K, nil
}

// joseph returns (I−KH)P(I−KH)ᵀ + KRKᵀ.
func joseph(P *mat.SymDense, K *mat.Dense, R mat.Symmetric) *mat.Dense {
	n := P.SymmetricDim()
	ikh := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		ikh.Set(i, i, 1)
		for j := 0; j < MeasDim; j++ {
			ikh.Set(i, j, ikh.At(i, j)-K.At(i, j))
		}
	}
	var a, out mat.Dense
	a.Mul(ikh, P)
	out.Mul(&a, ikh.T())

	var kr, krk mat.Dense
	kr.Mul(K, R)
	krk.Mul(&kr, K.T())
	out.Add(&out, &krk)
	return &out
}

func symData(P *mat.SymDense) []float64 {
	n := P.SymmetricDim()
	data := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			data[i*n+j] = P.At(i, j)
		}
	}
	return data
}
