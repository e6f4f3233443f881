package motion

import "gonum.org/v1/gonum/mat"

// addWhiteAcceleration writes the discretised continuous white-noise
// acceleration block for one (position, velocity) axis pair.
func addWhiteAcceleration(Q *mat.SymDense, p, v int, q, dt float64) {
	dt2 := dt * dt
	dt3 := dt2 * dt
	Q.SetSym(p, p, q*dt3/3)
	Q.SetSym(p, v, q*dt2/2)
	Q.SetSym(v, v, q*dt)
}

// addWhiteJerk writes the discretised continuous white-noise jerk block for
// one (position, velocity, acceleration) axis triple.
func addWhiteJerk(Q *mat.SymDense, p, v, a int, q, dt float64) {
	dt2 := dt * dt
	dt3 := dt2 * dt
	dt4 := dt3 * dt
	dt5 := dt4 * dt
	Q.SetSym(p, p, q*dt5/20)
	Q.SetSym(p, v, q*dt4/8)
	Q.SetSym(p, a, q*dt3/6)
	Q.SetSym(v, v, q*dt3/3)
	Q.SetSym(v, a, q*dt2/2)
	Q.SetSym(a, a, q*dt)
}

// randomWalk is the noise for a component with no modelled derivative.
func randomWalk(Q *mat.SymDense, i int, q, dt float64) {
	Q.SetSym(i, i, q*dt)
}

// velocityNoise is shared by CV and the 5-state CT model: white acceleration
// on the horizontal axes and a random walk on altitude.
func velocityNoise(q, dt float64) *mat.SymDense {
	Q := mat.NewSymDense(State5.Dim(), nil)
	addWhiteAcceleration(Q, X, VX, q, dt)
	addWhiteAcceleration(Q, Y, VY, q, dt)
	randomWalk(Q, Z, q, dt)
	return Q
}

// accelerationNoise is shared by CA and the 7-state CT model.
func accelerationNoise(q, dt float64) *mat.SymDense {
	Q := mat.NewSymDense(State7.Dim(), nil)
	addWhiteJerk(Q, X, VX, AX, q, dt)
	addWhiteJerk(Q, Y, VY, AY, q, dt)
	randomWalk(Q, Z, q, dt)
	return Q
}
