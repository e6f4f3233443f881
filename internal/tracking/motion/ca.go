package motion

import "gonum.org/v1/gonum/mat"

// constantAcceleration models constant horizontal acceleration on the
// 7-state layout; altitude is a random walk.
type constantAcceleration struct {
	q float64
}

func (m constantAcceleration) Kind() Kind     { return CA }
func (m constantAcceleration) Layout() Layout { return State7 }

func (m constantAcceleration) Transition(_ mat.Vector, dt float64) *mat.Dense {
	F := identity(State7.Dim())
	half := dt * dt / 2
	F.Set(X, VX, dt)
	F.Set(X, AX, half)
	F.Set(VX, AX, dt)
	F.Set(Y, VY, dt)
	F.Set(Y, AY, half)
	F.Set(VY, AY, dt)
	return F
}

func (m constantAcceleration) Propagate(x mat.Vector, dt float64) *mat.VecDense {
	return applyLinear(m.Transition(x, dt), x)
}

func (m constantAcceleration) ProcessNoise(dt float64) *mat.SymDense {
	return accelerationNoise(m.q, dt)
}
