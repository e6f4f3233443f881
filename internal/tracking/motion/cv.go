package motion

import "gonum.org/v1/gonum/mat"

// constantVelocity models straight-line motion. On the 3-state layout it
// degenerates to a nearly-constant-position model where target motion is
// absorbed entirely by process noise.
type constantVelocity struct {
	layout Layout
	q      float64
}

func (m constantVelocity) Kind() Kind     { return CV }
func (m constantVelocity) Layout() Layout { return m.layout }

func (m constantVelocity) Transition(_ mat.Vector, dt float64) *mat.Dense {
	F := identity(m.layout.Dim())
	if m.layout.HasVelocity() {
		F.Set(X, VX, dt)
		F.Set(Y, VY, dt)
	}
	return F
}

func (m constantVelocity) Propagate(x mat.Vector, dt float64) *mat.VecDense {
	return applyLinear(m.Transition(x, dt), x)
}

func (m constantVelocity) ProcessNoise(dt float64) *mat.SymDense {
	if !m.layout.HasVelocity() {
		Q := mat.NewSymDense(State3.Dim(), nil)
		for i := X; i <= Z; i++ {
			randomWalk(Q, i, m.q, dt)
		}
		return Q
	}
	return velocityNoise(m.q, dt)
}
