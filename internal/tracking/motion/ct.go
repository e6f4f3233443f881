package motion

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// minTurnRate is the |ω| below which the turn is treated as straight-line
// motion. The closed-form CT terms divide by ω.
const minTurnRate = 1e-6

// minTurnSpeedSq is the squared speed below which the turn rate cannot be
// estimated from velocity and acceleration.
const minTurnSpeedSq = 1e-6

// constantTurn models a coordinated turn in the horizontal plane. On the
// 5-state layout the turn rate is the configured constant; on the 7-state
// layout it is estimated from the velocity and (centripetal) acceleration
// carried in the state, which makes propagation nonlinear.
type constantTurn struct {
	layout Layout
	q      float64
	omega  float64
}

func (m constantTurn) Kind() Kind     { return CT }
func (m constantTurn) Layout() Layout { return m.layout }

// TurnRate returns the turn rate the model uses for state x.
func (m constantTurn) TurnRate(x mat.Vector) float64 {
	if m.layout != State7 {
		return m.omega
	}
	vx, vy := x.AtVec(VX), x.AtVec(VY)
	speedSq := vx*vx + vy*vy
	if speedSq < minTurnSpeedSq {
		return m.omega
	}
	return (vx*x.AtVec(AY) - vy*x.AtVec(AX)) / speedSq
}

func (m constantTurn) Propagate(x mat.Vector, dt float64) *mat.VecDense {
	omega := m.TurnRate(x)
	out := mat.NewVecDense(x.Len(), nil)
	out.CloneFromVec(x)

	vx, vy := x.AtVec(VX), x.AtVec(VY)
	if math.Abs(omega) < minTurnRate {
		out.SetVec(X, x.AtVec(X)+vx*dt)
		out.SetVec(Y, x.AtVec(Y)+vy*dt)
		return out
	}

	s, c := math.Sincos(omega * dt)
	out.SetVec(X, x.AtVec(X)+(vx*s-vy*(1-c))/omega)
	out.SetVec(Y, x.AtVec(Y)+(vx*(1-c)+vy*s)/omega)
	out.SetVec(VX, vx*c-vy*s)
	out.SetVec(VY, vx*s+vy*c)
	if m.layout == State7 {
		ax, ay := x.AtVec(AX), x.AtVec(AY)
		out.SetVec(AX, ax*c-ay*s)
		out.SetVec(AY, ax*s+ay*c)
	}
	return out
}

// Transition returns the analytic F(ω) on the 5-state layout, where ω is a
// constant, and a numerically linearised Jacobian on the 7-state layout.
func (m constantTurn) Transition(x mat.Vector, dt float64) *mat.Dense {
	if m.layout == State7 {
		return numericJacobian(m.Propagate, x, dt)
	}
	F := identity(State5.Dim())
	omega := m.omega
	if math.Abs(omega) < minTurnRate {
		F.Set(X, VX, dt)
		F.Set(Y, VY, dt)
		return F
	}
	s, c := math.Sincos(omega * dt)
	F.Set(X, VX, s/omega)
	F.Set(X, VY, -(1-c)/omega)
	F.Set(Y, VX, (1-c)/omega)
	F.Set(Y, VY, s/omega)
	F.Set(VX, VX, c)
	F.Set(VX, VY, -s)
	F.Set(VY, VX, s)
	F.Set(VY, VY, c)
	return F
}

func (m constantTurn) ProcessNoise(dt float64) *mat.SymDense {
	if m.layout == State7 {
		return accelerationNoise(m.q, dt)
	}
	return velocityNoise(m.q, dt)
}

// numericJacobian linearises f about x with central differences.
func numericJacobian(f func(mat.Vector, float64) *mat.VecDense, x mat.Vector, dt float64) *mat.Dense {
	n := x.Len()
	J := mat.NewDense(n, n, nil)
	probe := mat.NewVecDense(n, nil)
	for j := 0; j < n; j++ {
		h := 1e-6 * math.Max(1, math.Abs(x.AtVec(j)))

		probe.CloneFromVec(x)
		probe.SetVec(j, x.AtVec(j)+h)
		plus := f(probe, dt)

		probe.SetVec(j, x.AtVec(j)-h)
		minus := f(probe, dt)

		for i := 0; i < n; i++ {
			J.Set(i, j, (plus.AtVec(i)-minus.AtVec(i))/(2*h))
		}
	}
	return J
}
