// Package motion defines the kinematic process models used by the tracker.
//
// A Model pairs a state Layout (3, 5 or 7 components) with a motion
// assumption (constant velocity, constant acceleration or constant turn) and
// provides the state propagation, its Jacobian, and the process-noise
// covariance for a time step. Linear models return the same matrix from
// Transition for every state; the constant-turn model is linearised about
// the state it is given.
package motion

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ErrIncompatible is returned when a motion model cannot operate on the
// requested state layout.
var ErrIncompatible = errors.New("motion model incompatible with state layout")

// State vector component indices, shared by all layouts. A layout only
// carries the components below its dimension.
const (
	X  = 0
	Y  = 1
	Z  = 2
	VX = 3
	VY = 4
	AX = 5
	AY = 6
)

// Layout is the state dimension chosen at track initiation.
type Layout int

const (
	State3 Layout = 3 // [x y z]
	State5 Layout = 5 // [x y z vx vy]
	State7 Layout = 7 // [x y z vx vy ax ay]
)

// Dim returns the state vector length.
func (l Layout) Dim() int { return int(l) }

// HasVelocity reports whether the layout carries velocity components.
func (l Layout) HasVelocity() bool { return l >= State5 }

// HasAcceleration reports whether the layout carries acceleration components.
func (l Layout) HasAcceleration() bool { return l >= State7 }

func (l Layout) String() string { return fmt.Sprintf("%d-state", int(l)) }

// ParseLayout accepts "3-state", "5-state", "7-state" or the bare digit.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "3-state", "3":
		return State3, nil
	case "5-state", "5":
		return State5, nil
	case "7-state", "7":
		return State7, nil
	}
	return 0, fmt.Errorf("unknown track initiation mode %q", s)
}

// Kind names a motion assumption.
type Kind uint8

const (
	CV Kind = iota + 1 // constant velocity
	CA                 // constant acceleration
	CT                 // constant (coordinated) turn
)

func (k Kind) String() string {
	switch k {
	case CV:
		return "CV"
	case CA:
		return "CA"
	case CT:
		return "CT"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind parses "CV", "CA" or "CT", case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CV":
		return CV, nil
	case "CA":
		return CA, nil
	case "CT":
		return CT, nil
	}
	return 0, fmt.Errorf("unknown motion model %q", s)
}

// Model is a kinematic process model for one state layout.
type Model interface {
	Kind() Kind
	Layout() Layout
	// Propagate returns f(x, dt), the state advanced by dt seconds.
	Propagate(x mat.Vector, dt float64) *mat.VecDense
	// Transition returns the Jacobian of Propagate evaluated at x.
	Transition(x mat.Vector, dt float64) *mat.Dense
	// ProcessNoise returns Q for a step of dt seconds.
	ProcessNoise(dt float64) *mat.SymDense
}

// Params carries the tunables shared by all models.
type Params struct {
	PlantNoise float64 // process noise intensity q
	TurnRate   float64 // assumed turn rate for CT (rad/s)
}

// Compatible lists the motion models each layout supports. A 3-state track
// has no velocity to turn or accelerate, and only the 7-state layout
// carries acceleration.
var Compatible = map[Layout][]Kind{
	State3: {CV},
	State5: {CV, CT},
	State7: {CA, CT},
}

// New builds the model for kind on layout, or returns an error wrapping
// ErrIncompatible for an unsupported pair.
func New(kind Kind, layout Layout, p Params) (Model, error) {
	allowed, ok := Compatible[layout]
	if !ok {
		return nil, fmt.Errorf("unknown state layout %d", int(layout))
	}
	found := false
	for _, k := range allowed {
		if k == kind {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %s with %s", ErrIncompatible, kind, layout)
	}

	switch kind {
	case CV:
		return constantVelocity{layout: layout, q: p.PlantNoise}, nil
	case CA:
		return constantAcceleration{q: p.PlantNoise}, nil
	case CT:
		return constantTurn{layout: layout, q: p.PlantNoise, omega: p.TurnRate}, nil
	}
	return nil, fmt.Errorf("unknown motion model %s", kind)
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func applyLinear(F *mat.Dense, x mat.Vector) *mat.VecDense {
	out := mat.NewVecDense(x.Len(), nil)
	out.MulVec(F, x)
	return out
}
