// Package assoc resolves which gated detections belong to which tracks for
// one scan. Munkres produces one hard assignment per track; JPDA produces
// association probabilities over each track's gated candidates together
// with a hard-equivalent pick for lifecycle bookkeeping.
package assoc

import (
	"fmt"
	"strings"

	"github.com/banshee-data/radar-tracker/internal/tracking/gate"
)

// Kind selects an association strategy.
type Kind uint8

const (
	JPDA    Kind = iota + 1 // joint probabilistic data association
	Munkres                 // global nearest neighbour via optimal assignment
)

func (k Kind) String() string {
	switch k {
	case JPDA:
		return "JPDA"
	case Munkres:
		return "Munkres"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind accepts "JPDA", "Munkres" or its alias "GNN", case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpda":
		return JPDA, nil
	case "munkres", "gnn", "hungarian":
		return Munkres, nil
	}
	return 0, fmt.Errorf("unknown association technique %q", s)
}

// Params are the probabilistic tunables used by JPDA. Munkres ignores them.
type Params struct {
	DetectionProbability float64 // PD
	GateProbability      float64 // PG
	ClutterDensity       float64 // λ, false detections per unit volume
	MaxHypotheses        int     // exact enumeration limit per cluster
}

// Validate checks the ranges JPDA needs to produce finite weights.
func (p Params) Validate() error {
	if p.DetectionProbability <= 0 || p.DetectionProbability > 1 {
		return fmt.Errorf("detection probability %v outside (0, 1]", p.DetectionProbability)
	}
	if p.GateProbability <= 0 || p.GateProbability >= 1 {
		return fmt.Errorf("gate probability %v outside (0, 1)", p.GateProbability)
	}
	if p.ClutterDensity <= 0 {
		return fmt.Errorf("clutter density must be positive, got %v", p.ClutterDensity)
	}
	if p.MaxHypotheses < 1 {
		return fmt.Errorf("max hypotheses must be at least 1, got %d", p.MaxHypotheses)
	}
	return nil
}

// Result is the association outcome for one scan.
type Result struct {
	// Hard[i] is the detection index assigned to track i, or -1. Under JPDA
	// it is the hard-equivalent pick.
	Hard []int
	// Weights[i][k] is the probability that candidate k of track i (in
	// gate.Candidates row order) originated from the track. Nil for hard
	// strategies.
	Weights [][]float64
	// Beta0[i] is the probability that none of track i's candidates did.
	Beta0 []float64
	// Claimed[j] marks detections that may not seed a new track.
	Claimed []bool
}

func newResult(tracks, detections int) Result {
	r := Result{
		Hard:    make([]int, tracks),
		Beta0:   make([]float64, tracks),
		Claimed: make([]bool, detections),
	}
	for i := range r.Hard {
		r.Hard[i] = -1
		r.Beta0[i] = 1
	}
	return r
}

// Soft reports whether the result carries JPDA weights.
func (r Result) Soft() bool { return r.Weights != nil }

// Strategy associates a gated candidate set. A non-nil error reports tracks
// that fell back to "no assignment"; the Result is still usable.
type Strategy interface {
	Kind() Kind
	Associate(c *gate.Candidates) (Result, error)
}

// New returns the strategy for kind.
func New(kind Kind, p Params) (Strategy, error) {
	switch kind {
	case Munkres:
		return munkres{}, nil
	case JPDA:
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return jpda{p: p}, nil
	}
	return nil, fmt.Errorf("unknown association technique %s", kind)
}
