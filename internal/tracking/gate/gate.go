// Package gate decides which detections are plausible for a track before
// association runs, using the Mahalanobis distance of the innovation and a
// chi-square threshold.
package gate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/radar-tracker/internal/tracking/kalman"
)

// DefaultProbability is the gate probability PG used when none is configured.
const DefaultProbability = 0.99

// Threshold returns the squared-distance gate enclosing the given
// probability mass of a chi-square distribution with dof degrees of freedom.
func Threshold(probability float64, dof int) float64 {
	return distuv.ChiSquared{K: float64(dof)}.Quantile(probability)
}

// Gate evaluates (track, detection) pairs.
type Gate struct {
	Filter kalman.Filter
	// Threshold is the maximum accepted squared Mahalanobis distance.
	Threshold float64
	// MaxSpeed rejects pairs whose residual implies a faster target than
	// this (m/s). Zero disables the check.
	MaxSpeed float64
}

// New returns a Gate for probability pg over the position measurement space.
func New(f kalman.Filter, pg, maxSpeed float64) Gate {
	return Gate{Filter: f, Threshold: Threshold(pg, kalman.MeasDim), MaxSpeed: maxSpeed}
}

// Result is the gate outcome for one pair.
type Result struct {
	Distance2  float64
	Passed     bool
	Likelihood float64
	S          *mat.SymDense
}

// Evaluate gates measurement m against the predicted state x, P. dt is the
// prediction interval used for the implied-speed check. A pair that cannot be
// evaluated is returned as not passed with an infinite distance together
// with the reason.
func (g Gate) Evaluate(x *mat.VecDense, P *mat.SymDense, m kalman.Measurement, dt float64) (Result, error) {
	rejected := Result{Distance2: math.Inf(1)}

	in, err := g.Filter.Innovation(x, P, m)
	if err != nil {
		return rejected, err
	}
	rejected.S = in.S

	if g.MaxSpeed > 0 && dt > 0 {
		if mat.Norm(in.Nu, 2)/dt > g.MaxSpeed {
			return rejected, nil
		}
	}

	d2 := in.Distance2()
	if math.IsNaN(d2) || math.IsInf(d2, 0) {
		return rejected, nil
	}
	return Result{
		Distance2:  d2,
		Passed:     d2 <= g.Threshold,
		Likelihood: in.Likelihood(),
		S:          in.S,
	}, nil
}

// Candidate is one detection that passed a track's gate.
type Candidate struct {
	Detection  int
	Distance2  float64
	Likelihood float64
}

// Candidates is the sparse gated set for one scan. Row i lists the
// detections inside track i's gate, ordered by detection index.
type Candidates struct {
	Threshold  float64
	Detections int
	Rows       [][]Candidate
}

// NewCandidates allocates an empty set for the given problem size. Rows may
// be filled concurrently, one goroutine per row.
func NewCandidates(tracks, detections int, threshold float64) *Candidates {
	return &Candidates{
		Threshold:  threshold,
		Detections: detections,
		Rows:       make([][]Candidate, tracks),
	}
}

// Tracks returns the number of tracks in the set.
func (c *Candidates) Tracks() int { return len(c.Rows) }

// SetRow stores track i's candidates, sorted by detection index.
func (c *Candidates) SetRow(i int, row []Candidate) {
	sort.Slice(row, func(a, b int) bool { return row[a].Detection < row[b].Detection })
	c.Rows[i] = row
}

// Lookup returns the candidate for (track, detection) if it was gated in.
func (c *Candidates) Lookup(track, detection int) (Candidate, bool) {
	row := c.Rows[track]
	k := sort.Search(len(row), func(k int) bool { return row[k].Detection >= detection })
	if k < len(row) && row[k].Detection == detection {
		return row[k], true
	}
	return Candidate{}, false
}
