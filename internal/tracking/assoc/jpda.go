package assoc

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/radar-tracker/internal/tracking/gate"
	"github.com/banshee-data/radar-tracker/internal/tracking/kalman"
)

type jpda struct {
	p Params
}

func (jpda) Kind() Kind { return JPDA }

// Associate splits the gate graph into clusters of tracks that compete for
// detections and computes association probabilities per cluster: exactly
// by enumerating joint events when there are at most MaxHypotheses of them,
// otherwise with the cheap-JPDA approximation. A detection is claimed when
// it is some track's hard-equivalent pick or its total association weight
// reaches claimWeight.
func (a jpda) Associate(c *gate.Candidates) (Result, error) {
	n := c.Tracks()
	res := newResult(n, c.Detections)
	res.Weights = make([][]float64, n)
	for i, row := range c.Rows {
		res.Weights[i] = make([]float64, len(row))
	}

	var errs []error
	for _, cluster := range clusters(c) {
		if len(cluster) == 1 && len(c.Rows[cluster[0]]) == 0 {
			continue
		}
		err := a.exact(c, cluster, &res)
		if errors.Is(err, errTooManyHypotheses) {
			err = a.cheap(c, cluster, &res)
		}
		if err != nil {
			for _, i := range cluster {
				for k := range res.Weights[i] {
					res.Weights[i][k] = 0
				}
				res.Beta0[i] = 1
				for _, cand := range c.Rows[i] {
					res.Claimed[cand.Detection] = true
				}
			}
			errs = append(errs, err)
		}
	}

	if err := hardEquivalent(c, &res); err != nil {
		errs = append(errs, err)
	}
	total := make([]float64, c.Detections)
	for i, row := range c.Rows {
		for k, cand := range row {
			total[cand.Detection] += res.Weights[i][k]
		}
	}
	for j, w := range total {
		if w >= claimWeight {
			res.Claimed[j] = true
		}
	}
	return res, errors.Join(errs...)
}

// claimWeight is the summed association probability above which a
// detection is considered explained by existing tracks and may not seed a
// new one.
const claimWeight = 0.5

// hardEquivalent picks at most one detection per track and at most one
// track per detection, maximising the product of the chosen probabilities.
// Each track has its own miss column costing −log β0, so an uncontested
// track keeps its argmax candidate only when it beats β0.
func hardEquivalent(c *gate.Candidates, res *Result) error {
	n, m := c.Tracks(), c.Detections
	if n == 0 {
		return nil
	}
	cost := make([][]float64, n)
	for i, row := range c.Rows {
		r := make([]float64, m+n)
		for j := range r {
			r[j] = Forbidden
		}
		for k, cand := range row {
			if w := res.Weights[i][k]; w > 0 {
				r[cand.Detection] = -math.Log(w)
			}
		}
		r[m+i] = Forbidden / 2
		if res.Beta0[i] > 0 {
			r[m+i] = -math.Log(res.Beta0[i])
		}
		cost[i] = r
	}

	assign := hungarianAssign(cost)
	if err := checkAssignment(assign, m+n); err != nil {
		return err
	}
	for i, col := range assign {
		if col >= 0 && col < m {
			res.Hard[i] = col
			res.Claimed[col] = true
		}
	}
	return nil
}

var errTooManyHypotheses = errors.New("too many joint hypotheses")

// logScore is PD·g/λ for a candidate, in log space.
func (a jpda) logScore(cand gate.Candidate) float64 {
	return math.Log(a.p.DetectionProbability) + math.Log(cand.Likelihood) - math.Log(a.p.ClutterDensity)
}

// logMiss is the weight of a track having no detection: 1 − PD·PG.
func (a jpda) logMiss() float64 {
	return math.Log(1 - a.p.DetectionProbability*a.p.GateProbability)
}

// exact enumerates every feasible joint event of the cluster: each track
// takes at most one of its candidates and no detection is taken twice.
func (a jpda) exact(c *gate.Candidates, cluster []int, res *Result) error {
	type event struct {
		logw float64
		pick []int // candidate index per cluster track, -1 for a miss
	}

	logMiss := a.logMiss()
	scores := make([][]float64, len(cluster))
	for k, i := range cluster {
		scores[k] = make([]float64, len(c.Rows[i]))
		for ci, cand := range c.Rows[i] {
			scores[k][ci] = a.logScore(cand)
		}
	}

	var events []event
	pick := make([]int, len(cluster))
	taken := make(map[int]bool)
	var walk func(k int, logw float64) error
	walk = func(k int, logw float64) error {
		if k == len(cluster) {
			if len(events) >= a.p.MaxHypotheses {
				return errTooManyHypotheses
			}
			events = append(events, event{logw: logw, pick: append([]int(nil), pick...)})
			return nil
		}
		pick[k] = -1
		if err := walk(k+1, logw+logMiss); err != nil {
			return err
		}
		for ci, cand := range c.Rows[cluster[k]] {
			if taken[cand.Detection] {
				continue
			}
			taken[cand.Detection] = true
			pick[k] = ci
			err := walk(k+1, logw+scores[k][ci])
			taken[cand.Detection] = false
			if err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(0, 0); err != nil {
		return err
	}

	maxLog := math.Inf(-1)
	for _, ev := range events {
		maxLog = math.Max(maxLog, ev.logw)
	}
	var total float64
	for _, ev := range events {
		total += math.Exp(ev.logw - maxLog)
	}
	if total == 0 || math.IsNaN(total) || math.IsInf(total, 0) || math.IsInf(maxLog, 0) {
		return fmt.Errorf("%w: JPDA normaliser %v for cluster of %d tracks",
			kalman.ErrNumericInstability, total, len(cluster))
	}

	for _, i := range cluster {
		res.Beta0[i] = 0
	}
	for _, ev := range events {
		w := math.Exp(ev.logw-maxLog) / total
		for k, ci := range ev.pick {
			i := cluster[k]
			if ci < 0 {
				res.Beta0[i] += w
			} else {
				res.Weights[i][ci] += w
			}
		}
	}
	return nil
}

// cheap approximates the marginals (Fitzgerald): a candidate's weight is
// reduced by the total score of every other track gating the same
// detection.
func (a jpda) cheap(c *gate.Candidates, cluster []int, res *Result) error {
	bias := 1 - a.p.DetectionProbability*a.p.GateProbability

	score := make(map[int][]float64, len(cluster))
	perDetection := make(map[int]float64)
	perTrack := make(map[int]float64, len(cluster))
	for _, i := range cluster {
		row := make([]float64, len(c.Rows[i]))
		for ci, cand := range c.Rows[i] {
			s := math.Exp(a.logScore(cand))
			row[ci] = s
			perDetection[cand.Detection] += s
			perTrack[i] += s
		}
		score[i] = row
	}

	for _, i := range cluster {
		var sum float64
		for ci, cand := range c.Rows[i] {
			s := score[i][ci]
			w := s / (perTrack[i] + perDetection[cand.Detection] - s + bias)
			res.Weights[i][ci] = w
			sum += w
		}
		if math.IsNaN(sum) || math.IsInf(sum, 0) {
			return fmt.Errorf("%w: cheap JPDA weights not finite for track index %d",
				kalman.ErrNumericInstability, i)
		}
		if sum > 1 {
			for ci := range res.Weights[i] {
				res.Weights[i][ci] /= sum
			}
			sum = 1
		}
		res.Beta0[i] = 1 - sum
	}
	return nil
}

// clusters returns the connected components of the gate graph as lists of
// track indices, each sorted ascending, ordered by their first track.
func clusters(c *gate.Candidates) [][]int {
	n := c.Tracks()
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	owner := make(map[int]int)
	for i, row := range c.Rows {
		for _, cand := range row {
			if first, ok := owner[cand.Detection]; ok {
				union(first, i)
			} else {
				owner[cand.Detection] = i
			}
		}
	}

	index := make(map[int]int)
	var out [][]int
	for i := 0; i < n; i++ {
		root := find(i)
		k, ok := index[root]
		if !ok {
			k = len(out)
			index[root] = k
			out = append(out, nil)
		}
		out[k] = append(out[k], i)
	}
	return out
}
