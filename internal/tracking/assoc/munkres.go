package assoc

import (
	"fmt"

	"github.com/banshee-data/radar-tracker/internal/tracking/gate"
	"github.com/banshee-data/radar-tracker/internal/tracking/kalman"
)

type munkres struct{}

func (munkres) Kind() Kind { return Munkres }

// Associate builds a tracks × (detections + tracks) cost matrix. Gated pairs
// cost their squared distance; track i's own "no assignment" column costs
// the gate threshold, so no pair worse than the gate is ever preferred to
// leaving the track unassigned.
func (munkres) Associate(c *gate.Candidates) (Result, error) {
	n, m := c.Tracks(), c.Detections
	res := newResult(n, m)
	if n == 0 {
		return res, nil
	}

	cost := make([][]float64, n)
	for i := range cost {
		row := make([]float64, m+n)
		for j := range row {
			row[j] = Forbidden
		}
		for _, cand := range c.Rows[i] {
			row[cand.Detection] = cand.Distance2
		}
		row[m+i] = c.Threshold
		cost[i] = row
	}

	assign := hungarianAssign(cost)
	if err := checkAssignment(assign, m+n); err != nil {
		return res, err
	}
	for i, col := range assign {
		if col >= 0 && col < m {
			res.Hard[i] = col
			res.Claimed[col] = true
		}
	}
	return res, nil
}

// checkAssignment verifies that no column was handed to two rows.
func checkAssignment(assign []int, cols int) error {
	seen := make([]bool, cols)
	for i, col := range assign {
		if col < 0 {
			continue
		}
		if col >= cols || seen[col] {
			return fmt.Errorf("%w: assignment solver returned column %d twice or out of range (row %d)",
				kalman.ErrNumericInstability, col, i)
		}
		seen[col] = true
	}
	return nil
}
