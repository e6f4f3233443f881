package assoc

import "math"

// Forbidden is the cost of a (track, column) pair the solver must never
// choose.
const Forbidden = 1e18

// hungarianAssign solves the rectangular assignment problem for an n×m cost
// matrix using Kuhn–Munkres with potentials. It returns assignments[i] = the
// column assigned to row i, or -1. Costs ≥ Forbidden are never returned.
// A matrix with more rows than columns is padded with Forbidden columns.
func hungarianAssign(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	result := make([]int, n)
	for i := range result {
		result[i] = -1
	}
	if m == 0 {
		return result
	}

	// The potentials form works on n ≤ cols directly; only a tall matrix
	// needs Forbidden columns so that every row can be matched.
	cols := m
	if n > cols {
		cols = n
	}
	c := make([][]float64, n)
	for i := 0; i < n; i++ {
		c[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			if j < m {
				c[i][j] = cost[i][j]
			} else {
				c[i][j] = Forbidden
			}
		}
	}

	// 1-indexed; column 0 is virtual.
	const inf = math.MaxFloat64 / 2
	u := make([]float64, n+1)
	v := make([]float64, cols+1)
	p := make([]int, cols+1)   // p[j] = row matched to column j
	way := make([]int, cols+1) // previous column on the augmenting path
	minv := make([]float64, cols+1)
	used := make([]bool, cols+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		for j := 1; j <= cols; j++ {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= cols; j++ {
				if used[j] {
					continue
				}
				cur := c[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			if j1 < 0 {
				break
			}
			for j := 0; j <= cols; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			p[j0] = p[way[j0]]
			j0 = way[j0]
		}
	}

	for j := 1; j <= cols; j++ {
		row := p[j] - 1
		col := j - 1
		if row < 0 || row >= n || col >= m || cost[row][col] >= Forbidden {
			continue
		}
		result[row] = col
	}
	return result
}
