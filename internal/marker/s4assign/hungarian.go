// Package s4assign solves the per-window slot-to-label assignment as a
// minimum-cost bipartite matching, so that minimizing summed negative
// log-probability maximizes the joint likelihood of the window's labels
// under the uniqueness constraint.
package s4assign

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// hungarian solves the balanced assignment problem for a square cost
// matrix in O(n³) using the Kuhn–Munkres algorithm with potentials
// (Jonker–Volgenant variant). Returns assign[i] = column matched to row i.
//
// The solver is deterministic: rows are settled in index order and the
// augmenting search scans columns in index order, so equal-cost solutions
// always resolve toward the lower row index.
func hungarian(c *mat.Dense) []int {
	dim, cols := c.Dims()
	if dim == 0 || dim != cols {
		return nil
	}

	const inf = math.MaxFloat64 / 2

	// 1-indexed internally for cleaner index arithmetic.
	u := make([]float64, dim+1)    // row potentials
	v := make([]float64, dim+1)    // column potentials
	p := make([]int, dim+1)        // p[j] = row assigned to column j
	way := make([]int, dim+1)      // way[j] = previous column on the augmenting path
	minv := make([]float64, dim+1) // minimal reduced cost seen per column
	used := make([]bool, dim+1)

	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0 // virtual column

		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1

			row := c.RawRowView(i0 - 1)
			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				cur := row[j-1] - u[i0] - v[j]
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

			for j := 0; j <= dim; j++ {
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

		// Augment along the path back to the virtual column.
		for j0 != 0 {
			p[j0] = p[way[j0]]
			j0 = way[j0]
		}
	}

	assign := make([]int, dim)
	for i := range assign {
		assign[i] = -1
	}
	for j := 1; j <= dim; j++ {
		if p[j] > 0 && p[j] <= dim {
			assign[p[j]-1] = j - 1
		}
	}
	return assign
}
