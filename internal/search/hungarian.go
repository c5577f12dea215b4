package search

import (
	"math"

	"proxeek/internal/loss"
)

// solveLinear minimizes the sum of unary costs, ignoring interactions.
// Exclusive problems go through the Hungarian method; otherwise each virtual
// object independently takes its cheapest proxy, lowest index on ties.
// It reports false when an exclusive problem has a non-finite cost, which
// the potentials cannot absorb.
func solveLinear(model *loss.Model, exclusive bool) ([]int, bool) {
	p := model.Problem()
	nv, np := p.NumVirtual(), p.NumPhysical()

	if !exclusive {
		choice := make([]int, nv)
		for i := 0; i < nv; i++ {
			bestJ, bestCost := 0, model.Unary(i, 0)
			for j := 1; j < np; j++ {
				if c := model.Unary(i, j); c < bestCost {
					bestJ, bestCost = j, c
				}
			}
			choice[i] = bestJ
		}
		return choice, true
	}

	cost := make([][]float64, nv)
	for i := range cost {
		cost[i] = make([]float64, np)
		for j := range cost[i] {
			c := model.Unary(i, j)
			if math.IsInf(c, 0) || math.IsNaN(c) {
				return nil, false
			}
			cost[i][j] = c
		}
	}
	return hungarian(cost, nv, np)
}

// hungarian solves the rectangular assignment problem for an n x m cost
// matrix with n <= m using row and column potentials. It returns, for each
// row, the column assigned to it, or false if the potentials stop being
// finite.
func hungarian(cost [][]float64, n, m int) ([]int, bool) {
	u := make([]float64, n+1)
	v := make([]float64, m+1)
	match := make([]int, m+1) // match[j] is the 1-based row holding column j
	way := make([]int, m+1)

	minv := make([]float64, m+1)
	used := make([]bool, m+1)
	for i := 1; i <= n; i++ {
		match[0] = i
		j0 := 0
		for j := range minv {
			minv[j] = math.Inf(1)
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := match[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= m; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			if j1 == 0 || math.IsInf(delta, 0) || math.IsNaN(delta) {
				return nil, false
			}
			for j := 0; j <= m; j++ {
				if used[j] {
					u[match[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if match[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			match[j0] = match[j1]
			j0 = j1
		}
	}

	rows := make([]int, n)
	for j := 1; j <= m; j++ {
		if match[j] != 0 {
			rows[match[j]-1] = j - 1
		}
	}
	return rows, true
}
