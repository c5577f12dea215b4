package loss

import "proxeek/internal/scene"

// Pair is one annotated contact→substrate relation between two virtual objects.
type Pair struct {
	Contact   int
	Substrate int
	Weight    float64 // Exists[Contact][Substrate]
}

// Model precomputes the per-cell and per-pair costs of a Problem under fixed
// weights so that a choice vector can be scored without building a matrix.
// A Model is read-only after NewModel and safe for concurrent use.
type Model struct {
	problem *scene.Problem
	weights Weights

	ceiling []float64   // priority[i] * max(Realism[i])
	unary   [][]float64 // weighted realism + priority cost of virtual i taking physical j
	pairs   []Pair
	closing [][]Pair // closing[d] holds the pairs whose later endpoint is d
}

// NewModel builds a Model for p under w.
func NewModel(p *scene.Problem, w Weights) *Model {
	nv, np := p.NumVirtual(), p.NumPhysical()
	m := &Model{
		problem: p,
		weights: w,
		ceiling: make([]float64, nv),
		unary:   make([][]float64, nv),
		closing: make([][]Pair, nv),
	}

	for i, priority := range p.Priorities() {
		m.ceiling[i] = priority * p.Realism.RowMax(i)
		row := make([]float64, np)
		for j := 0; j < np; j++ {
			r := p.Realism.At(i, j)
			row[j] = -(w.Realism*r + w.Priority*m.ceiling[i]*r)
		}
		m.unary[i] = row
	}

	for i := 0; i < nv; i++ {
		for k := 0; k < nv; k++ {
			e := p.Exists.At(i, k)
			if e == 0 {
				continue
			}
			pair := Pair{Contact: i, Substrate: k, Weight: e}
			m.pairs = append(m.pairs, pair)
			later := i
			if k > later {
				later = k
			}
			m.closing[later] = append(m.closing[later], pair)
		}
	}
	return m
}

func (m *Model) Problem() *scene.Problem { return m.problem }
func (m *Model) Weights() Weights        { return m.weights }
func (m *Model) Pairs() []Pair           { return m.pairs }

// InteractionActive reports whether the interaction term can change the total.
// When it cannot, the total is a linear sum of per-cell costs.
func (m *Model) InteractionActive() bool {
	return m.weights.Interaction != 0 && len(m.pairs) > 0
}

// Unary returns the weighted realism and priority cost of virtual i taking physical j.
func (m *Model) Unary(i, j int) float64 {
	return m.unary[i][j]
}

// Step returns the cost added by fixing choice[d], given choice[0:d] already
// fixed: the unary cost plus every weighted interaction whose later endpoint is d.
func (m *Model) Step(d int, choice []int) float64 {
	cost := m.unary[d][choice[d]]
	if m.weights.Interaction == 0 {
		return cost
	}
	for _, pr := range m.closing[d] {
		cost -= m.weights.Interaction * pr.Weight * m.problem.Interaction.At(choice[pr.Contact], choice[pr.Substrate])
	}
	return cost
}

// Evaluate scores a complete choice vector term by term.
func (m *Model) Evaluate(choice []int) Breakdown {
	p := m.problem
	realism, priority := 0.0, 0.0
	for i, j := range choice {
		r := p.Realism.At(i, j)
		realism -= r
		priority -= m.ceiling[i] * r
	}
	return m.weights.Combine(realism, priority, interaction(p, choice))
}

// Matrix expands a choice vector into the binary assignment matrix.
func (m *Model) Matrix(choice []int) *scene.Matrix {
	return ChoiceMatrix(choice, m.problem.NumPhysical())
}

// ChoiceMatrix expands a choice vector into a len(choice) x cols binary matrix.
func ChoiceMatrix(choice []int, cols int) *scene.Matrix {
	x := scene.NewMatrix(len(choice), cols)
	for i, j := range choice {
		x.Set(i, j, 1)
	}
	return x
}
