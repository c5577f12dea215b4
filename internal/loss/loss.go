// Package loss scores proxy assignments.
//
// Every term is negated so that the search minimizes: a better assignment
// has a lower (more negative) loss. The matrix forms take a binary
// [virtual][physical] assignment matrix; Model evaluates the same terms over
// a choice vector, where choice[i] is the physical index given to virtual i.
package loss

import "proxeek/internal/scene"

// Breakdown holds the three unweighted terms and the weighted total.
type Breakdown struct {
	Realism     float64 `json:"L_realism"`
	Priority    float64 `json:"L_priority"`
	Interaction float64 `json:"L_interaction"`
	Total       float64 `json:"total"`
}

// Combine applies w to the three terms.
func (w Weights) Combine(realism, priority, interaction float64) Breakdown {
	return Breakdown{
		Realism:     realism,
		Priority:    priority,
		Interaction: interaction,
		Total:       w.Realism*realism + w.Priority*priority + w.Interaction*interaction,
	}
}

// RealismLoss is -Σ Realism[i][j]·X[i][j].
func RealismLoss(p *scene.Problem, x *scene.Matrix) float64 {
	return -p.Realism.Dot(x)
}

// PriorityLoss is -Σ priority[i]·max(Realism[i])·Σⱼ Realism[i][j]·X[i][j].
func PriorityLoss(p *scene.Problem, x *scene.Matrix) float64 {
	priorities := p.Priorities()
	sum := 0.0
	for i := 0; i < x.Rows(); i++ {
		sum += priorities[i] * p.Realism.RowMax(i) * p.Realism.RowDot(i, x)
	}
	return -sum
}

// InteractionLoss is -Σ Exists[i][k]·Interaction[argmax X[i]][argmax X[k]].
func InteractionLoss(p *scene.Problem, x *scene.Matrix) float64 {
	proxies := make([]int, x.Rows())
	for i := range proxies {
		proxies[i] = x.RowArgMax(i)
	}
	return interaction(p, proxies)
}

// TotalLoss evaluates all three terms on x and weights them.
func TotalLoss(p *scene.Problem, w Weights, x *scene.Matrix) Breakdown {
	return w.Combine(RealismLoss(p, x), PriorityLoss(p, x), InteractionLoss(p, x))
}

func interaction(p *scene.Problem, proxies []int) float64 {
	sum := 0.0
	for i := range proxies {
		for k := range proxies {
			if p.Exists.At(i, k) == 0 || proxies[i] < 0 || proxies[k] < 0 {
				continue
			}
			sum += p.Exists.At(i, k) * p.Interaction.At(proxies[i], proxies[k])
		}
	}
	return -sum
}
