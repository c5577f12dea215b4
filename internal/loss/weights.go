package loss

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWeights is returned when a weight is negative or not finite.
var ErrInvalidWeights = errors.New("invalid loss weights")

// Weights scales the three loss terms in the total.
type Weights struct {
	Realism     float64 `json:"realism" yaml:"realism"`
	Priority    float64 `json:"priority" yaml:"priority"`
	Interaction float64 `json:"interaction" yaml:"interaction"`
}

// DefaultWeights returns 1.0 / 0.5 / 0.3.
func DefaultWeights() Weights {
	return Weights{Realism: 1.0, Priority: 0.5, Interaction: 0.3}
}

// Validate checks that every weight is finite and non-negative.
func (w Weights) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"realism", w.Realism},
		{"priority", w.Priority},
		{"interaction", w.Interaction},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return fmt.Errorf("%w: %s weight %v", ErrInvalidWeights, f.name, f.v)
		}
	}
	return nil
}
