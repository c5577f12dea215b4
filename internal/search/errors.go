package search

import (
	"errors"
	"fmt"
)

var (
	// ErrInfeasible means no assignment satisfies the hard constraints.
	ErrInfeasible = errors.New("no feasible assignment")

	// ErrUnknownStrategy is returned for a strategy name Solve does not know.
	ErrUnknownStrategy = errors.New("unknown search strategy")

	// ErrInvalidAssignment is returned by Validate.
	ErrInvalidAssignment = errors.New("invalid assignment")
)

// InfeasibleError reports why the constraints cannot be met.
type InfeasibleError struct {
	Virtual   int
	Physical  int
	Exclusive bool
}

func (e *InfeasibleError) Error() string {
	if e.Exclusive {
		return fmt.Sprintf("%v: %d virtual objects need distinct proxies but only %d physical objects exist (disable exclusivity to allow reuse)",
			ErrInfeasible, e.Virtual, e.Physical)
	}
	return fmt.Sprintf("%v: %d virtual objects but no physical objects", ErrInfeasible, e.Virtual)
}

func (e *InfeasibleError) Is(target error) bool {
	return target == ErrInfeasible
}
