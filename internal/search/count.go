package search

import (
	"fmt"
	"math"

	"proxeek/internal/scene"
)

// CandidateCount returns how many complete assignments exist: the number of
// k-permutations of n when exclusive, n^k otherwise. The count saturates at
// math.MaxInt64.
func CandidateCount(numVirtual, numPhysical int, exclusive bool) int64 {
	if numVirtual == 0 {
		return 1
	}
	if numPhysical == 0 || (exclusive && numPhysical < numVirtual) {
		return 0
	}
	total := int64(1)
	for d := 0; d < numVirtual; d++ {
		f := int64(numPhysical)
		if exclusive {
			f -= int64(d)
		}
		if total > math.MaxInt64/f {
			return math.MaxInt64
		}
		total *= f
	}
	return total
}

// CheckFeasible returns an *InfeasibleError when no assignment exists.
func CheckFeasible(numVirtual, numPhysical int, exclusive bool) error {
	if numVirtual == 0 {
		return nil
	}
	if numPhysical == 0 || (exclusive && numPhysical < numVirtual) {
		return &InfeasibleError{Virtual: numVirtual, Physical: numPhysical, Exclusive: exclusive}
	}
	return nil
}

// Validate checks the hard constraints on x: every row is binary and sums to
// exactly 1, and when exclusive every column sums to at most 1.
func Validate(x *scene.Matrix, exclusive bool) error {
	cols := make([]int, x.Cols())
	for i := 0; i < x.Rows(); i++ {
		ones := 0
		for j := 0; j < x.Cols(); j++ {
			switch x.At(i, j) {
			case 0:
			case 1:
				ones++
				cols[j]++
			default:
				return fmt.Errorf("%w: X[%d][%d] = %v is not binary", ErrInvalidAssignment, i, j, x.At(i, j))
			}
		}
		if ones != 1 {
			return fmt.Errorf("%w: row %d sums to %d", ErrInvalidAssignment, i, ones)
		}
	}
	if exclusive {
		for j, n := range cols {
			if n > 1 {
				return fmt.Errorf("%w: physical object %d is assigned %d times", ErrInvalidAssignment, j, n)
			}
		}
	}
	return nil
}
