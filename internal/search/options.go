package search

import (
	"time"

	"proxeek/internal/loss"
	"proxeek/internal/scene"
)

// Strategy selects how Solve explores the assignment space.
type Strategy string

const (
	// StrategyAuto uses the assignment solver when the interaction term
	// cannot contribute and exhaustive enumeration otherwise.
	StrategyAuto Strategy = "auto"

	// StrategyExhaustive enumerates every permutation (exclusive) or
	// Cartesian product (non-exclusive) of physical indices.
	StrategyExhaustive Strategy = "exhaustive"

	// StrategyAssignment solves the linear part exactly: Hungarian method
	// when exclusive, per-row minimum otherwise. Ignores interactions when
	// choosing, so it is only exact when the interaction term is inactive.
	StrategyAssignment Strategy = "assignment"
)

// ParseStrategy maps a config value to a Strategy. Empty means auto.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyExhaustive, StrategyAssignment:
		return Strategy(s), nil
	}
	return "", ErrUnknownStrategy
}

// Options configures Solve. The zero value is a single-worker, non-exclusive,
// uncapped auto search; use DefaultOptions for the usual settings.
type Options struct {
	Exclusive     bool
	Strategy      Strategy
	Workers       int   // <= 0 means runtime.NumCPU()
	MaxCandidates int64 // 0 means unlimited
	BlowupWarning int64 // warn when the candidate count exceeds this; 0 disables
}

// DefaultOptions returns exclusive auto search on all CPUs.
func DefaultOptions() Options {
	return Options{
		Exclusive:     true,
		Strategy:      StrategyAuto,
		BlowupWarning: 1000000,
	}
}

// Result is the accepted assignment.
type Result struct {
	Choice    []int         // Choice[i] is the physical index assigned to virtual i
	Matrix    *scene.Matrix // binary [virtual][physical] form of Choice
	Breakdown loss.Breakdown

	Strategy        Strategy // the strategy actually run
	Exact           bool     // false when the assignment solver ran with interactions active
	Truncated       bool     // a candidate cap or deadline stopped enumeration early
	Candidates      int64    // complete candidates evaluated
	TotalCandidates int64    // size of the search space, saturated at math.MaxInt64
	Elapsed         time.Duration
}
