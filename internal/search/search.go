// Package search finds the minimum-loss proxy assignment.
//
// Solve enforces the hard constraints (one proxy per virtual object, and with
// exclusivity no proxy reused) and picks a strategy: exhaustive enumeration
// spread over a worker pool, or an exact linear assignment solve when the
// interaction term cannot affect the result.
package search

import (
	"context"
	"fmt"
	"time"

	"proxeek/internal/logging"
	"proxeek/internal/loss"
	"proxeek/internal/scene"
)

// Solve returns the best assignment for p under w.
//
// Errors: *InfeasibleError (ErrInfeasible) when the constraints cannot be
// met, loss.ErrInvalidWeights, ErrUnknownStrategy, or the context error when
// the context ends before any candidate was evaluated. A context that ends
// later, or a MaxCandidates cap, yields the best assignment found so far with
// Truncated set.
func Solve(ctx context.Context, p *scene.Problem, w loss.Weights, opts Options) (*Result, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	strategy, err := ParseStrategy(string(opts.Strategy))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, opts.Strategy)
	}

	nv, np := p.NumVirtual(), p.NumPhysical()
	if err := CheckFeasible(nv, np, opts.Exclusive); err != nil {
		logging.SearchWarn("%v", err)
		return nil, err
	}

	start := time.Now()
	model := loss.NewModel(p, w)
	total := CandidateCount(nv, np, opts.Exclusive)

	if strategy == StrategyAuto {
		switch {
		case model.InteractionActive():
			strategy = StrategyExhaustive
		case p.HasInteractions():
			strategy = StrategyAssignment
			logging.SearchDebug("interaction weight is 0; solving as a linear assignment")
		default:
			strategy = StrategyAssignment
			logging.SearchDebug("no interacting pairs; solving as a linear assignment")
		}
	}

	res := &Result{
		Strategy:        strategy,
		Exact:           true,
		TotalCandidates: total,
	}

	if nv == 0 {
		res.Choice = []int{}
		res.Matrix = scene.NewMatrix(0, np)
		res.Breakdown = model.Evaluate(res.Choice)
		res.Elapsed = time.Since(start)
		logging.Search("No virtual objects to assign")
		return res, nil
	}

	logging.Search("Searching %d virtual x %d physical objects (exclusive=%v, strategy=%s, %d candidate assignments)",
		nv, np, opts.Exclusive, strategy, total)

	if strategy == StrategyAssignment {
		if model.InteractionActive() {
			res.Exact = false
			logging.SearchWarn("assignment strategy ignores %d interacting pairs; result is approximate", len(model.Pairs()))
		}
		if choice, ok := solveLinear(model, opts.Exclusive); ok {
			res.Choice = choice
			res.Candidates = 1
		} else {
			logging.SearchWarn("assignment costs overflow; falling back to exhaustive search")
			strategy = StrategyExhaustive
			res.Strategy = strategy
			res.Exact = true
		}
	}

	if strategy == StrategyExhaustive {
		if opts.BlowupWarning > 0 && total > opts.BlowupWarning {
			logging.SearchWarn("exhaustive search over %d candidates exceeds %d; consider max_candidates or a timeout",
				total, opts.BlowupWarning)
		}
		out, err := enumerate(ctx, model, opts, total)
		if err != nil {
			return nil, err
		}
		res.Choice = out.choice
		res.Candidates = out.evaluated
		res.Truncated = out.truncated
	}

	res.Matrix = model.Matrix(res.Choice)
	if err := Validate(res.Matrix, opts.Exclusive); err != nil {
		return nil, fmt.Errorf("search produced an invalid assignment: %w", err)
	}
	res.Breakdown = model.Evaluate(res.Choice)
	res.Elapsed = time.Since(start)

	if res.Truncated {
		logging.SearchWarn("search stopped early after %d of %d candidates; returning best found so far",
			res.Candidates, total)
	}
	logging.Search("Best assignment: total loss %.4f (%d candidates in %v)",
		res.Breakdown.Total, res.Candidates, res.Elapsed)
	logging.Get(logging.CategoryLoss).Debug("L_realism=%.4f L_priority=%.4f L_interaction=%.4f",
		res.Breakdown.Realism, res.Breakdown.Priority, res.Breakdown.Interaction)
	return res, nil
}
