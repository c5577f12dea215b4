package search

import (
	"context"
	"runtime"
	"sync/atomic"

	"proxeek/internal/logging"
	"proxeek/internal/loss"

	"golang.org/x/sync/errgroup"
)

const (
	progressInterval    = 1 << 16
	cancelCheckInterval = 1 << 10
)

// budget is shared by every partition of one enumeration.
type budget struct {
	limit     int64
	total     int64
	evaluated atomic.Int64
	halted    atomic.Bool
	truncated atomic.Bool
}

func (b *budget) halt() {
	b.truncated.Store(true)
	b.halted.Store(true)
}

// best is a partition's local minimum.
type best struct {
	choice []int
	cost   float64
	found  bool
}

type enumeration struct {
	choice    []int
	evaluated int64
	truncated bool
}

// enumerate walks every permutation (exclusive) or product (non-exclusive)
// of physical indices. The space is split on the first virtual object's
// proxy; each partition is walked depth-first in lexicographic order and
// keeps the first strict minimum it sees. Partition results are reduced in
// index order with the same strict comparison, so the lexicographically
// smallest minimal sequence wins regardless of worker count.
func enumerate(ctx context.Context, model *loss.Model, opts Options, total int64) (enumeration, error) {
	np := model.Problem().NumPhysical()
	shared := &budget{limit: opts.MaxCandidates, total: total}
	parts := make([]best, np)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(opts.Workers, np))
	for first := 0; first < np; first++ {
		g.Go(func() error {
			w := newWalker(gctx, model, opts.Exclusive, shared)
			parts[first] = w.run(first)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return enumeration{}, err
	}

	var winner best
	for _, b := range parts {
		if b.found && (!winner.found || b.cost < winner.cost) {
			winner = b
		}
	}

	evaluated := shared.evaluated.Load()
	if shared.limit > 0 && evaluated > shared.limit {
		evaluated = shared.limit
	}
	if !winner.found {
		if err := ctx.Err(); err != nil {
			return enumeration{}, err
		}
	}
	return enumeration{
		choice:    winner.choice,
		evaluated: evaluated,
		truncated: shared.truncated.Load(),
	}, nil
}

func workerCount(requested, partitions int) int {
	n := requested
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > partitions {
		n = partitions
	}
	if n < 1 {
		n = 1
	}
	return n
}

type walker struct {
	ctx       context.Context
	model     *loss.Model
	exclusive bool
	shared    *budget

	nv, np     int
	choice     []int
	used       []bool
	best       best
	sinceCheck int
	stopped    bool
}

func newWalker(ctx context.Context, model *loss.Model, exclusive bool, shared *budget) *walker {
	p := model.Problem()
	return &walker{
		ctx:       ctx,
		model:     model,
		exclusive: exclusive,
		shared:    shared,
		nv:        p.NumVirtual(),
		np:        p.NumPhysical(),
		choice:    make([]int, p.NumVirtual()),
		used:      make([]bool, p.NumPhysical()),
	}
}

func (w *walker) run(first int) best {
	if w.ctx.Err() != nil || w.shared.halted.Load() {
		w.shared.halt()
		return w.best
	}
	w.choice[0] = first
	w.used[first] = true
	w.descend(1, w.model.Step(0, w.choice))
	return w.best
}

func (w *walker) descend(d int, partial float64) {
	if d == w.nv {
		w.leaf(partial)
		return
	}
	for j := 0; j < w.np && !w.stopped; j++ {
		if w.exclusive {
			if w.used[j] {
				continue
			}
			w.used[j] = true
		}
		w.choice[d] = j
		w.descend(d+1, partial+w.model.Step(d, w.choice))
		if w.exclusive {
			w.used[j] = false
		}
	}
}

func (w *walker) leaf(cost float64) {
	if w.shared.halted.Load() {
		w.stopped = true
		return
	}

	n := w.shared.evaluated.Add(1)
	if w.shared.limit > 0 && n > w.shared.limit {
		w.shared.halt()
		w.stopped = true
		return
	}

	if !w.best.found || cost < w.best.cost {
		w.best.choice = append(w.best.choice[:0], w.choice...)
		w.best.cost = cost
		w.best.found = true
	}

	if n%progressInterval == 0 {
		logging.SearchDebug("progress: %d/%d candidates evaluated", n, w.shared.total)
	}

	w.sinceCheck++
	if w.sinceCheck >= cancelCheckInterval {
		w.sinceCheck = 0
		if w.ctx.Err() != nil {
			w.shared.halt()
			w.stopped = true
		}
	}
}
