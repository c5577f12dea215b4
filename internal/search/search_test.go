package search

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"proxeek/internal/loss"
	"proxeek/internal/scene"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func problem(t *testing.T, priorities []int, numPhysical int, realism, exists, interaction [][]float64) *scene.Problem {
	t.Helper()
	virtual := make([]scene.VirtualObject, len(priorities))
	for i, pr := range priorities {
		virtual[i] = scene.VirtualObject{Name: string(rune('A' + i)), Index: i, EngagementPriority: pr, Involvement: scene.InvolvementGrasp}
	}
	physical := make([]scene.PhysicalObject, numPhysical)
	for j := range physical {
		physical[j] = scene.PhysicalObject{Key: scene.PhysicalKey{ObjectID: j, ImageID: 0}, Name: string(rune('P' + j)), Index: j}
	}
	mat := func(rows [][]float64) *scene.Matrix {
		if rows == nil {
			return nil
		}
		m, err := scene.MatrixFromRows(rows)
		require.NoError(t, err)
		return m
	}
	p, err := scene.NewProblem(virtual, physical, mat(realism), mat(exists), mat(interaction))
	require.NoError(t, err)
	return p
}

func randomProblem(rng *rand.Rand, nv, np int, withInteractions bool) *scene.Problem {
	virtual := make([]scene.VirtualObject, nv)
	for i := range virtual {
		virtual[i] = scene.VirtualObject{Name: string(rune('A' + i)), Index: i, EngagementPriority: rng.Intn(nv + 1)}
	}
	physical := make([]scene.PhysicalObject, np)
	for j := range physical {
		physical[j] = scene.PhysicalObject{Key: scene.PhysicalKey{ObjectID: j % 3, ImageID: j / 3}, Index: j}
	}
	realism := scene.NewMatrix(nv, np)
	for i := 0; i < nv; i++ {
		for j := 0; j < np; j++ {
			realism.Set(i, j, float64(rng.Intn(10))+rng.Float64())
		}
	}
	exists := scene.NewMatrix(nv, nv)
	interaction := scene.NewMatrix(np, np)
	if withInteractions {
		for i := 0; i < nv; i++ {
			for k := 0; k < nv; k++ {
				if i != k && rng.Intn(3) == 0 {
					exists.Set(i, k, 1)
				}
			}
		}
		for j := 0; j < np; j++ {
			for m := 0; m < np; m++ {
				interaction.Set(j, m, float64(rng.Intn(7)+1))
			}
		}
	}
	p, err := scene.NewProblem(virtual, physical, realism, exists, interaction)
	if err != nil {
		panic(err)
	}
	return p
}

func opts(strategy Strategy, exclusive bool) Options {
	o := DefaultOptions()
	o.Strategy = strategy
	o.Exclusive = exclusive
	return o
}

var strategies = []Strategy{StrategyExhaustive, StrategyAssignment, StrategyAuto}

func TestSolve_DiagonalWins(t *testing.T) {
	p := problem(t, []int{2, 1}, 2, [][]float64{{5, 1}, {1, 5}}, nil, nil)

	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			res, err := Solve(context.Background(), p, loss.DefaultWeights(), opts(s, true))
			require.NoError(t, err)
			assert.Equal(t, []int{0, 1}, res.Choice)
			assert.Equal(t, -10.0, res.Breakdown.Realism)
			assert.True(t, res.Exact)
		})
	}
}

func TestSolve_TiedRealism(t *testing.T) {
	p := problem(t, []int{2, 1}, 2, [][]float64{{3, 3}, {3, 3}}, nil, nil)

	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			res, err := Solve(context.Background(), p, loss.DefaultWeights(), opts(s, true))
			require.NoError(t, err)
			assert.Equal(t, -6.0, res.Breakdown.Realism)
			assert.NoError(t, Validate(res.Matrix, true))
		})
	}

	res, err := Solve(context.Background(), p, loss.DefaultWeights(), opts(StrategyExhaustive, true))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, res.Choice, "lexicographically smallest sequence wins ties")
}

func TestSolve_InfeasibleWithoutPhysicalObjects(t *testing.T) {
	p := problem(t, []int{1}, 0, nil, nil, nil)

	for _, exclusive := range []bool{true, false} {
		res, err := Solve(context.Background(), p, loss.DefaultWeights(), opts(StrategyAuto, exclusive))
		require.Error(t, err)
		assert.Nil(t, res)
		assert.True(t, errors.Is(err, ErrInfeasible))

		var ie *InfeasibleError
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, 1, ie.Virtual)
		assert.Equal(t, 0, ie.Physical)
		assert.Equal(t, exclusive, ie.Exclusive)
	}
}

func TestSolve_InfeasibleUnderExclusivity(t *testing.T) {
	p := problem(t, []int{1, 1, 1}, 2, nil, nil, nil)

	_, err := Solve(context.Background(), p, loss.DefaultWeights(), opts(StrategyExhaustive, true))
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestSolve_InteractionDirection(t *testing.T) {
	p := problem(t, []int{0, 0}, 2, nil,
		[][]float64{{0, 1}, {0, 0}},
		[][]float64{{0, 6}, {1, 0}})

	res, err := Solve(context.Background(), p, loss.DefaultWeights(), opts(StrategyAuto, true))
	require.NoError(t, err)
	assert.Equal(t, StrategyExhaustive, res.Strategy)
	assert.Equal(t, []int{0, 1}, res.Choice)
	assert.Equal(t, -6.0, res.Breakdown.Interaction)
	assert.Equal(t, int64(2), res.Candidates)
}

func TestSolve_ReuseWithoutExclusivity(t *testing.T) {
	p := problem(t, []int{1, 1}, 1, [][]float64{{2}, {3}}, nil, nil)

	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			res, err := Solve(context.Background(), p, loss.DefaultWeights(), opts(s, false))
			require.NoError(t, err)
			assert.Equal(t, []int{0, 0}, res.Choice)
			assert.NoError(t, Validate(res.Matrix, false))
			assert.Error(t, Validate(res.Matrix, true), "column sum exceeds 1")
		})
	}
}

func TestSolve_NoVirtualObjects(t *testing.T) {
	p := problem(t, nil, 3, nil, nil, nil)

	res, err := Solve(context.Background(), p, loss.DefaultWeights(), DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, res.Choice)
	assert.Equal(t, 0, res.Matrix.Rows())
	assert.Equal(t, loss.Breakdown{}, res.Breakdown)
}

func TestSolve_AllZeroMatricesStillAssign(t *testing.T) {
	p := problem(t, []int{0, 0, 0}, 4, nil, nil, nil)

	for _, s := range strategies {
		res, err := Solve(context.Background(), p, loss.DefaultWeights(), opts(s, true))
		require.NoError(t, err)
		assert.NoError(t, Validate(res.Matrix, true))
		assert.Equal(t, 0.0, res.Breakdown.Total)
	}
}

func TestSolve_RejectsBadInput(t *testing.T) {
	p := problem(t, []int{1}, 1, nil, nil, nil)

	_, err := Solve(context.Background(), p, loss.Weights{Realism: -1}, DefaultOptions())
	assert.ErrorIs(t, err, loss.ErrInvalidWeights)

	_, err = Solve(context.Background(), p, loss.DefaultWeights(), opts("greedy", true))
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestSolve_DeterministicAcrossWorkers(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for n := 0; n < 20; n++ {
		p := randomProblem(rng, 4, 6, true)
		var first *Result
		for _, workers := range []int{1, 2, 8} {
			o := opts(StrategyExhaustive, true)
			o.Workers = workers
			res, err := Solve(context.Background(), p, loss.DefaultWeights(), o)
			require.NoError(t, err)
			if first == nil {
				first = res
				continue
			}
			if diff := cmp.Diff(first.Choice, res.Choice); diff != "" {
				t.Fatalf("workers=%d changed the assignment (-want +got):\n%s", workers, diff)
			}
			assert.Equal(t, first.Breakdown, res.Breakdown)
			assert.Equal(t, first.Candidates, res.Candidates)
		}
	}
}

func TestSolve_AssignmentSolverMatchesEnumeration(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for n := 0; n < 60; n++ {
		nv := 1 + rng.Intn(4)
		np := nv + rng.Intn(3)
		p := randomProblem(rng, nv, np, false)
		for _, exclusive := range []bool{true, false} {
			fast, err := Solve(context.Background(), p, loss.DefaultWeights(), opts(StrategyAssignment, exclusive))
			require.NoError(t, err)
			slow, err := Solve(context.Background(), p, loss.DefaultWeights(), opts(StrategyExhaustive, exclusive))
			require.NoError(t, err)

			assert.InDelta(t, slow.Breakdown.Total, fast.Breakdown.Total, 1e-6,
				"nv=%d np=%d exclusive=%v", nv, np, exclusive)
			assert.NoError(t, Validate(fast.Matrix, exclusive))
		}
	}
}

func TestSolve_ExclusiveProxiesAreDistinct(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for n := 0; n < 30; n++ {
		p := randomProblem(rng, 3, 5, n%2 == 0)
		res, err := Solve(context.Background(), p, loss.DefaultWeights(), opts(StrategyAuto, true))
		require.NoError(t, err)

		seen := map[scene.PhysicalKey]bool{}
		for i, j := range res.Choice {
			key := p.Physical[j].Key
			assert.False(t, seen[key], "virtual %d reuses %s", i, key)
			seen[key] = true
		}
		for i := 0; i < res.Matrix.Rows(); i++ {
			sum := 0.0
			for _, v := range res.Matrix.Row(i) {
				sum += v
			}
			assert.Equal(t, 1.0, sum)
		}
	}
}

func TestSolve_RaisingRealismNeverWorsensOptimum(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	for n := 0; n < 40; n++ {
		p := randomProblem(rng, 3, 4, true)
		before, err := Solve(context.Background(), p, loss.DefaultWeights(), opts(StrategyExhaustive, true))
		require.NoError(t, err)

		i, j := rng.Intn(3), rng.Intn(4)
		raised := p.Realism.Clone()
		raised.Set(i, j, raised.At(i, j)+1+rng.Float64()*5)
		q, err := scene.NewProblem(p.Virtual, p.Physical, raised, p.Exists, p.Interaction)
		require.NoError(t, err)

		after, err := Solve(context.Background(), q, loss.DefaultWeights(), opts(StrategyExhaustive, true))
		require.NoError(t, err)
		assert.LessOrEqual(t, after.Breakdown.Total, before.Breakdown.Total+1e-9)
	}
}

func TestSolve_CandidateCapReturnsBestSoFar(t *testing.T) {
	p := problem(t, []int{1, 1}, 3,
		[][]float64{{0, 0, 9}, {1, 2, 3}},
		[][]float64{{0, 1}, {0, 0}},
		nil)

	o := opts(StrategyExhaustive, true)
	o.Workers = 1
	o.MaxCandidates = 2

	res, err := Solve(context.Background(), p, loss.DefaultWeights(), o)
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, int64(2), res.Candidates)
	assert.Equal(t, int64(6), res.TotalCandidates)
	// Only (0,1) and (0,2) were seen.
	assert.Equal(t, []int{0, 2}, res.Choice)

	o.MaxCandidates = 6
	res, err = Solve(context.Background(), p, loss.DefaultWeights(), o)
	require.NoError(t, err)
	assert.False(t, res.Truncated)
	assert.Equal(t, []int{2, 1}, res.Choice)
}

func TestSolve_CancelledBeforeStart(t *testing.T) {
	p := problem(t, []int{1, 1}, 3, nil, [][]float64{{0, 1}, {0, 0}}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Solve(ctx, p, loss.DefaultWeights(), opts(StrategyExhaustive, true))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolve_DeadlineReturnsBestSoFar(t *testing.T) {
	realism := make([][]float64, 8)
	for i := range realism {
		realism[i] = make([]float64, 12)
		for j := range realism[i] {
			realism[i][j] = float64((i*7+j*3)%10) + 0.5
		}
	}
	exists := make([][]float64, 8)
	for i := range exists {
		exists[i] = make([]float64, 8)
	}
	exists[0][1] = 1
	interaction := make([][]float64, 12)
	for j := range interaction {
		interaction[j] = make([]float64, 12)
		for m := range interaction[j] {
			interaction[j][m] = float64((j+m)%7 + 1)
		}
	}
	p := problem(t, []int{8, 7, 6, 5, 4, 3, 2, 1}, 12, realism, exists, interaction)

	o := opts(StrategyAuto, true)
	o.Workers = 1
	o.MaxCandidates = 0

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := Solve(ctx, p, loss.DefaultWeights(), o)
	require.NoError(t, err)
	assert.Equal(t, StrategyExhaustive, res.Strategy)
	assert.True(t, res.Truncated)
	assert.Equal(t, int64(19958400), res.TotalCandidates)
	assert.Greater(t, res.Candidates, int64(0))
	assert.Less(t, res.Candidates, res.TotalCandidates)
	require.Len(t, res.Choice, 8)
	assert.NoError(t, Validate(res.Matrix, true))
}

func TestSolve_OverflowingCostsStillAssign(t *testing.T) {
	// priority·max·rating exceeds float64 range, so the unary costs are -Inf.
	p := problem(t, []int{2, 1}, 3,
		[][]float64{{1e200, 1e200, 1}, {1e200, 1, 1e200}},
		nil, nil)

	for _, strategy := range []Strategy{StrategyAuto, StrategyAssignment} {
		t.Run(string(strategy), func(t *testing.T) {
			type outcome struct {
				res *Result
				err error
			}
			done := make(chan outcome, 1)
			go func() {
				res, err := Solve(context.Background(), p, loss.DefaultWeights(), opts(strategy, true))
				done <- outcome{res, err}
			}()

			var out outcome
			select {
			case out = <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("Solve did not return on overflowing costs")
			}
			require.NoError(t, out.err)
			assert.Equal(t, StrategyExhaustive, out.res.Strategy)
			assert.True(t, out.res.Exact)
			assert.Equal(t, []int{0, 1}, out.res.Choice)
			assert.NoError(t, Validate(out.res.Matrix, true))
			assert.True(t, math.IsInf(out.res.Breakdown.Total, -1))
		})
	}
}

func TestHungarian_StopsOnNonFiniteCosts(t *testing.T) {
	tests := []struct {
		name string
		cost [][]float64
	}{
		{"negative infinity", [][]float64{{math.Inf(-1), 0}, {0, 0}}},
		{"nan", [][]float64{{math.NaN(), math.NaN()}, {0, 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, ok := hungarian(tt.cost, 2, 2)
			assert.False(t, ok)
			assert.Nil(t, rows)
		})
	}

	rows, ok := hungarian([][]float64{{-1, -5}, {-4, -2}}, 2, 2)
	require.True(t, ok)
	assert.Equal(t, []int{1, 0}, rows)
}

func TestSolve_KitchenScene(t *testing.T) {
	dir := filepath.Join("..", "scene", "testdata", "kitchen")
	p, _, err := scene.Load(context.Background(), scene.Paths{
		Annotation:          filepath.Join(dir, "export"),
		PhysicalDatabase:    filepath.Join(dir, "physical_object_database.json"),
		ProxyRatings:        filepath.Join(dir, "proxy_matching_results.json"),
		RelationshipRatings: filepath.Join(dir, "relationship_rating_results.json"),
	})
	require.NoError(t, err)

	res, err := Solve(context.Background(), p, loss.DefaultWeights(), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, StrategyExhaustive, res.Strategy)
	assert.Equal(t, []int{3, 1, 2}, res.Choice) // Knife→ruler, Cutting Board→notebook, Cup→mug
	assert.InDelta(t, -21.5, res.Breakdown.Realism, 1e-9)
	assert.InDelta(t, -459.0, res.Breakdown.Priority, 1e-9)
	assert.InDelta(t, -6.0, res.Breakdown.Interaction, 1e-9)
	assert.InDelta(t, -252.8, res.Breakdown.Total, 1e-9)
	assert.Equal(t, int64(24), res.Candidates)
}

func TestCandidateCount(t *testing.T) {
	tests := []struct {
		nv, np    int
		exclusive bool
		want      int64
	}{
		{3, 5, true, 60},
		{3, 5, false, 125},
		{2, 1, true, 0},
		{2, 1, false, 1},
		{1, 0, false, 0},
		{0, 0, true, 1},
		{30, 30, true, math.MaxInt64},
		{40, 10, false, math.MaxInt64},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CandidateCount(tt.nv, tt.np, tt.exclusive), "%+v", tt)
	}
}

func TestValidate(t *testing.T) {
	ok := loss.ChoiceMatrix([]int{1, 0}, 3)
	assert.NoError(t, Validate(ok, true))

	empty := scene.NewMatrix(2, 3)
	assert.ErrorIs(t, Validate(empty, false), ErrInvalidAssignment)

	double := loss.ChoiceMatrix([]int{1, 0}, 3)
	double.Set(0, 2, 1)
	assert.ErrorIs(t, Validate(double, false), ErrInvalidAssignment)

	frac := scene.NewMatrix(1, 2)
	frac.Set(0, 0, 0.5)
	frac.Set(0, 1, 0.5)
	assert.ErrorIs(t, Validate(frac, false), ErrInvalidAssignment)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyAuto, s)

	s, err = ParseStrategy("assignment")
	require.NoError(t, err)
	assert.Equal(t, StrategyAssignment, s)

	_, err = ParseStrategy("beam")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}
