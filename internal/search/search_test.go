package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plannerd/internal/heuristic"
	"plannerd/internal/relaxed"
	"plannerd/internal/strips"
)

// chainTask: p holds initially; op1 achieves g1 from p, op2 achieves g2
// from g1; goal is both.
func chainTask(t *testing.T) *strips.Task {
	t.Helper()
	b := strips.NewBuilder("chain")
	p := b.Variable("p", "false", "true")
	g1 := b.Variable("g1", "false", "true")
	g2 := b.Variable("g2", "false", "true")
	b.Init(1, 0, 0)
	b.Goal(g1, 1).Goal(g2, 1)
	b.Operator("op1", 2, strips.Facts(p, 1), strips.Facts(g1, 1))
	b.Operator("op2", 4, strips.Facts(g1, 1), strips.Facts(g2, 1))
	return b.MustBuild()
}

// forkTask: either operator consumes the shared token, so only one of the
// two goal facts is reachable for real while the relaxation sees both.
func forkTask(t *testing.T) *strips.Task {
	t.Helper()
	b := strips.NewBuilder("fork")
	x := b.Variable("x", "free", "spent")
	y := b.Variable("y", "false", "true")
	z := b.Variable("z", "false", "true")
	b.Init(0, 0, 0)
	b.Goal(y, 1).Goal(z, 1)
	b.Operator("take left", 1, strips.Facts(x, 0), strips.Facts(y, 1, x, 1))
	b.Operator("take right", 1, strips.Facts(x, 0), strips.Facts(z, 1, x, 1))
	return b.MustBuild()
}

func ffFor(t *testing.T, task *strips.Task) *heuristic.FF {
	t.Helper()
	h, err := heuristic.NewFF(relaxed.NewGraph(task), heuristic.Config{})
	require.NoError(t, err)
	return h
}

func TestSolveChain(t *testing.T) {
	task := chainTask(t)
	result := New(task, ffFor(t, task), Options{}).Run(context.Background())

	require.True(t, result.Solved)
	assert.Equal(t, []int{0, 1}, result.Plan)
	assert.Equal(t, 6, result.PlanCost)
	assert.NoError(t, ValidatePlan(task, result.Plan))
	assert.NotEmpty(t, result.RunID)

	assert.Equal(t, 6, result.Stats.InitialH)
	assert.Equal(t, 2, result.Stats.Expansions)
	assert.Equal(t, 3, result.Stats.Evaluations)
	assert.Equal(t, 2, result.Stats.Generated)
	assert.Zero(t, result.Stats.DeadEnds)
}

func TestSolveWithAdditive(t *testing.T) {
	task := chainTask(t)
	result := New(task, heuristic.NewAdditive(relaxed.NewGraph(task)), Options{}).Run(context.Background())

	require.True(t, result.Solved)
	assert.Equal(t, []int{0, 1}, result.Plan)
	assert.NoError(t, ValidatePlan(task, result.Plan))
}

func TestGoalDerivedInInitialState(t *testing.T) {
	b := strips.NewBuilder("derived-goal")
	base := b.Variable("base", "off", "on")
	aux := b.Variable("aux", "false", "true")
	lit := b.DerivedVariable("lit", 0, "false", "true")
	b.Init(1, 0, 0)
	b.Goal(lit, 1)
	b.Operator("touch aux", 1, nil, strips.Facts(aux, 1))
	b.Axiom(strips.Facts(base, 1), strips.F(lit, 1))
	task := b.MustBuild()

	require.True(t, task.GoalSatisfied(task.Init), "axiom condition holds, goal is derived initially")

	result := New(task, heuristic.NewAdditive(relaxed.NewGraph(task)), Options{}).Run(context.Background())

	require.True(t, result.Solved)
	assert.Empty(t, result.Plan, "no operator needed when the goal holds in the initial state")
	assert.Zero(t, result.PlanCost)
	assert.NoError(t, ValidatePlan(task, result.Plan))
}

func TestInitialDeadEnd(t *testing.T) {
	b := strips.NewBuilder("stuck")
	g := b.Variable("g", "false", "true")
	b.Init(0)
	b.Goal(g, 1)
	b.Operator("noop elsewhere", 1, nil, strips.Facts(g, 0))
	task := b.MustBuild()

	result := New(task, ffFor(t, task), Options{}).Run(context.Background())
	assert.True(t, result.DeadEnd)
	assert.False(t, result.Solved)
	assert.Equal(t, heuristic.DeadEnd, result.Stats.InitialH)
	assert.Empty(t, result.Plan)
}

func TestExhaustsUnsolvableTask(t *testing.T) {
	task := forkTask(t)
	result := New(task, ffFor(t, task), Options{}).Run(context.Background())

	assert.True(t, result.Exhausted)
	assert.False(t, result.Solved)
	// The relaxation considers both goals reachable from the start.
	assert.Equal(t, 2, result.Stats.InitialH)
	// Both successors evaluate as dead ends and are pruned.
	assert.Equal(t, 1, result.Stats.Expansions)
	assert.Equal(t, 2, result.Stats.DeadEnds)
}

func TestExpansionLimit(t *testing.T) {
	task := forkTask(t)
	result := New(task, ffFor(t, task), Options{MaxExpansions: 1}).Run(context.Background())

	assert.True(t, result.LimitReached)
	assert.False(t, result.Solved)
	assert.False(t, result.Exhausted)
	assert.Equal(t, 1, result.Stats.Expansions)
}

func TestCanceledContext(t *testing.T) {
	task := chainTask(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := New(task, ffFor(t, task), Options{}).Run(ctx)
	assert.True(t, result.Canceled)
	assert.False(t, result.Solved)
	assert.Zero(t, result.Stats.Expansions)
}

func TestRepeatedRunsIdentical(t *testing.T) {
	task := chainTask(t)
	first := New(task, ffFor(t, task), Options{RunID: "fixed"}).Run(context.Background())
	second := New(task, ffFor(t, task), Options{RunID: "fixed"}).Run(context.Background())

	first.Stats.Duration = 0
	second.Stats.Duration = 0
	assert.Equal(t, first, second)
}

func TestValidatePlan(t *testing.T) {
	task := chainTask(t)

	assert.NoError(t, ValidatePlan(task, []int{0, 1}))

	err := ValidatePlan(task, []int{1, 0})
	var perr *PlanError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 0, perr.Step)
	assert.Equal(t, "op2", perr.Op)

	err = ValidatePlan(task, []int{0})
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Step)

	err = ValidatePlan(task, []int{7})
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "unknown operator")
}
