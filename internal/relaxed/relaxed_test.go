package relaxed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plannerd/internal/strips"
)

// chainTask: p is true initially; op1 (cost 2) turns p into g1, op2 (cost 4)
// turns g1 into g2; goal is {g1, g2}.
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

// diamondTask: two independent setup operators feed one goal operator, so
// additive and max modes disagree on the goal cost.
func diamondTask(t *testing.T) *strips.Task {
	t.Helper()
	b := strips.NewBuilder("diamond")
	a := b.Variable("a", "false", "true")
	bb := b.Variable("b", "false", "true")
	g := b.Variable("g", "false", "true")
	b.Init(0, 0, 0)
	b.Goal(g, 1)
	b.Operator("seta", 1, nil, strips.Facts(a, 1))
	b.Operator("setb", 2, nil, strips.Facts(bb, 1))
	b.Operator("setg", 3, strips.Facts(a, 1, bb, 1), strips.Facts(g, 1))
	return b.MustBuild()
}

func TestExploreChainAdditive(t *testing.T) {
	task := chainTask(t)
	g := NewGraph(task)
	ctx := NewContext(g, Additive)

	ctx.Explore(task.Init, Options{})

	assert.Equal(t, 0, ctx.Cost(strips.F(0, 1)), "state fact costs 0")
	assert.Equal(t, 2, ctx.Cost(strips.F(1, 1)), "g1 achieved by op1")
	assert.Equal(t, 6, ctx.Cost(strips.F(2, 1)), "g2 accumulates op1+op2")
	assert.True(t, ctx.GoalsReachable())

	// State facts carry no achieving operator.
	assert.Equal(t, NoOp, ctx.ReachedBy(g.PropID(strips.F(0, 1))))

	// Achieved facts point at the unary operator that reached them first.
	reached := ctx.ReachedBy(g.PropID(strips.F(2, 1)))
	require.NotEqual(t, NoOp, reached)
	assert.Equal(t, 1, g.OpOperatorNo(reached))
}

func TestExploreAdditiveVersusMax(t *testing.T) {
	task := diamondTask(t)
	g := NewGraph(task)
	goal := strips.F(2, 1)

	add := NewContext(g, Additive)
	add.Explore(task.Init, Options{})
	assert.Equal(t, 6, add.Cost(goal), "additive sums both setup costs")

	max := NewContext(g, Max)
	max.Explore(task.Init, Options{})
	assert.Equal(t, 5, max.Cost(goal), "max takes the dearer setup only")
}

func TestExploreTieBreakDeterministic(t *testing.T) {
	b := strips.NewBuilder("tie")
	g := b.Variable("g", "false", "true")
	b.Init(0)
	b.Goal(g, 1)
	b.Operator("fast1", 1, nil, strips.Facts(g, 1))
	b.Operator("fast2", 1, nil, strips.Facts(g, 1))
	task := b.MustBuild()

	graph := NewGraph(task)
	ctx := NewContext(graph, Additive)

	for i := 0; i < 5; i++ {
		ctx.Explore(task.Init, Options{})
		reached := ctx.ReachedBy(graph.PropID(strips.F(g, 1)))
		require.NotEqual(t, NoOp, reached)
		// Equal-cost offers keep the first achiever in operator order.
		assert.Equal(t, 0, graph.OpOperatorNo(reached), "iteration %d", i)
		assert.Equal(t, 1, ctx.Cost(strips.F(g, 1)))
	}
}

func TestExploreExcludedFacts(t *testing.T) {
	task := chainTask(t)
	g := NewGraph(task)
	ctx := NewContext(g, Additive)

	ctx.Explore(task.Init, Options{
		ExcludedFacts: strips.Facts(1, 1), // clamp g1 unreachable
	})

	assert.Equal(t, -1, ctx.Cost(strips.F(1, 1)), "excluded fact stays at sentinel")
	assert.Equal(t, -1, ctx.Cost(strips.F(2, 1)), "downstream fact collapses too")
	assert.False(t, ctx.GoalsReachable())
}

func TestExploreExcludedActions(t *testing.T) {
	task := chainTask(t)
	g := NewGraph(task)
	ctx := NewContext(g, Additive)

	ctx.Explore(task.Init, Options{ExcludedActions: []int{0}})

	assert.Equal(t, 0, ctx.Cost(strips.F(0, 1)), "state facts unaffected")
	assert.Equal(t, -1, ctx.Cost(strips.F(1, 1)), "op1 never fires")
	assert.Equal(t, -1, ctx.Cost(strips.F(2, 1)))
	assert.False(t, ctx.GoalsReachable())
}

func TestExploreAxioms(t *testing.T) {
	b := strips.NewBuilder("axiom-chain")
	p := b.Variable("p", "false", "true")
	d := b.DerivedVariable("d", 0, "false", "true")
	b.Init(0, 0)
	b.Goal(d, 1)
	b.Operator("setp", 2, nil, strips.Facts(p, 1))
	b.Axiom(strips.Facts(p, 1), strips.F(d, 1))
	task := b.MustBuild()

	g := NewGraph(task)
	ctx := NewContext(g, Additive)
	ctx.Explore(task.Init, Options{})

	assert.Equal(t, 2, ctx.Cost(strips.F(d, 1)), "axioms fire at zero cost")
	reached := ctx.ReachedBy(g.PropID(strips.F(d, 1)))
	require.NotEqual(t, NoOp, reached)
	assert.Equal(t, strips.AxiomOperator, g.OpOperatorNo(reached))

	// Excluding the axiom's action blocks derivation.
	ctx.Explore(task.Init, Options{ExcludedActions: []int{g.AxiomAction(0)}})
	assert.Equal(t, -1, ctx.Cost(strips.F(d, 1)))
}

func TestStopAtGoalMatchesFullRun(t *testing.T) {
	task := chainTask(t)
	g := NewGraph(task)

	full := NewContext(g, Additive)
	full.Explore(task.Init, Options{})

	early := NewContext(g, Additive)
	early.Explore(task.Init, Options{StopAtGoal: true})

	for _, goal := range g.Goals() {
		assert.Equal(t, full.CostByID(goal), early.CostByID(goal))
	}
}

func TestContextReuseIsClean(t *testing.T) {
	task := chainTask(t)
	g := NewGraph(task)

	reused := NewContext(g, Additive)
	// Pollute the scratch state with an exclusion-heavy run and marks.
	reused.Explore(task.Init, Options{
		ExcludedFacts:   strips.Facts(1, 1),
		ExcludedActions: []int{1},
	})
	reused.SetMarked(g.PropID(strips.F(0, 1)))

	reused.Explore(task.Init, Options{})

	fresh := NewContext(g, Additive)
	fresh.Explore(task.Init, Options{})

	for p := 0; p < g.NumProps(); p++ {
		assert.Equal(t, fresh.CostByID(p), reused.CostByID(p), "prop %d cost", p)
		assert.Equal(t, fresh.ReachedBy(p), reused.ReachedBy(p), "prop %d reached_by", p)
		assert.False(t, reused.Marked(p), "prop %d mark must reset", p)
	}
}

func TestLevelMatrix(t *testing.T) {
	task := chainTask(t)
	g := NewGraph(task)
	ctx := NewContext(g, Max)

	ctx.Explore(task.Init, Options{ExcludedActions: []int{1}})
	m := ctx.LevelMatrix()

	assert.Equal(t, 0, m.Level(strips.F(0, 1)))
	assert.Equal(t, 2, m.Level(strips.F(1, 1)))
	assert.False(t, m.Reachable(strips.F(2, 1)))
	assert.Equal(t, Unreachable, m.Level(strips.F(2, 1)))

	// The matrix is a snapshot; mutating it must not bleed into the context.
	m[2][1] = 0
	assert.Equal(t, -1, ctx.Cost(strips.F(2, 1)))
}

func TestConditionalEffectFoldsIntoPreconditions(t *testing.T) {
	b := strips.NewBuilder("cond")
	x := b.Variable("x", "false", "true")
	y := b.Variable("y", "false", "true")
	g := b.Variable("g", "false", "true")
	b.Init(0, 0, 0)
	b.Goal(g, 1)
	b.OperatorFull(strips.Operator{
		Name: "combo",
		Cost: 1,
		Effects: []strips.Effect{
			{Fact: strips.F(x, 1)},
			{Conditions: strips.Facts(y, 1), Fact: strips.F(g, 1)},
		},
	})
	task := b.MustBuild()

	graph := NewGraph(task)
	ctx := NewContext(graph, Additive)
	ctx.Explore(task.Init, Options{})

	assert.Equal(t, 1, ctx.Cost(strips.F(x, 1)), "unconditional effect reachable")
	assert.Equal(t, -1, ctx.Cost(strips.F(g, 1)), "guarded effect needs its condition")
}

func TestAdaptiveQueueOrdering(t *testing.T) {
	var q adaptiveQueue
	q.clear()

	q.push(3, 30)
	q.push(1, 10)
	q.push(3, 31)
	q.push(0, 0)

	wantOrder := []struct {
		cost int
		prop PropID
	}{{0, 0}, {1, 10}, {3, 30}, {3, 31}}
	for _, want := range wantOrder {
		require.False(t, q.empty())
		cost, p := q.pop()
		assert.Equal(t, want.cost, cost)
		assert.Equal(t, want.prop, p)
	}
	assert.True(t, q.empty())
}

func TestAdaptiveQueueDegradesToHeap(t *testing.T) {
	var q adaptiveQueue
	q.clear()

	q.push(5, 50)
	q.push(2, 20)
	// Beyond the bucket range: forces heap mode, preserving pending order.
	q.push(maxBucketCost+100, 99)
	q.push(2, 21)

	wantProps := []PropID{20, 21, 50, 99}
	for _, want := range wantProps {
		require.False(t, q.empty())
		_, p := q.pop()
		assert.Equal(t, want, p)
	}
	assert.True(t, q.empty())
}
