// Package relaxed implements the delete-relaxed exploration engine shared by
// the planner's heuristics and landmark analysis. A Graph is the static
// AND/OR structure of a task under delete relaxation: propositions and unary
// operators as flat arrays indexed by small integer ids. A Context carries
// the mutable scratch state for one exploration at a time and is explicitly
// reset on every call, so the same buffers serve millions of evaluations
// without cross-call contamination.
package relaxed

import (
	"sort"

	"plannerd/internal/logging"
	"plannerd/internal/strips"
)

// PropID identifies a proposition; it equals strips.Task.FactID for the same
// fact, so the two id spaces can be used interchangeably.
type PropID = int

// OpID identifies a unary operator within a Graph.
type OpID = int

// NoOp is the reached_by value of propositions true in the evaluated state
// (and of unreached propositions).
const NoOp OpID = -1

// MaxCostValue clamps accumulated costs so additive sums cannot overflow.
const MaxCostValue = 100000000

// unaryOp is one ground action reduced to a single effect fact. Operators
// with several effects contribute one unary operator per effect, with the
// effect's own conditions folded into the preconditions. Axioms contribute
// one unary operator of base cost 0.
type unaryOp struct {
	// operatorNo is the ordinal into the task's operator list, or -1 for
	// axioms.
	operatorNo int
	// action is the owner in the combined operator+axiom id space used for
	// exclusion sets: operators keep their ordinal, axioms follow after.
	action        int
	effect        PropID
	baseCost      int
	preconditions []PropID
	// conditional marks unary operators whose source effect carried effect
	// conditions; such operators never count as unconditional achievers.
	conditional bool
}

// Graph is the static delete-relaxed view of a task. Build once per task
// with NewGraph; it is read-only afterwards and may be shared by any number
// of Contexts.
type Graph struct {
	task     *strips.Task
	numProps int
	ops      []unaryOp

	// preconditionOf[p] lists, in ascending op order, the unary operators
	// with p among their preconditions.
	preconditionOf [][]OpID
	zeroPrecondOps []OpID

	goals  []PropID
	isGoal []bool
}

// NewGraph builds the relaxed graph for a finalized task.
func NewGraph(task *strips.Task) *Graph {
	timer := logging.StartTimer(logging.CategoryRelaxed, "NewGraph")
	defer timer.Stop()

	g := &Graph{
		task:     task,
		numProps: task.NumFacts(),
	}

	for i := range task.Operators {
		op := &task.Operators[i]
		for _, eff := range op.Effects {
			g.addUnaryOp(i, i, op.Cost, op.Preconditions, eff.Conditions, eff.Fact)
		}
	}
	for i := range task.Axioms {
		ax := &task.Axioms[i]
		action := len(task.Operators) + i
		g.addUnaryOp(strips.AxiomOperator, action, 0, ax.Conditions, nil, ax.Effect)
	}

	g.preconditionOf = make([][]OpID, g.numProps)
	for id := range g.ops {
		op := &g.ops[id]
		if len(op.preconditions) == 0 {
			g.zeroPrecondOps = append(g.zeroPrecondOps, id)
			continue
		}
		for _, pre := range op.preconditions {
			g.preconditionOf[pre] = append(g.preconditionOf[pre], id)
		}
	}

	g.isGoal = make([]bool, g.numProps)
	for _, goal := range task.Goal {
		p := task.FactID(goal)
		g.goals = append(g.goals, p)
		g.isGoal[p] = true
	}

	logging.RelaxedDebug("graph built: %d propositions, %d unary operators (%d zero-precondition)",
		g.numProps, len(g.ops), len(g.zeroPrecondOps))
	return g
}

func (g *Graph) addUnaryOp(operatorNo, action, cost int, pre, effConds []strips.FactPair, effect strips.FactPair) {
	ids := make([]PropID, 0, len(pre)+len(effConds))
	for _, f := range pre {
		ids = append(ids, g.task.FactID(f))
	}
	for _, f := range effConds {
		ids = append(ids, g.task.FactID(f))
	}
	// Deduplicate so the unsatisfied-precondition counter decrements once
	// per distinct fact.
	sort.Ints(ids)
	ids = compactInts(ids)

	g.ops = append(g.ops, unaryOp{
		operatorNo:    operatorNo,
		action:        action,
		effect:        g.task.FactID(effect),
		baseCost:      cost,
		preconditions: ids,
		conditional:   len(effConds) > 0,
	})
}

func compactInts(s []int) []int {
	if len(s) < 2 {
		return s
	}
	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// Task returns the task this graph was built from.
func (g *Graph) Task() *strips.Task { return g.task }

// NumProps returns the proposition count (== task.NumFacts()).
func (g *Graph) NumProps() int { return g.numProps }

// NumUnaryOps returns the unary operator count.
func (g *Graph) NumUnaryOps() int { return len(g.ops) }

// NumActions returns the size of the combined operator+axiom id space.
func (g *Graph) NumActions() int {
	return len(g.task.Operators) + len(g.task.Axioms)
}

// AxiomAction maps an axiom index to its action id.
func (g *Graph) AxiomAction(axiom int) int {
	return len(g.task.Operators) + axiom
}

// PropID maps a fact to its proposition id.
func (g *Graph) PropID(f strips.FactPair) PropID {
	return g.task.FactID(f)
}

// OpOperatorNo returns the task operator ordinal behind a unary operator,
// or -1 for axioms.
func (g *Graph) OpOperatorNo(id OpID) int { return g.ops[id].operatorNo }

// OpEffect returns the effect proposition of a unary operator.
func (g *Graph) OpEffect(id OpID) PropID { return g.ops[id].effect }

// OpBaseCost returns the base cost of a unary operator.
func (g *Graph) OpBaseCost(id OpID) int { return g.ops[id].baseCost }

// OpPreconditions returns the deduplicated precondition propositions of a
// unary operator. Callers must not modify the returned slice.
func (g *Graph) OpPreconditions(id OpID) []PropID { return g.ops[id].preconditions }

// Goals returns the goal propositions. Callers must not modify the slice.
func (g *Graph) Goals() []PropID { return g.goals }
