package heuristic

import (
	"fmt"
	"math"

	"plannerd/internal/logging"
	"plannerd/internal/relaxed"
	"plannerd/internal/strips"
)

// FF is the FF heuristic: after an additive exploration it chains backward
// from the goal facts through reached_by links, marking a relaxed plan. The
// value is the total cost of the marked operators (or their learned-weight
// sum), and operators whose preconditions all held in the evaluated state
// are reported as preferred.
type FF struct {
	graph   *relaxed.Graph
	ctx     *relaxed.Context
	weights map[string]float64

	// relaxedPlan and preferredSeen are per-operator scratch flags, restored
	// to all-false before Evaluate returns. planOrder and preferred hold the
	// most recent call's output until the next call.
	relaxedPlan   []bool
	preferredSeen []bool
	planOrder     []int
	preferred     []int

	stack []markFrame
}

type markFrame struct {
	prop     relaxed.PropID
	expanded bool
}

// NewFF builds an FF heuristic over the given relaxed graph. The config is
// validated here: learned-weight mode with mismatched name/weight lists or
// with a task operator type missing from the table is a construction error.
func NewFF(g *relaxed.Graph, cfg Config) (*FF, error) {
	weights, err := cfg.weightTable(g.Task())
	if err != nil {
		return nil, err
	}
	if g.Task().HasAxioms() {
		logging.HeuristicWarn("task %q has axioms; relaxation estimates can be unreliable", g.Task().Name)
	}
	numOps := len(g.Task().Operators)
	return &FF{
		graph:         g,
		ctx:           relaxed.NewContext(g, relaxed.Additive),
		weights:       weights,
		relaxedPlan:   make([]bool, numOps),
		preferredSeen: make([]bool, numOps),
	}, nil
}

// Evaluate returns the FF estimate for the state, or DeadEnd when some goal
// fact is unreachable in the relaxed model. The relaxed plan and preferred
// operators of the call are available from RelaxedPlan and Preferred until
// the next call.
func (h *FF) Evaluate(state strips.State) int {
	h.ctx.Explore(state, relaxed.Options{StopAtGoal: true})

	h.planOrder = h.planOrder[:0]
	h.preferred = h.preferred[:0]

	for _, goal := range h.graph.Goals() {
		if h.ctx.CostByID(goal) == -1 {
			return DeadEnd
		}
	}

	for _, goal := range h.graph.Goals() {
		h.markPreferredAndRelaxedPlan(state, goal)
	}

	value := 0
	if h.weights != nil {
		weighted := 0.0
		for _, opNo := range h.planOrder {
			h.relaxedPlan[opNo] = false
			typ := h.graph.Task().Operators[opNo].Type()
			w, ok := h.weights[typ]
			if !ok {
				panic(fmt.Sprintf("heuristic: no learned weight for operator type %q", typ))
			}
			weighted += w
		}
		value = int(math.Ceil(weighted))
	} else {
		for _, opNo := range h.planOrder {
			h.relaxedPlan[opNo] = false
			value += h.graph.Task().Operators[opNo].Cost
		}
	}
	for _, opNo := range h.preferred {
		h.preferredSeen[opNo] = false
	}
	return value
}

// Preferred returns the operator ordinals marked preferred by the most
// recent Evaluate call. Callers must not modify the slice.
func (h *FF) Preferred() []int { return h.preferred }

// RelaxedPlan returns the operator ordinals of the most recent relaxed
// plan, in a precondition-respecting order. Callers must not modify the
// slice.
func (h *FF) RelaxedPlan() []int { return h.planOrder }

// markPreferredAndRelaxedPlan walks backward from one goal proposition
// through reached_by links. The recursion of the textbook formulation is an
// explicit stack here: phase one marks a proposition and schedules its
// achiever's preconditions, phase two (after they are done) records the
// achieving operator. Shared subgoals are skipped via the marks, so each
// proposition is counted once.
func (h *FF) markPreferredAndRelaxedPlan(state strips.State, goal relaxed.PropID) {
	h.stack = h.stack[:0]
	h.stack = append(h.stack, markFrame{prop: goal})

	for len(h.stack) > 0 {
		i := len(h.stack) - 1
		p := h.stack[i].prop

		if !h.stack[i].expanded {
			if h.ctx.Marked(p) {
				h.stack = h.stack[:i]
				continue
			}
			h.ctx.SetMarked(p)
			op := h.ctx.ReachedBy(p)
			if op == relaxed.NoOp {
				// Chained back to a fact true in the state.
				h.stack = h.stack[:i]
				continue
			}
			h.stack[i].expanded = true
			pre := h.graph.OpPreconditions(op)
			for j := len(pre) - 1; j >= 0; j-- {
				h.stack = append(h.stack, markFrame{prop: pre[j]})
			}
			continue
		}

		h.stack = h.stack[:i]
		op := h.ctx.ReachedBy(p)
		isPreferred := true
		for _, pre := range h.graph.OpPreconditions(op) {
			if h.ctx.ReachedBy(pre) != relaxed.NoOp {
				isPreferred = false
				break
			}
		}
		opNo := h.graph.OpOperatorNo(op)
		if opNo == strips.AxiomOperator {
			continue
		}
		if !h.relaxedPlan[opNo] {
			h.relaxedPlan[opNo] = true
			h.planOrder = append(h.planOrder, opNo)
		}
		if isPreferred && !h.preferredSeen[opNo] {
			taskOp := &h.graph.Task().Operators[opNo]
			if !h.graph.Task().Applicable(taskOp, state) {
				panic(fmt.Sprintf("heuristic: preferred operator %q not applicable in evaluated state", taskOp.Name))
			}
			h.preferredSeen[opNo] = true
			h.preferred = append(h.preferred, opNo)
		}
	}
}
