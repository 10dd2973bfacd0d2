package heuristic

import (
	"plannerd/internal/logging"
	"plannerd/internal/relaxed"
	"plannerd/internal/strips"
)

// Additive is the h_add heuristic: the value of a state is the sum over
// goal facts of their relaxed achievement costs.
type Additive struct {
	graph *relaxed.Graph
	ctx   *relaxed.Context
}

// NewAdditive builds an additive heuristic over the given relaxed graph.
func NewAdditive(g *relaxed.Graph) *Additive {
	if g.Task().HasAxioms() {
		logging.HeuristicWarn("task %q has axioms; relaxation estimates can be unreliable", g.Task().Name)
	}
	return &Additive{
		graph: g,
		ctx:   relaxed.NewContext(g, relaxed.Additive),
	}
}

// Evaluate returns the additive estimate for the state, or DeadEnd when
// some goal fact is unreachable in the relaxed model.
func (h *Additive) Evaluate(state strips.State) int {
	h.ctx.Explore(state, relaxed.Options{StopAtGoal: true})
	total := 0
	for _, goal := range h.graph.Goals() {
		cost := h.ctx.CostByID(goal)
		if cost == -1 {
			return DeadEnd
		}
		total += cost
		if total > relaxed.MaxCostValue {
			total = relaxed.MaxCostValue
		}
	}
	return total
}

// Preferred returns nil: the additive heuristic does not mark preferred
// operators.
func (h *Additive) Preferred() []int { return nil }
