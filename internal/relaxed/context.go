package relaxed

import (
	"math"

	"plannerd/internal/logging"
	"plannerd/internal/strips"
)

// Mode selects how precondition costs combine into an operator's firing cost.
type Mode int

const (
	// Additive sums precondition costs (h_add semantics).
	Additive Mode = iota
	// Max takes the maximum precondition cost (h_max semantics); the
	// resulting levels are the ones landmark analysis consumes.
	Max
)

// Unreachable is the LevelMatrix sentinel for facts never achieved.
const Unreachable = math.MaxInt32

// Options control a single exploration.
type Options struct {
	// ExcludedFacts are clamped to unreachable for the whole run,
	// regardless of evidence.
	ExcludedFacts []strips.FactPair
	// ExcludedActions lists operator ordinals and axiom action ids (see
	// Graph.AxiomAction) whose unary operators never fire.
	ExcludedActions []int
	// StopAtGoal terminates the fixpoint as soon as every goal proposition
	// is finalized. Leave it off when the full level matrix is needed.
	StopAtGoal bool
}

// Context holds the scratch state for explorations over one Graph. It is
// not safe for concurrent use; every Explore call fully re-initializes the
// buffers before touching the queue, so a Context may be reused across any
// number of calls.
type Context struct {
	g    *Graph
	mode Mode

	propCost     []int
	reachedBy    []OpID
	marked       []bool
	excludedProp []bool

	unsatPre   []int
	opAccum    []int
	excludedOp []bool

	queue          adaptiveQueue
	overflowWarned bool
}

// NewContext allocates scratch buffers sized for the graph.
func NewContext(g *Graph, mode Mode) *Context {
	return &Context{
		g:            g,
		mode:         mode,
		propCost:     make([]int, g.numProps),
		reachedBy:    make([]OpID, g.numProps),
		marked:       make([]bool, g.numProps),
		excludedProp: make([]bool, g.numProps),
		unsatPre:     make([]int, len(g.ops)),
		opAccum:      make([]int, len(g.ops)),
		excludedOp:   make([]bool, len(g.ops)),
	}
}

// Graph returns the graph this context explores.
func (c *Context) Graph() *Graph { return c.g }

// Explore runs the relaxed reachability fixpoint from the given state under
// the given exclusions. Results stay valid until the next Explore call.
func (c *Context) Explore(state strips.State, opts Options) {
	c.setupQueue(opts)
	c.setupQueueState(state)
	c.exploreQueue(opts.StopAtGoal)
}

// setupQueue restores every scratch buffer to baseline, applies exclusions,
// and seeds the queue with zero-precondition operators.
func (c *Context) setupQueue(opts Options) {
	c.queue.clear()
	for i := range c.propCost {
		c.propCost[i] = -1
		c.reachedBy[i] = NoOp
		c.marked[i] = false
		c.excludedProp[i] = false
	}
	for _, f := range opts.ExcludedFacts {
		c.excludedProp[c.g.PropID(f)] = true
	}

	excludedAction := func(int) bool { return false }
	if len(opts.ExcludedActions) > 0 {
		set := make([]bool, c.g.NumActions())
		for _, a := range opts.ExcludedActions {
			set[a] = true
		}
		excludedAction = func(a int) bool { return set[a] }
	}

	for id := range c.g.ops {
		op := &c.g.ops[id]
		c.unsatPre[id] = len(op.preconditions)
		c.excludedOp[id] = excludedAction(op.action)
		if c.mode == Additive {
			c.opAccum[id] = op.baseCost
		} else {
			c.opAccum[id] = 0
		}
	}
	for _, id := range c.g.zeroPrecondOps {
		if c.excludedOp[id] {
			continue
		}
		c.enqueueIfNecessary(c.g.ops[id].effect, c.fireCost(id), id)
	}
}

// setupQueueState seeds the queue with the facts true in the state, at cost
// 0 and with no achieving operator.
func (c *Context) setupQueueState(state strips.State) {
	for variable, value := range state {
		c.enqueueIfNecessary(c.g.task.FactID(strips.FactPair{Var: variable, Value: value}), 0, NoOp)
	}
}

// fireCost is the cost at which a satisfied operator offers its effect.
func (c *Context) fireCost(id OpID) int {
	if c.mode == Additive {
		return c.opAccum[id]
	}
	return clampAdd(c.opAccum[id], c.g.ops[id].baseCost, &c.overflowWarned)
}

func (c *Context) enqueueIfNecessary(p PropID, cost int, reachedBy OpID) {
	if c.excludedProp[p] {
		return
	}
	if c.propCost[p] == -1 || c.propCost[p] > cost {
		c.propCost[p] = cost
		c.reachedBy[p] = reachedBy
		c.queue.push(cost, p)
	}
}

func (c *Context) exploreQueue(stopAtGoal bool) {
	unsolvedGoals := 0
	if stopAtGoal {
		unsolvedGoals = len(c.g.goals)
	}
	for !c.queue.empty() {
		distance, p := c.queue.pop()
		cost := c.propCost[p]
		if cost < distance {
			// Stale entry; the proposition was finalized cheaper.
			continue
		}
		if stopAtGoal && c.g.isGoal[p] {
			unsolvedGoals--
			if unsolvedGoals == 0 {
				return
			}
		}
		for _, id := range c.g.preconditionOf[p] {
			if c.excludedOp[id] {
				continue
			}
			if c.mode == Additive {
				c.opAccum[id] = clampAdd(c.opAccum[id], cost, &c.overflowWarned)
			} else if cost > c.opAccum[id] {
				c.opAccum[id] = cost
			}
			c.unsatPre[id]--
			if c.unsatPre[id] < 0 {
				panic("relaxed: unsatisfied precondition counter underflow")
			}
			if c.unsatPre[id] == 0 {
				c.enqueueIfNecessary(c.g.ops[id].effect, c.fireCost(id), id)
			}
		}
	}
}

func clampAdd(cost, amount int, warned *bool) int {
	sum := cost + amount
	if sum > MaxCostValue {
		if !*warned {
			logging.RelaxedWarn("cost overflow, clamping to %d", MaxCostValue)
			*warned = true
		}
		return MaxCostValue
	}
	return sum
}

// Cost returns the achievement cost of a fact, or -1 if unreached.
func (c *Context) Cost(f strips.FactPair) int {
	return c.propCost[c.g.PropID(f)]
}

// CostByID returns the achievement cost of a proposition, or -1 if
// unreached.
func (c *Context) CostByID(p PropID) int { return c.propCost[p] }

// ReachedBy returns the unary operator that first achieved the proposition,
// or NoOp for propositions true in the explored state (and unreached ones).
func (c *Context) ReachedBy(p PropID) OpID { return c.reachedBy[p] }

// Marked reports the transient mark used by relaxed-plan extraction.
func (c *Context) Marked(p PropID) bool { return c.marked[p] }

// SetMarked sets the transient mark; Explore clears all marks.
func (c *Context) SetMarked(p PropID) { c.marked[p] = true }

// GoalsReachable reports whether every goal proposition was achieved.
func (c *Context) GoalsReachable() bool {
	for _, p := range c.g.goals {
		if c.propCost[p] == -1 {
			return false
		}
	}
	return true
}

// LevelMatrix is the per-(variable, value) view of one exploration's
// results; unreached facts hold Unreachable. Always a fresh value per call.
type LevelMatrix [][]int

// LevelMatrix snapshots the current costs into a fresh matrix.
func (c *Context) LevelMatrix() LevelMatrix {
	task := c.g.task
	m := make(LevelMatrix, len(task.Variables))
	for v := range task.Variables {
		row := make([]int, task.Variables[v].DomainSize)
		for val := range row {
			cost := c.propCost[task.FactID(strips.FactPair{Var: v, Value: val})]
			if cost == -1 {
				row[val] = Unreachable
			} else {
				row[val] = cost
			}
		}
		m[v] = row
	}
	return m
}

// Level returns the achievement level of a fact in the matrix.
func (m LevelMatrix) Level(f strips.FactPair) int {
	return m[f.Var][f.Value]
}

// Reachable reports whether the fact was achieved at a finite level.
func (m LevelMatrix) Reachable(f strips.FactPair) bool {
	return m[f.Var][f.Value] < Unreachable
}
