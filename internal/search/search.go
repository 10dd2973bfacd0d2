// Package search runs greedy best-first search over a grounded task,
// guided by a heuristic evaluator. States are evaluated lazily when popped;
// successors reached through a preferred operator additionally enter a
// second open list that is boosted whenever the best seen estimate
// improves, so promising branches are followed before the frontier widens.
package search

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"plannerd/internal/heuristic"
	"plannerd/internal/logging"
	"plannerd/internal/strips"
)

// Evaluator is the heuristic contract the engine consumes: an estimate per
// state (heuristic.DeadEnd for unreachable goals) and the preferred
// operator ordinals of the most recent Evaluate call.
type Evaluator interface {
	Evaluate(state strips.State) int
	Preferred() []int
}

// defaultBoost is the preferred-list credit granted whenever the best
// estimate improves.
const defaultBoost = 1000

// Options bound and identify a search run.
type Options struct {
	// MaxExpansions stops the search after that many expansions; zero
	// means unbounded.
	MaxExpansions int
	// Boost is the number of consecutive preferred-list pops granted per
	// estimate improvement. Zero means defaultBoost; negative disables
	// boosting.
	Boost int
	// RunID correlates logs and store rows; generated when empty.
	RunID string
}

// Stats counts the work a run performed.
type Stats struct {
	InitialH    int
	Expansions  int
	Evaluations int
	Generated   int
	DeadEnds    int
	Duration    time.Duration
}

// Result is the outcome of one run. Exactly one of Solved, DeadEnd,
// Exhausted, LimitReached, or Canceled is set.
type Result struct {
	Solved       bool
	DeadEnd      bool
	Exhausted    bool
	LimitReached bool
	Canceled     bool
	Plan         []int
	PlanCost     int
	RunID        string
	Stats        Stats
}

type node struct {
	state  strips.State
	parent int
	op     int
}

// Engine is a single-use greedy best-first search. Build one per run.
type Engine struct {
	task *strips.Task
	eval Evaluator
	opts Options

	nodes     []node
	closed    map[string]bool
	regular   openHeap
	preferred openHeap
	seq       int

	bestH      int
	credit     int
	preferTurn bool

	stats Stats
}

func New(task *strips.Task, eval Evaluator, opts Options) *Engine {
	if opts.Boost == 0 {
		opts.Boost = defaultBoost
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Engine{
		task:   task,
		eval:   eval,
		opts:   opts,
		closed: make(map[string]bool),
		bestH:  math.MaxInt,
	}
}

// Run searches from the task's initial state until a goal state is popped,
// the open lists run dry, the expansion bound is hit, or the context is
// canceled. The context is polled once per pop, so cancellation lands
// within one evaluation.
func (e *Engine) Run(ctx context.Context) Result {
	start := time.Now()
	rl := logging.WithRunID(logging.CategorySearch, e.opts.RunID)
	rl.Info("starting greedy best-first search on task %q", e.task.Name)

	h0 := e.eval.Evaluate(e.task.Init)
	e.stats.Evaluations++
	e.stats.InitialH = h0
	if h0 == heuristic.DeadEnd {
		rl.Warn("initial state is a dead end")
		return e.finish(Result{DeadEnd: true}, start, rl)
	}
	e.nodes = append(e.nodes, node{state: e.task.Init, parent: -1, op: -1})
	e.pushRegular(0, h0)

	for {
		select {
		case <-ctx.Done():
			rl.Warn("search canceled after %d expansions: %v", e.stats.Expansions, ctx.Err())
			return e.finish(Result{Canceled: true}, start, rl)
		default:
		}

		idx, ok := e.popNext()
		if !ok {
			rl.Info("search space exhausted after %d expansions", e.stats.Expansions)
			return e.finish(Result{Exhausted: true}, start, rl)
		}
		n := &e.nodes[idx]
		key := stateKey(n.state)
		if e.closed[key] {
			continue
		}
		e.closed[key] = true

		if e.task.GoalSatisfied(n.state) {
			plan := e.extractPlan(idx)
			rl.Info("solved: plan length %d, cost %d, %d expansions",
				len(plan), planCost(e.task, plan), e.stats.Expansions)
			return e.finish(Result{Solved: true, Plan: plan, PlanCost: planCost(e.task, plan)}, start, rl)
		}
		if e.opts.MaxExpansions > 0 && e.stats.Expansions >= e.opts.MaxExpansions {
			rl.Warn("expansion limit %d reached", e.opts.MaxExpansions)
			return e.finish(Result{LimitReached: true}, start, rl)
		}

		h := e.eval.Evaluate(n.state)
		e.stats.Evaluations++
		if h == heuristic.DeadEnd {
			e.stats.DeadEnds++
			continue
		}
		if h < e.bestH {
			e.bestH = h
			if e.opts.Boost > 0 {
				e.credit += e.opts.Boost
			}
			rl.Debug("best estimate now %d after %d expansions", h, e.stats.Expansions)
		}
		prefSet := make(map[int]bool, len(e.eval.Preferred()))
		for _, op := range e.eval.Preferred() {
			prefSet[op] = true
		}

		e.stats.Expansions++
		for i := range e.task.Operators {
			op := &e.task.Operators[i]
			if !e.task.Applicable(op, n.state) {
				continue
			}
			succ := e.task.Apply(op, n.state)
			if e.closed[stateKey(succ)] {
				continue
			}
			child := len(e.nodes)
			e.nodes = append(e.nodes, node{state: succ, parent: idx, op: i})
			e.stats.Generated++
			// Children queue under the parent's estimate; their own
			// evaluation waits until they are popped.
			e.pushRegular(child, h)
			if prefSet[i] {
				e.pushPreferred(child, h)
			}
		}
	}
}

func (e *Engine) finish(r Result, start time.Time, rl *logging.RunLogger) Result {
	e.stats.Duration = time.Since(start)
	r.Stats = e.stats
	r.RunID = e.opts.RunID
	logging.Audit().SearchComplete(e.task.Name, e.stats.Expansions, r.Solved, e.stats.Duration.Milliseconds())
	rl.Debug("search finished: %d evaluations, %d generated, %d dead ends",
		e.stats.Evaluations, e.stats.Generated, e.stats.DeadEnds)
	return r
}

// popNext applies the dual-list policy: boost credit drains the preferred
// list first, otherwise the lists alternate; an empty list forfeits its
// turn.
func (e *Engine) popNext() (int, bool) {
	var h *openHeap
	switch {
	case e.preferred.Len() == 0 && e.regular.Len() == 0:
		return 0, false
	case e.preferred.Len() == 0:
		h = &e.regular
	case e.regular.Len() == 0:
		h = &e.preferred
	case e.credit > 0:
		e.credit--
		h = &e.preferred
	default:
		if e.preferTurn {
			h = &e.preferred
		} else {
			h = &e.regular
		}
		e.preferTurn = !e.preferTurn
	}
	return h.pop(), true
}

func (e *Engine) pushRegular(idx, h int) {
	e.regular.push(entry{h: h, seq: e.seq, node: idx})
	e.seq++
}

func (e *Engine) pushPreferred(idx, h int) {
	e.preferred.push(entry{h: h, seq: e.seq, node: idx})
	e.seq++
}

func (e *Engine) extractPlan(idx int) []int {
	var plan []int
	for i := idx; e.nodes[i].op != -1; i = e.nodes[i].parent {
		plan = append(plan, e.nodes[i].op)
	}
	for l, r := 0, len(plan)-1; l < r; l, r = l+1, r-1 {
		plan[l], plan[r] = plan[r], plan[l]
	}
	return plan
}

func planCost(task *strips.Task, plan []int) int {
	cost := 0
	for _, op := range plan {
		cost += task.Operators[op].Cost
	}
	return cost
}

// ValidatePlan replays the plan from the initial state, checking every
// operator's applicability and the goal at the end.
func ValidatePlan(task *strips.Task, plan []int) error {
	state := task.Init
	for step, opNo := range plan {
		if opNo < 0 || opNo >= len(task.Operators) {
			return &PlanError{Step: step, Reason: "unknown operator"}
		}
		op := &task.Operators[opNo]
		if !task.Applicable(op, state) {
			return &PlanError{Step: step, Op: op.Name, Reason: "operator not applicable"}
		}
		state = task.Apply(op, state)
	}
	if !task.GoalSatisfied(state) {
		return &PlanError{Step: len(plan), Reason: "goal not satisfied after final step"}
	}
	return nil
}

// PlanError pinpoints where a plan breaks.
type PlanError struct {
	Step   int
	Op     string
	Reason string
}

func (e *PlanError) Error() string {
	if e.Op != "" {
		return "plan invalid at step " + strconv.Itoa(e.Step) + " (" + e.Op + "): " + e.Reason
	}
	return "plan invalid at step " + strconv.Itoa(e.Step) + ": " + e.Reason
}

func stateKey(s strips.State) string {
	b := make([]byte, 0, len(s)*3)
	for i, v := range s {
		if i > 0 {
			b = append(b, ',')
		}
		b = strconv.AppendInt(b, int64(v), 10)
	}
	return string(b)
}
