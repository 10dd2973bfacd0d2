package landmarks

import (
	"plannerd/internal/logging"
	"plannerd/internal/relaxed"
	"plannerd/internal/strips"
)

// Factory generates a landmark graph for one task. It owns a Max-mode
// exploration context and re-runs it with different exclusion sets for
// every candidate test, so generation is where the exploration engine gets
// hammered; per-state heuristic evaluation never goes through here.
type Factory struct {
	task       *strips.Task
	rg         *relaxed.Graph
	ctx        *relaxed.Context
	graph      *Graph
	strategy   Strategy
	onlyCausal bool

	// effectLookup maps each fact to the action ids that achieve it
	// unconditionally: operators by ordinal, then axioms.
	effectLookup map[strips.FactPair][]int

	achieversCalculated bool
}

// Options configures landmark generation.
type Options struct {
	// Strategy selects the generation pass; nil means Exhaustive.
	Strategy Strategy
	// OnlyCausal prunes landmarks failing the causal-necessity test before
	// post-processing.
	OnlyCausal bool
}

func NewFactory(rg *relaxed.Graph, opts Options) *Factory {
	if opts.Strategy == nil {
		opts.Strategy = Exhaustive{}
	}
	task := rg.Task()
	f := &Factory{
		task:         task,
		rg:           rg,
		ctx:          relaxed.NewContext(rg, relaxed.Max),
		graph:        NewGraph(),
		strategy:     opts.Strategy,
		onlyCausal:   opts.OnlyCausal,
		effectLookup: make(map[strips.FactPair][]int),
	}
	for i := range task.Operators {
		for _, eff := range task.Operators[i].Effects {
			if len(eff.Conditions) == 0 {
				f.effectLookup[eff.Fact] = append(f.effectLookup[eff.Fact], i)
			}
		}
	}
	for i := range task.Axioms {
		eff := task.Axioms[i].Effect
		f.effectLookup[eff] = append(f.effectLookup[eff], rg.AxiomAction(i))
	}
	return f
}

// Graph returns the landmark graph under construction.
func (f *Factory) Graph() *Graph { return f.graph }

// GenerateLandmarks runs the configured strategy, then post-processes the
// graph: ids are assigned, achiever sets computed, ordering cycles broken.
// Call once per factory; achiever computation is one-shot.
func (f *Factory) GenerateLandmarks() *Graph {
	timer := logging.StartTimer(logging.CategoryLandmarks, "GenerateLandmarks")
	logging.Landmarks("generating landmarks for task %q with strategy %s", f.task.Name, f.strategy.Name())
	f.strategy.generate(f)
	if f.onlyCausal {
		f.DiscardNoncausalLandmarks()
	}
	f.graph.SetIDs()
	f.calcAchievers()
	f.makeAcyclic()
	timer.Stop()
	logging.Landmarks("generated %d landmarks (%d disjunctive) for task %q",
		f.graph.NumLandmarks(), f.graph.NumDisjunctive(), f.task.Name)
	logging.Audit().LandmarkEvent(logging.AuditLandmarkGenerate, f.task.Name, f.graph.NumLandmarks())
	return f.graph
}

// IsCausalLandmark reports whether blocking every operator that consumes
// the landmark as a precondition leaves some goal fact relaxed-unreachable.
// A landmark already true in the goal is causal by definition.
func (f *Factory) IsCausalLandmark(l *Landmark) bool {
	if l.Conjunctive {
		panic("landmarks: causal test on a conjunctive landmark")
	}
	if l.IsTrueInGoal {
		return true
	}
	var excluded []int
	for i := range f.task.Operators {
		if landmarkIsPrecondition(&f.task.Operators[i], l) {
			excluded = append(excluded, i)
		}
	}
	f.ctx.Explore(f.task.Init, relaxed.Options{ExcludedActions: excluded})
	return !f.ctx.GoalsReachable()
}

// DiscardNoncausalLandmarks removes every node that fails the causal test
// and logs the count. The test reasons over plain preconditions, so tasks
// with conditional effects are rejected outright.
func (f *Factory) DiscardNoncausalLandmarks() {
	for i := range f.task.Operators {
		for _, eff := range f.task.Operators[i].Effects {
			if len(eff.Conditions) > 0 {
				panic("landmarks: causal pruning does not support conditional effects")
			}
		}
	}
	before := f.graph.NumLandmarks()
	f.graph.RemoveNodeIf(func(n *Node) bool {
		return !f.IsCausalLandmark(&n.Landmark)
	})
	removed := before - f.graph.NumLandmarks()
	logging.Landmarks("discarded %d non-causal landmarks", removed)
	logging.Audit().LandmarkEvent(logging.AuditLandmarkDiscard, f.task.Name, removed)
}

// relaxedTaskSolvable explores with the landmark's facts excluded and with
// every operator that unconditionally achieves one of them blocked. It
// reports whether the goals stay reachable, together with the achievement
// levels of that restricted run. Axioms are never blocked; a derived
// landmark can still be re-derived, which matches the documented axiom
// caveat.
func (f *Factory) relaxedTaskSolvable(exclude *Landmark) (bool, relaxed.LevelMatrix) {
	var excludedOps []int
	for i := range f.task.Operators {
		if achievesNonConditional(&f.task.Operators[i], exclude) {
			excludedOps = append(excludedOps, i)
		}
	}
	f.ctx.Explore(f.task.Init, relaxed.Options{
		ExcludedFacts:   exclude.Facts,
		ExcludedActions: excludedOps,
	})
	return f.ctx.GoalsReachable(), f.ctx.LevelMatrix()
}

// calcAchievers fills the achiever sets of every landmark: possible
// achievers from the unconditional effect lookup, first achievers by the
// possibly-reaches filter against an exploration that excludes the
// landmark itself. Runs exactly once per factory; a second invocation is a
// programming error.
func (f *Factory) calcAchievers() {
	if f.achieversCalculated {
		panic("landmarks: achiever computation invoked twice")
	}
	for _, node := range f.graph.Nodes() {
		l := &node.Landmark
		for _, fact := range l.Facts {
			for _, id := range f.effectLookup[fact] {
				l.PossibleAchievers[id] = struct{}{}
			}
			if f.task.Variables[fact.Var].IsDerived {
				l.IsDerived = true
			}
		}
		_, lvl := f.relaxedTaskSolvable(l)
		for _, id := range sortedIDs(l.PossibleAchievers) {
			if f.possiblyReaches(id, lvl, l) {
				l.FirstAchievers[id] = struct{}{}
			}
		}
	}
	f.achieversCalculated = true
	logging.LandmarksDebug("achiever sets computed for %d landmarks", f.graph.NumLandmarks())
	logging.Audit().LandmarkEvent(logging.AuditLandmarkAchievers, f.task.Name, f.graph.NumLandmarks())
}

// possiblyReaches reports whether the action can fire under the given
// levels (all preconditions reachable) and then actually add one of the
// landmark facts through an effect whose conditions are reachable too.
func (f *Factory) possiblyReaches(actionID int, lvl relaxed.LevelMatrix, l *Landmark) bool {
	if actionID < len(f.task.Operators) {
		op := &f.task.Operators[actionID]
		for _, pre := range op.Preconditions {
			if !lvl.Reachable(pre) {
				return false
			}
		}
		for _, eff := range op.Effects {
			if !l.ContainsFact(eff.Fact) {
				continue
			}
			reachable := true
			for _, cond := range eff.Conditions {
				if !lvl.Reachable(cond) {
					reachable = false
					break
				}
			}
			if reachable {
				return true
			}
		}
		return false
	}
	ax := &f.task.Axioms[actionID-len(f.task.Operators)]
	for _, cond := range ax.Conditions {
		if !lvl.Reachable(cond) {
			return false
		}
	}
	return l.ContainsFact(ax.Effect)
}

// actionPreconditions returns the precondition facts of an operator, or
// the body of an axiom.
func (f *Factory) actionPreconditions(actionID int) []strips.FactPair {
	if actionID < len(f.task.Operators) {
		return f.task.Operators[actionID].Preconditions
	}
	return f.task.Axioms[actionID-len(f.task.Operators)].Conditions
}

type cycleFrame struct {
	node *Node
	next int
}

// makeAcyclic removes ordering cycles. A depth-first walk with an explicit
// stack follows child edges; when it closes a cycle it deletes the first
// weakest edge on it and restarts from the entry node. Nodes proven
// cycle-free are skipped on later walks.
func (f *Factory) makeAcyclic() int {
	acyclic := make(map[*Node]bool)
	removed := 0
	for _, node := range f.graph.Nodes() {
		if !acyclic[node] {
			removed += f.removeCyclesFrom(node, acyclic)
		}
	}
	if removed > 0 {
		logging.Landmarks("removed %d edges to break landmark ordering cycles", removed)
		logging.Audit().LandmarkEvent(logging.AuditLandmarkCycles, f.task.Name, removed)
	}
	return removed
}

func (f *Factory) removeCyclesFrom(entry *Node, acyclic map[*Node]bool) int {
	removed := 0
	for {
		stack := []cycleFrame{{node: entry}}
		index := map[*Node]int{entry: 0}
		brokeCycle := false
		for len(stack) > 0 && !brokeCycle {
			i := len(stack) - 1
			node := stack[i].node
			children := node.Children()
			descended := false
			for stack[i].next < len(children) {
				child := children[stack[i].next]
				stack[i].next++
				if acyclic[child] {
					continue
				}
				if at, ok := index[child]; ok {
					f.removeWeakestCycleEdge(stack[at:])
					removed++
					brokeCycle = true
					break
				}
				index[child] = len(stack)
				stack = append(stack, cycleFrame{node: child})
				descended = true
				break
			}
			if descended || brokeCycle {
				continue
			}
			acyclic[node] = true
			delete(index, node)
			stack = stack[:i]
		}
		if !brokeCycle {
			return removed
		}
	}
}

// removeWeakestCycleEdge deletes the first weakest edge on the cycle formed
// by the path segment plus the closing edge back to its first node.
func (f *Factory) removeWeakestCycleEdge(cycle []cycleFrame) {
	var from, to *Node
	var weakest EdgeType
	for j := range cycle {
		parent := cycle[j].node
		child := cycle[0].node
		if j+1 < len(cycle) {
			child = cycle[j+1].node
		}
		edge, ok := parent.ChildEdge(child)
		if !ok {
			panic("landmarks: cycle edge missing from graph")
		}
		if from == nil || edge < weakest {
			weakest = edge
			from = parent
			to = child
		}
	}
	logging.LandmarksDebug("breaking cycle: dropping %s edge %s -> %s",
		weakest, from.Landmark.String(), to.Landmark.String())
	f.graph.removeEdge(from, to)
}

func landmarkIsPrecondition(op *strips.Operator, l *Landmark) bool {
	for _, pre := range op.Preconditions {
		if l.ContainsFact(pre) {
			return true
		}
	}
	return false
}

// achievesNonConditional reports whether the operator achieves some
// landmark fact with an unconditional effect.
func achievesNonConditional(op *strips.Operator, l *Landmark) bool {
	for _, eff := range op.Effects {
		if len(eff.Conditions) == 0 && l.ContainsFact(eff.Fact) {
			return true
		}
	}
	return false
}
