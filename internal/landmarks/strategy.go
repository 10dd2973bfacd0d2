package landmarks

import (
	"sort"

	"plannerd/internal/logging"
	"plannerd/internal/strips"
)

// Strategy is a relaxation-grounded generation pass. Strategies only fill
// the factory's graph; id assignment, achiever computation and cycle
// removal are shared post-processing.
type Strategy interface {
	Name() string
	generate(f *Factory)
}

// Exhaustive tests every fact of the task: goal facts are landmarks by
// definition, and any other fact is a landmark iff it holds initially or
// excluding it makes the relaxed task unsolvable.
type Exhaustive struct{}

func (Exhaustive) Name() string { return "exhaustive" }

func (Exhaustive) generate(f *Factory) {
	for _, gf := range f.task.Goal {
		l := NewSimpleLandmark(gf)
		l.IsTrueInGoal = true
		f.graph.AddLandmark(l)
	}
	for v := range f.task.Variables {
		for value := 0; value < f.task.Variables[v].DomainSize; value++ {
			fact := strips.F(v, value)
			if f.graph.ContainsSimple(fact) {
				continue
			}
			l := NewSimpleLandmark(fact)
			if f.task.Init[v] == value {
				f.graph.AddLandmark(l)
				continue
			}
			if solvable, _ := f.relaxedTaskSolvable(&l); !solvable {
				f.graph.AddLandmark(l)
			}
		}
	}
	logging.LandmarksDebug("exhaustive pass kept %d of %d facts as landmarks",
		f.graph.NumLandmarks(), f.task.NumFacts())
}

// Backchain starts from the goal landmarks and walks backward: for a
// landmark not true initially, every precondition shared by all achievers
// that can still reach it becomes a landmark itself, ordered
// greedy-necessary before it. Newest landmarks are processed first, so the
// chain is followed away from the goal before siblings are expanded.
type Backchain struct{}

func (Backchain) Name() string { return "backchain" }

func (Backchain) generate(f *Factory) {
	var open []*Node
	for _, gf := range f.task.Goal {
		l := NewSimpleLandmark(gf)
		l.IsTrueInGoal = true
		open = append(open, f.graph.AddLandmark(l))
	}
	for len(open) > 0 {
		node := open[len(open)-1]
		open = open[:len(open)-1]
		if node.Landmark.IsTrueInState(f.task.Init) {
			continue
		}
		for _, pre := range f.sharedAchieverPreconditions(&node.Landmark) {
			if existing, ok := f.graph.SimpleNode(pre); ok {
				f.graph.AddEdge(existing, node, GreedyNecessary)
				continue
			}
			l := NewSimpleLandmark(pre)
			preNode := f.graph.AddLandmark(l)
			f.graph.AddEdge(preNode, node, GreedyNecessary)
			open = append(open, preNode)
		}
	}
}

// sharedAchieverPreconditions intersects the precondition sets of every
// achiever that can still reach the landmark while the landmark itself is
// excluded. Facts come back sorted by variable for deterministic node
// insertion; an empty result means the achievers agree on nothing.
func (f *Factory) sharedAchieverPreconditions(l *Landmark) []strips.FactPair {
	_, lvl := f.relaxedTaskSolvable(l)

	candidates := make(map[int]struct{})
	for _, fact := range l.Facts {
		for _, id := range f.effectLookup[fact] {
			candidates[id] = struct{}{}
		}
	}

	var shared map[int]int
	for _, id := range sortedIDs(candidates) {
		if !f.possiblyReaches(id, lvl, l) {
			continue
		}
		pre := make(map[int]int)
		for _, p := range f.actionPreconditions(id) {
			pre[p.Var] = p.Value
		}
		if shared == nil {
			shared = pre
			continue
		}
		for v, val := range shared {
			if other, ok := pre[v]; !ok || other != val {
				delete(shared, v)
			}
		}
		if len(shared) == 0 {
			break
		}
	}

	facts := make([]strips.FactPair, 0, len(shared))
	for v, val := range shared {
		facts = append(facts, strips.F(v, val))
	}
	sort.Slice(facts, func(i, j int) bool { return facts[i].Var < facts[j].Var })
	return facts
}
