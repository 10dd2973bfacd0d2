// Package landmarks extracts causal landmarks from a planning task by
// repeatedly re-running the relaxed exploration engine with exclusion sets
// built from candidate landmarks and their achieving operators. The result
// is a landmark graph: facts every plan must pass through, connected by
// typed ordering edges and annotated with achiever sets.
package landmarks

import (
	"sort"
	"strings"

	"plannerd/internal/strips"
)

// EdgeType ranks ordering edges by strength. Larger values are stronger:
// every necessary ordering is also greedy-necessary, every greedy-necessary
// ordering is natural, and every natural ordering is reasonable. Cycle
// removal deletes the weakest edge first.
type EdgeType int

const (
	Reasonable EdgeType = iota
	Natural
	GreedyNecessary
	Necessary
)

func (e EdgeType) String() string {
	switch e {
	case Reasonable:
		return "reasonable"
	case Natural:
		return "natural"
	case GreedyNecessary:
		return "greedy-necessary"
	case Necessary:
		return "necessary"
	default:
		return "unknown"
	}
}

// Landmark is a fact, or a disjunction of facts, that every plan must make
// true at some point. The relaxation factories in this package never
// produce conjunctive landmarks; the flag exists so consumers can reject
// them explicitly.
type Landmark struct {
	Facts        []strips.FactPair
	Disjunctive  bool
	Conjunctive  bool
	IsTrueInGoal bool
	IsDerived    bool

	// PossibleAchievers holds every action with an unconditional effect on
	// one of the landmark facts. FirstAchievers is the subset that can fire
	// before the landmark is otherwise achieved. Action ids follow the
	// relaxed graph numbering: operator ordinals first, then axioms.
	PossibleAchievers map[int]struct{}
	FirstAchievers    map[int]struct{}
}

// NewSimpleLandmark wraps a single fact.
func NewSimpleLandmark(fact strips.FactPair) Landmark {
	return Landmark{
		Facts:             []strips.FactPair{fact},
		PossibleAchievers: make(map[int]struct{}),
		FirstAchievers:    make(map[int]struct{}),
	}
}

// NewDisjunctiveLandmark wraps a disjunction of facts, any one of which
// satisfies the landmark.
func NewDisjunctiveLandmark(facts []strips.FactPair) Landmark {
	l := Landmark{
		Facts:             append([]strips.FactPair(nil), facts...),
		Disjunctive:       true,
		PossibleAchievers: make(map[int]struct{}),
		FirstAchievers:    make(map[int]struct{}),
	}
	return l
}

// ContainsFact reports whether the fact is one of the landmark's disjuncts.
func (l *Landmark) ContainsFact(f strips.FactPair) bool {
	for _, fact := range l.Facts {
		if fact == f {
			return true
		}
	}
	return false
}

// IsTrueInState reports whether some disjunct holds in the state.
func (l *Landmark) IsTrueInState(s strips.State) bool {
	for _, fact := range l.Facts {
		if s[fact.Var] == fact.Value {
			return true
		}
	}
	return false
}

func (l *Landmark) String() string {
	parts := make([]string, len(l.Facts))
	for i, f := range l.Facts {
		parts[i] = f.String()
	}
	return strings.Join(parts, " | ")
}

// sortedIDs returns the set members in ascending order, for deterministic
// iteration.
func sortedIDs(set map[int]struct{}) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
