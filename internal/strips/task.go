// Package strips provides the grounded planning task model for planNERD.
// A Task is the static, read-only view of a finite-domain (SAS+-style)
// planning problem: state variables with finite domains, grounded operators
// with preconditions and (conditionally guarded) effects, axioms for derived
// variables, an initial state and a goal. Heuristics and landmark factories
// read tasks but never mutate them.
package strips

import (
	"fmt"
	"strings"
)

// AxiomOperator is the operator ordinal used for axioms wherever operators
// and axioms share an id space (e.g. achiever sets). Regular operators use
// their index into Task.Operators.
const AxiomOperator = -1

// FactPair identifies a single proposition: variable Var has value Value.
type FactPair struct {
	Var   int `yaml:"var" json:"var"`
	Value int `yaml:"value" json:"value"`
}

func (f FactPair) String() string {
	return fmt.Sprintf("%d=%d", f.Var, f.Value)
}

// Variable is one finite-domain state variable.
type Variable struct {
	Name       string
	DomainSize int
	// ValueNames optionally names each domain value for display; when
	// present it has exactly DomainSize entries.
	ValueNames []string
	// IsDerived marks axiom-controlled variables. Derived variables are
	// reset to DefaultValue before axiom evaluation.
	IsDerived    bool
	DefaultValue int
}

// Effect is a single operator effect, optionally guarded by effect
// conditions. An unconditional effect has no conditions.
type Effect struct {
	Conditions []FactPair
	Fact       FactPair
}

// Unconditional reports whether the effect fires regardless of state.
func (e Effect) Unconditional() bool { return len(e.Conditions) == 0 }

// Operator is a grounded action. Name follows the planning convention of
// "<type> <arg> <arg>..." so the token before the first space identifies the
// operator type (shared by all groundings of one schema).
type Operator struct {
	Name          string
	Cost          int
	Preconditions []FactPair
	Effects       []Effect
}

// Type returns the operator-type token: the name up to the first space.
func (o Operator) Type() string {
	if i := strings.IndexByte(o.Name, ' '); i >= 0 {
		return o.Name[:i]
	}
	return o.Name
}

// Axiom derives a fact on a derived variable from body conditions. Axioms
// carry no cost and are applied to quiescence per state.
type Axiom struct {
	Conditions []FactPair
	Effect     FactPair
}

// State assigns one value to every variable, indexed by variable id.
type State []int

// Contains reports whether the fact holds in the state.
func (s State) Contains(f FactPair) bool {
	return f.Var >= 0 && f.Var < len(s) && s[f.Var] == f.Value
}

// Clone returns an independent copy of the state.
func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// Task is a complete grounded planning problem. Construct with NewTask or a
// loader, then treat as immutable: every component of the planner assumes
// tasks never change after Finalize.
type Task struct {
	Name      string
	Variables []Variable
	Operators []Operator
	Axioms    []Axiom
	Init      State
	Goal      []FactPair

	// offsets[v] is the global fact id of (v, 0); numFacts is the total
	// proposition count. Computed by Finalize.
	offsets  []int
	numFacts int
}

// Finalize validates the task and computes the fact-id index. Must be called
// once after construction; loaders and the builder do this for you.
func (t *Task) Finalize() error {
	if err := t.validate(); err != nil {
		return err
	}
	t.offsets = make([]int, len(t.Variables))
	n := 0
	for i, v := range t.Variables {
		t.offsets[i] = n
		n += v.DomainSize
	}
	t.numFacts = n
	// The initial state must obey the same semantics as every successor:
	// derived variables reflect their axioms, not their defaults.
	if t.HasAxioms() {
		t.EvaluateAxioms(t.Init)
	}
	return nil
}

// NumFacts returns the total number of propositions (sum of domain sizes).
func (t *Task) NumFacts() int { return t.numFacts }

// FactID maps a fact to its dense global id in [0, NumFacts).
func (t *Task) FactID(f FactPair) int {
	return t.offsets[f.Var] + f.Value
}

// FactFromID is the inverse of FactID.
func (t *Task) FactFromID(id int) FactPair {
	// Binary search over offsets would be overkill; tasks have few variables
	// relative to facts and this is only used for diagnostics.
	for v := len(t.offsets) - 1; v >= 0; v-- {
		if id >= t.offsets[v] {
			return FactPair{Var: v, Value: id - t.offsets[v]}
		}
	}
	return FactPair{Var: -1, Value: -1}
}

// FactName renders a fact for humans, using value names when available.
func (t *Task) FactName(f FactPair) string {
	if f.Var < 0 || f.Var >= len(t.Variables) {
		return f.String()
	}
	v := t.Variables[f.Var]
	if len(v.ValueNames) == v.DomainSize && f.Value >= 0 && f.Value < v.DomainSize {
		return fmt.Sprintf("%s=%s", v.Name, v.ValueNames[f.Value])
	}
	return fmt.Sprintf("%s=%d", v.Name, f.Value)
}

// HasAxioms reports whether the task defines any axioms.
func (t *Task) HasAxioms() bool { return len(t.Axioms) > 0 }

// GoalSatisfied reports whether every goal fact holds in the state.
func (t *Task) GoalSatisfied(s State) bool {
	for _, g := range t.Goal {
		if !s.Contains(g) {
			return false
		}
	}
	return true
}

// Applicable reports whether all preconditions of the operator hold.
func (t *Task) Applicable(op *Operator, s State) bool {
	for _, pre := range op.Preconditions {
		if !s.Contains(pre) {
			return false
		}
	}
	return true
}

// Apply returns the successor state of applying an applicable operator:
// effects whose conditions hold (against the predecessor state) fire, then
// axioms are re-evaluated. The input state is not modified.
func (t *Task) Apply(op *Operator, s State) State {
	succ := s.Clone()
	for _, eff := range op.Effects {
		fires := true
		for _, c := range eff.Conditions {
			if !s.Contains(c) {
				fires = false
				break
			}
		}
		if fires {
			succ[eff.Fact.Var] = eff.Fact.Value
		}
	}
	if t.HasAxioms() {
		t.EvaluateAxioms(succ)
	}
	return succ
}

// EvaluateAxioms recomputes derived variables in place: derived variables
// are reset to their defaults, then axioms fire to quiescence. The evaluator
// is a plain fixpoint without stratification; tasks with negation-dependent
// axiom layers are outside what this core supports.
func (t *Task) EvaluateAxioms(s State) {
	for i, v := range t.Variables {
		if v.IsDerived {
			s[i] = v.DefaultValue
		}
	}
	changed := true
	for changed {
		changed = false
		for _, ax := range t.Axioms {
			if s.Contains(ax.Effect) {
				continue
			}
			holds := true
			for _, c := range ax.Conditions {
				if !s.Contains(c) {
					holds = false
					break
				}
			}
			if holds {
				s[ax.Effect.Var] = ax.Effect.Value
				changed = true
			}
		}
	}
}

// OperatorTypes returns the set of distinct operator-type tokens in the
// task, in first-appearance order.
func (t *Task) OperatorTypes() []string {
	seen := make(map[string]bool, len(t.Operators))
	var types []string
	for i := range t.Operators {
		typ := t.Operators[i].Type()
		if !seen[typ] {
			seen[typ] = true
			types = append(types, typ)
		}
	}
	return types
}

func (t *Task) validate() error {
	if len(t.Variables) == 0 {
		return fmt.Errorf("task %q has no variables", t.Name)
	}
	for i, v := range t.Variables {
		if v.DomainSize <= 0 {
			return fmt.Errorf("variable %d (%s): domain size %d", i, v.Name, v.DomainSize)
		}
		if len(v.ValueNames) != 0 && len(v.ValueNames) != v.DomainSize {
			return fmt.Errorf("variable %d (%s): %d value names for domain size %d",
				i, v.Name, len(v.ValueNames), v.DomainSize)
		}
		if v.IsDerived && (v.DefaultValue < 0 || v.DefaultValue >= v.DomainSize) {
			return fmt.Errorf("variable %d (%s): default value %d out of range", i, v.Name, v.DefaultValue)
		}
	}
	if len(t.Init) != len(t.Variables) {
		return fmt.Errorf("initial state has %d values for %d variables", len(t.Init), len(t.Variables))
	}
	for v, val := range t.Init {
		if err := t.checkFact(FactPair{Var: v, Value: val}); err != nil {
			return fmt.Errorf("initial state: %w", err)
		}
	}
	if len(t.Goal) == 0 {
		return fmt.Errorf("task %q has no goal", t.Name)
	}
	goalVars := make(map[int]bool, len(t.Goal))
	for _, g := range t.Goal {
		if err := t.checkFact(g); err != nil {
			return fmt.Errorf("goal: %w", err)
		}
		if goalVars[g.Var] {
			return fmt.Errorf("goal constrains variable %d twice", g.Var)
		}
		goalVars[g.Var] = true
	}
	for i := range t.Operators {
		op := &t.Operators[i]
		if op.Cost < 0 {
			return fmt.Errorf("operator %q: negative cost %d", op.Name, op.Cost)
		}
		if len(op.Effects) == 0 {
			return fmt.Errorf("operator %q has no effects", op.Name)
		}
		for _, pre := range op.Preconditions {
			if err := t.checkFact(pre); err != nil {
				return fmt.Errorf("operator %q precondition: %w", op.Name, err)
			}
		}
		for _, eff := range op.Effects {
			if err := t.checkFact(eff.Fact); err != nil {
				return fmt.Errorf("operator %q effect: %w", op.Name, err)
			}
			for _, c := range eff.Conditions {
				if err := t.checkFact(c); err != nil {
					return fmt.Errorf("operator %q effect condition: %w", op.Name, err)
				}
			}
		}
	}
	for i, ax := range t.Axioms {
		if err := t.checkFact(ax.Effect); err != nil {
			return fmt.Errorf("axiom %d head: %w", i, err)
		}
		if !t.Variables[ax.Effect.Var].IsDerived {
			return fmt.Errorf("axiom %d derives non-derived variable %d", i, ax.Effect.Var)
		}
		for _, c := range ax.Conditions {
			if err := t.checkFact(c); err != nil {
				return fmt.Errorf("axiom %d body: %w", i, err)
			}
		}
	}
	return nil
}

func (t *Task) checkFact(f FactPair) error {
	if f.Var < 0 || f.Var >= len(t.Variables) {
		return fmt.Errorf("variable %d out of range [0, %d)", f.Var, len(t.Variables))
	}
	if f.Value < 0 || f.Value >= t.Variables[f.Var].DomainSize {
		return fmt.Errorf("value %d out of range for variable %d (domain %d)",
			f.Value, f.Var, t.Variables[f.Var].DomainSize)
	}
	return nil
}
