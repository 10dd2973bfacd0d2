package strips

import "fmt"

// Builder assembles a Task programmatically. It is the construction path
// used by tests, benchmarks and the Datalog frontend; errors are collected
// and surfaced once by Build so call sites stay linear.
type Builder struct {
	task Task
	errs []error
}

// NewBuilder starts a task with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{task: Task{Name: name}}
}

// Variable adds a finite-domain variable and returns its id. Value names
// double as the domain: the domain size is len(values).
func (b *Builder) Variable(name string, values ...string) int {
	id := len(b.task.Variables)
	if len(values) == 0 {
		b.errs = append(b.errs, fmt.Errorf("variable %s: empty domain", name))
		values = []string{"?"}
	}
	b.task.Variables = append(b.task.Variables, Variable{
		Name:       name,
		DomainSize: len(values),
		ValueNames: values,
	})
	return id
}

// DerivedVariable adds an axiom-controlled variable with the given default.
func (b *Builder) DerivedVariable(name string, defaultValue int, values ...string) int {
	id := b.Variable(name, values...)
	b.task.Variables[id].IsDerived = true
	b.task.Variables[id].DefaultValue = defaultValue
	return id
}

// Init sets the full initial state, one value per variable in declaration
// order.
func (b *Builder) Init(values ...int) *Builder {
	b.task.Init = State(values)
	return b
}

// Goal appends one goal fact.
func (b *Builder) Goal(variable, value int) *Builder {
	b.task.Goal = append(b.task.Goal, FactPair{Var: variable, Value: value})
	return b
}

// Operator adds a grounded operator with unconditional effects only. Use
// OperatorFull when effect conditions are needed.
func (b *Builder) Operator(name string, cost int, pre []FactPair, effects []FactPair) *Builder {
	effs := make([]Effect, len(effects))
	for i, f := range effects {
		effs[i] = Effect{Fact: f}
	}
	return b.OperatorFull(Operator{Name: name, Cost: cost, Preconditions: pre, Effects: effs})
}

// OperatorFull adds a fully specified operator.
func (b *Builder) OperatorFull(op Operator) *Builder {
	b.task.Operators = append(b.task.Operators, op)
	return b
}

// Axiom adds a derivation rule for a derived variable.
func (b *Builder) Axiom(conditions []FactPair, effect FactPair) *Builder {
	b.task.Axioms = append(b.task.Axioms, Axiom{Conditions: conditions, Effect: effect})
	return b
}

// Build finalizes and returns the task. The builder must not be reused
// afterwards.
func (b *Builder) Build() (*Task, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("building task %q: %w", b.task.Name, b.errs[0])
	}
	t := b.task
	if err := t.Finalize(); err != nil {
		return nil, fmt.Errorf("building task %q: %w", b.task.Name, err)
	}
	return &t, nil
}

// MustBuild is Build for tests and fixtures; it panics on error.
func (b *Builder) MustBuild() *Task {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

// F is shorthand for a FactPair literal.
func F(variable, value int) FactPair { return FactPair{Var: variable, Value: value} }

// Facts builds a fact slice from flat (var, value) pairs.
func Facts(pairs ...int) []FactPair {
	if len(pairs)%2 != 0 {
		panic("strips.Facts: odd number of arguments")
	}
	fs := make([]FactPair, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		fs = append(fs, FactPair{Var: pairs[i], Value: pairs[i+1]})
	}
	return fs
}
