package strips

import (
	"path/filepath"
	"testing"
)

// gripperTask builds the two-ball gripper variant used across planner tests:
// a robot moving between two rooms, carrying one ball at a time.
func gripperTask(t *testing.T) *Task {
	t.Helper()
	b := NewBuilder("gripper-2")
	robby := b.Variable("robby", "rooma", "roomb")
	ball1 := b.Variable("ball1", "rooma", "roomb", "carried")
	ball2 := b.Variable("ball2", "rooma", "roomb", "carried")
	hand := b.Variable("hand", "free", "busy")

	b.Init(0, 0, 0, 0)
	b.Goal(ball1, 1).Goal(ball2, 1)

	rooms := []string{"rooma", "roomb"}
	for r := 0; r < 2; r++ {
		other := 1 - r
		b.Operator("move "+rooms[r]+" "+rooms[other], 1,
			Facts(robby, r),
			Facts(robby, other))
		for bi, ball := range []int{ball1, ball2} {
			name := []string{"ball1", "ball2"}[bi]
			b.Operator("pick "+name+" "+rooms[r], 1,
				Facts(ball, r, robby, r, hand, 0),
				Facts(ball, 2, hand, 1))
			b.Operator("drop "+name+" "+rooms[r], 1,
				Facts(ball, 2, robby, r),
				Facts(ball, r, hand, 0))
		}
	}
	task, err := b.Build()
	if err != nil {
		t.Fatalf("gripper task failed to build: %v", err)
	}
	return task
}

func TestBuilderGripper(t *testing.T) {
	task := gripperTask(t)

	if got := task.NumFacts(); got != 10 {
		t.Errorf("NumFacts() = %d, want 10", got)
	}
	if got := len(task.Operators); got != 10 {
		t.Errorf("len(Operators) = %d, want 10", got)
	}

	// Fact ids are dense and invertible.
	seen := make(map[int]bool)
	for v, vr := range task.Variables {
		for val := 0; val < vr.DomainSize; val++ {
			f := FactPair{Var: v, Value: val}
			id := task.FactID(f)
			if id < 0 || id >= task.NumFacts() {
				t.Fatalf("FactID(%v) = %d out of range", f, id)
			}
			if seen[id] {
				t.Fatalf("FactID(%v) = %d collides", f, id)
			}
			seen[id] = true
			if back := task.FactFromID(id); back != f {
				t.Errorf("FactFromID(%d) = %v, want %v", id, back, f)
			}
		}
	}
}

func TestOperatorType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"pick ball1 rooma", "pick"},
		{"move rooma roomb", "move"},
		{"noop", "noop"},
	}
	for _, tt := range tests {
		op := Operator{Name: tt.name}
		if got := op.Type(); got != tt.want {
			t.Errorf("Type(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestOperatorTypes(t *testing.T) {
	task := gripperTask(t)
	got := task.OperatorTypes()
	want := []string{"move", "pick", "drop"}
	if len(got) != len(want) {
		t.Fatalf("OperatorTypes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("OperatorTypes()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestApplyAndGoal(t *testing.T) {
	task := gripperTask(t)
	s := task.Init.Clone()

	// pick ball1 rooma, move to roomb, drop, move back, pick ball2, move, drop.
	plan := []string{
		"pick ball1 rooma",
		"move rooma roomb",
		"drop ball1 roomb",
		"move roomb rooma",
		"pick ball2 rooma",
		"move rooma roomb",
		"drop ball2 roomb",
	}
	byName := make(map[string]*Operator)
	for i := range task.Operators {
		byName[task.Operators[i].Name] = &task.Operators[i]
	}
	for _, step := range plan {
		op := byName[step]
		if op == nil {
			t.Fatalf("plan step %q not in task", step)
		}
		if !task.Applicable(op, s) {
			t.Fatalf("operator %q not applicable in %v", step, s)
		}
		s = task.Apply(op, s)
	}
	if !task.GoalSatisfied(s) {
		t.Errorf("goal not satisfied after plan, state %v", s)
	}
	if task.GoalSatisfied(task.Init) {
		t.Error("goal should not hold in the initial state")
	}
}

func TestConditionalEffects(t *testing.T) {
	b := NewBuilder("cond-eff")
	x := b.Variable("x", "a", "b")
	y := b.Variable("y", "a", "b")
	b.Init(0, 0)
	b.Goal(y, 1)
	b.OperatorFull(Operator{
		Name: "flip",
		Cost: 1,
		Effects: []Effect{
			{Fact: F(x, 1)},
			{Conditions: Facts(x, 1), Fact: F(y, 1)},
		},
	})
	task := b.MustBuild()

	// Effect conditions are evaluated against the predecessor state, so the
	// conditional effect must not see the unconditional one from this step.
	s1 := task.Apply(&task.Operators[0], task.Init)
	if s1[y] != 0 {
		t.Errorf("conditional effect fired against successor state: %v", s1)
	}
	s2 := task.Apply(&task.Operators[0], s1)
	if s2[y] != 1 {
		t.Errorf("conditional effect did not fire on second application: %v", s2)
	}
}

func TestAxiomEvaluation(t *testing.T) {
	b := NewBuilder("axioms")
	x := b.Variable("x", "a", "b")
	d1 := b.DerivedVariable("d1", 0, "false", "true")
	d2 := b.DerivedVariable("d2", 0, "false", "true")
	b.Init(0, 0, 0)
	b.Goal(d2, 1)
	b.Operator("set-x", 1, nil, Facts(x, 1))
	b.Axiom(Facts(x, 1), F(d1, 1))
	b.Axiom(Facts(d1, 1), F(d2, 1))
	task := b.MustBuild()

	s := task.Init.Clone()
	task.EvaluateAxioms(s)
	if s[d1] != 0 || s[d2] != 0 {
		t.Errorf("axioms fired in initial state: %v", s)
	}

	s = task.Apply(&task.Operators[0], task.Init)
	if s[d1] != 1 || s[d2] != 1 {
		t.Errorf("axiom chain did not reach fixpoint: %v", s)
	}
	if !task.GoalSatisfied(s) {
		t.Error("derived goal should hold after set-x")
	}
}

func TestInitReflectsAxioms(t *testing.T) {
	b := NewBuilder("lever")
	base := b.Variable("base", "off", "on")
	lit := b.DerivedVariable("lit", 0, "false", "true")
	b.Init(1, 0)
	b.Goal(lit, 1)
	b.Operator("noop", 1, nil, Facts(base, 1))
	b.Axiom(Facts(base, 1), F(lit, 1))
	task := b.MustBuild()

	// Finalize evaluates axioms on the initial state, so Init and the
	// successors of Apply agree on derived variables.
	if task.Init[lit] != 1 {
		t.Errorf("derived variable not evaluated in initial state: %v", task.Init)
	}
	if !task.GoalSatisfied(task.Init) {
		t.Error("derived goal should already hold in the initial state")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Builder
	}{
		{
			name: "no variables",
			build: func() *Builder {
				b := NewBuilder("bad")
				b.Init()
				return b
			},
		},
		{
			name: "init wrong length",
			build: func() *Builder {
				b := NewBuilder("bad")
				x := b.Variable("x", "a", "b")
				b.Init(0, 0)
				b.Goal(x, 1)
				b.Operator("op", 1, nil, Facts(x, 1))
				return b
			},
		},
		{
			name: "goal value out of range",
			build: func() *Builder {
				b := NewBuilder("bad")
				x := b.Variable("x", "a", "b")
				b.Init(0)
				b.Goal(x, 5)
				b.Operator("op", 1, nil, Facts(x, 1))
				return b
			},
		},
		{
			name: "no goal",
			build: func() *Builder {
				b := NewBuilder("bad")
				x := b.Variable("x", "a", "b")
				b.Init(0)
				b.Operator("op", 1, nil, Facts(x, 1))
				return b
			},
		},
		{
			name: "goal constrains variable twice",
			build: func() *Builder {
				b := NewBuilder("bad")
				x := b.Variable("x", "a", "b")
				b.Init(0)
				b.Goal(x, 0).Goal(x, 1)
				b.Operator("op", 1, nil, Facts(x, 1))
				return b
			},
		},
		{
			name: "negative operator cost",
			build: func() *Builder {
				b := NewBuilder("bad")
				x := b.Variable("x", "a", "b")
				b.Init(0)
				b.Goal(x, 1)
				b.Operator("op", -2, nil, Facts(x, 1))
				return b
			},
		},
		{
			name: "operator without effects",
			build: func() *Builder {
				b := NewBuilder("bad")
				x := b.Variable("x", "a", "b")
				b.Init(0)
				b.Goal(x, 1)
				b.Operator("op", 1, Facts(x, 0), nil)
				return b
			},
		},
		{
			name: "axiom on non-derived variable",
			build: func() *Builder {
				b := NewBuilder("bad")
				x := b.Variable("x", "a", "b")
				b.Init(0)
				b.Goal(x, 1)
				b.Operator("op", 1, nil, Facts(x, 1))
				b.Axiom(nil, F(x, 1))
				return b
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.build().Build(); err == nil {
				t.Error("Build() succeeded, want validation error")
			}
		})
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	task := gripperTask(t)
	path := filepath.Join(t.TempDir(), "gripper.yaml")
	if err := Save(task, path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Name != task.Name {
		t.Errorf("Name = %q, want %q", loaded.Name, task.Name)
	}
	if loaded.NumFacts() != task.NumFacts() {
		t.Errorf("NumFacts() = %d, want %d", loaded.NumFacts(), task.NumFacts())
	}
	if len(loaded.Operators) != len(task.Operators) {
		t.Fatalf("len(Operators) = %d, want %d", len(loaded.Operators), len(task.Operators))
	}
	for i := range task.Operators {
		if loaded.Operators[i].Name != task.Operators[i].Name {
			t.Errorf("operator %d name = %q, want %q", i, loaded.Operators[i].Name, task.Operators[i].Name)
		}
		if loaded.Operators[i].Cost != task.Operators[i].Cost {
			t.Errorf("operator %d cost = %d, want %d", i, loaded.Operators[i].Cost, task.Operators[i].Cost)
		}
	}
	if !loaded.GoalSatisfied(State{1, 1, 1, 0}) {
		t.Error("loaded goal semantics differ")
	}
}

func TestParseDefaultsCost(t *testing.T) {
	src := []byte(`
name: unit-cost
variables:
  - name: x
    values: [a, b]
init: [0]
goal:
  - {var: 0, value: 1}
operators:
  - name: "go"
    effects:
      - fact: {var: 0, value: 1}
  - name: "go-expensive"
    cost: 7
    effects:
      - fact: {var: 0, value: 1}
`)
	task, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if task.Operators[0].Cost != 1 {
		t.Errorf("omitted cost = %d, want 1", task.Operators[0].Cost)
	}
	if task.Operators[1].Cost != 7 {
		t.Errorf("explicit cost = %d, want 7", task.Operators[1].Cost)
	}
}

func TestFactName(t *testing.T) {
	task := gripperTask(t)
	if got := task.FactName(F(1, 2)); got != "ball1=carried" {
		t.Errorf("FactName = %q, want %q", got, "ball1=carried")
	}
}
