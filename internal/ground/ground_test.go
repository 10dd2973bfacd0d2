package ground

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"plannerd/internal/strips"
)

const doorProgram = `
variable("door", 2).
variable("key", 2).

domain_value("door", 0, "locked").
domain_value("door", 1, "open").

init("door", 0).
init("key", 0).

goal("door", 1).

operator("grab key", 1).
eff("grab key", "key", 1).

operator("unlock door", 2).
pre("unlock door", "key", 1).
eff("unlock door", "door", 1).
`

func TestGroundDoorTask(t *testing.T) {
	task, err := Ground("door-task", doorProgram)
	if err != nil {
		t.Fatalf("Ground() error = %v", err)
	}

	if task.Name != "door-task" {
		t.Errorf("Name = %q, want door-task", task.Name)
	}

	// Variables are ordered by name: door before key.
	wantVars := []strips.Variable{
		{Name: "door", DomainSize: 2, ValueNames: []string{"locked", "open"}},
		{Name: "key", DomainSize: 2, ValueNames: []string{"v0", "v1"}},
	}
	if diff := cmp.Diff(wantVars, task.Variables); diff != "" {
		t.Errorf("Variables mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(strips.State{0, 0}, task.Init); diff != "" {
		t.Errorf("Init mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]strips.FactPair{{Var: 0, Value: 1}}, task.Goal); diff != "" {
		t.Errorf("Goal mismatch (-want +got):\n%s", diff)
	}

	wantOps := []strips.Operator{
		{Name: "grab key", Cost: 1, Effects: []strips.Effect{{Fact: strips.F(1, 1)}}},
		{Name: "unlock door", Cost: 2,
			Preconditions: []strips.FactPair{{Var: 1, Value: 1}},
			Effects:       []strips.Effect{{Fact: strips.F(0, 1)}}},
	}
	if diff := cmp.Diff(wantOps, task.Operators); diff != "" {
		t.Errorf("Operators mismatch (-want +got):\n%s", diff)
	}
}

func TestGroundValueNames(t *testing.T) {
	program := `
variable("door", 2).
domain_value("door", 0, "locked").
domain_value("door", 1, "open").

init("door", "locked").
goal("door", "open").

operator("unlock", 1).
pre("unlock", "door", "locked").
eff("unlock", "door", "open").
`
	task, err := Ground("named", program)
	if err != nil {
		t.Fatalf("Ground() error = %v", err)
	}

	if got := task.Init[0]; got != 0 {
		t.Errorf("Init[0] = %d, want 0 (locked)", got)
	}
	if got := task.Goal[0]; got != strips.F(0, 1) {
		t.Errorf("Goal[0] = %v, want 0=1 (open)", got)
	}
	op := task.Operators[0]
	if op.Preconditions[0] != strips.F(0, 0) || op.Effects[0].Fact != strips.F(0, 1) {
		t.Errorf("operator facts = pre %v eff %v, want 0=0 / 0=1",
			op.Preconditions[0], op.Effects[0].Fact)
	}
}

func TestGroundNameConstants(t *testing.T) {
	program := `
variable(/door, 2).
init(/door, 0).
goal(/door, 1).
operator(/open_door, 1).
eff(/open_door, /door, 1).
`
	task, err := Ground("names", program)
	if err != nil {
		t.Fatalf("Ground() error = %v", err)
	}
	if task.Variables[0].Name != "door" {
		t.Errorf("variable name = %q, want door", task.Variables[0].Name)
	}
	if task.Operators[0].Name != "open_door" {
		t.Errorf("operator name = %q, want open_door", task.Operators[0].Name)
	}
}

// Operators can be generated by rules instead of listed fact by fact.
func TestGroundRuleDerivedOperators(t *testing.T) {
	program := `
Decl block(X).

variable("hand", 2).
variable("done", 2).

block("pick a").
block("pick b").

operator(X, 1) :- block(X).
pre(X, "hand", 0) :- block(X).
eff(X, "done", 1) :- block(X).

init("hand", 0).
init("done", 0).
goal("done", 1).
`
	task, err := Ground("rules", program)
	if err != nil {
		t.Fatalf("Ground() error = %v", err)
	}

	if len(task.Operators) != 2 {
		t.Fatalf("got %d operators, want 2", len(task.Operators))
	}
	// Ordered by name, each instantiated from the rule body.
	if task.Operators[0].Name != "pick a" || task.Operators[1].Name != "pick b" {
		t.Errorf("operator names = %q, %q", task.Operators[0].Name, task.Operators[1].Name)
	}
	for _, op := range task.Operators {
		if len(op.Preconditions) != 1 || op.Preconditions[0] != strips.F(1, 0) {
			t.Errorf("operator %q preconditions = %v, want [1=0]", op.Name, op.Preconditions)
		}
		if len(op.Effects) != 1 || op.Effects[0].Fact != strips.F(0, 1) {
			t.Errorf("operator %q effects = %v, want [0=1]", op.Name, op.Effects)
		}
	}
}

func TestGroundAxioms(t *testing.T) {
	program := `
variable("door", 2).
variable("lamp", 2).
variable("lit", 2).
derived("lit", 0).

init("door", 0).
init("lamp", 1).

goal("lit", 1).

operator("open door", 1).
eff("open door", "door", 1).

axiom("light from door", "lit", 1).
axiom_cond("light from door", "door", 1).
axiom_cond("light from door", "lamp", 1).
`
	task, err := Ground("lit", program)
	if err != nil {
		t.Fatalf("Ground() error = %v", err)
	}

	// Sorted variable order: door=0, lamp=1, lit=2.
	if !task.Variables[2].IsDerived {
		t.Fatal("lit should be derived")
	}
	if diff := cmp.Diff(strips.State{0, 1, 0}, task.Init); diff != "" {
		t.Errorf("Init mismatch (-want +got):\n%s", diff)
	}

	wantAxioms := []strips.Axiom{{
		Conditions: []strips.FactPair{{Var: 0, Value: 1}, {Var: 1, Value: 1}},
		Effect:     strips.FactPair{Var: 2, Value: 1},
	}}
	if diff := cmp.Diff(wantAxioms, task.Axioms); diff != "" {
		t.Errorf("Axioms mismatch (-want +got):\n%s", diff)
	}

	state := strips.State{1, 1, 0}
	task.EvaluateAxioms(state)
	if state[2] != 1 {
		t.Errorf("axiom evaluation left lit=%d, want 1", state[2])
	}
	if !task.GoalSatisfied(state) {
		t.Error("goal should be satisfied once lit is derived")
	}
}

func TestGroundDuplicateRowsAreHarmless(t *testing.T) {
	program := doorProgram + `
pre("unlock door", "key", 1).
eff("grab key", "key", 1).
`
	task, err := Ground("dups", program)
	if err != nil {
		t.Fatalf("Ground() error = %v", err)
	}
	if len(task.Operators[1].Preconditions) != 1 {
		t.Errorf("duplicate pre rows should collapse, got %v", task.Operators[1].Preconditions)
	}
	if len(task.Operators[0].Effects) != 1 {
		t.Errorf("duplicate eff rows should collapse, got %v", task.Operators[0].Effects)
	}
}

func TestGroundErrors(t *testing.T) {
	tests := []struct {
		name    string
		program string
		wantErr string
	}{
		{
			name:    "parse failure",
			program: `variable(`,
			wantErr: "failed to parse task program",
		},
		{
			name:    "no variables",
			program: `operator("x", 1).`,
			wantErr: "declares no variables",
		},
		{
			name: "missing init",
			program: `
variable("door", 2).
goal("door", 1).
operator("open", 1).
eff("open", "door", 1).
`,
			wantErr: `missing init value for variable "door"`,
		},
		{
			name: "init on derived variable",
			program: `
variable("lit", 2).
derived("lit", 0).
init("lit", 1).
goal("lit", 1).
`,
			wantErr: "derived values come from axioms",
		},
		{
			name: "conflicting operator costs",
			program: `
variable("door", 2).
init("door", 0).
goal("door", 1).
operator("open", 1).
operator("open", 2).
eff("open", "door", 1).
`,
			wantErr: "conflicting costs",
		},
		{
			name: "goal for unknown variable",
			program: `
variable("door", 2).
init("door", 0).
goal("ghost", 1).
`,
			wantErr: `undeclared variable "ghost"`,
		},
		{
			name: "unknown value name",
			program: `
variable("door", 2).
init("door", "ajar").
goal("door", 1).
`,
			wantErr: `unknown value "ajar"`,
		},
		{
			name: "value out of range",
			program: `
variable("door", 2).
init("door", 5).
goal("door", 1).
`,
			wantErr: "out of range",
		},
		{
			name: "pre for undeclared operator",
			program: `
variable("door", 2).
init("door", 0).
goal("door", 1).
pre("ghost op", "door", 0).
`,
			wantErr: `undeclared operator "ghost op"`,
		},
		{
			name: "missing goal",
			program: `
variable("door", 2).
init("door", 0).
operator("open", 1).
eff("open", "door", 1).
`,
			wantErr: "no goal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Ground(tt.name, tt.program)
			if err == nil {
				t.Fatal("Ground() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadTask(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "door.mg")
	if err := os.WriteFile(path, []byte(doorProgram), 0644); err != nil {
		t.Fatalf("write task program: %v", err)
	}

	task, err := LoadTask(path)
	if err != nil {
		t.Fatalf("LoadTask() error = %v", err)
	}
	if task.Name != "door" {
		t.Errorf("Name = %q, want door (from file name)", task.Name)
	}

	if _, err := LoadTask(filepath.Join(dir, "missing.mg")); err == nil {
		t.Error("LoadTask() on missing file should error")
	}
}
