package strips

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// taskDoc is the on-disk YAML shape of a task. It is kept separate from Task
// so the wire format can default fields (operator cost) and stay stable while
// the in-memory model evolves.
type taskDoc struct {
	Name      string        `yaml:"name"`
	Variables []variableDoc `yaml:"variables"`
	Init      []int         `yaml:"init"`
	Goal      []FactPair    `yaml:"goal"`
	Operators []operatorDoc `yaml:"operators"`
	Axioms    []axiomDoc    `yaml:"axioms,omitempty"`
}

type variableDoc struct {
	Name    string   `yaml:"name"`
	Values  []string `yaml:"values"`
	Derived bool     `yaml:"derived,omitempty"`
	Default int      `yaml:"default,omitempty"`
}

type operatorDoc struct {
	Name          string      `yaml:"name"`
	Cost          *int        `yaml:"cost,omitempty"` // nil means unit cost
	Preconditions []FactPair  `yaml:"preconditions,omitempty"`
	Effects       []effectDoc `yaml:"effects"`
}

type effectDoc struct {
	When []FactPair `yaml:"when,omitempty"`
	Fact FactPair   `yaml:"fact"`
}

type axiomDoc struct {
	When []FactPair `yaml:"when,omitempty"`
	Fact FactPair   `yaml:"fact"`
}

// Load reads a task from a YAML file and finalizes it.
func Load(path string) (*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("task file %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a task from YAML bytes and finalizes it.
func Parse(data []byte) (*Task, error) {
	var doc taskDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse task YAML: %w", err)
	}
	t := docToTask(&doc)
	if err := t.Finalize(); err != nil {
		return nil, fmt.Errorf("invalid task: %w", err)
	}
	return t, nil
}

// Save writes the task to a YAML file, creating or truncating it.
func Save(t *Task, path string) error {
	data, err := yaml.Marshal(taskToDoc(t))
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write task file: %w", err)
	}
	return nil
}

func docToTask(doc *taskDoc) *Task {
	t := &Task{
		Name: doc.Name,
		Init: State(doc.Init),
		Goal: doc.Goal,
	}
	for _, v := range doc.Variables {
		t.Variables = append(t.Variables, Variable{
			Name:         v.Name,
			DomainSize:   len(v.Values),
			ValueNames:   v.Values,
			IsDerived:    v.Derived,
			DefaultValue: v.Default,
		})
	}
	for _, op := range doc.Operators {
		cost := 1
		if op.Cost != nil {
			cost = *op.Cost
		}
		effs := make([]Effect, len(op.Effects))
		for i, e := range op.Effects {
			effs[i] = Effect{Conditions: e.When, Fact: e.Fact}
		}
		t.Operators = append(t.Operators, Operator{
			Name:          op.Name,
			Cost:          cost,
			Preconditions: op.Preconditions,
			Effects:       effs,
		})
	}
	for _, ax := range doc.Axioms {
		t.Axioms = append(t.Axioms, Axiom{Conditions: ax.When, Effect: ax.Fact})
	}
	return t
}

func taskToDoc(t *Task) *taskDoc {
	doc := &taskDoc{
		Name: t.Name,
		Init: []int(t.Init),
		Goal: t.Goal,
	}
	for _, v := range t.Variables {
		vd := variableDoc{Name: v.Name, Values: v.ValueNames, Derived: v.IsDerived, Default: v.DefaultValue}
		if len(vd.Values) == 0 {
			vd.Values = make([]string, v.DomainSize)
			for i := range vd.Values {
				vd.Values[i] = fmt.Sprintf("v%d", i)
			}
		}
		doc.Variables = append(doc.Variables, vd)
	}
	for i := range t.Operators {
		op := &t.Operators[i]
		od := operatorDoc{Name: op.Name, Preconditions: op.Preconditions}
		if op.Cost != 1 {
			c := op.Cost
			od.Cost = &c
		}
		for _, e := range op.Effects {
			od.Effects = append(od.Effects, effectDoc{When: e.Conditions, Fact: e.Fact})
		}
		doc.Operators = append(doc.Operators, od)
	}
	for _, ax := range t.Axioms {
		doc.Axioms = append(doc.Axioms, axiomDoc{When: ax.Conditions, Fact: ax.Effect})
	}
	return doc
}
