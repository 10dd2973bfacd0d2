// Package ground loads planning tasks authored as Mangle programs and
// grounds them into strips tasks.
//
// A task program states the problem as Datalog facts:
//
//	variable("door", 2).
//	domain_value("door", 1, "open").
//	init("door", 0).
//	goal("door", 1).
//	operator("unlock door", 1).
//	pre("unlock door", "key", 1).
//	eff("unlock door", "door", 1).
//
// Derived variables and axioms use derived/2, axiom/3 and axiom_cond/3.
// Any of these predicates may equally be derived by rules, which is the
// point of the frontend: a family of operators can be generated from a
// few lines of logic instead of being listed one by one.
package ground

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"plannerd/internal/logging"
	"plannerd/internal/strips"
)

// taskSchema declares the predicates a task program may state. Programs
// add their own helper predicates and rules on top of these.
const taskSchema = `
Decl variable(Name, DomainSize).
Decl domain_value(Name, Index, Value).
Decl derived(Name, Default).
Decl init(Name, Value).
Decl goal(Name, Value).
Decl operator(Name, Cost).
Decl pre(Op, Var, Value).
Decl eff(Op, Var, Value).
Decl axiom(Id, Var, Value).
Decl axiom_cond(Id, Var, Value).
`

// LoadTask reads a task program from a .mg file and grounds it. The task
// is named after the file, without the extension.
func LoadTask(path string) (*strips.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task program: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	t, err := Ground(name, string(data))
	if err != nil {
		return nil, fmt.Errorf("task program %s: %w", path, err)
	}
	return t, nil
}

// Ground evaluates a task program and assembles the grounded task.
// Variables, operators and axioms are ordered by name so the result is
// independent of fact store iteration order.
func Ground(name, source string) (*strips.Task, error) {
	timer := logging.StartTimer(logging.CategoryGround, "ground "+name)
	t, rows, err := ground(name, source)
	ms := timer.Stop().Milliseconds()
	if err != nil {
		logging.GroundError("task %s: %v", name, err)
		logging.Audit().GroundComplete(name, 0, ms, false, err.Error())
		return nil, err
	}
	logging.Ground("grounded task %s: %d rows, %d variables, %d operators, %d axioms",
		name, rows, len(t.Variables), len(t.Operators), len(t.Axioms))
	logging.Audit().GroundComplete(name, rows, ms, true, "")
	return t, nil
}

func ground(name, source string) (*strips.Task, int, error) {
	schemaUnit, err := parse.Unit(bytes.NewReader([]byte(taskSchema)))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse task schema: %w", err)
	}
	programUnit, err := parse.Unit(bytes.NewReader([]byte(source)))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse task program: %w", err)
	}

	unit := parse.SourceUnit{
		Clauses: append(schemaUnit.Clauses, programUnit.Clauses...),
		Decls:   append(schemaUnit.Decls, programUnit.Decls...),
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to analyze task program: %w", err)
	}

	store := factstore.NewSimpleInMemoryStore()
	if _, err := mengine.EvalProgramWithStats(info, store); err != nil {
		return nil, 0, fmt.Errorf("failed to evaluate task program: %w", err)
	}

	ex := &extractor{store: store, info: info}
	t, err := ex.task(name)
	return t, ex.rows, err
}

// extractor pulls the task predicates out of the evaluated fact store and
// assembles a strips task.
type extractor struct {
	store factstore.FactStore
	info  *analysis.ProgramInfo
	rows  int
}

// variable collects everything known about one task variable before ids
// are assigned.
type variable struct {
	name       string
	domain     int
	values     []string
	derived    bool
	defaultVal int
	id         int
}

// operator mirrors strips.Operator with name-keyed facts.
type operator struct {
	name    string
	cost    int
	pre     []strips.FactPair
	effects []strips.FactPair
}

type axiom struct {
	id         string
	head       strips.FactPair
	conditions []strips.FactPair
}

func (ex *extractor) task(name string) (*strips.Task, error) {
	vars, err := ex.variables()
	if err != nil {
		return nil, err
	}

	b := strips.NewBuilder(name)
	names := make([]string, 0, len(vars))
	for n := range vars {
		names = append(names, n)
	}
	sort.Strings(names)
	for i, n := range names {
		v := vars[n]
		v.id = i
		if v.derived {
			b.DerivedVariable(v.name, v.defaultVal, v.values...)
		} else {
			b.Variable(v.name, v.values...)
		}
	}

	init, err := ex.initialState(vars, names)
	if err != nil {
		return nil, err
	}
	b.Init(init...)

	goals, err := ex.goals(vars)
	if err != nil {
		return nil, err
	}
	for _, g := range goals {
		b.Goal(g.Var, g.Value)
	}

	ops, err := ex.operators(vars)
	if err != nil {
		return nil, err
	}
	for _, op := range ops {
		b.Operator(op.name, op.cost, op.pre, op.effects)
	}

	axioms, err := ex.axioms(vars)
	if err != nil {
		return nil, err
	}
	for _, ax := range axioms {
		b.Axiom(ax.conditions, ax.head)
	}

	return b.Build()
}

// variables reads variable/2, domain_value/3 and derived/2.
func (ex *extractor) variables() (map[string]*variable, error) {
	vars := make(map[string]*variable)
	err := ex.each("variable", func(args []ast.BaseTerm) error {
		name, ok := constString(args[0])
		if !ok {
			return fmt.Errorf("variable/2: name must be a string or name constant, got %v", args[0])
		}
		domain, ok := constNumber(args[1])
		if !ok {
			return fmt.Errorf("variable %q: domain size must be a number", name)
		}
		if prev, dup := vars[name]; dup {
			if prev.domain != int(domain) {
				return fmt.Errorf("variable %q declared with conflicting domain sizes %d and %d",
					name, prev.domain, domain)
			}
			return nil
		}
		values := make([]string, domain)
		for i := range values {
			values[i] = fmt.Sprintf("v%d", i)
		}
		vars[name] = &variable{name: name, domain: int(domain), values: values}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(vars) == 0 {
		return nil, fmt.Errorf("task program declares no variables")
	}

	named := make(map[string]map[int]bool, len(vars))
	err = ex.each("domain_value", func(args []ast.BaseTerm) error {
		varName, ok := constString(args[0])
		if !ok {
			return fmt.Errorf("domain_value/3: variable must be a string or name constant, got %v", args[0])
		}
		v, ok := vars[varName]
		if !ok {
			return fmt.Errorf("domain_value/3 for undeclared variable %q", varName)
		}
		index, ok := constNumber(args[1])
		if !ok {
			return fmt.Errorf("variable %q: domain value index must be a number", varName)
		}
		if index < 0 || int(index) >= v.domain {
			return fmt.Errorf("variable %q: value index %d out of range [0, %d)", varName, index, v.domain)
		}
		valName, ok := constString(args[2])
		if !ok {
			return fmt.Errorf("variable %q: value name must be a string or name constant", varName)
		}
		if named[varName] == nil {
			named[varName] = make(map[int]bool)
		}
		if named[varName][int(index)] && v.values[index] != valName {
			return fmt.Errorf("variable %q: conflicting names %q and %q for value %d",
				varName, v.values[index], valName, index)
		}
		named[varName][int(index)] = true
		v.values[index] = valName
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = ex.each("derived", func(args []ast.BaseTerm) error {
		varName, ok := constString(args[0])
		if !ok {
			return fmt.Errorf("derived/2: variable must be a string or name constant, got %v", args[0])
		}
		v, ok := vars[varName]
		if !ok {
			return fmt.Errorf("derived/2 for undeclared variable %q", varName)
		}
		def, err := ex.value(v, args[1])
		if err != nil {
			return fmt.Errorf("variable %q default: %w", varName, err)
		}
		if v.derived && v.defaultVal != def {
			return fmt.Errorf("variable %q declared derived with conflicting defaults %d and %d",
				varName, v.defaultVal, def)
		}
		v.derived = true
		v.defaultVal = def
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vars, nil
}

// initialState reads init/2 and fills derived variables from their
// defaults. Every non-derived variable needs exactly one init value.
func (ex *extractor) initialState(vars map[string]*variable, names []string) ([]int, error) {
	set := make(map[string]int, len(vars))
	err := ex.each("init", func(args []ast.BaseTerm) error {
		v, err := ex.variableArg(vars, "init/2", args[0])
		if err != nil {
			return err
		}
		if v.derived {
			return fmt.Errorf("init/2 sets derived variable %q; derived values come from axioms", v.name)
		}
		val, err := ex.value(v, args[1])
		if err != nil {
			return fmt.Errorf("init value for variable %q: %w", v.name, err)
		}
		if prev, dup := set[v.name]; dup && prev != val {
			return fmt.Errorf("conflicting init values %d and %d for variable %q", prev, val, v.name)
		}
		set[v.name] = val
		return nil
	})
	if err != nil {
		return nil, err
	}

	init := make([]int, len(names))
	for i, n := range names {
		v := vars[n]
		if v.derived {
			init[i] = v.defaultVal
			continue
		}
		val, ok := set[n]
		if !ok {
			return nil, fmt.Errorf("missing init value for variable %q", n)
		}
		init[i] = val
	}
	return init, nil
}

// goals reads goal/2, ordered by variable id.
func (ex *extractor) goals(vars map[string]*variable) ([]strips.FactPair, error) {
	var goals []strips.FactPair
	err := ex.each("goal", func(args []ast.BaseTerm) error {
		v, err := ex.variableArg(vars, "goal/2", args[0])
		if err != nil {
			return err
		}
		val, err := ex.value(v, args[1])
		if err != nil {
			return fmt.Errorf("goal value for variable %q: %w", v.name, err)
		}
		goals = append(goals, strips.F(v.id, val))
		return nil
	})
	if err != nil {
		return nil, err
	}
	goals = dedupFacts(goals)
	return goals, nil
}

// operators reads operator/2, pre/3 and eff/3, ordered by operator name.
func (ex *extractor) operators(vars map[string]*variable) ([]*operator, error) {
	ops := make(map[string]*operator)
	err := ex.each("operator", func(args []ast.BaseTerm) error {
		name, ok := constString(args[0])
		if !ok {
			return fmt.Errorf("operator/2: name must be a string or name constant, got %v", args[0])
		}
		cost, ok := constNumber(args[1])
		if !ok {
			return fmt.Errorf("operator %q: cost must be a number", name)
		}
		if prev, dup := ops[name]; dup {
			if prev.cost != int(cost) {
				return fmt.Errorf("operator %q declared with conflicting costs %d and %d",
					name, prev.cost, cost)
			}
			return nil
		}
		ops[name] = &operator{name: name, cost: int(cost)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	attach := func(predicate string, pick func(*operator) *[]strips.FactPair) error {
		return ex.each(predicate, func(args []ast.BaseTerm) error {
			opName, ok := constString(args[0])
			if !ok {
				return fmt.Errorf("%s/3: operator must be a string or name constant, got %v", predicate, args[0])
			}
			op, ok := ops[opName]
			if !ok {
				return fmt.Errorf("%s/3 for undeclared operator %q", predicate, opName)
			}
			v, err := ex.variableArg(vars, predicate+"/3", args[1])
			if err != nil {
				return fmt.Errorf("operator %q: %w", opName, err)
			}
			val, err := ex.value(v, args[2])
			if err != nil {
				return fmt.Errorf("operator %q, variable %q: %w", opName, v.name, err)
			}
			facts := pick(op)
			*facts = append(*facts, strips.F(v.id, val))
			return nil
		})
	}
	if err := attach("pre", func(op *operator) *[]strips.FactPair { return &op.pre }); err != nil {
		return nil, err
	}
	if err := attach("eff", func(op *operator) *[]strips.FactPair { return &op.effects }); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(ops))
	for n := range ops {
		names = append(names, n)
	}
	sort.Strings(names)
	ordered := make([]*operator, len(names))
	for i, n := range names {
		op := ops[n]
		op.pre = dedupFacts(op.pre)
		op.effects = dedupFacts(op.effects)
		ordered[i] = op
	}
	return ordered, nil
}

// axioms reads axiom/3 heads and axiom_cond/3 bodies, ordered by axiom id.
func (ex *extractor) axioms(vars map[string]*variable) ([]*axiom, error) {
	axioms := make(map[string]*axiom)
	err := ex.each("axiom", func(args []ast.BaseTerm) error {
		id, ok := constString(args[0])
		if !ok {
			return fmt.Errorf("axiom/3: id must be a string or name constant, got %v", args[0])
		}
		v, err := ex.variableArg(vars, "axiom/3", args[1])
		if err != nil {
			return fmt.Errorf("axiom %q: %w", id, err)
		}
		val, err := ex.value(v, args[2])
		if err != nil {
			return fmt.Errorf("axiom %q, variable %q: %w", id, v.name, err)
		}
		head := strips.F(v.id, val)
		if prev, dup := axioms[id]; dup {
			if prev.head != head {
				return fmt.Errorf("axiom %q declared with conflicting heads %s and %s", id, prev.head, head)
			}
			return nil
		}
		axioms[id] = &axiom{id: id, head: head}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = ex.each("axiom_cond", func(args []ast.BaseTerm) error {
		id, ok := constString(args[0])
		if !ok {
			return fmt.Errorf("axiom_cond/3: id must be a string or name constant, got %v", args[0])
		}
		ax, ok := axioms[id]
		if !ok {
			return fmt.Errorf("axiom_cond/3 for undeclared axiom %q", id)
		}
		v, err := ex.variableArg(vars, "axiom_cond/3", args[1])
		if err != nil {
			return fmt.Errorf("axiom %q: %w", id, err)
		}
		val, err := ex.value(v, args[2])
		if err != nil {
			return fmt.Errorf("axiom %q, variable %q: %w", id, v.name, err)
		}
		ax.conditions = append(ax.conditions, strips.F(v.id, val))
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(axioms))
	for id := range axioms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	ordered := make([]*axiom, len(ids))
	for i, id := range ids {
		ax := axioms[id]
		ax.conditions = dedupFacts(ax.conditions)
		ordered[i] = ax
	}
	return ordered, nil
}

// each iterates all facts of a task predicate in the evaluated store.
func (ex *extractor) each(predicate string, fn func(args []ast.BaseTerm) error) error {
	var sym ast.PredicateSym
	found := false
	for s := range ex.info.Decls {
		if s.Symbol == predicate {
			sym = s
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("predicate %s is not declared", predicate)
	}
	return ex.store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		ex.rows++
		return fn(atom.Args)
	})
}

func (ex *extractor) variableArg(vars map[string]*variable, predicate string, arg ast.BaseTerm) (*variable, error) {
	name, ok := constString(arg)
	if !ok {
		return nil, fmt.Errorf("%s: variable must be a string or name constant, got %v", predicate, arg)
	}
	v, ok := vars[name]
	if !ok {
		return nil, fmt.Errorf("%s references undeclared variable %q", predicate, name)
	}
	return v, nil
}

// value resolves a domain value given either as a numeric index or as a
// domain value name.
func (ex *extractor) value(v *variable, arg ast.BaseTerm) (int, error) {
	if n, ok := constNumber(arg); ok {
		if n < 0 || int(n) >= v.domain {
			return 0, fmt.Errorf("value %d out of range [0, %d)", n, v.domain)
		}
		return int(n), nil
	}
	if s, ok := constString(arg); ok {
		for i, name := range v.values {
			if name == s {
				return i, nil
			}
		}
		return 0, fmt.Errorf("unknown value %q", s)
	}
	return 0, fmt.Errorf("value must be a number or a domain value name, got %v", arg)
}

// constString accepts string and name constants; names lose their
// leading slash so /unlock_door and "unlock_door" are the same operator.
func constString(term ast.BaseTerm) (string, bool) {
	c, ok := term.(ast.Constant)
	if !ok {
		return "", false
	}
	switch c.Type {
	case ast.StringType:
		return c.Symbol, true
	case ast.NameType:
		return strings.TrimPrefix(c.Symbol, "/"), true
	}
	return "", false
}

func constNumber(term ast.BaseTerm) (int64, bool) {
	c, ok := term.(ast.Constant)
	if !ok || c.Type != ast.NumberType {
		return 0, false
	}
	return c.NumValue, true
}

// dedupFacts sorts facts by (variable, value) and drops exact duplicates.
// Duplicate rows are legal Datalog, so stating a precondition twice is
// not an error.
func dedupFacts(facts []strips.FactPair) []strips.FactPair {
	if len(facts) == 0 {
		return facts
	}
	sort.Slice(facts, func(i, j int) bool {
		if facts[i].Var != facts[j].Var {
			return facts[i].Var < facts[j].Var
		}
		return facts[i].Value < facts[j].Value
	})
	out := facts[:1]
	for _, f := range facts[1:] {
		if f != out[len(out)-1] {
			out = append(out, f)
		}
	}
	return out
}
