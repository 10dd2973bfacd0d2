// Package heuristic derives state-space search guidance from the relaxed
// exploration engine: the additive estimate (h_add) and the FF-style
// estimate with relaxed-plan extraction and preferred-operator marking.
// Both heuristics are deliberately inadmissible.
package heuristic

import (
	"fmt"

	"plannerd/internal/relaxed"
	"plannerd/internal/strips"
)

// DeadEnd is the sentinel returned when the goal is unreachable in the
// relaxed model. It is a result value, not an error: dead ends are expected
// during search.
const DeadEnd = -1

// Estimator is the surface shared by the package's heuristics.
type Estimator interface {
	Evaluate(state strips.State) int
	Preferred() []int
}

// ForKind builds the named heuristic over the graph. Valid kinds are
// "ff" and "additive"; empty defaults to "ff". Only the FF heuristic
// consumes the learned-weight config.
func ForKind(kind string, g *relaxed.Graph, cfg Config) (Estimator, error) {
	switch kind {
	case "", "ff":
		return NewFF(g, cfg)
	case "additive":
		return NewAdditive(g), nil
	default:
		return nil, fmt.Errorf("invalid heuristic kind: %s (valid: [ff additive])", kind)
	}
}

// Config carries the optional learned-weight accumulation mode. When
// UseLearnedWeights is set, the relaxed-plan value is the sum of per-type
// weights instead of operator costs, rounded up to the nearest integer.
// OperatorNames and OperatorWeights are parallel arrays keyed by the
// operator-type token (the name up to the first space).
type Config struct {
	UseLearnedWeights bool
	OperatorNames     []string
	OperatorWeights   []float64
}

// weightTable validates the config against the task and builds the lookup
// table eagerly, so misconfiguration surfaces before any search begins.
func (c Config) weightTable(task *strips.Task) (map[string]float64, error) {
	if !c.UseLearnedWeights {
		return nil, nil
	}
	if len(c.OperatorNames) != len(c.OperatorWeights) {
		return nil, fmt.Errorf("learned weights misconfigured: %d operator names for %d weights",
			len(c.OperatorNames), len(c.OperatorWeights))
	}
	weights := make(map[string]float64, len(c.OperatorNames))
	for i, name := range c.OperatorNames {
		weights[name] = c.OperatorWeights[i]
	}
	for _, typ := range task.OperatorTypes() {
		if _, ok := weights[typ]; !ok {
			return nil, fmt.Errorf("learned weights missing operator type %q", typ)
		}
	}
	return weights, nil
}
