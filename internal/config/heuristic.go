package config

import "fmt"

// HeuristicConfig configures heuristic evaluation.
type HeuristicConfig struct {
	Kind string `yaml:"kind"` // ff, additive

	// Learned per-type operator weights for relaxed plan costing.
	// operator_names and operator_weights are parallel arrays; when
	// use_learned_weights is on, every operator type occurring in a
	// task must have an entry.
	UseLearnedWeights bool      `yaml:"use_learned_weights"`
	OperatorNames     []string  `yaml:"operator_names"`
	OperatorWeights   []float64 `yaml:"operator_weights"`
}

// ValidHeuristics lists all supported heuristic kinds.
var ValidHeuristics = []string{"ff", "additive"}

// ValidateHeuristic checks the heuristic section.
func (c *Config) ValidateHeuristic() error {
	valid := false
	for _, k := range ValidHeuristics {
		if c.Heuristic.Kind == k {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid heuristic kind: %s (valid: %v)", c.Heuristic.Kind, ValidHeuristics)
	}

	if c.Heuristic.UseLearnedWeights &&
		len(c.Heuristic.OperatorNames) != len(c.Heuristic.OperatorWeights) {
		return fmt.Errorf("learned weights misconfigured: %d operator names for %d weights",
			len(c.Heuristic.OperatorNames), len(c.Heuristic.OperatorWeights))
	}

	return nil
}
