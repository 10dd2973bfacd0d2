package store

import (
	"context"
	"fmt"
	"sort"

	"plannerd/internal/heuristic"
	"plannerd/internal/logging"
)

// Learned operator weights.
//
// The additive heuristic's accumulation mode sums per-operator weights
// instead of costs, so a lower weight makes an operator type look
// cheaper. CreditPlan nudges the types that keep appearing in solved
// plans toward cheap; SetWeight pins a type explicitly.

// creditStep and creditFloor bound how far CreditPlan can push a weight.
const (
	creditStep  = 0.05
	creditFloor = 0.25
)

// SetWeight upserts the weight for an operator type.
func (s *RunStore) SetWeight(ctx context.Context, operatorType string, weight float64) error {
	timer := logging.StartTimer(logging.CategoryStore, "SetWeight")
	defer timer.Stop()

	if operatorType == "" {
		return fmt.Errorf("operator type required")
	}
	if weight < 0 {
		return fmt.Errorf("weight must be >= 0, got %v", weight)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO learned_weights (operator_type, weight, samples, updated_at)
		VALUES (?, ?, 0, CURRENT_TIMESTAMP)
		ON CONFLICT(operator_type) DO UPDATE SET
			weight = excluded.weight,
			updated_at = CURRENT_TIMESTAMP
	`, operatorType, weight)
	if err != nil {
		logging.StoreError("failed to set weight for %s: %v", operatorType, err)
		logging.Audit().StoreOp(logging.AuditStoreError, "learned_weights", 0, false, err.Error())
		return fmt.Errorf("failed to set weight: %w", err)
	}

	logging.StoreDebug("weight set: %s=%.3f", operatorType, weight)
	logging.Audit().StoreOp(logging.AuditStoreSave, "learned_weights", 1, true, "")
	return nil
}

// CreditPlan lowers the weight of every listed operator type by a small
// step, clamped at a floor, and counts the sample. Unknown types start
// at the neutral weight 1.0 before the step applies. Duplicate entries
// in one plan credit their type once.
func (s *RunStore) CreditPlan(ctx context.Context, operatorTypes []string) error {
	timer := logging.StartTimer(logging.CategoryStore, "CreditPlan")
	defer timer.Stop()

	seen := make(map[string]bool, len(operatorTypes))
	credited := 0

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, typ := range operatorTypes {
		if typ == "" || seen[typ] {
			continue
		}
		seen[typ] = true

		_, err := s.db.ExecContext(ctx, `
			INSERT INTO learned_weights (operator_type, weight, samples, updated_at)
			VALUES (?, ?, 1, CURRENT_TIMESTAMP)
			ON CONFLICT(operator_type) DO UPDATE SET
				weight = MAX(?, weight - ?),
				samples = samples + 1,
				updated_at = CURRENT_TIMESTAMP
		`, typ, 1.0-creditStep, creditFloor, creditStep)
		if err != nil {
			logging.StoreError("failed to credit operator type %s: %v", typ, err)
			logging.Audit().StoreOp(logging.AuditStoreError, "learned_weights", 0, false, err.Error())
			return fmt.Errorf("failed to credit operator type: %w", err)
		}
		credited++
	}

	logging.StoreDebug("credited %d operator types", credited)
	logging.Audit().StoreOp(logging.AuditStoreSave, "learned_weights", int64(credited), true, "")
	return nil
}

// Weights returns every stored operator weight.
func (s *RunStore) Weights(ctx context.Context) (map[string]float64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Weights")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT operator_type, weight FROM learned_weights`)
	if err != nil {
		logging.Audit().StoreOp(logging.AuditStoreError, "learned_weights", 0, false, err.Error())
		return nil, fmt.Errorf("failed to load weights: %w", err)
	}
	defer rows.Close()

	weights := make(map[string]float64)
	for rows.Next() {
		var (
			typ    string
			weight float64
		)
		if err := rows.Scan(&typ, &weight); err != nil {
			logging.StoreWarn("failed to scan weight row: %v", err)
			continue
		}
		weights[typ] = weight
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read weights: %w", err)
	}

	logging.Audit().StoreOp(logging.AuditStoreLoad, "learned_weights", int64(len(weights)), true, "")
	return weights, nil
}

// LearnedWeightConfig assembles a heuristic configuration from the
// stored weights. Weighting is enabled iff the table is non-empty, and
// names come back sorted so two loads produce identical configs.
func (s *RunStore) LearnedWeightConfig(ctx context.Context) (heuristic.Config, error) {
	weights, err := s.Weights(ctx)
	if err != nil {
		return heuristic.Config{}, err
	}
	if len(weights) == 0 {
		return heuristic.Config{}, nil
	}

	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)

	cfg := heuristic.Config{
		UseLearnedWeights: true,
		OperatorNames:     names,
		OperatorWeights:   make([]float64, len(names)),
	}
	for i, name := range names {
		cfg.OperatorWeights[i] = weights[name]
	}
	return cfg, nil
}

// ClearWeights drops every learned weight.
func (s *RunStore) ClearWeights(ctx context.Context) error {
	timer := logging.StartTimer(logging.CategoryStore, "ClearWeights")
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM learned_weights`)
	if err != nil {
		logging.StoreError("failed to clear weights: %v", err)
		return fmt.Errorf("failed to clear weights: %w", err)
	}

	dropped, _ := res.RowsAffected()
	logging.Store("cleared %d learned weights", dropped)
	return nil
}
