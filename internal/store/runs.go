package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"plannerd/internal/logging"
	"plannerd/internal/search"
)

// Timestamps are written in SQLite's CURRENT_TIMESTAMP format with
// fixed-width milliseconds, so string order matches time order.
const (
	timeLayout         = "2006-01-02 15:04:05.000"
	fallbackTimeLayout = "2006-01-02 15:04:05"
)

// Run is one recorded search, either a direct solve or a benchmark case.
type Run struct {
	ID          string
	TaskName    string
	Heuristic   string
	Solved      bool
	DeadEnd     bool
	InitialH    int
	Expansions  int
	Evaluations int
	Generated   int
	DeadEnds    int
	PlanLength  int
	PlanCost    int
	Duration    time.Duration
	CreatedAt   time.Time
}

// SaveRun inserts a run row. A missing ID gets a fresh UUID and a zero
// CreatedAt gets the current time; both are filled in on the argument.
func (s *RunStore) SaveRun(ctx context.Context, run *Run) error {
	timer := logging.StartTimer(logging.CategoryStore, "SaveRun")
	defer timer.Stop()

	if run == nil {
		return fmt.Errorf("run required")
	}
	if run.TaskName == "" {
		return fmt.Errorf("task name required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, task_name, heuristic, solved, dead_end, initial_h,
			expansions, evaluations, generated, dead_ends, plan_length, plan_cost,
			duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.TaskName, run.Heuristic, run.Solved, run.DeadEnd, run.InitialH,
		run.Expansions, run.Evaluations, run.Generated, run.DeadEnds, run.PlanLength,
		run.PlanCost, run.Duration.Milliseconds(), run.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		logging.StoreError("failed to insert run %s: %v", run.ID, err)
		logging.Audit().StoreOp(logging.AuditStoreError, "runs", 0, false, err.Error())
		return fmt.Errorf("failed to insert run: %w", err)
	}

	logging.StoreDebug("run saved: id=%s task=%s solved=%v expansions=%d",
		run.ID, run.TaskName, run.Solved, run.Expansions)
	logging.Audit().StoreOp(logging.AuditStoreSave, "runs", 1, true, "")
	return nil
}

// RecordResult maps a search result onto a Run row and saves it. The
// returned run carries the generated id when the result had none.
func (s *RunStore) RecordResult(ctx context.Context, taskName, heuristicName string, res *search.Result) (*Run, error) {
	if res == nil {
		return nil, fmt.Errorf("result required")
	}
	run := &Run{
		ID:          res.RunID,
		TaskName:    taskName,
		Heuristic:   heuristicName,
		Solved:      res.Solved,
		DeadEnd:     res.DeadEnd,
		InitialH:    res.Stats.InitialH,
		Expansions:  res.Stats.Expansions,
		Evaluations: res.Stats.Evaluations,
		Generated:   res.Stats.Generated,
		DeadEnds:    res.Stats.DeadEnds,
		PlanLength:  len(res.Plan),
		PlanCost:    res.PlanCost,
		Duration:    res.Stats.Duration,
	}
	if err := s.SaveRun(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// GetRun loads a single run by id.
func (s *RunStore) GetRun(ctx context.Context, id string) (*Run, error) {
	timer := logging.StartTimer(logging.CategoryStore, "GetRun")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, task_name, heuristic, solved, dead_end, initial_h,
			expansions, evaluations, generated, dead_ends, plan_length,
			plan_cost, duration_ms, created_at
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		logging.Audit().StoreOp(logging.AuditStoreError, "runs", 0, false, err.Error())
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	logging.Audit().StoreOp(logging.AuditStoreLoad, "runs", 1, true, "")
	return run, nil
}

// ListRuns returns recorded runs, newest first. An empty taskName lists
// every task; a non-positive limit defaults to 50.
func (s *RunStore) ListRuns(ctx context.Context, taskName string, limit int) ([]Run, error) {
	timer := logging.StartTimer(logging.CategoryStore, "ListRuns")
	defer timer.Stop()

	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, task_name, heuristic, solved, dead_end, initial_h,
			expansions, evaluations, generated, dead_ends, plan_length,
			plan_cost, duration_ms, created_at
		FROM runs
	`
	args := []interface{}{}
	if taskName != "" {
		query += " WHERE task_name = ?"
		args = append(args, taskName)
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logging.Audit().StoreOp(logging.AuditStoreError, "runs", 0, false, err.Error())
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			logging.StoreWarn("failed to scan run row: %v", err)
			continue
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}

	logging.StoreDebug("listed %d runs (task=%q)", len(runs), taskName)
	logging.Audit().StoreOp(logging.AuditStoreLoad, "runs", int64(len(runs)), true, "")
	return runs, nil
}

// TaskSummary aggregates the recorded runs of one task.
type TaskSummary struct {
	TaskName       string
	Runs           int
	Solved         int
	BestPlanCost   int // -1 when the task has no solved run
	BestExpansions int // -1 when the task has no solved run
}

// SummarizeTasks reports per-task aggregates over every recorded run,
// sorted by task name.
func (s *RunStore) SummarizeTasks(ctx context.Context) ([]TaskSummary, error) {
	timer := logging.StartTimer(logging.CategoryStore, "SummarizeTasks")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT task_name,
			COUNT(*),
			SUM(CASE WHEN solved THEN 1 ELSE 0 END),
			MIN(CASE WHEN solved THEN plan_cost END),
			MIN(CASE WHEN solved THEN expansions END)
		FROM runs
		GROUP BY task_name
		ORDER BY task_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize runs: %w", err)
	}
	defer rows.Close()

	var summaries []TaskSummary
	for rows.Next() {
		var (
			sum      TaskSummary
			bestCost sql.NullInt64
			bestExp  sql.NullInt64
		)
		if err := rows.Scan(&sum.TaskName, &sum.Runs, &sum.Solved, &bestCost, &bestExp); err != nil {
			logging.StoreWarn("failed to scan summary row: %v", err)
			continue
		}
		sum.BestPlanCost = -1
		sum.BestExpansions = -1
		if bestCost.Valid {
			sum.BestPlanCost = int(bestCost.Int64)
		}
		if bestExp.Valid {
			sum.BestExpansions = int(bestExp.Int64)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read summaries: %w", err)
	}

	logging.StoreDebug("summarized %d tasks", len(summaries))
	return summaries, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run       Run
		durMS     int64
		createdAt string
	)
	if err := sc.Scan(&run.ID, &run.TaskName, &run.Heuristic, &run.Solved,
		&run.DeadEnd, &run.InitialH, &run.Expansions, &run.Evaluations,
		&run.Generated, &run.DeadEnds, &run.PlanLength, &run.PlanCost,
		&durMS, &createdAt); err != nil {
		return nil, err
	}
	run.Duration = time.Duration(durMS) * time.Millisecond
	run.CreatedAt = parseTimestamp(createdAt)
	return &run, nil
}

// parseTimestamp accepts the store's own layout, the plain
// CURRENT_TIMESTAMP format rows written by SQLite defaults carry, and
// RFC 3339 for drivers that surface DATETIME columns as time values.
func parseTimestamp(v string) time.Time {
	for _, layout := range []string{timeLayout, fallbackTimeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
