// Package bench sweeps a directory of task files through search and
// aggregates the outcomes into a report. Cases run in parallel, each
// with its own heuristic instance, and can be persisted to the run
// store as they finish.
package bench

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"plannerd/internal/ground"
	"plannerd/internal/heuristic"
	"plannerd/internal/logging"
	"plannerd/internal/relaxed"
	"plannerd/internal/search"
	"plannerd/internal/store"
	"plannerd/internal/strips"
)

// Options configures a sweep.
type Options struct {
	// Heuristic selects the evaluator kind, "ff" or "additive"; empty
	// defaults to "ff".
	Heuristic string
	// HeuristicConfig carries learned-weight mode into each evaluator.
	HeuristicConfig heuristic.Config
	// Format filters task discovery: "auto" (or empty) takes every
	// known extension, "yaml" only YAML tasks, "mangle" only .mg
	// programs.
	Format string
	// Parallelism bounds concurrent cases; non-positive means
	// GOMAXPROCS.
	Parallelism int
	// TaskTimeout bounds each case; zero means no per-case deadline.
	TaskTimeout time.Duration
	// MaxExpansions and Boost pass through to the search options.
	MaxExpansions int
	Boost         int
	// Store, when set, receives one run row per searched case.
	Store *store.RunStore
	// RunID correlates the sweep's logs, audit events and store rows;
	// generated when empty.
	RunID string
}

// Case is the outcome of one task file.
type Case struct {
	TaskName string
	Path     string
	Result   *search.Result // nil when the case never reached search
	Err      error
	TimedOut bool
	Duration time.Duration
}

// Solved reports whether the case produced a plan.
func (c *Case) Solved() bool {
	return c.Result != nil && c.Result.Solved
}

// Report aggregates one sweep. Cases appear in task-file name order
// regardless of completion order.
type Report struct {
	RunID      string
	Dir        string
	Cases      []Case
	Solved     int
	DeadEnds   int
	Unsolved   int // exhausted, expansion-limited, or sweep aborted
	TimedOut   int
	Errors     int
	Expansions int
	Duration   time.Duration
}

// Run sweeps every task file under dir.
func Run(ctx context.Context, dir string, opts Options) (*Report, error) {
	timer := logging.StartTimer(logging.CategoryBench, "Run")
	defer timer.Stop()

	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = runtime.GOMAXPROCS(0)
	}

	paths, err := DiscoverTasks(dir, opts.Format)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no task files in %s", dir)
	}

	logging.Bench("sweep %s: %d tasks, parallelism %d, heuristic %s",
		opts.RunID, len(paths), opts.Parallelism, kindName(opts.Heuristic))
	logging.Audit().Log(logging.AuditEvent{
		EventType: logging.AuditBenchStart,
		Category:  string(logging.CategoryBench),
		RunID:     opts.RunID,
		Target:    dir,
		Action:    "bench",
		Success:   true,
		Message:   fmt.Sprintf("%d tasks", len(paths)),
	})

	start := time.Now()
	report := &Report{RunID: opts.RunID, Dir: dir, Cases: make([]Case, len(paths))}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Parallelism)
	for i, path := range paths {
		eg.Go(func() error {
			// Each case owns its slot, so no aggregation lock is needed.
			report.Cases[i] = runCase(egCtx, path, &opts)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	report.Duration = time.Since(start)

	for i := range report.Cases {
		c := &report.Cases[i]
		switch {
		case c.Err != nil:
			report.Errors++
		case c.Result.Solved:
			report.Solved++
		case c.Result.DeadEnd:
			report.DeadEnds++
		case c.TimedOut:
			report.TimedOut++
		default:
			report.Unsolved++
		}
		if c.Result != nil {
			report.Expansions += c.Result.Stats.Expansions
		}
	}

	logging.Bench("sweep %s complete: %d/%d solved, %d dead ends, %d timeouts, %d errors in %s",
		opts.RunID, report.Solved, len(report.Cases), report.DeadEnds,
		report.TimedOut, report.Errors, report.Duration)
	logging.Audit().Log(logging.AuditEvent{
		EventType:  logging.AuditBenchComplete,
		Category:   string(logging.CategoryBench),
		RunID:      opts.RunID,
		Target:     dir,
		Action:     "bench",
		Success:    report.Errors == 0,
		DurationMs: report.Duration.Milliseconds(),
		Message:    fmt.Sprintf("%d/%d solved", report.Solved, len(report.Cases)),
	})

	return report, nil
}

// runCase loads, searches and optionally persists a single task file.
func runCase(ctx context.Context, path string, opts *Options) Case {
	cs := Case{Path: path, TaskName: taskNameFromPath(path)}
	start := time.Now()

	if opts.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TaskTimeout)
		defer cancel()
	}

	task, err := LoadTaskFile(path)
	if err != nil {
		cs.Err = err
		cs.Duration = time.Since(start)
		logging.BenchWarn("case %s failed to load: %v", cs.TaskName, err)
		logging.Audit().BenchCase(opts.RunID, cs.TaskName, cs.Duration.Milliseconds(), false)
		return cs
	}
	if task.Name != "" {
		cs.TaskName = task.Name
	}

	eval, err := heuristic.ForKind(opts.Heuristic, relaxed.NewGraph(task), opts.HeuristicConfig)
	if err != nil {
		cs.Err = err
		cs.Duration = time.Since(start)
		logging.BenchWarn("case %s heuristic setup failed: %v", cs.TaskName, err)
		logging.Audit().BenchCase(opts.RunID, cs.TaskName, cs.Duration.Milliseconds(), false)
		return cs
	}

	res := search.New(task, eval, search.Options{
		MaxExpansions: opts.MaxExpansions,
		Boost:         opts.Boost,
	}).Run(ctx)
	cs.Result = &res
	cs.TimedOut = res.Canceled && ctx.Err() == context.DeadlineExceeded
	cs.Duration = time.Since(start)

	if opts.Store != nil {
		// Persist even when the case deadline has already passed.
		if _, err := opts.Store.RecordResult(context.WithoutCancel(ctx), cs.TaskName, kindName(opts.Heuristic), &res); err != nil {
			logging.BenchWarn("case %s not persisted: %v", cs.TaskName, err)
		}
	}

	logging.BenchDebug("case %s: solved=%v expansions=%d in %s",
		cs.TaskName, res.Solved, res.Stats.Expansions, cs.Duration)
	logging.Audit().BenchCase(opts.RunID, cs.TaskName, cs.Duration.Milliseconds(), res.Solved)
	return cs
}

// extsForFormat maps a task format to the file extensions it covers.
func extsForFormat(format string) (map[string]bool, error) {
	switch format {
	case "", "auto":
		return map[string]bool{".yaml": true, ".yml": true, ".mg": true}, nil
	case "yaml":
		return map[string]bool{".yaml": true, ".yml": true}, nil
	case "mangle":
		return map[string]bool{".mg": true}, nil
	default:
		return nil, fmt.Errorf("invalid task format: %s (valid: [auto yaml mangle])", format)
	}
}

// DiscoverTasks lists the task files directly under dir in name order.
// YAML tasks end in .yaml or .yml, Datalog programs in .mg.
func DiscoverTasks(dir, format string) ([]string, error) {
	exts, err := extsForFormat(format)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read task directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if exts[filepath.Ext(entry.Name())] {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	return paths, nil
}

// LoadTaskFile loads one task by extension: .mg programs go through the
// Datalog frontend, everything else through the YAML reader.
func LoadTaskFile(path string) (*strips.Task, error) {
	if filepath.Ext(path) == ".mg" {
		return ground.LoadTask(path)
	}
	return strips.Load(path)
}

func taskNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func kindName(kind string) string {
	if kind == "" {
		return "ff"
	}
	return kind
}
