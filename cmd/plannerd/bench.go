package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"plannerd/internal/bench"
	"plannerd/internal/heuristic"
	"plannerd/internal/store"
)

var (
	benchHeuristic   string
	benchFormat      string
	benchParallelism int
	benchTaskTimeout time.Duration
	benchRecord      bool
	benchWatch       bool
)

// benchCmd sweeps a directory of tasks
var benchCmd = &cobra.Command{
	Use:   "bench [task-dir]",
	Short: "Benchmark a directory of planning tasks",
	Long: `Runs every task file in a directory through heuristic search and
aggregates the outcomes. Cases run in parallel, each with its own
heuristic instance. With --watch the suite re-runs whenever a task
file changes.

Examples:
  plannerd bench tasks/
  plannerd bench suites/ipc --record --task-timeout 30s
  plannerd bench tasks/ --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBench,
}

func init() {
	benchCmd.Flags().StringVar(&benchHeuristic, "heuristic", "", "Heuristic kind: ff or additive (default: config)")
	benchCmd.Flags().StringVar(&benchFormat, "format", "", "Task format filter: auto, yaml or mangle (default: config)")
	benchCmd.Flags().IntVar(&benchParallelism, "parallelism", 0, "Concurrent cases, 0 = GOMAXPROCS (default: config)")
	benchCmd.Flags().DurationVar(&benchTaskTimeout, "task-timeout", 0, "Per-task wall clock budget (default: config)")
	benchCmd.Flags().BoolVar(&benchRecord, "record", false, "Persist every case to the run store")
	benchCmd.Flags().BoolVar(&benchWatch, "watch", false, "Re-run the suite whenever a task file changes")
}

func runBench(cmd *cobra.Command, args []string) error {
	dir := cfg.Tasks.Dir
	if len(args) == 1 {
		dir = args[0]
	}

	opts := bench.Options{
		Heuristic: cfg.Heuristic.Kind,
		HeuristicConfig: heuristic.Config{
			UseLearnedWeights: cfg.Heuristic.UseLearnedWeights,
			OperatorNames:     cfg.Heuristic.OperatorNames,
			OperatorWeights:   cfg.Heuristic.OperatorWeights,
		},
		Format:        cfg.Tasks.Format,
		Parallelism:   cfg.Bench.Parallelism,
		TaskTimeout:   cfg.GetBenchTaskTimeout(),
		MaxExpansions: cfg.Search.MaxExpansions,
		Boost:         cfg.Search.Boost,
	}
	if benchHeuristic != "" {
		opts.Heuristic = benchHeuristic
	}
	if benchFormat != "" {
		opts.Format = benchFormat
	}
	if benchParallelism > 0 {
		opts.Parallelism = benchParallelism
	}
	if benchTaskTimeout > 0 {
		opts.TaskTimeout = benchTaskTimeout
	}

	var st *store.RunStore
	if benchRecord {
		var err error
		st, err = openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		opts.Store = st
	}

	if benchWatch || cfg.Bench.Watch {
		return watchBench(dir, opts)
	}

	report, err := bench.Run(context.Background(), dir, opts)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

// watchBench blocks on the file watcher until interrupted, printing each
// sweep's report as it lands.
func watchBench(dir string, opts bench.Options) error {
	w, err := bench.NewWatcher(dir, opts, func(report *bench.Report, err error) {
		if err != nil {
			fmt.Println(errorStyle.Render("sweep failed: " + err.Error()))
			return
		}
		printReport(report)
		fmt.Println(mutedStyle.Render("watching " + dir + " for changes (ctrl+c to stop)"))
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	<-sigCh
	return nil
}

func printReport(report *bench.Report) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("sweep %s: %d/%d solved in %s",
		report.RunID[:8], report.Solved, len(report.Cases), report.Duration.Round(time.Millisecond))))
	fmt.Println(headerStyle.Render(fmt.Sprintf("%-24s %-10s %10s %8s %10s", "task", "outcome", "expansions", "cost", "time")))

	for i := range report.Cases {
		c := &report.Cases[i]
		outcome, style := caseOutcome(c)
		expansions, cost := "-", "-"
		if c.Result != nil {
			expansions = fmt.Sprintf("%d", c.Result.Stats.Expansions)
			if c.Result.Solved {
				cost = fmt.Sprintf("%d", c.Result.PlanCost)
			}
		}
		fmt.Printf("%-24s %s %10s %8s %10s\n", c.TaskName,
			style.Render(fmt.Sprintf("%-10s", outcome)),
			expansions, cost, c.Duration.Round(time.Millisecond))
	}
	if report.Errors > 0 {
		fmt.Println(warnStyle.Render(fmt.Sprintf("%d case(s) failed to run; see the bench log", report.Errors)))
	}
}

func caseOutcome(c *bench.Case) (string, lipgloss.Style) {
	switch {
	case c.Err != nil:
		return "error", errorStyle
	case c.Result.Solved:
		return "solved", successStyle
	case c.Result.DeadEnd:
		return "dead end", errorStyle
	case c.TimedOut:
		return "timeout", warnStyle
	case c.Result.LimitReached:
		return "limit", warnStyle
	default:
		return "unsolved", warnStyle
	}
}
