package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"plannerd/internal/bench"
	"plannerd/internal/heuristic"
	"plannerd/internal/relaxed"
	"plannerd/internal/search"
	"plannerd/internal/store"
	"plannerd/internal/strips"
)

var (
	solveHeuristic     string
	solveTimeout       time.Duration
	solveMaxExpansions int
	solveBoost         int
	solveRecord        bool
	solveCredit        bool
	solveLearned       bool
	solveNoValidate    bool
	solveLive          bool
)

// solveCmd runs greedy best-first search on one task
var solveCmd = &cobra.Command{
	Use:   "solve [task-file]",
	Short: "Solve a planning task with heuristic search",
	Long: `Loads a task (YAML or .mg Mangle program), grounds it, and runs lazy
greedy best-first search guided by the configured heuristic. Preferred
operators from the FF relaxed plan steer the search through a boosted
second open list.

Examples:
  plannerd solve tasks/logistics.yaml
  plannerd solve tasks/door.mg --heuristic additive
  plannerd solve tasks/gripper.yaml --live`,
	Args: cobra.ExactArgs(1),
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVar(&solveHeuristic, "heuristic", "", "Heuristic kind: ff or additive (default: config)")
	solveCmd.Flags().DurationVar(&solveTimeout, "timeout", 0, "Wall clock budget (default: config)")
	solveCmd.Flags().IntVar(&solveMaxExpansions, "max-expansions", -1, "Expansion bound, 0 = unlimited (default: config)")
	solveCmd.Flags().IntVar(&solveBoost, "boost", -1, "Preferred-list credit per estimate improvement (default: config)")
	solveCmd.Flags().BoolVar(&solveRecord, "record", false, "Persist the run to the store")
	solveCmd.Flags().BoolVar(&solveCredit, "credit", false, "On success, credit the plan's operator types in the learned-weight table")
	solveCmd.Flags().BoolVar(&solveLearned, "learned", false, "Use learned operator weights from the store")
	solveCmd.Flags().BoolVar(&solveNoValidate, "no-validate", false, "Skip plan validation")
	solveCmd.Flags().BoolVar(&solveLive, "live", false, "Show a live progress view while searching")
}

// searchContext bounds a solve by wall clock. A non-positive timeout means
// unbounded, like MaxExpansions.
func searchContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}

func runSolve(cmd *cobra.Command, args []string) error {
	opts, err := resolveSolveOptions()
	if err != nil {
		return err
	}

	task, err := bench.LoadTaskFile(args[0])
	if err != nil {
		return err
	}
	logger.Info("Task loaded",
		zap.String("task", task.Name),
		zap.Int("variables", len(task.Variables)),
		zap.Int("operators", len(task.Operators)))
	if task.HasAxioms() {
		fmt.Println(warnStyle.Render("warning:") + " task has axioms; relaxation heuristics are unreliable with axioms")
	}

	eval, err := heuristic.ForKind(opts.kind, relaxed.NewGraph(task), opts.hcfg)
	if err != nil {
		return err
	}

	ctx, cancel := searchContext(opts.timeout)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	engine := search.New(task, eval, search.Options{
		MaxExpansions: opts.maxExpansions,
		Boost:         opts.boost,
	})

	var result search.Result
	if solveLive {
		result, err = runSolveView(ctx, task, engine)
		if err != nil {
			return err
		}
	} else {
		result = engine.Run(ctx)
	}

	printResult(task, &result)

	if result.Solved && !solveNoValidate {
		if err := search.ValidatePlan(task, result.Plan); err != nil {
			return fmt.Errorf("search produced an invalid plan: %w", err)
		}
		fmt.Println(mutedStyle.Render("plan validated"))
	}

	if solveRecord {
		if err := recordRun(task.Name, opts.kind, &result); err != nil {
			return err
		}
	}
	if solveCredit && result.Solved {
		if err := creditPlan(task, result.Plan); err != nil {
			return err
		}
	}
	return nil
}

// creditPlan nudges the plan's operator types toward cheap in the
// learned-weight table, so later --learned runs favor what worked.
func creditPlan(task *strips.Task, plan []int) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	types := make([]string, len(plan))
	for i, opNo := range plan {
		types[i] = task.Operators[opNo].Type()
	}
	if err := st.CreditPlan(context.Background(), types); err != nil {
		return err
	}
	fmt.Println(mutedStyle.Render(fmt.Sprintf("credited %d plan steps in the weight table", len(types))))
	return nil
}

type solveOptions struct {
	kind          string
	hcfg          heuristic.Config
	timeout       time.Duration
	maxExpansions int
	boost         int
}

// resolveSolveOptions merges flags over the config file: an unset flag
// falls back to the corresponding config value.
func resolveSolveOptions() (*solveOptions, error) {
	opts := &solveOptions{
		kind:          cfg.Heuristic.Kind,
		timeout:       cfg.GetSearchTimeout(),
		maxExpansions: cfg.Search.MaxExpansions,
		boost:         cfg.Search.Boost,
	}
	if solveHeuristic != "" {
		opts.kind = solveHeuristic
	}
	if solveTimeout > 0 {
		opts.timeout = solveTimeout
	}
	if solveMaxExpansions >= 0 {
		opts.maxExpansions = solveMaxExpansions
	}
	if solveBoost >= 0 {
		opts.boost = solveBoost
	}

	opts.hcfg = heuristic.Config{
		UseLearnedWeights: cfg.Heuristic.UseLearnedWeights,
		OperatorNames:     cfg.Heuristic.OperatorNames,
		OperatorWeights:   cfg.Heuristic.OperatorWeights,
	}
	if solveLearned {
		st, err := openStore()
		if err != nil {
			return nil, err
		}
		defer st.Close()
		opts.hcfg, err = st.LearnedWeightConfig(context.Background())
		if err != nil {
			return nil, err
		}
		if !opts.hcfg.UseLearnedWeights {
			return nil, fmt.Errorf("no learned weights in store %s", st.Path())
		}
	}
	return opts, nil
}

func openStore() (*store.RunStore, error) {
	return store.NewRunStore(cfg.Store.DatabasePath, cfg.GetStoreBusyTimeout())
}

func recordRun(taskName, kind string, result *search.Result) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.RecordResult(context.Background(), taskName, kind, result)
	if err != nil {
		return err
	}
	fmt.Println(mutedStyle.Render("recorded run " + run.ID))
	return nil
}

func printResult(task *strips.Task, r *search.Result) {
	switch {
	case r.Solved:
		fmt.Println(successStyle.Render(fmt.Sprintf("solved %q: plan length %d, cost %d", task.Name, len(r.Plan), r.PlanCost)))
		for step, opNo := range r.Plan {
			fmt.Printf("  %3d. %s %s\n", step+1, task.Operators[opNo].Name,
				mutedStyle.Render(fmt.Sprintf("(cost %d)", task.Operators[opNo].Cost)))
		}
	case r.DeadEnd:
		fmt.Println(errorStyle.Render(fmt.Sprintf("task %q is a dead end: the goal is unreachable even without delete effects", task.Name)))
	case r.Exhausted:
		fmt.Println(errorStyle.Render(fmt.Sprintf("task %q is unsolvable: search space exhausted", task.Name)))
	case r.LimitReached:
		fmt.Println(warnStyle.Render(fmt.Sprintf("gave up on %q: expansion limit reached", task.Name)))
	case r.Canceled:
		fmt.Println(warnStyle.Render(fmt.Sprintf("search on %q canceled", task.Name)))
	}
	fmt.Println(infoStyle.Render(fmt.Sprintf(
		"initial h = %d | %d expansions, %d evaluations, %d generated, %d dead ends in %s",
		r.Stats.InitialH, r.Stats.Expansions, r.Stats.Evaluations,
		r.Stats.Generated, r.Stats.DeadEnds, r.Stats.Duration.Round(time.Millisecond))))
}
