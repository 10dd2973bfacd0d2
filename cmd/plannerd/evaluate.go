package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"plannerd/internal/bench"
	"plannerd/internal/heuristic"
	"plannerd/internal/relaxed"
)

var evaluateHeuristic string

// evaluateCmd computes the heuristic for a task's initial state
var evaluateCmd = &cobra.Command{
	Use:   "evaluate [task-file]",
	Short: "Evaluate the heuristic on a task's initial state",
	Long: `Computes the configured heuristic for the initial state of a task and,
for the FF heuristic, shows the justifying relaxed plan and the preferred
operators (relaxed-plan steps applicable right now).

Example:
  plannerd evaluate tasks/logistics.yaml --heuristic ff`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateHeuristic, "heuristic", "", "Heuristic kind: ff or additive (default: config)")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	task, err := bench.LoadTaskFile(args[0])
	if err != nil {
		return err
	}
	if task.HasAxioms() {
		fmt.Println(warnStyle.Render("warning:") + " task has axioms; relaxation heuristics are unreliable with axioms")
	}

	kind := cfg.Heuristic.Kind
	if evaluateHeuristic != "" {
		kind = evaluateHeuristic
	}
	hcfg := heuristic.Config{
		UseLearnedWeights: cfg.Heuristic.UseLearnedWeights,
		OperatorNames:     cfg.Heuristic.OperatorNames,
		OperatorWeights:   cfg.Heuristic.OperatorWeights,
	}

	eval, err := heuristic.ForKind(kind, relaxed.NewGraph(task), hcfg)
	if err != nil {
		return err
	}

	h := eval.Evaluate(task.Init)
	if h == heuristic.DeadEnd {
		fmt.Println(errorStyle.Render(fmt.Sprintf("h(%s) = dead end: the goal is relaxed-unreachable", task.Name)))
		return nil
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("h_%s(%s) = %d", kind, task.Name, h)))

	ff, ok := eval.(*heuristic.FF)
	if !ok {
		return nil
	}
	if plan := ff.RelaxedPlan(); len(plan) > 0 {
		fmt.Println(headerStyle.Render("relaxed plan"))
		for step, opNo := range plan {
			fmt.Printf("  %3d. %s %s\n", step+1, task.Operators[opNo].Name,
				mutedStyle.Render(fmt.Sprintf("(cost %d)", task.Operators[opNo].Cost)))
		}
	}
	if pref := ff.Preferred(); len(pref) > 0 {
		fmt.Println(headerStyle.Render("preferred operators"))
		for _, opNo := range pref {
			fmt.Printf("  - %s\n", task.Operators[opNo].Name)
		}
	}
	return nil
}
