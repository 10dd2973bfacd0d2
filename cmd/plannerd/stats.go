package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var statsRunsTask string

// statsCmd reports on the run store
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show recorded run statistics",
	Long: `Summarizes the run store: per-task solve rates, best plan costs and
search effort across every recorded run.`,
	RunE: runStats,
}

var statsRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent recorded runs",
	RunE:  runStatsRuns,
}

var statsWeightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Show the learned operator-weight table",
	RunE:  runStatsWeights,
}

var statsClearWeightsCmd = &cobra.Command{
	Use:   "clear-weights",
	Short: "Drop every learned operator weight",
	RunE:  runStatsClearWeights,
}

func init() {
	statsRunsCmd.Flags().StringVar(&statsRunsTask, "task", "", "Only runs of this task")
	statsCmd.AddCommand(statsRunsCmd)
	statsCmd.AddCommand(statsWeightsCmd)
	statsCmd.AddCommand(statsClearWeightsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	counts, err := st.GetStats()
	if err != nil {
		return err
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("run store %s: %d runs, %d learned weights",
		st.Path(), counts["runs"], counts["learned_weights"])))

	summaries, err := st.SummarizeTasks(context.Background())
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println(mutedStyle.Render("no recorded runs; solve with --record to populate the store"))
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-24s %6s %8s %10s %12s", "task", "runs", "solved", "best cost", "best expand")))
	for _, s := range summaries {
		cost, expand := "-", "-"
		if s.BestPlanCost >= 0 {
			cost = fmt.Sprintf("%d", s.BestPlanCost)
			expand = fmt.Sprintf("%d", s.BestExpansions)
		}
		fmt.Printf("%-24s %6d %8d %10s %12s\n", s.TaskName, s.Runs, s.Solved, cost, expand)
	}
	return nil
}

func runStatsRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(context.Background(), statsRunsTask, 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println(mutedStyle.Render("no recorded runs"))
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-10s %-20s %-9s %-8s %10s %8s %10s",
		"run", "task", "heuristic", "outcome", "expansions", "cost", "time")))
	for i := range runs {
		r := &runs[i]
		outcome, style := "unsolved", warnStyle
		switch {
		case r.Solved:
			outcome, style = "solved", successStyle
		case r.DeadEnd:
			outcome, style = "dead end", errorStyle
		}
		cost := "-"
		if r.Solved {
			cost = fmt.Sprintf("%d", r.PlanCost)
		}
		fmt.Printf("%-10s %-20s %-9s %s %10d %8s %10s\n", r.ID[:8], r.TaskName, r.Heuristic,
			style.Render(fmt.Sprintf("%-8s", outcome)), r.Expansions, cost,
			r.Duration.Round(time.Millisecond))
	}
	return nil
}

func runStatsWeights(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	weights, err := st.Weights(context.Background())
	if err != nil {
		return err
	}
	if len(weights) == 0 {
		fmt.Println(mutedStyle.Render("no learned weights; solve with --credit to populate the table"))
		return nil
	}

	types := make([]string, 0, len(weights))
	for typ := range weights {
		types = append(types, typ)
	}
	sort.Strings(types)

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-24s %8s", "operator type", "weight")))
	for _, typ := range types {
		fmt.Printf("%-24s %8.2f\n", typ, weights[typ])
	}
	return nil
}

func runStatsClearWeights(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.ClearWeights(context.Background()); err != nil {
		return err
	}
	fmt.Println(mutedStyle.Render("learned weights cleared"))
	return nil
}
