package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"plannerd/internal/bench"
	"plannerd/internal/landmarks"
	"plannerd/internal/relaxed"
	"plannerd/internal/strips"
)

var (
	landmarksStrategy   string
	landmarksOnlyCausal bool
	landmarksAchievers  bool
)

// landmarksCmd extracts causal landmarks from a task
var landmarksCmd = &cobra.Command{
	Use:   "landmarks [task-file]",
	Short: "Extract landmarks from a planning task",
	Long: `Generates the landmark graph for a task: facts every plan must achieve,
with typed ordering edges and achiever sets. Landmarks are found through
relaxed reachability; the causal filter keeps only landmarks whose
consumers are collectively indispensable.

Examples:
  plannerd landmarks tasks/logistics.yaml
  plannerd landmarks tasks/door.mg --strategy backchain --only-causal`,
	Args: cobra.ExactArgs(1),
	RunE: runLandmarks,
}

func init() {
	landmarksCmd.Flags().StringVar(&landmarksStrategy, "strategy", "", "Generation strategy: exhaustive or backchain (default: config)")
	landmarksCmd.Flags().BoolVar(&landmarksOnlyCausal, "only-causal", false, "Discard landmarks failing the causal-necessity test")
	landmarksCmd.Flags().BoolVar(&landmarksAchievers, "achievers", false, "List the achiever operators per landmark")
}

func runLandmarks(cmd *cobra.Command, args []string) error {
	task, err := bench.LoadTaskFile(args[0])
	if err != nil {
		return err
	}

	strategyName := cfg.Landmarks.Strategy
	if landmarksStrategy != "" {
		strategyName = landmarksStrategy
	}
	var strategy landmarks.Strategy
	switch strategyName {
	case "", "exhaustive":
		strategy = landmarks.Exhaustive{}
	case "backchain":
		strategy = landmarks.Backchain{}
	default:
		return fmt.Errorf("invalid landmark strategy: %s (valid: %v)", strategyName, []string{"exhaustive", "backchain"})
	}

	factory := landmarks.NewFactory(relaxed.NewGraph(task), landmarks.Options{
		Strategy:   strategy,
		OnlyCausal: landmarksOnlyCausal || cfg.Landmarks.OnlyCausal,
	})
	graph := factory.GenerateLandmarks()

	fmt.Println(titleStyle.Render(fmt.Sprintf("%d landmarks for %q (%d disjunctive, strategy %s)",
		graph.NumLandmarks(), task.Name, graph.NumDisjunctive(), strategy.Name())))

	for _, node := range graph.Nodes() {
		l := &node.Landmark
		tags := ""
		if l.IsTrueInGoal {
			tags += " " + infoStyle.Render("[goal]")
		}
		if l.IsDerived {
			tags += " " + warnStyle.Render("[derived]")
		}
		fmt.Printf("%s %s%s\n", mutedStyle.Render(fmt.Sprintf("LM%-3d", node.ID)),
			landmarkLabel(task, l), tags)

		for _, child := range node.Children() {
			t, _ := node.ChildEdge(child)
			fmt.Printf("      %s LM%d %s\n", mutedStyle.Render("->"), child.ID,
				mutedStyle.Render("("+t.String()+")"))
		}
		if landmarksAchievers {
			fmt.Printf("      achievers: %s\n", achieverNames(task, l.FirstAchievers))
		} else {
			fmt.Printf("      %s\n", mutedStyle.Render(fmt.Sprintf("%d possible achievers, %d first",
				len(l.PossibleAchievers), len(l.FirstAchievers))))
		}
	}
	return nil
}

// landmarkLabel renders a landmark with human-readable fact names.
func landmarkLabel(task *strips.Task, l *landmarks.Landmark) string {
	out := ""
	for i, f := range l.Facts {
		if i > 0 {
			out += " | "
		}
		out += task.FactName(f)
	}
	return out
}

// achieverNames resolves action ids (operator ordinals first, then axioms)
// into names, in id order.
func achieverNames(task *strips.Task, set map[int]struct{}) string {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ", "
		}
		if id < len(task.Operators) {
			out += task.Operators[id].Name
		} else {
			out += fmt.Sprintf("axiom#%d", id-len(task.Operators))
		}
	}
	if out == "" {
		out = mutedStyle.Render("none")
	}
	return out
}
