package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"plannerd/internal/bench"
	"plannerd/internal/strips"
)

var tasksFormat string

// tasksCmd groups task-file inspection commands
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List and inspect task files",
}

var tasksListCmd = &cobra.Command{
	Use:   "list [task-dir]",
	Short: "List the task files in a directory",
	Long: `Lists every task file in a directory and checks that each one grounds
to a well-formed task. Broken files are listed with their error instead
of being skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTasksList,
}

var tasksShowCmd = &cobra.Command{
	Use:   "show [task-file]",
	Short: "Show a grounded task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksShow,
}

func init() {
	tasksListCmd.Flags().StringVar(&tasksFormat, "format", "", "Task format filter: auto, yaml or mangle (default: config)")
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksShowCmd)
}

func runTasksList(cmd *cobra.Command, args []string) error {
	dir := cfg.Tasks.Dir
	if len(args) == 1 {
		dir = args[0]
	}
	format := cfg.Tasks.Format
	if tasksFormat != "" {
		format = tasksFormat
	}

	paths, err := bench.DiscoverTasks(dir, format)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println(mutedStyle.Render("no task files in " + dir))
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-28s %-20s %6s %6s %6s", "file", "task", "vars", "ops", "axioms")))
	for _, path := range paths {
		task, err := bench.LoadTaskFile(path)
		if err != nil {
			fmt.Printf("%-28s %s\n", filepath.Base(path), errorStyle.Render(err.Error()))
			continue
		}
		fmt.Printf("%-28s %-20s %6d %6d %6d\n", filepath.Base(path), task.Name,
			len(task.Variables), len(task.Operators), len(task.Axioms))
	}
	return nil
}

func runTasksShow(cmd *cobra.Command, args []string) error {
	task, err := bench.LoadTaskFile(args[0])
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(task.Name))
	fmt.Println(headerStyle.Render("variables"))
	for i := range task.Variables {
		v := &task.Variables[i]
		tag := ""
		if v.IsDerived {
			tag = " " + warnStyle.Render("[derived]")
		}
		fmt.Printf("  %s%s %s\n", task.FactName(strips.F(i, task.Init[i])), tag,
			mutedStyle.Render(fmt.Sprintf("(domain size %d)", v.DomainSize)))
	}

	fmt.Println(headerStyle.Render("goal"))
	for _, f := range task.Goal {
		fmt.Printf("  %s\n", task.FactName(f))
	}

	fmt.Println(headerStyle.Render("operators"))
	for i := range task.Operators {
		op := &task.Operators[i]
		fmt.Printf("  %s %s\n", op.Name, mutedStyle.Render(fmt.Sprintf("(cost %d)", op.Cost)))
		for _, f := range op.Preconditions {
			fmt.Printf("    pre %s\n", task.FactName(f))
		}
		for _, eff := range op.Effects {
			line := "    eff " + task.FactName(eff.Fact)
			if !eff.Unconditional() {
				line += mutedStyle.Render(" when " + factList(task, eff.Conditions))
			}
			fmt.Println(line)
		}
	}

	if task.HasAxioms() {
		fmt.Println(headerStyle.Render("axioms"))
		for i := range task.Axioms {
			ax := &task.Axioms[i]
			fmt.Printf("  %s :- %s\n", task.FactName(ax.Effect), factList(task, ax.Conditions))
		}
	}
	return nil
}

func factList(task *strips.Task, facts []strips.FactPair) string {
	out := ""
	for i, f := range facts {
		if i > 0 {
			out += ", "
		}
		out += task.FactName(f)
	}
	return out
}
