package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"plannerd/internal/config"
	"plannerd/internal/strips"
)

// initCmd initializes planNERD in the current workspace
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize planNERD in the current workspace",
	Long: `Sets up a workspace for planNERD:

  1. Creates the .plannerd/ directory (logs, run store, local settings)
  2. Writes a default plannerd.yaml configuration
  3. Creates the tasks/ directory with an example task

Existing files are left untouched.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := os.MkdirAll(filepath.Join(workspace, ".plannerd"), 0755); err != nil {
		return fmt.Errorf("failed to create .plannerd directory: %w", err)
	}

	userPath := filepath.Join(workspace, ".plannerd", "config.json")
	if _, err := os.Stat(userPath); os.IsNotExist(err) {
		user := &config.UserConfig{
			Logging: config.LoggingConfig{Level: "info", DebugMode: false},
			Theme:   "dark",
		}
		if err := user.Save(userPath); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("created " + userPath))
	}

	cfgPath := filepath.Join(workspace, "plannerd.yaml")
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.DefaultConfig().Save(cfgPath); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("created " + cfgPath))
	}

	tasksDir := filepath.Join(workspace, cfg.Tasks.Dir)
	if err := os.MkdirAll(tasksDir, 0755); err != nil {
		return fmt.Errorf("failed to create tasks directory: %w", err)
	}

	examplePath := filepath.Join(tasksDir, "example.yaml")
	if _, err := os.Stat(examplePath); os.IsNotExist(err) {
		if err := strips.Save(exampleTask(), examplePath); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("created " + examplePath))
	}

	fmt.Println(mutedStyle.Render("workspace ready; try: plannerd solve " + examplePath))
	return nil
}

// exampleTask is a two-ball gripper instance: carry both balls from room
// a to room b with one free hand.
func exampleTask() *strips.Task {
	b := strips.NewBuilder("gripper-2")
	robot := b.Variable("robot", "room-a", "room-b")
	ball1 := b.Variable("ball1", "room-a", "room-b", "carried")
	ball2 := b.Variable("ball2", "room-a", "room-b", "carried")
	b.Init(0, 0, 0)
	b.Goal(ball1, 1).Goal(ball2, 1)

	b.Operator("move a b", 1, strips.Facts(robot, 0), strips.Facts(robot, 1))
	b.Operator("move b a", 1, strips.Facts(robot, 1), strips.Facts(robot, 0))
	for i, ball := range []int{ball1, ball2} {
		name := fmt.Sprintf("ball%d", i+1)
		b.Operator("pick-up "+name+" a", 1, strips.Facts(robot, 0, ball, 0), strips.Facts(ball, 2))
		b.Operator("drop "+name+" b", 1, strips.Facts(robot, 1, ball, 2), strips.Facts(ball, 1))
	}
	return b.MustBuild()
}
