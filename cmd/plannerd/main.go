package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"plannerd/internal/config"
	"plannerd/internal/logging"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	configPath string

	// Loaded per invocation by the persistent pre-run
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "plannerd",
	Short: "planNERD - delete-relaxation planning toolkit",
	Long: `planNERD is a state-space planner built around the delete relaxation.

It grounds tasks from YAML files or Mangle (Datalog) programs, estimates
goal distance with the additive and FF heuristics, extracts causal
landmarks, and solves tasks with lazy greedy best-first search guided by
preferred operators.

Run 'plannerd solve <task>' to solve a task, or 'plannerd bench <dir>'
to sweep a whole suite.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		// Workspace defaults to the nearest .plannerd (or go.mod) root
		if workspace == "" {
			workspace, err = config.FindWorkspaceRoot()
			if err != nil {
				return fmt.Errorf("failed to resolve workspace: %w", err)
			}
		}
		if err := logging.Initialize(workspace); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		logger.Debug("Configuration loaded",
			zap.String("workspace", workspace),
			zap.String("heuristic", cfg.Heuristic.Kind))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: nearest .plannerd root)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "plannerd.yaml", "Path to the YAML configuration file")

	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(landmarksCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
