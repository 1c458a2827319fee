package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gather/config"
	"gather/pkg/logger"
)

var (
	env       string
	configDir string

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gather",
	Short: "Gather task manager backend",
	Long: `gather runs the task manager backend.

  serve    HTTP API
  worker   consumes domain events (rewards, insights)
  runner   periodic jobs (overdue tasks, streak resets, insights)
  migrate  applies database migrations`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log = logger.NewLogger()
		c, err := config.Load(env, configDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		log.Info("Config loaded", zap.String("env", cfg.Env), zap.String("command", cmd.Name()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "config environment (defaults to CONFIG_ENV or local)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "config", "directory holding base.yaml and <env>.yaml")
	rootCmd.AddCommand(serveCmd, workerCmd, runnerCmd, migrateCmd)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
