package main

import (
	"github.com/spf13/cobra"

	"gather/internal/runner"
)

var runnerCmd = &cobra.Command{
	Use:   "runner",
	Short: "Run periodic jobs: overdue tasks, streak resets, insight refresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		d, err := openDeps(ctx)
		if err != nil {
			return err
		}
		defer d.Close()

		orch := runner.NewOrchestrator(d.tasks, d.habits, d.users, d.insightService(), cfg.RunnerInterval, log)
		orch.Start(ctx)
		log.Info("Runner stopped")
		return nil
	},
}
