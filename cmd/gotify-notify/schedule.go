package main

import (
	"errors"

	"github.com/fsandov/klipper-gotify/pkg/gcode"
	"github.com/fsandov/klipper-gotify/pkg/jobscheduler"
	"github.com/fsandov/klipper-gotify/pkg/logs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scheduleCmd = &cobra.Command{
	Use:     "schedule",
	Short:   "Run a G-code script on a cron schedule until interrupted",
	Example: `  gotify-notify schedule --cron "@every 30m" --script 'GOTIFY_NOTIFY MSG="printer online"'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, _ := cmd.Flags().GetString("cron")
		script, _ := cmd.Flags().GetString("script")
		if spec == "" || script == "" {
			return errors.New("both --cron and --script are required")
		}

		ctx := cmd.Context()
		d, _, err := newRuntime(gcode.NewConsole(cmd.OutOrStdout()))
		if err != nil {
			return err
		}

		logger := logs.GetLogger()
		scheduler := jobscheduler.NewMemoryScheduler()
		if _, err := scheduler.Add(spec, jobscheduler.ScriptJob(ctx, d, script, logger)); err != nil {
			return err
		}
		scheduler.Start()
		logger.Info(ctx, "scheduler started", zap.String("cron", spec), zap.String("script", script))

		<-ctx.Done()
		scheduler.Stop()
		logger.Info(ctx, "scheduler stopped")
		return nil
	},
}

func init() {
	scheduleCmd.Flags().String("cron", "", "cron spec, e.g. \"0 */2 * * *\" or \"@every 1h\"")
	scheduleCmd.Flags().String("script", "", "G-code script to run on each tick")
	rootCmd.AddCommand(scheduleCmd)
}
