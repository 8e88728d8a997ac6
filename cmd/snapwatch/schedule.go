package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyDizz214/snappier-server-docker/internal/adapters/watch"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Normalize odd whitespace in the schedules file",
	RunE:  runSchedule,
}

var (
	schedulePath     string
	scheduleInterval time.Duration
	scheduleOnce     bool
)

func init() {
	scheduleCmd.Flags().StringVarP(&schedulePath, "path", "p", "", "Schedules JSON file (defaults to schedules_path)")
	scheduleCmd.Flags().DurationVar(&scheduleInterval, "interval", 30*time.Second, "Time between passes")
	scheduleCmd.Flags().BoolVar(&scheduleOnce, "once", false, "Run a single pass and exit")

	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	path := schedulePath
	if path == "" {
		path = cfg.SchedulesPath
	}
	sanitizer := watch.NewScheduleSanitizer(path,
		watch.WithScheduleInterval(scheduleInterval),
		watch.WithScheduleLogger(logger.Get().Named("schedule")),
	)

	if scheduleOnce {
		changed := sanitizer.Once(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "changed=%t\n", changed)
		return nil
	}
	sanitizer.Run(cmd.Context())
	return nil
}
