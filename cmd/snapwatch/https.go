package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyDizz214/snappier-server-docker/internal/adapters/probe"
	"github.com/RyDizz214/snappier-server-docker/internal/adapters/watch"
	"github.com/RyDizz214/snappier-server-docker/pkg/logger"
)

var httpsCmd = &cobra.Command{
	Use:   "https",
	Short: "Upgrade http:// links to https:// in JSON files",
	Long:  "Probes every http:// string found in the target JSON files and rewrites it to https:// when the host answers over TLS.",
	RunE:  runHTTPS,
}

var (
	httpsTargets  []string
	httpsInterval time.Duration
	httpsOnce     bool
)

func init() {
	httpsCmd.Flags().StringSliceVarP(&httpsTargets, "target", "t", nil, "JSON file to rewrite (repeatable; defaults to the guide and schedules files)")
	httpsCmd.Flags().DurationVar(&httpsInterval, "interval", 20*time.Second, "Time between passes")
	httpsCmd.Flags().BoolVar(&httpsOnce, "once", false, "Run a single pass and exit")

	rootCmd.AddCommand(httpsCmd)
}

func runHTTPS(cmd *cobra.Command, _ []string) error {
	targets := httpsTargets
	if len(targets) == 0 {
		targets = []string{cfg.EPGCachePath, cfg.SchedulesPath}
	}

	prober := probe.NewProber(
		probe.WithTimeout(cfg.ProbeTimeout),
		probe.WithMethod(cfg.ProbeMethod),
		probe.WithAllowHTTPHosts(cfg.AllowHTTPHostList()),
		probe.WithCacheSize(cfg.HTTPSCacheMaxSize),
	)
	upgrader := watch.NewHTTPSUpgrader(prober, targets,
		watch.WithHTTPSInterval(httpsInterval),
		watch.WithHTTPSLogger(logger.Get().Named("https")),
	)

	if httpsOnce {
		n := upgrader.Once(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "rewrote %d file(s)\n", n)
		return nil
	}
	upgrader.Run(cmd.Context())
	return nil
}
