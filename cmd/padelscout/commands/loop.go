package commands

import (
	"log/slog"
	"time"

	"padelscout-backend/lib/chrono"
	"padelscout-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	loopEvery *string
	loopNow   *bool
)

func init() {
	loopEvery = loopCmd.Flags().String("every", "@every 6h", "Cron spec controlling how often to scrape.")
	loopNow = loopCmd.Flags().Bool("now", false, "Scrape immediately on startup instead of waiting for the first tick.")
	rootCmd.AddCommand(loopCmd)
}

// artifacts older than this get pruned between runs
const artifactMaxAge = 7 * 24 * time.Hour

var loopCmd = &cobra.Command{
	Use:   "loop [--every <cron spec>] [--now]",
	Short: "Scrapes on a schedule until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		archive := openArchive(cfg)
		defer archive.Close()

		service := newService(cfg, archive)
		ctx := cmd.Context()

		run := func() {
			report, err := service.Run(ctx)
			if err != nil {
				slog.Error("scrape run failed", "err", err)
				return
			}
			slog.Info("scheduled scrape finished",
				"scrape_id", report.ScrapeId,
				"slots", report.SlotsScraped,
				"failures", report.Failures,
			)
			service.PruneArtifacts(ctx, artifactMaxAge)
		}

		cronner := chrono.NewStandardCron()
		defer cronner.Stop()
		err := cronner.Cron(*loopEvery, run)
		if err != nil {
			serviceutil.Fatal("failed to schedule scrape", err)
		}
		slog.Info("scrape loop started", "every", *loopEvery)

		if *loopNow {
			run()
		}
		<-ctx.Done()
	},
}
