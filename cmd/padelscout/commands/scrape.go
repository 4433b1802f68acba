package commands

import (
	"log/slog"
	"time"

	"padelscout-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Runs a single scrape of every configured club and exits.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		archive := openArchive(cfg)
		defer archive.Close()

		service := newService(cfg, archive)

		t1 := time.Now()
		report, err := service.Run(cmd.Context())
		if err != nil {
			serviceutil.Fatal("scrape failed", err)
		}

		slog.Info("scrape finished",
			"scrape_id", report.ScrapeId,
			"booking_date", report.BookingDate,
			"slots", report.SlotsScraped,
			"clubs", report.ClubsCovered,
			"failures", report.Failures,
			"seconds", time.Since(t1).Seconds(),
		)
	},
}
