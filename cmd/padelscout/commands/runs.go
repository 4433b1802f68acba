package commands

import (
	"os"
	"time"

	"padelscout-backend/lib/serviceutil"
	"padelscout-backend/lib/timezone"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var runsLimit *int64

func init() {
	runsLimit = runsCmd.Flags().Int64("limit", 20, "How many recent runs to show.")
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs [--limit <n>]",
	Short: "Prints recent scrape runs from the local archive.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		archive := openArchive(cfg)
		defer archive.Close()

		service := newService(cfg, archive)
		runs, err := service.ListRuns(cmd.Context(), *runsLimit)
		if err != nil {
			serviceutil.Fatal("failed to list runs", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Run", "At", "Booking Date", "Status", "Slots", "Clubs"})
		for _, run := range runs {
			at := time.Unix(run.RunAt, 0).In(timezone.Location).Format(time.ANSIC)
			t.AppendRow(table.Row{run.ID, at, run.BookingDate, run.ScrapeStatus, run.SlotsScraped, run.ClubsCovered})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
