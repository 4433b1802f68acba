package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"padelscout-backend/lib/configutil"
	"padelscout-backend/lib/proxy"
	"padelscout-backend/lib/restyutil"
	"padelscout-backend/lib/serviceutil"
	"padelscout-backend/lib/sqliteutil"
	"padelscout-backend/lib/supabase"
	"padelscout-backend/lib/telemetry"
	"padelscout-backend/services/availability"
	"padelscout-backend/services/availability/db"

	"github.com/spf13/cobra"
)

type Config struct {
	// path to the local archive, libsql:// urls work too
	Database string               `json:"database"`
	Supabase supabase.Config      `json:"supabase"`
	Proxy    proxy.Config         `json:"proxy"`
	Scrape   availability.Options `json:"scrape"`
}

var verbose *bool

var rootCmd = &cobra.Command{
	Use:   "padelscout",
	Short: "padelscout scrapes playtomic padel clubs for court availability.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
		if *verbose {
			telemetry.InstrumentPerfStats(cmd.Context())
			supabase.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/supabase"))
		}
	},
}

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging/instrumentation.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	return cfg
}

func openArchive(cfg Config) *sql.DB {
	dbpath := cfg.Database
	if dbpath == "" {
		dbpath = "padelscout.db"
	}
	archive, err := sqliteutil.OpenDB(db.Schema, dbpath)
	if err != nil {
		serviceutil.Fatal("failed to open archive db", err)
	}
	return archive
}

func newService(cfg Config, archive *sql.DB) availability.Service {
	return availability.NewService(
		archive,
		supabase.NewClient(cfg.Supabase),
		proxy.NewPool(cfg.Proxy),
		cfg.Scrape,
	)
}
