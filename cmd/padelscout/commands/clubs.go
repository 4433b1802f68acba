package commands

import (
	"log/slog"
	"os"

	"padelscout-backend/lib/scrapers/playtomic"
	"padelscout-backend/lib/serviceutil"
	"padelscout-backend/lib/supabase"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var clubsResolve *bool

func init() {
	clubsResolve = clubsCmd.Flags().Bool("resolve", false, "Fetch each club page and fill in names the database is missing.")
	rootCmd.AddCommand(clubsCmd)
}

var clubsCmd = &cobra.Command{
	Use:   "clubs [--resolve]",
	Short: "Prints the clubs configured for scraping.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := loadConfig()
		client := supabase.NewClient(cfg.Supabase)

		clubs, err := client.GetClubs(ctx)
		if err != nil {
			serviceutil.Fatal("failed to fetch clubs", err)
		}

		var tenants *playtomic.TenantClient
		if *clubsResolve {
			tenants, err = playtomic.NewTenantClient()
			if err != nil {
				serviceutil.Fatal("failed to initialize tenant client", err)
			}
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Id", "Name", "Tenant", "Url"})
		for _, club := range clubs {
			name := club.Name
			if name == "" && tenants != nil {
				tenant, err := tenants.GetTenant(ctx, club.Url)
				if err != nil {
					slog.Warn("failed to resolve club name", "url", club.Url, "err", err)
				} else {
					name = tenant.Name
				}
			}
			t.AppendRow(table.Row{club.Id, name, playtomic.TenantUidFromUrl(club.Url), club.Url})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
