package commands

import (
	"log/slog"

	"padelscout-backend/lib/serviceutil"
	"padelscout-backend/lib/webdriver"

	"github.com/spf13/cobra"
)

var provisionDir *string

func init() {
	provisionDir = provisionCmd.Flags().String("dir", ".chromedriver", "Directory to install the driver into.")
	rootCmd.AddCommand(provisionCmd)
}

var provisionCmd = &cobra.Command{
	Use:   "provision [--dir <install dir>]",
	Short: "Downloads a chromedriver matching the installed chrome.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		chrome, err := webdriver.DetectChrome(ctx)
		if err != nil {
			serviceutil.Fatal("failed to detect chrome", err)
		}
		slog.Info("detected chrome", "binary", webdriver.ChromeBinary(), "version", chrome.Full)

		driverPath, err := webdriver.NewProvisioner(*provisionDir).Install(ctx, chrome)
		if err != nil {
			serviceutil.Fatal("failed to install chromedriver", err)
		}

		err = webdriver.Verify(ctx, driverPath, chrome)
		if err != nil {
			serviceutil.Fatal("chromedriver verification failed", err)
		}
		slog.Info("chromedriver installed", "path", driverPath)
	},
}
