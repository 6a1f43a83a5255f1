package cmd

import (
	"fmt"

	"sonora/config"
	"sonora/services"

	"github.com/spf13/cobra"
)

var checkUpdateCmd = &cobra.Command{
	Use:   "check-update",
	Short: "Check the release manifest for a newer version",
	RunE: func(cmd *cobra.Command, args []string) error {
		updater := services.NewUpdater(cfg.Updater.Endpoint, config.Version, cfg.Updater.Timeout, logger.Named("updater"))

		info, err := updater.Check(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !info.UpdateAvailable {
			fmt.Fprintf(out, "%s is up to date\n", info.CurrentVersion)
			return nil
		}
		fmt.Fprintf(out, "update available: %s -> %s\n", info.CurrentVersion, info.NewVersion)
		if info.DownloadURL != "" {
			fmt.Fprintln(out, info.DownloadURL)
		}
		if info.Body != "" {
			fmt.Fprintln(out, info.Body)
		}
		return nil
	},
}
