package cmd

import (
	"encoding/json"
	"fmt"

	"sonora/services"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var scanJSON bool

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Scan a folder and list the tracks found",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		extractor := services.NewExtractor(cfg.Locale,
			services.WithLegacyCharset(cfg.LegacyCharset),
			services.WithLogger(logger.Named("metadata")))
		library := services.NewLibraryService(extractor, cfg.Library.Extensions, cfg.Library.ScanWorkers, logger.Named("library"))

		files, err := library.FindAudioFiles(args[0])
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", args[0], err)
		}

		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetDescription("Scanning"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish())

		result, err := library.Scan(cmd.Context(), files, func(done, total int, file string) {
			_ = bar.Add(1)
		})
		_ = bar.Finish()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if scanJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(result.Tracks)
		}

		for _, t := range result.Tracks {
			fmt.Fprintf(out, "%s\t%s - %s\t[%s]\t%s\n", t.ID, t.Artist, t.Title, t.Album, t.Path)
		}
		fmt.Fprintf(out, "%d tracks, %d skipped\n", len(result.Tracks), result.Skipped)
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "print tracks as JSON")
}
