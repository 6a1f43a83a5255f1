package cmd

import (
	"encoding/json"

	"sonora/services"

	"github.com/spf13/cobra"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata <path>",
	Short: "Print the metadata record of an audio file as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		extractor := services.NewExtractor(cfg.Locale,
			services.WithLegacyCharset(cfg.LegacyCharset),
			services.WithLogger(logger.Named("metadata")))

		metadata, err := extractor.Extract(args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(metadata)
	},
}
