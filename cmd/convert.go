package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Granipouss/mtg-collection-pipe/internal/convert"
	"github.com/Granipouss/mtg-collection-pipe/internal/report"
	"github.com/spf13/cobra"
)

var (
	convertOutput string
	convertDryRun bool
)

// convertCmd converts a local export without touching either platform
var convertCmd = &cobra.Command{
	Use:   "convert <dragonshield-export.csv>",
	Short: "Convert a DragonShield export file into a Moxfield import file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := args[0]
		conv := convert.NewConverter(logger, newCache(), convert.Options{
			SkipInvalidRows: cfg.Convert.SkipInvalidRows,
		})

		agg, err := conv.ReadExportFile(input)
		if err != nil {
			return err
		}

		if convertDryRun {
			logger.Info("Dry run mode - not resolving or writing the import file")
			for _, e := range agg.Entries() {
				fmt.Fprintf(cmd.OutOrStdout(), "   + %2d %s\n", e.Quantity, e.Name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d cards, %d unique\n", agg.Total(), agg.Len())
			return nil
		}

		output := convertOutput
		if output == "" {
			output = strings.TrimSuffix(input, filepath.Ext(input)) + "-moxfield.csv"
		}
		rows, err := conv.WriteImportFile(cmd.Context(), output, agg)
		if err != nil {
			return err
		}

		logger.Infof("Wrote %s", output)
		return report.PrintSummary(os.Stdout, rows)
	},
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output file (default <input>-moxfield.csv)")
	convertCmd.Flags().BoolVar(&convertDryRun, "dry-run", false, "only parse and aggregate the export")
}
