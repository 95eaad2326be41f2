package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/quantfold/earnscan/internal/report"
	"github.com/quantfold/earnscan/internal/screener"
)

func screenCmd() *cobra.Command {
	var showAll bool
	var snapshotPath string

	cmd := &cobra.Command{
		Use:   "screen SYMBOL...",
		Short: "Screen one or more symbols for a pre-earnings volatility setup",
		Long: `Screen symbols against the volatility criteria: 30-day average volume,
implied-to-realized volatility ratio, and term-structure slope.

Examples:
  # Screen two symbols, printing only passing ones
  earnscan screen AAPL MSFT

  # Print every result regardless of the filters
  earnscan screen --all AAPL MSFT

  # Replay a recorded snapshot instead of hitting live providers
  earnscan screen --snapshot aapl.snap.zst AAPL`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var batch *screener.Batch
			if snapshotPath != "" {
				var err error
				batch, err = newSnapshotBatch(cfg, snapshotPath, logger)
				if err != nil {
					return err
				}
			} else {
				batch = newBatch(cfg, logger)
			}

			result, err := batch.Execute(cmd.Context(), args)
			if err != nil {
				return err
			}
			return report.WriteResults(os.Stdout, result, showAll)
		},
	}

	cmd.Flags().BoolVar(&showAll, "all", false, "print all results regardless of filter criteria")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "replay a recorded market-data snapshot file")

	return cmd
}
