package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quantfold/earnscan/internal/marketdata"
)

func snapshotCmd() *cobra.Command {
	var output string
	var source string

	cmd := &cobra.Command{
		Use:   "snapshot SYMBOL",
		Short: "Record a market-data snapshot for offline replay",
		Long: `Record everything a screening run reads for one symbol (price,
expirations, option chains, daily bars) into a zstd-compressed snapshot
file replayable with 'screen --snapshot'.

Examples:
  earnscan snapshot AAPL -o aapl.snap.zst
  earnscan snapshot --source yahoo AAPL -o aapl.snap.zst`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := strings.ToUpper(strings.TrimSpace(args[0]))
			if output == "" {
				output = strings.ToLower(symbol) + ".snap.zst"
			}

			var src marketdata.Provider
			switch source {
			case "alpaca":
				src = newAlpaca(cfg, logger)
			case "yahoo":
				src = newYahoo(cfg, logger)
			default:
				return fmt.Errorf("unknown source %q (valid: alpaca, yahoo)", source)
			}

			snap, err := marketdata.Record(cmd.Context(), src, symbol, cfg.Screening.HistoryDays)
			if err != nil {
				return fmt.Errorf("recording snapshot: %w", err)
			}
			if err := marketdata.WriteSnapshot(snap, output); err != nil {
				return err
			}

			fmt.Printf("wrote %s: %d expirations, %d bars\n", output, len(snap.Expirations), len(snap.Bars))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default SYMBOL.snap.zst)")
	cmd.Flags().StringVar(&source, "source", "alpaca", "provider to record from (alpaca or yahoo)")

	return cmd
}
