package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantfold/earnscan/internal/config"
	"github.com/quantfold/earnscan/internal/earnings"
	"github.com/quantfold/earnscan/internal/marketdata"
	"github.com/quantfold/earnscan/internal/report"
	"github.com/quantfold/earnscan/internal/screener"
)

func earningsCmd() *cobra.Command {
	var showAll bool

	cmd := &cobra.Command{
		Use:   "earnings",
		Short: "Screen today's after-close and the next session's pre-open earnings names",
		Long: `Pull the earnings calendar, take the symbols announcing after today's
close plus those announcing before the next trading session's open, and
run the volatility screen over all of them.

Examples:
  # Screen upcoming earnings names, printing only passing ones
  earnscan earnings

  # Print every screened name
  earnscan earnings --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := runEarningsScreen(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			return report.WriteResults(os.Stdout, result, showAll)
		},
	}

	cmd.Flags().BoolVar(&showAll, "all", false, "print all results regardless of filter criteria")

	return cmd
}

// collectEarningsSymbols gathers the screening universe: today's AMC names
// and the next market day's BMO names, deduplicated.
func collectEarningsSymbols(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]string, error) {
	client := earnings.NewClient(
		cfg.Earnings.BaseURL,
		time.Duration(cfg.Earnings.TimeoutSec)*time.Second,
		logger,
	)

	loc, err := time.LoadLocation(cfg.Daemon.Timezone)
	if err != nil {
		loc = time.UTC
	}
	now := time.Now().In(loc)
	today := now.Format(marketdata.DateLayout)
	nextSession := earnings.NextMarketDay(now, loc).Format(marketdata.DateLayout)

	todays, err := client.OnDate(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("fetching today's calendar: %w", err)
	}
	upcoming, err := client.OnDate(ctx, nextSession)
	if err != nil {
		return nil, fmt.Errorf("fetching next session's calendar: %w", err)
	}

	amc := earnings.AfterClose(todays)
	bmo := earnings.BeforeOpen(upcoming)

	logger.Info("earnings universe assembled",
		zap.String("today", today),
		zap.String("next_session", nextSession),
		zap.Int("amc", len(amc)),
		zap.Int("bmo", len(bmo)))

	seen := make(map[string]bool)
	var symbols []string
	for _, s := range append(amc, bmo...) {
		if seen[s] {
			continue
		}
		seen[s] = true
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols, nil
}

func runEarningsScreen(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*screener.BatchResult, error) {
	symbols, err := collectEarningsSymbols(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		logger.Info("no earnings announcements in window")
		return &screener.BatchResult{}, nil
	}

	return newBatch(cfg, logger).Execute(ctx, symbols)
}
