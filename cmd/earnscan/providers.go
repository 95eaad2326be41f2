package main

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quantfold/earnscan/internal/config"
	"github.com/quantfold/earnscan/internal/marketdata"
	"github.com/quantfold/earnscan/internal/screener"
)

func newAlpaca(cfg *config.Config, logger *zap.Logger) *marketdata.Alpaca {
	return marketdata.NewAlpaca(
		cfg.Alpaca.BaseURL,
		cfg.Alpaca.KeyID,
		cfg.Alpaca.SecretKey,
		cfg.Alpaca.Feed,
		cfg.HTTP.RatePerSecond,
		time.Duration(cfg.HTTP.TimeoutSec)*time.Second,
		time.Duration(cfg.HTTP.RetryDelaySec)*time.Second,
		cfg.HTTP.RetryCount,
		logger,
	)
}

func newYahoo(cfg *config.Config, logger *zap.Logger) *marketdata.Yahoo {
	return marketdata.NewYahoo(
		cfg.Yahoo.BaseURL,
		cfg.HTTP.RatePerSecond,
		time.Duration(cfg.HTTP.TimeoutSec)*time.Second,
		time.Duration(cfg.HTTP.RetryDelaySec)*time.Second,
		cfg.HTTP.RetryCount,
		logger,
	)
}

func screenerOptions(cfg *config.Config) screener.Options {
	return screener.Options{
		HorizonDays:    cfg.Screening.HorizonDays,
		RVWindow:       cfg.Screening.RVWindow,
		VolumeWindow:   cfg.Screening.VolumeWindow,
		TradingPeriods: cfg.Screening.TradingPeriods,
		HistoryDays:    cfg.Screening.HistoryDays,
		MinExpirations: cfg.Screening.MinExpirations,
		Thresholds: screener.Thresholds{
			MinAvgVolume: cfg.Screening.MinAvgVolume,
			MinIVRVRatio: cfg.Screening.MinIVRVRatio,
			MaxTermSlope: cfg.Screening.MaxTermSlope,
		},
	}
}

// newBatch wires a live screening batch: Alpaca primary, Yahoo secondary.
func newBatch(cfg *config.Config, logger *zap.Logger) *screener.Batch {
	s := screener.New(newAlpaca(cfg, logger), newYahoo(cfg, logger), screenerOptions(cfg), logger)
	return screener.NewBatch(s, cfg.Workers, logger)
}

// newSnapshotBatch wires a batch that replays a recorded snapshot with no
// fallback source.
func newSnapshotBatch(cfg *config.Config, path string, logger *zap.Logger) (*screener.Batch, error) {
	provider, err := marketdata.NewFileProvider(path)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	s := screener.New(provider, nil, screenerOptions(cfg), logger)
	return screener.NewBatch(s, 1, logger), nil
}
