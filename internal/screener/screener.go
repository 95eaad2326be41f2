package screener

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quantfold/earnscan/internal/marketdata"
	"github.com/quantfold/earnscan/internal/vol"
)

// Thresholds are the screening cutoffs. The defaults mirror the strategy
// this screener was built around; they are configuration, not constants
// baked into the decision logic.
type Thresholds struct {
	MinAvgVolume float64
	MinIVRVRatio float64
	MaxTermSlope float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinAvgVolume: 1_500_000,
		MinIVRVRatio: 1.25,
		MaxTermSlope: -0.00406,
	}
}

// Options tunes one screening run.
type Options struct {
	HorizonDays    int // term-structure horizon and expiration cutoff
	RVWindow       int // realized-volatility window and IV/RV horizon
	VolumeWindow   int // rolling average volume window
	TradingPeriods int // annualization factor
	HistoryDays    int // trailing calendar days of daily bars to pull
	MinExpirations int // samples required to accept the primary provider
	Thresholds     Thresholds
}

func DefaultOptions() Options {
	return Options{
		HorizonDays:    45,
		RVWindow:       vol.DefaultWindow,
		VolumeWindow:   30,
		TradingPeriods: vol.DefaultTradingPeriods,
		HistoryDays:    90,
		MinExpirations: 2,
		Thresholds:     DefaultThresholds(),
	}
}

// Result is the screening outcome for one symbol. The three flags carry the
// decision; the raw metrics ride along for reporting.
type Result struct {
	Symbol       string
	Source       string
	Price        float64
	AvgVolume    float64
	AvgVolumeOK  bool
	IV30         float64
	RV30         float64
	IVRVRatio    float64
	IVRVRatioOK  bool
	TermSlope    float64
	TermSlopeOK  bool
	ExpectedMove string // e.g. "5.0%", empty when no straddle was captured
}

// Passes reports whether all three screening flags are true.
func (r *Result) Passes() bool {
	return r.AvgVolumeOK && r.IVRVRatioOK && r.TermSlopeOK
}

// Screener runs the volatility screen against a primary provider with a
// from-scratch fallback onto a secondary one.
type Screener struct {
	primary   marketdata.Provider
	secondary marketdata.Provider
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
}

func New(primary, secondary marketdata.Provider, opts Options, logger *zap.Logger) *Screener {
	return &Screener{
		primary:   primary,
		secondary: secondary,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the screener's clock. Tests only.
func (s *Screener) WithClock(now func() time.Time) *Screener {
	s.now = now
	return s
}

// errTooFewSamples marks a primary run rejected by the acceptance policy.
var errTooFewSamples = errors.New("too few sampled expirations")

// Screen screens one symbol. Results from a rejected primary run are
// discarded wholesale; providers are never mixed within a run.
func (s *Screener) Screen(ctx context.Context, symbol string) (*Result, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	sources := []marketdata.Provider{s.primary}
	minSamples := []int{s.opts.MinExpirations}
	if s.secondary != nil {
		sources = append(sources, s.secondary)
		minSamples = append(minSamples, 1)
	}

	var lastErr error
	for i, src := range sources {
		result, err := s.runPipeline(ctx, src, symbol, minSamples[i])
		if err == nil {
			return result, nil
		}

		if !fallbackWorthTrying(err) || i == len(sources)-1 {
			return nil, s.finalError(symbol, err)
		}

		s.logger.Info("falling back to secondary provider",
			zap.String("symbol", symbol),
			zap.String("source", src.Name()),
			zap.Error(err))
		lastErr = err
	}
	return nil, s.finalError(symbol, lastErr)
}

// fallbackWorthTrying reports whether re-running against another provider
// can cure the failure. Horizon and term-structure failures are properties
// of the listed expirations, not the vendor.
func fallbackWorthTrying(err error) bool {
	switch {
	case errors.Is(err, marketdata.ErrProviderUnavailable),
		errors.Is(err, marketdata.ErrNotFound),
		errors.Is(err, marketdata.ErrRateLimited),
		errors.Is(err, vol.ErrInsufficientHistory),
		errors.Is(err, ErrNoOptionData),
		errors.Is(err, errTooFewSamples):
		return true
	}
	return false
}

// finalError maps provider and acceptance failures onto the taxonomy a
// caller sees when every source has been exhausted.
func (s *Screener) finalError(symbol string, err error) error {
	if errors.Is(err, errTooFewSamples) ||
		errors.Is(err, marketdata.ErrProviderUnavailable) ||
		errors.Is(err, marketdata.ErrNotFound) ||
		errors.Is(err, marketdata.ErrRateLimited) {
		return fmt.Errorf("%s: %w: %v", symbol, ErrNoOptionData, err)
	}
	return fmt.Errorf("%s: %w", symbol, err)
}

func (s *Screener) runPipeline(ctx context.Context, src marketdata.Provider, symbol string, minSamples int) (*Result, error) {
	today := s.now()

	spot, err := src.CurrentPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	expirations, err := src.OptionExpirations(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(expirations) == 0 {
		return nil, fmt.Errorf("no listed expirations: %w", ErrNoOptionData)
	}

	filtered, err := FilterExpirations(expirations, today, s.opts.HorizonDays)
	if err != nil {
		return nil, err
	}

	samples, straddle, err := SampleATM(ctx, src, symbol, spot, filtered, today, s.logger)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no ATM sample on any expiration: %w", ErrNoOptionData)
	}
	if len(samples) < minSamples {
		return nil, fmt.Errorf("%w: %d of %d required", errTooFewSamples, len(samples), minSamples)
	}

	days := make([]int, len(samples))
	ivs := make([]float64, len(samples))
	for i, sample := range samples {
		days[i] = sample.DaysToExpiry
		ivs[i] = sample.IV
	}
	term, err := vol.NewTermStructure(days, ivs)
	if err != nil {
		return nil, err
	}

	horizon := float64(s.opts.HorizonDays)
	minDay := float64(term.MinDays())
	slope := (term.IV(horizon) - term.IV(minDay)) / (horizon - minDay)

	end := today
	start := end.AddDate(0, 0, -s.opts.HistoryDays)
	bars, err := src.DailyBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	rv, err := vol.YangZhang(bars, s.opts.RVWindow, s.opts.TradingPeriods)
	if err != nil {
		return nil, err
	}

	avgVolume, err := vol.AverageVolume(bars, s.opts.VolumeWindow)
	if err != nil {
		return nil, err
	}

	iv30 := term.IV(float64(s.opts.RVWindow))
	ratio := math.Inf(1)
	if rv > 0 {
		ratio = iv30 / rv
	}

	result := &Result{
		Symbol:      symbol,
		Source:      src.Name(),
		Price:       spot,
		AvgVolume:   avgVolume,
		AvgVolumeOK: avgVolume >= s.opts.Thresholds.MinAvgVolume,
		IV30:        iv30,
		RV30:        rv,
		IVRVRatio:   ratio,
		IVRVRatioOK: ratio >= s.opts.Thresholds.MinIVRVRatio,
		TermSlope:   slope,
		TermSlopeOK: slope <= s.opts.Thresholds.MaxTermSlope,
	}
	if straddle != nil {
		result.ExpectedMove = formatExpectedMove(straddle.Price() / spot * 100)
	}

	s.logger.Debug("screened symbol",
		zap.String("symbol", symbol),
		zap.String("source", src.Name()),
		zap.Float64("iv30", iv30),
		zap.Float64("rv30", rv),
		zap.Float64("slope", slope),
		zap.Float64("avg_volume", avgVolume))

	return result, nil
}

func normalizeSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", fmt.Errorf("empty symbol: %w", ErrInvalidSymbol)
	}
	for _, r := range symbol {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '.' && r != '-' {
			return "", fmt.Errorf("symbol %q: %w", symbol, ErrInvalidSymbol)
		}
	}
	return symbol, nil
}

// formatExpectedMove renders a percentage with at most two decimals and at
// least one ("5.0%", "7.23%").
func formatExpectedMove(pct float64) string {
	rounded := math.Round(pct*100) / 100
	s := strconv.FormatFloat(rounded, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s + "%"
}
