package screener

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/quantfold/earnscan/internal/marketdata"
)

// mockProvider is a canned-response Provider for pipeline tests. Call
// counters are mutex-guarded so batch tests can share one instance across
// workers.
type mockProvider struct {
	name        string
	price       float64
	priceErr    error
	expirations []string
	expErr      error
	chains      map[string]marketdata.Chain
	bars        []marketdata.PriceBar
	barsErr     error

	mu         sync.Mutex
	priceCalls int
	chainCalls []string
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) CurrentPrice(_ context.Context, _ string) (float64, error) {
	m.mu.Lock()
	m.priceCalls++
	m.mu.Unlock()
	return m.price, m.priceErr
}

func (m *mockProvider) OptionExpirations(_ context.Context, _ string) ([]string, error) {
	return m.expirations, m.expErr
}

func (m *mockProvider) OptionChain(_ context.Context, _ string, expiration string) (marketdata.Chain, error) {
	m.mu.Lock()
	m.chainCalls = append(m.chainCalls, expiration)
	m.mu.Unlock()
	chain, ok := m.chains[expiration]
	if !ok {
		return nil, marketdata.ErrNotFound
	}
	return chain, nil
}

func (m *mockProvider) DailyBars(_ context.Context, _ string, _, _ time.Time) ([]marketdata.PriceBar, error) {
	return m.bars, m.barsErr
}

var testToday = time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

func testDay(offset int) string {
	return testToday.AddDate(0, 0, offset).Format("2006-01-02")
}

func quote(bid, ask, iv float64) *marketdata.OptionQuote {
	return &marketdata.OptionQuote{Bid: bid, Ask: ask, HasQuote: true, IV: iv}
}

// flatBars builds n identical bars. Zero price movement means zero realized
// volatility, which drives the IV/RV ratio to +Inf.
func flatBars(n int, price float64, volume int64) []marketdata.PriceBar {
	bars := make([]marketdata.PriceBar, n)
	for i := range bars {
		bars[i] = marketdata.PriceBar{
			Date:   testToday.AddDate(0, 0, i-n),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: volume,
		}
	}
	return bars
}

// healthyProvider returns a provider whose data passes every screening
// criterion: steep downward term slope, heavy volume, zero realized vol.
func healthyProvider(name string) *mockProvider {
	return &mockProvider{
		name:        name,
		price:       100.0,
		expirations: []string{testDay(10), testDay(50)},
		chains: map[string]marketdata.Chain{
			testDay(10): {
				100.0: {Call: quote(2.5, 2.6, 0.60), Put: quote(2.4, 2.5, 0.60)},
			},
			testDay(50): {
				100.0: {Call: quote(5.0, 5.2, 0.35), Put: quote(4.8, 5.0, 0.35)},
			},
		},
		bars: flatBars(91, 100.0, 2_000_000),
	}
}

func newTestScreener(primary, secondary marketdata.Provider) *Screener {
	s := New(primary, secondary, DefaultOptions(), zap.NewNop())
	return s.WithClock(func() time.Time { return testToday })
}

func TestScreenPassingSymbol(t *testing.T) {
	primary := healthyProvider("alpaca")
	s := newTestScreener(primary, nil)

	result, err := s.Screen(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Symbol != "AAPL" {
		t.Errorf("expected symbol AAPL, got %s", result.Symbol)
	}
	if result.Source != "alpaca" {
		t.Errorf("expected source alpaca, got %s", result.Source)
	}
	if !result.Passes() {
		t.Errorf("expected pass, got %+v", result)
	}
	if result.AvgVolume != 2_000_000 {
		t.Errorf("expected avg volume 2000000, got %v", result.AvgVolume)
	}
	if result.Price != 100.0 {
		t.Errorf("expected spot 100, got %v", result.Price)
	}
	if !math.IsInf(result.IVRVRatio, 1) {
		t.Errorf("expected infinite IV/RV ratio for flat history, got %v", result.IVRVRatio)
	}

	// Samples: (10d, 0.60) and (50d, 0.35), interpolated at 45d and 30d.
	wantSlope := ((0.60 + (0.35-0.60)*35.0/40.0) - 0.60) / 35.0
	if math.Abs(result.TermSlope-wantSlope) > 1e-12 {
		t.Errorf("expected slope %v, got %v", wantSlope, result.TermSlope)
	}
	wantIV30 := 0.60 + (0.35-0.60)*20.0/40.0
	if math.Abs(result.IV30-wantIV30) > 1e-12 {
		t.Errorf("expected iv30 %v, got %v", wantIV30, result.IV30)
	}

	// Straddle at the 10d expiration: (2.55 + 2.45) / 100 = 5%.
	if result.ExpectedMove != "5.0%" {
		t.Errorf("expected move 5.0%%, got %q", result.ExpectedMove)
	}
}

func TestScreenNormalizesSymbol(t *testing.T) {
	s := newTestScreener(healthyProvider("alpaca"), nil)

	result, err := s.Screen(context.Background(), "  aapl ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Symbol != "AAPL" {
		t.Errorf("expected AAPL, got %s", result.Symbol)
	}
}

func TestScreenInvalidSymbol(t *testing.T) {
	s := newTestScreener(healthyProvider("alpaca"), nil)

	for _, symbol := range []string{"", "BAD$", "A B"} {
		if _, err := s.Screen(context.Background(), symbol); !errors.Is(err, ErrInvalidSymbol) {
			t.Errorf("symbol %q: expected ErrInvalidSymbol, got %v", symbol, err)
		}
	}
}

func TestScreenDiscardsThinPrimaryRun(t *testing.T) {
	// The primary only yields one ATM sample, below the two required for
	// acceptance. The whole run must be discarded and redone on the
	// secondary, never mixed.
	primary := healthyProvider("alpaca")
	primary.chains[testDay(10)] = marketdata.Chain{
		100.0: {Call: quote(2.5, 2.6, 0), Put: quote(2.4, 2.5, 0.60)},
	}
	secondary := healthyProvider("yahoo")

	s := newTestScreener(primary, secondary)

	result, err := s.Screen(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != "yahoo" {
		t.Errorf("expected secondary source yahoo, got %s", result.Source)
	}
	if secondary.priceCalls != 1 {
		t.Errorf("expected full re-run against secondary, priceCalls = %d", secondary.priceCalls)
	}
}

func TestScreenSecondaryAcceptsSingleSample(t *testing.T) {
	primary := &mockProvider{name: "alpaca", priceErr: marketdata.ErrProviderUnavailable}
	secondary := healthyProvider("yahoo")
	// Strip the far expiration's quotes so only one sample survives.
	secondary.chains[testDay(50)] = marketdata.Chain{}

	s := newTestScreener(primary, secondary)

	// One sample cannot form a term structure, so this still fails, but with
	// the term-structure error rather than the acceptance-policy one.
	_, err := s.Screen(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, errTooFewSamples) {
		t.Errorf("acceptance policy must not apply to the secondary: %v", err)
	}
}

func TestScreenNoFallbackOnTerminalError(t *testing.T) {
	primary := healthyProvider("alpaca")
	primary.expirations = []string{testDay(5), testDay(20)} // all inside horizon
	secondary := healthyProvider("yahoo")

	s := newTestScreener(primary, secondary)

	_, err := s.Screen(context.Background(), "AAPL")
	if !errors.Is(err, ErrInsufficientHorizon) {
		t.Fatalf("expected ErrInsufficientHorizon, got %v", err)
	}
	if secondary.priceCalls != 0 {
		t.Errorf("secondary must not be tried after a terminal error, priceCalls = %d", secondary.priceCalls)
	}
}

func TestScreenExhaustedProvidersMapToNoOptionData(t *testing.T) {
	primary := &mockProvider{name: "alpaca", priceErr: marketdata.ErrProviderUnavailable}
	secondary := &mockProvider{name: "yahoo", priceErr: marketdata.ErrNotFound}

	s := newTestScreener(primary, secondary)

	_, err := s.Screen(context.Background(), "AAPL")
	if !errors.Is(err, ErrNoOptionData) {
		t.Errorf("expected ErrNoOptionData after exhausting providers, got %v", err)
	}
}

func TestScreenRejectsOnThresholds(t *testing.T) {
	primary := healthyProvider("alpaca")
	for i := range primary.bars {
		primary.bars[i].Volume = 500_000
	}

	s := newTestScreener(primary, nil)

	result, err := s.Screen(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AvgVolumeOK {
		t.Error("expected volume criterion to fail at 500k average")
	}
	if result.Passes() {
		t.Error("expected overall rejection")
	}
}

func TestFormatExpectedMove(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{5.0, "5.0%"},
		{7.234, "7.23%"},
		{7.236, "7.24%"},
		{0, "0.0%"},
		{12.5, "12.5%"},
	}
	for _, tc := range tests {
		if got := formatExpectedMove(tc.pct); got != tc.want {
			t.Errorf("formatExpectedMove(%v) = %q, want %q", tc.pct, got, tc.want)
		}
	}
}
