package screener

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/quantfold/earnscan/internal/marketdata"
)

func TestSampleATMNearestStrike(t *testing.T) {
	src := &mockProvider{
		chains: map[string]marketdata.Chain{
			testDay(10): {
				95.0:  {Call: quote(1, 1.1, 0.50), Put: quote(1, 1.1, 0.50)},
				101.0: {Call: quote(1, 1.1, 0.42), Put: quote(1, 1.1, 0.40)},
				110.0: {Call: quote(1, 1.1, 0.30), Put: quote(1, 1.1, 0.30)},
			},
		},
	}

	samples, _, err := SampleATM(context.Background(), src, "AAPL", 100.0, []string{testDay(10)}, testToday, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(samples))
	}
	if math.Abs(samples[0].IV-0.41) > 1e-12 {
		t.Errorf("expected mean IV 0.41 at the nearest strike, got %v", samples[0].IV)
	}
	if samples[0].DaysToExpiry != 10 {
		t.Errorf("expected 10 days to expiry, got %d", samples[0].DaysToExpiry)
	}
}

func TestSampleATMTieBreaksLower(t *testing.T) {
	// 98 and 102 are equidistant from 100; the lower strike wins.
	src := &mockProvider{
		chains: map[string]marketdata.Chain{
			testDay(10): {
				98.0:  {Call: quote(1, 1.1, 0.44), Put: quote(1, 1.1, 0.44)},
				102.0: {Call: quote(1, 1.1, 0.60), Put: quote(1, 1.1, 0.60)},
			},
		},
	}

	samples, _, err := SampleATM(context.Background(), src, "AAPL", 100.0, []string{testDay(10)}, testToday, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 1 || samples[0].IV != 0.44 {
		t.Errorf("expected the 98 strike's IV 0.44, got %+v", samples)
	}
}

func TestSampleATMFallsBackToNextStrike(t *testing.T) {
	// The nearest strike misses a put IV; the next-nearest must be used.
	src := &mockProvider{
		chains: map[string]marketdata.Chain{
			testDay(10): {
				100.0: {Call: quote(1, 1.1, 0.50), Put: quote(1, 1.1, 0)},
				105.0: {Call: quote(1, 1.1, 0.46), Put: quote(1, 1.1, 0.48)},
			},
		},
	}

	samples, _, err := SampleATM(context.Background(), src, "AAPL", 100.0, []string{testDay(10)}, testToday, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 1 || math.Abs(samples[0].IV-0.47) > 1e-12 {
		t.Errorf("expected fallback to the 105 strike, got %+v", samples)
	}
}

func TestSampleATMSkipsExpirationWithoutIV(t *testing.T) {
	src := &mockProvider{
		chains: map[string]marketdata.Chain{
			testDay(10): {
				100.0: {Call: quote(1, 1.1, 0), Put: quote(1, 1.1, 0)},
			},
			testDay(50): {
				100.0: {Call: quote(1, 1.1, 0.40), Put: quote(1, 1.1, 0.40)},
			},
		},
	}

	samples, _, err := SampleATM(context.Background(), src, "AAPL", 100.0, []string{testDay(10), testDay(50)}, testToday, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 1 || samples[0].Expiration != testDay(50) {
		t.Errorf("expected only the far expiration sampled, got %+v", samples)
	}
}

func TestSampleATMStraddleCapturedOnce(t *testing.T) {
	src := &mockProvider{
		chains: map[string]marketdata.Chain{
			testDay(10): {
				100.0: {Call: quote(2.0, 2.5, 0.50), Put: quote(1.5, 2.0, 0.50)},
			},
			testDay(50): {
				100.0: {Call: quote(6.0, 6.5, 0.40), Put: quote(5.5, 6.0, 0.40)},
			},
		},
	}

	_, straddle, err := SampleATM(context.Background(), src, "AAPL", 100.0, []string{testDay(10), testDay(50)}, testToday, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if straddle == nil {
		t.Fatal("expected a straddle")
	}
	// Mids from the 10d expiration, not the 50d one.
	if straddle.CallMid != 2.25 || straddle.PutMid != 1.75 {
		t.Errorf("expected straddle from the first sampled expiration, got %+v", straddle)
	}
	if straddle.Price() != 4.0 {
		t.Errorf("expected straddle price 4.0, got %v", straddle.Price())
	}
}

func TestSampleATMMissingQuoteLeavesStraddleUnset(t *testing.T) {
	// First sampled expiration has IVs but no bid/ask; the straddle attempt
	// is spent there and never retried on the later expiration.
	src := &mockProvider{
		chains: map[string]marketdata.Chain{
			testDay(10): {
				100.0: {
					Call: &marketdata.OptionQuote{IV: 0.50},
					Put:  &marketdata.OptionQuote{IV: 0.50},
				},
			},
			testDay(50): {
				100.0: {Call: quote(6.0, 6.4, 0.40), Put: quote(5.6, 6.0, 0.40)},
			},
		},
	}

	samples, straddle, err := SampleATM(context.Background(), src, "AAPL", 100.0, []string{testDay(10), testDay(50)}, testToday, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if straddle != nil {
		t.Errorf("expected no straddle when the nearest sampled expiration lacks quotes, got %+v", straddle)
	}
}

func TestSampleATMPropagatesProviderError(t *testing.T) {
	src := &mockProvider{chains: map[string]marketdata.Chain{}}

	_, _, err := SampleATM(context.Background(), src, "AAPL", 100.0, []string{testDay(10)}, testToday, zap.NewNop())
	if !errors.Is(err, marketdata.ErrNotFound) {
		t.Errorf("expected provider error to propagate, got %v", err)
	}
}
