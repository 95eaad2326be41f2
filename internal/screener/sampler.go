package screener

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/quantfold/earnscan/internal/marketdata"
)

// ATMSample is the at-the-money implied volatility derived for one
// expiration: the mean of the call and put IV at the strike nearest the
// underlying price.
type ATMSample struct {
	Expiration   string
	DaysToExpiry int
	IV           float64
}

// Straddle holds the call and put midpoints captured at the nearest-term
// sampled expiration. It is set at most once per run.
type Straddle struct {
	CallMid float64
	PutMid  float64
}

// Price returns the straddle mid-price.
func (s Straddle) Price() float64 { return s.CallMid + s.PutMid }

// SampleATM collects one ATM sample per expiration that yields one, in
// ascending expiration order, plus an optional straddle captured on the
// first expiration that produced a sample. Provider errors propagate so the
// engine can fall back to the secondary source.
func SampleATM(ctx context.Context, src marketdata.Provider, symbol string, spot float64, expirations []string, today time.Time, logger *zap.Logger) ([]ATMSample, *Straddle, error) {
	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	var samples []ATMSample
	var straddle *Straddle
	straddleTried := false

	for _, exp := range expirations {
		chain, err := src.OptionChain(ctx, symbol, exp)
		if err != nil {
			return nil, nil, err
		}

		strikes := rankStrikes(chain, spot)

		var sampled bool
		for _, strike := range strikes {
			entry := chain[strike]
			if entry.Call == nil || entry.Put == nil || entry.Call.IV <= 0 || entry.Put.IV <= 0 {
				continue
			}

			expDate, err := time.ParseInLocation(marketdata.DateLayout, exp, time.UTC)
			if err != nil {
				return nil, nil, fmt.Errorf("bad expiration date %q: %w", exp, err)
			}

			samples = append(samples, ATMSample{
				Expiration:   exp,
				DaysToExpiry: int(expDate.Sub(todayDate).Hours() / 24),
				IV:           (entry.Call.IV + entry.Put.IV) / 2,
			})
			sampled = true

			// The straddle is captured on the nearest-term sampled
			// expiration only; a missing quote there leaves it unset for
			// the whole run.
			if !straddleTried {
				straddleTried = true
				callMid, okCall := entry.Call.Mid()
				putMid, okPut := entry.Put.Mid()
				if okCall && okPut {
					straddle = &Straddle{CallMid: callMid, PutMid: putMid}
				}
			}
			break
		}

		if !sampled {
			logger.Debug("no strike with call and put IV, skipping expiration",
				zap.String("symbol", symbol),
				zap.String("expiration", exp))
		}
	}

	return samples, straddle, nil
}

// rankStrikes orders strikes by distance from the underlying price; equal
// distances break toward the lower strike.
func rankStrikes(chain marketdata.Chain, spot float64) []float64 {
	strikes := make([]float64, 0, len(chain))
	for strike := range chain {
		strikes = append(strikes, strike)
	}
	sort.Slice(strikes, func(i, j int) bool {
		di := math.Abs(strikes[i] - spot)
		dj := math.Abs(strikes[j] - spot)
		if di != dj {
			return di < dj
		}
		return strikes[i] < strikes[j]
	})
	return strikes
}
