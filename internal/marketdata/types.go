package marketdata

import (
	"context"
	"time"
)

// PriceBar is one daily OHLCV bar.
type PriceBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// OptionQuote holds the market state of a single contract. HasQuote marks
// whether bid/ask were present at the vendor; IV is zero when the vendor
// omitted it.
type OptionQuote struct {
	Bid      float64
	Ask      float64
	HasQuote bool
	IV       float64
}

// Mid returns the bid/ask midpoint, false when no quote was present.
func (q *OptionQuote) Mid() (float64, bool) {
	if q == nil || !q.HasQuote {
		return 0, false
	}
	return (q.Bid + q.Ask) / 2, true
}

// ChainEntry pairs the call and put contracts at one strike. Either side
// may be nil when the vendor listed no contract there.
type ChainEntry struct {
	Call *OptionQuote
	Put  *OptionQuote
}

// Chain maps strike price to the contracts quoted at it for one expiration.
type Chain map[float64]ChainEntry

// Provider supplies the market data a screening run consumes. Two
// implementations must be substitutable behind the screener's fallback
// policy, so every method reports transport-level failures as
// ErrProviderUnavailable-wrapped errors.
type Provider interface {
	Name() string
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
	OptionExpirations(ctx context.Context, symbol string) ([]string, error)
	OptionChain(ctx context.Context, symbol, expiration string) (Chain, error)
	DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]PriceBar, error)
}

// DateLayout is the wire format for expiration and bar dates.
const DateLayout = "2006-01-02"
