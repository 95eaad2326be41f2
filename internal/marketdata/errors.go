package marketdata

import "errors"

var (
	ErrProviderUnavailable = errors.New("market data provider unavailable")
	ErrNotFound            = errors.New("no data for this symbol")
	ErrRateLimited         = errors.New("rate limited by provider")
)
