package screener

import "errors"

var (
	ErrInvalidSymbol       = errors.New("invalid ticker symbol")
	ErrInsufficientHorizon = errors.New("no expiration at or beyond the screening horizon")
	ErrNoOptionData        = errors.New("no usable option data")
)
