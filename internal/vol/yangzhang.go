package vol

import (
	"errors"
	"fmt"
	"math"

	"github.com/quantfold/earnscan/internal/marketdata"
)

var ErrInsufficientHistory = errors.New("not enough price history for volatility window")

const (
	DefaultWindow         = 30
	DefaultTradingPeriods = 252
)

// YangZhang computes the annualized Yang-Zhang realized volatility over the
// most recent window of daily bars. Bars must be ordered by date ascending.
func YangZhang(bars []marketdata.PriceBar, window, tradingPeriods int) (float64, error) {
	series, err := YangZhangSeries(bars, window, tradingPeriods)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}

// YangZhangSeries returns the full rolling volatility series, one value per
// bar starting at index window (the first bar with a complete window of
// overnight returns behind it). Used for diagnostics; the screening decision
// only consumes the final element.
func YangZhangSeries(bars []marketdata.PriceBar, window, tradingPeriods int) ([]float64, error) {
	if window < 2 {
		return nil, fmt.Errorf("window must be >= 2, got %d", window)
	}
	// Each rolling term needs the previous close, so a full window of terms
	// requires window+1 bars.
	if len(bars) < window+1 {
		return nil, fmt.Errorf("%w: need %d bars, have %d", ErrInsufficientHistory, window+1, len(bars))
	}

	n := len(bars) - 1
	ocSq := make([]float64, n)
	ccSq := make([]float64, n)
	rs := make([]float64, n)

	for i := 1; i < len(bars); i++ {
		b := bars[i]
		prevClose := bars[i-1].Close

		logHO := math.Log(b.High / b.Open)
		logLO := math.Log(b.Low / b.Open)
		logCO := math.Log(b.Close / b.Open)
		logOC := math.Log(b.Open / prevClose)
		logCC := math.Log(b.Close / prevClose)

		ocSq[i-1] = logOC * logOC
		ccSq[i-1] = logCC * logCC
		rs[i-1] = logHO*(logHO-logCO) + logLO*(logLO-logCO)
	}

	scale := 1.0 / float64(window-1)
	k := 0.34 / (1.34 + float64(window+1)/float64(window-1))

	series := make([]float64, 0, n-window+1)
	var openVol, closeVol, windowRS float64
	for i := 0; i < n; i++ {
		openVol += ocSq[i]
		closeVol += ccSq[i]
		windowRS += rs[i]
		if i >= window {
			openVol -= ocSq[i-window]
			closeVol -= ccSq[i-window]
			windowRS -= rs[i-window]
		}
		if i >= window-1 {
			variance := openVol*scale + k*closeVol*scale + (1-k)*windowRS*scale
			series = append(series, math.Sqrt(variance*float64(tradingPeriods)))
		}
	}

	return series, nil
}

// AverageVolume returns the latest defined rolling mean of trading volume
// over the given window.
func AverageVolume(bars []marketdata.PriceBar, window int) (float64, error) {
	if window < 1 {
		return 0, fmt.Errorf("window must be >= 1, got %d", window)
	}
	if len(bars) < window {
		return 0, fmt.Errorf("%w: need %d bars, have %d", ErrInsufficientHistory, window, len(bars))
	}

	var sum int64
	for _, b := range bars[len(bars)-window:] {
		sum += b.Volume
	}
	return float64(sum) / float64(window), nil
}
