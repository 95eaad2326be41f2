package screener

import (
	"fmt"
	"sort"
	"time"

	"github.com/quantfold/earnscan/internal/marketdata"
)

// FilterExpirations selects the expirations usable for term-structure
// construction: the ascending prefix of dates ending at the first one at
// least horizonDays out, with a same-day front expiration dropped as
// already outside the actionable window.
func FilterExpirations(dates []string, today time.Time, horizonDays int) ([]string, error) {
	parsed := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		t, err := time.ParseInLocation(marketdata.DateLayout, d, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("bad expiration date %q: %w", d, err)
		}
		parsed = append(parsed, t)
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Before(parsed[j]) })

	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := todayDate.AddDate(0, 0, horizonDays)

	var filtered []string
	for i, d := range parsed {
		if !d.Before(cutoff) {
			filtered = make([]string, 0, i+1)
			for _, p := range parsed[:i+1] {
				filtered = append(filtered, p.Format(marketdata.DateLayout))
			}
			break
		}
	}

	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: %d dates, horizon %d days", ErrInsufficientHorizon, len(dates), horizonDays)
	}

	if filtered[0] == todayDate.Format(marketdata.DateLayout) {
		filtered = filtered[1:]
	}
	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: only a same-day expiration in range", ErrInsufficientHorizon)
	}
	return filtered, nil
}
