package earnings

import (
	"time"

	"github.com/scmhub/calendar"
)

// NextMarketDay returns the next NYSE trading day strictly after the given
// time. If no trading day turns up within two weeks (which only happens if
// the holiday calendar is broken), it falls back to the next calendar day.
func NextMarketDay(after time.Time, loc *time.Location) time.Time {
	nyse := calendar.XNYS()
	day := after.In(loc)

	for i := 0; i < 14; i++ {
		day = day.AddDate(0, 0, 1)
		noon := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, loc)
		if nyse.IsBusinessDay(noon) {
			return noon
		}
	}
	return after.In(loc).AddDate(0, 0, 1)
}

// IsMarketDay reports whether the given date is a NYSE trading day.
func IsMarketDay(day time.Time, loc *time.Location) bool {
	noon := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, loc)
	return calendar.XNYS().IsBusinessDay(noon)
}
