package main

import (
	"time"

	"github.com/quantfold/earnscan/internal/earnings"
	"github.com/quantfold/earnscan/internal/marketdata"
)

// Scheduler handles time-based scheduling and market day validation
type Scheduler struct {
	hour     int
	minute   int
	location *time.Location
}

// NewScheduler creates a new scheduler with the given schedule time and timezone
func NewScheduler(hour, minute int, timezone string) *Scheduler {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return &Scheduler{
		hour:     hour,
		minute:   minute,
		location: loc,
	}
}

// IsScheduledTime checks if current time matches the schedule (within the same minute)
func (s *Scheduler) IsScheduledTime() bool {
	now := time.Now().In(s.location)
	return now.Hour() == s.hour && now.Minute() == s.minute
}

// TodayDate returns today's date in YYYY-MM-DD format in the configured timezone
func (s *Scheduler) TodayDate() string {
	return time.Now().In(s.location).Format(marketdata.DateLayout)
}

// IsMarketDay checks if the given date is a trading day (not weekend/holiday)
func (s *Scheduler) IsMarketDay(dateStr string) bool {
	t, err := time.ParseInLocation(marketdata.DateLayout, dateStr, s.location)
	if err != nil {
		return false
	}
	return earnings.IsMarketDay(t, s.location)
}

// Location returns the scheduler's timezone location
func (s *Scheduler) Location() *time.Location {
	return s.location
}
