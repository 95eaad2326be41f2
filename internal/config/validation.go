package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationErrors collects all validation errors so a bad config reports
// everything wrong at once.
type ValidationErrors struct {
	Problems []string
}

// HasErrors returns true if any validation errors exist.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Problems) > 0
}

// Error formats all validation errors into a clear message.
func (e *ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, p := range e.Problems {
		sb.WriteString(fmt.Sprintf("  - %s\n", p))
	}
	return sb.String()
}

func (e *ValidationErrors) addf(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

var validPriorities = map[string]bool{
	"min": true, "low": true, "default": true, "high": true, "urgent": true,
}

func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if c.Alpaca.KeyID == "" || c.Alpaca.SecretKey == "" {
		errs.addf("alpaca credentials are required (set APCA_API_KEY_ID and APCA_API_SECRET_KEY)")
	}

	if c.Workers < 1 {
		errs.addf("workers must be >= 1, got %d", c.Workers)
	}

	s := c.Screening
	if s.HorizonDays < 1 {
		errs.addf("screening.horizon_days must be >= 1, got %d", s.HorizonDays)
	}
	if s.RVWindow < 2 {
		errs.addf("screening.rv_window must be >= 2, got %d", s.RVWindow)
	}
	if s.VolumeWindow < 1 {
		errs.addf("screening.volume_window must be >= 1, got %d", s.VolumeWindow)
	}
	if s.TradingPeriods < 1 {
		errs.addf("screening.trading_periods must be >= 1, got %d", s.TradingPeriods)
	}
	if s.HistoryDays <= s.RVWindow {
		errs.addf("screening.history_days (%d) must exceed screening.rv_window (%d)", s.HistoryDays, s.RVWindow)
	}
	if s.MinExpirations < 1 {
		errs.addf("screening.min_expirations must be >= 1, got %d", s.MinExpirations)
	}
	if s.MinIVRVRatio <= 0 {
		errs.addf("screening.min_iv_rv_ratio must be positive, got %v", s.MinIVRVRatio)
	}

	if c.Notify.Enabled {
		if c.Notify.Topic == "" {
			errs.addf("notify.topic is required when notify.enabled is true")
		}
		if !validPriorities[c.Notify.Priority] {
			errs.addf("invalid notify.priority: %s (valid: min, low, default, high, urgent)", c.Notify.Priority)
		}
	}

	d := c.Daemon
	if d.ScheduleHour < 0 || d.ScheduleHour > 23 {
		errs.addf("daemon.schedule_hour must be 0-23, got %d", d.ScheduleHour)
	}
	if d.ScheduleMinute < 0 || d.ScheduleMinute > 59 {
		errs.addf("daemon.schedule_minute must be 0-59, got %d", d.ScheduleMinute)
	}
	if _, err := time.LoadLocation(d.Timezone); err != nil {
		errs.addf("daemon.timezone %q is not a valid tz name", d.Timezone)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
