package server

import (
	"errors"
	"strings"
	"time"

	"github.com/burton0621/barix-site-sub000/pkg/calendar"
)

const dateOnlyLayout = "2006-01-02"

func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		if endOfDay {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
		} else {
			parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		}
		return &parsed, nil
	}
	return nil, errors.New("invalid_time")
}

// parseOptionalDate reads a YYYY-MM-DD query value; empty means unset.
func parseOptionalDate(value string) (*calendar.Date, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := calendar.ParseDate(trimmed)
	if err != nil {
		return nil, errors.New("invalid_date")
	}
	return &parsed, nil
}
