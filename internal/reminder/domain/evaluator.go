package domain

import "github.com/burton0621/barix-site-sub000/pkg/calendar"

// Evaluate decides which reminder, if any, is due today for an invoice due on
// dueDate. before_due is checked first, so it wins when both windows are zero
// and today is the due date.
func Evaluate(today, dueDate calendar.Date, cfg ReminderConfig) Eligibility {
	cfg = cfg.Normalize()
	if !cfg.Enabled {
		return EligibilityNone
	}
	if dueDate.Equal(today.AddDays(cfg.DaysBeforeDue)) {
		return EligibilityBeforeDue
	}
	if dueDate.Equal(today.AddDays(-cfg.DaysAfterDue)) {
		return EligibilityAfterDue
	}
	return EligibilityNone
}

// Window returns the inclusive due-date range a sweep on today has to load so
// that every config in cfgs can match.
func Window(today calendar.Date, cfgs ...ReminderConfig) (from, to calendar.Date) {
	maxBefore, maxAfter := 0, 0
	for _, cfg := range cfgs {
		cfg = cfg.Normalize()
		if !cfg.Enabled {
			continue
		}
		if cfg.DaysBeforeDue > maxBefore {
			maxBefore = cfg.DaysBeforeDue
		}
		if cfg.DaysAfterDue > maxAfter {
			maxAfter = cfg.DaysAfterDue
		}
	}
	return today.AddDays(-maxAfter), today.AddDays(maxBefore)
}
