package scheduler

import (
	"time"

	"github.com/burton0621/barix-site-sub000/internal/config"
)

// Config controls how often the scheduler wakes up and how long a job may run.
type Config struct {
	RunInterval     time.Duration
	ReminderTimeout time.Duration
	Location        *time.Location
}

func DefaultConfig() Config {
	return Config{
		RunInterval:     15 * time.Minute,
		ReminderTimeout: 5 * time.Minute,
		Location:        time.UTC,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.Scheduler.Interval,
		Location:    cfg.Location(),
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.ReminderTimeout <= 0 {
		c.ReminderTimeout = defaults.ReminderTimeout
	}
	if c.Location == nil {
		c.Location = defaults.Location
	}
	return c
}
