package probe

import (
	"errors"
	"fmt"
	"time"
)

// Default configuration values.
const (
	DefaultBaseURL  = "http://localhost:9080"
	DefaultDuration = 30 * time.Second
	DefaultInterval = time.Second
	DefaultTimeout  = 5 * time.Second
	DefaultSlack    = 2 * time.Second
	DefaultFeedCap  = 10
)

// ErrInvalidConfig reports unusable probe settings.
var ErrInvalidConfig = errors.New("invalid probe config")

// Config holds configuration for a probe run.
type Config struct {
	BaseURL  string        // Base URL of the service
	Duration time.Duration // How long to observe
	Interval time.Duration // Snapshot poll period
	Timeout  time.Duration // Per request timeout
	Slack    time.Duration // Grace period for blip expiry notifications
	FeedCap  int           // Upper bound on the feed length, 0 disables
	Output   string        // Optional JSON report path
	LogFile  string        // Optional log file
	Verbose  bool          // Log every violation as it is found
}

// Validate checks the settings and fills defaults.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidConfig)
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Interval > c.Duration {
		return fmt.Errorf("%w: interval %s exceeds duration %s", ErrInvalidConfig, c.Interval, c.Duration)
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.FeedCap < 0 {
		return fmt.Errorf("%w: feed cap must not be negative", ErrInvalidConfig)
	}
	if c.Slack <= 0 {
		c.Slack = DefaultSlack
	}
	return nil
}
