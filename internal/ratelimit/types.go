package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// Errors
var (
	ErrQuotaExceeded = errors.New("rate limit backlog full")
	ErrCostTooLarge  = errors.New("request cost exceeds tier capacity")
	ErrClosed        = errors.New("rate limiter closed")
)

// Tier is one quota budget.
type Tier struct {
	Name           string        `yaml:"name"`
	Capacity       int           `yaml:"capacity"`        // Max units per rolling RefillInterval
	RefillAmount   int           `yaml:"refill_amount"`   // Tokens added every RefillInterval
	RefillInterval time.Duration `yaml:"refill_interval"` // Refill period and rolling window length
	MinSpacing     time.Duration `yaml:"min_spacing"`     // Minimum delay between admissions (0 = none)
	Weighted       bool          `yaml:"weighted"`        // Charge the declared cost (true) or 1 (false)
}

// Config configures a Limiter.
type Config struct {
	Tiers      []Tier `yaml:"tiers"`
	MaxBacklog int    `yaml:"max_backlog"` // Max queued callers before ErrQuotaExceeded
}

// DefaultConfig returns the Binance spot limits.
func DefaultConfig() Config {
	return Config{
		Tiers: []Tier{
			{
				Name:           "request_weight",
				Capacity:       6000,
				RefillAmount:   6000,
				RefillInterval: time.Minute,
				MinSpacing:     50 * time.Millisecond,
				Weighted:       true,
			},
			{
				Name:           "raw_requests",
				Capacity:       61000,
				RefillAmount:   61000,
				RefillInterval: 5 * time.Minute,
			},
		},
		MaxBacklog: 256,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if len(c.Tiers) == 0 {
		return errors.New("at least one tier is required")
	}
	if c.MaxBacklog < 1 {
		return fmt.Errorf("max_backlog must be >= 1, got %d", c.MaxBacklog)
	}
	for i, t := range c.Tiers {
		name := t.Name
		if name == "" {
			name = fmt.Sprintf("tiers[%d]", i)
		}
		if t.Capacity < 1 {
			return fmt.Errorf("%s.capacity must be >= 1", name)
		}
		if t.RefillAmount < 1 {
			return fmt.Errorf("%s.refill_amount must be >= 1", name)
		}
		if t.RefillInterval <= 0 {
			return fmt.Errorf("%s.refill_interval must be > 0", name)
		}
		if t.MinSpacing < 0 {
			return fmt.Errorf("%s.min_spacing must be >= 0", name)
		}
	}
	return nil
}

// Stats is a point-in-time view of the limiter.
type Stats struct {
	QueueDepth int         `json:"queue_depth"`
	Admitted   int64       `json:"admitted"`
	Rejected   int64       `json:"rejected"`
	Abandoned  int64       `json:"abandoned"`
	Tiers      []TierStats `json:"tiers"`
}

// TierStats is a point-in-time view of one tier.
type TierStats struct {
	Name       string `json:"name"`
	Tokens     int    `json:"tokens"`      // Tokens left in the bucket
	WindowUsed int    `json:"window_used"` // Units admitted within the trailing RefillInterval
	Capacity   int    `json:"capacity"`
}

// Clock abstracts time so admission can be driven by a simulated clock.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
