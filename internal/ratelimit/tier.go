package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// grant is one admission recorded in a tier's rolling window.
type grant struct {
	at    time.Time
	units int
}

// tier tracks the state of one budget. Not safe for concurrent use; the
// Limiter serializes access.
type tier struct {
	cfg Tier

	tokens     int
	nextRefill time.Time

	window     []grant
	windowUsed int

	spacing *rate.Limiter // nil when MinSpacing is 0
}

func newTier(cfg Tier, now time.Time) *tier {
	t := &tier{
		cfg:        cfg,
		tokens:     cfg.Capacity,
		nextRefill: now.Add(cfg.RefillInterval),
	}
	if cfg.MinSpacing > 0 {
		t.spacing = rate.NewLimiter(rate.Every(cfg.MinSpacing), 1)
	}
	return t
}

// units returns what an admission of the given cost is charged on this tier.
func (t *tier) units(cost int) int {
	if t.cfg.Weighted {
		return cost
	}
	return 1
}

// advance applies refills due by now and drops grants that left the window.
func (t *tier) advance(now time.Time) {
	if !now.Before(t.nextRefill) {
		steps := int64(now.Sub(t.nextRefill)/t.cfg.RefillInterval) + 1
		add := int64(t.cfg.RefillAmount) * steps
		if add > int64(t.cfg.Capacity) {
			add = int64(t.cfg.Capacity)
		}
		t.tokens = min(t.cfg.Capacity, t.tokens+int(add))
		t.nextRefill = t.nextRefill.Add(time.Duration(steps) * t.cfg.RefillInterval)
	}

	drop := 0
	for _, g := range t.window {
		if now.Sub(g.at) < t.cfg.RefillInterval {
			break
		}
		t.windowUsed -= g.units
		drop++
	}
	if drop > 0 {
		t.window = t.window[drop:]
	}
}

// delay returns how long until an admission of cost could proceed. Zero means
// it can proceed now. advance must have been called with the same now.
func (t *tier) delay(now time.Time, cost int) time.Duration {
	u := t.units(cost)
	var d time.Duration

	if t.tokens < u {
		d = max(d, t.nextRefill.Sub(now))
	}

	if t.windowUsed+u > t.cfg.Capacity {
		need := t.windowUsed + u - t.cfg.Capacity
		freed := 0
		for _, g := range t.window {
			freed += g.units
			if freed >= need {
				d = max(d, g.at.Add(t.cfg.RefillInterval).Sub(now))
				break
			}
		}
	}

	if t.spacing != nil {
		if tokens := t.spacing.TokensAt(now); tokens < 1 {
			wait := time.Duration((1 - tokens) * float64(t.cfg.MinSpacing))
			d = max(d, wait, time.Nanosecond)
		}
	}

	return d
}

// take charges an admission of cost at now.
func (t *tier) take(now time.Time, cost int) {
	u := t.units(cost)
	t.tokens -= u
	t.window = append(t.window, grant{at: now, units: u})
	t.windowUsed += u
	if t.spacing != nil {
		t.spacing.AllowN(now, 1)
	}
}

func (t *tier) stats() TierStats {
	return TierStats{
		Name:       t.cfg.Name,
		Tokens:     t.tokens,
		WindowUsed: t.windowUsed,
		Capacity:   t.cfg.Capacity,
	}
}
