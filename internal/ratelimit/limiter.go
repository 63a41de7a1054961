package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// waiter is one queued admission.
type waiter struct {
	cost       int
	enqueuedAt time.Time
	ready      chan struct{} // closed on admission or failure
	err        error         // set before ready is closed
	abandoned  bool          // caller stopped waiting
	admittedAt time.Time
}

// Limiter admits work under every configured tier. Safe for concurrent use.
type Limiter struct {
	cfg    Config
	clock  Clock
	logger *slog.Logger

	mu     sync.Mutex
	tiers  []*tier
	queue  []*waiter
	closed bool

	admitted  int64
	rejected  int64
	abandoned int64

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock sets the clock used for admission decisions.
func WithClock(c Clock) Option {
	return func(l *Limiter) {
		l.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// New creates a Limiter and starts its dispatcher. Call Close to stop it.
func New(cfg Config, opts ...Option) (*Limiter, error) {
	l, err := newLimiter(cfg, opts...)
	if err != nil {
		return nil, err
	}

	l.wg.Add(1)
	go l.run()

	return l, nil
}

func newLimiter(cfg Config, opts ...Option) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("rate limiter config: %w", err)
	}

	l := &Limiter{
		cfg:    cfg,
		clock:  realClock{},
		logger: slog.Default(),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	now := l.clock.Now()
	for _, t := range cfg.Tiers {
		l.tiers = append(l.tiers, newTier(t, now))
	}

	return l, nil
}

// Schedule blocks until a request of the given cost is admitted by every tier,
// then returns nil. Costs below 1 are charged as 1.
//
// If ctx ends first, Schedule returns ctx.Err() but the request keeps its
// place in the queue and is still charged when it reaches the head.
func (l *Limiter) Schedule(ctx context.Context, cost int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w, err := l.enqueue(cost)
	if err != nil {
		return err
	}

	select {
	case <-w.ready:
		return w.err
	default:
	}

	l.signal()

	select {
	case <-w.ready:
		return w.err
	case <-ctx.Done():
		l.mu.Lock()
		select {
		case <-w.ready:
			// Admitted while we were cancelled; the charge stands either way.
		default:
			w.abandoned = true
		}
		l.mu.Unlock()
		return ctx.Err()
	}
}

// Stats returns a snapshot of queue depth and tier usage.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	s := Stats{
		QueueDepth: len(l.queue),
		Admitted:   l.admitted,
		Rejected:   l.rejected,
		Abandoned:  l.abandoned,
	}
	for _, t := range l.tiers {
		t.advance(now)
		s.Tiers = append(s.Tiers, t.stats())
	}
	return s
}

// Close stops the dispatcher and fails every queued request with ErrClosed.
func (l *Limiter) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	for _, w := range l.queue {
		w.err = ErrClosed
		close(w.ready)
	}
	l.queue = nil
	l.mu.Unlock()

	close(l.done)
	l.wg.Wait()
	return nil
}

// enqueue validates and queues a request, admitting it immediately when the
// queue is empty and every tier allows it.
func (l *Limiter) enqueue(cost int) (*waiter, error) {
	if cost < 1 {
		cost = 1
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}
	for _, t := range l.tiers {
		if t.units(cost) > t.cfg.Capacity {
			return nil, fmt.Errorf("%w: cost %d, %s capacity %d", ErrCostTooLarge, cost, t.cfg.Name, t.cfg.Capacity)
		}
	}
	if len(l.queue) >= l.cfg.MaxBacklog {
		l.rejected++
		l.logger.Warn("rate limit backlog full, rejecting request",
			"cost", cost,
			"backlog", len(l.queue),
		)
		return nil, ErrQuotaExceeded
	}

	now := l.clock.Now()
	w := &waiter{
		cost:       cost,
		enqueuedAt: now,
		ready:      make(chan struct{}),
	}
	l.queue = append(l.queue, w)
	l.dispatch(now)

	return w, nil
}

// dispatch admits queued requests in order until the head cannot proceed.
// It returns how long until the head may proceed and whether anything is
// still queued. l.mu must be held.
func (l *Limiter) dispatch(now time.Time) (time.Duration, bool) {
	for len(l.queue) > 0 {
		head := l.queue[0]

		var wait time.Duration
		for _, t := range l.tiers {
			t.advance(now)
			wait = max(wait, t.delay(now, head.cost))
		}
		if wait > 0 {
			return wait, true
		}

		for _, t := range l.tiers {
			t.take(now, head.cost)
		}
		l.queue[0] = nil
		l.queue = l.queue[1:]

		head.admittedAt = now
		l.admitted++
		if head.abandoned {
			l.abandoned++
			l.logger.Debug("admitted abandoned request",
				"cost", head.cost,
				"queued_for", now.Sub(head.enqueuedAt),
			)
		}
		close(head.ready)
	}
	return 0, false
}

// signal wakes the dispatcher without blocking.
func (l *Limiter) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// run re-evaluates the queue whenever a request arrives or the head's wait
// elapses.
func (l *Limiter) run() {
	defer l.wg.Done()

	for {
		l.mu.Lock()
		wait, pending := l.dispatch(l.clock.Now())
		l.mu.Unlock()

		var timer <-chan time.Time
		if pending {
			timer = l.clock.After(wait)
		}

		select {
		case <-l.done:
			return
		case <-l.wake:
		case <-timer:
		}
	}
}
