package bridge

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/rickgao/portfolio-relay/internal/connection"
	"github.com/rickgao/portfolio-relay/internal/model"
	"github.com/rickgao/portfolio-relay/internal/portfolio"
)

// ErrAlreadyRunning is returned by a second call to Run.
var ErrAlreadyRunning = errors.New("bridge already running")

// Client-facing error texts. Internal details stay in the logs.
const (
	msgSnapshotFailed = "failed to compute portfolio value"
	msgQuotaExceeded  = "rate limit reached, update skipped"
	msgStreamFailed   = "market stream disconnected"
)

// Feed is the upstream ticker stream.
type Feed interface {
	Connect(ctx context.Context) error
	Messages() <-chan connection.TimestampedMessage
	Errors() <-chan error
}

// SnapshotSource values the portfolio.
type SnapshotSource interface {
	ComputeSnapshot(ctx context.Context) (*model.PortfolioSnapshot, error)
	IsTracked(asset string) bool
	Quote() string
}

// Sink delivers JSON messages to the client.
type Sink interface {
	Send(v any) error
}

// State is the lifecycle stage of a Bridge.
type State int32

const (
	StateConnecting State = iota
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config configures a Bridge.
type Config struct {
	// Coalesce serves every tick already queued when an update starts from
	// one snapshot, one message per distinct asset. Off means one full
	// snapshot per tick.
	Coalesce bool
}

// Stats counts what a Bridge did with the ticks it received.
type Stats struct {
	Ticks     int64 // messages received
	Malformed int64 // dropped as unparsable
	Ignored   int64 // dropped as untracked
	Snapshots int64 // snapshots computed
	Updates   int64 // asset updates sent
	Errors    int64 // error messages sent
}

// Bridge relays one upstream stream to one client.
type Bridge struct {
	cfg       Config
	feed      Feed
	snapshots SnapshotSource
	sink      Sink
	logger    *slog.Logger

	state   atomic.Int32
	running atomic.Bool

	ticks     atomic.Int64
	malformed atomic.Int64
	ignored   atomic.Int64
	computed  atomic.Int64
	updates   atomic.Int64
	failures  atomic.Int64
}

// New creates a Bridge in the Connecting state.
func New(cfg Config, feed Feed, snapshots SnapshotSource, sink Sink, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bridge{
		cfg:       cfg,
		feed:      feed,
		snapshots: snapshots,
		sink:      sink,
		logger:    logger,
	}
	b.state.Store(int32(StateConnecting))
	return b
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	return State(b.state.Load())
}

// Stats returns tick counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Ticks:     b.ticks.Load(),
		Malformed: b.malformed.Load(),
		Ignored:   b.ignored.Load(),
		Snapshots: b.computed.Load(),
		Updates:   b.updates.Load(),
		Errors:    b.failures.Load(),
	}
}

// Run opens the feed and relays ticks until ctx is cancelled or the stream
// fails. Cancellation returns nil. A stream failure is reported to the
// client once and returned as *UpstreamStreamError.
func (b *Bridge) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer b.state.Store(int32(StateClosed))

	if err := b.feed.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return b.fail(&UpstreamStreamError{Op: "connect", Err: err})
	}

	b.state.Store(int32(StateStreaming))
	b.logger.Info("bridge streaming")

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-b.feed.Errors():
			if ctx.Err() != nil {
				return nil
			}
			return b.fail(&UpstreamStreamError{Op: "read", Err: err})

		case msg := <-b.feed.Messages():
			b.handle(ctx, msg)
		}
	}
}

// fail sends the single terminal error message.
func (b *Bridge) fail(err *UpstreamStreamError) error {
	b.logger.Warn("upstream stream failed, closing bridge", "error", err)
	b.sendError(msgStreamFailed)
	return err
}

// handle serves one tick. A snapshot error is reported to the client as an
// {error} message but does not end the session; only a stream failure does.
func (b *Bridge) handle(ctx context.Context, msg connection.TimestampedMessage) {
	asset, ok := b.accept(msg)
	if !ok {
		return
	}

	assets := []string{asset}
	if b.cfg.Coalesce {
		assets = b.drain(assets)
	}

	snap, err := b.snapshots.ComputeSnapshot(ctx)
	if ctx.Err() != nil {
		// Session ended mid-aggregation; the result has nowhere to go.
		return
	}
	b.computed.Add(1)
	if err != nil {
		b.logger.Warn("snapshot failed", "asset", asset, "error", err)

		var upErr *portfolio.UpstreamError
		if errors.As(err, &upErr) && upErr.IsQuotaExceeded() {
			b.sendError(msgQuotaExceeded)
		} else {
			b.sendError(msgSnapshotFailed)
		}
		return
	}

	for _, a := range assets {
		update, ok := model.NewAssetUpdate(snap, a)
		if !ok {
			continue
		}
		if err := b.sink.Send(update); err != nil {
			b.logger.Debug("failed to send update", "asset", a, "error", err)
			return
		}
		b.updates.Add(1)
	}
}

// accept parses a message and maps it to a tracked asset.
func (b *Bridge) accept(msg connection.TimestampedMessage) (string, bool) {
	b.ticks.Add(1)

	tick, err := ParseTick(msg.Data)
	if err != nil {
		b.malformed.Add(1)
		b.logger.Warn("dropping malformed stream message", "error", err)
		return "", false
	}

	asset, ok := strings.CutSuffix(tick.Symbol, strings.ToUpper(b.snapshots.Quote()))
	if !ok || asset == "" || !b.snapshots.IsTracked(asset) {
		b.ignored.Add(1)
		b.logger.Debug("ignoring untracked tick", "symbol", tick.Symbol)
		return "", false
	}

	return asset, true
}

// drain collects the assets of every tick already waiting in the feed.
func (b *Bridge) drain(assets []string) []string {
	for {
		select {
		case msg := <-b.feed.Messages():
			asset, ok := b.accept(msg)
			if ok && !slices.Contains(assets, asset) {
				assets = append(assets, asset)
			}
		default:
			return assets
		}
	}
}

func (b *Bridge) sendError(text string) {
	b.failures.Add(1)
	if err := b.sink.Send(model.ErrorMessage{Error: text}); err != nil {
		b.logger.Debug("failed to send error message", "error", err)
	}
}
