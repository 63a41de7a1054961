package connection

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrManagerStopped  = errors.New("connection manager stopped")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// Bridge drives one session's relay until the session ends or the upstream
// stream fails. Run must return once ctx is cancelled.
type Bridge interface {
	Run(ctx context.Context) error
}

// BridgeFactory builds the bridge for a newly connected session. The session
// carries the upstream feed and the client sink the bridge should use.
type BridgeFactory func(s *Session) (Bridge, error)

// FeedFactory builds the upstream feed client for a session.
type FeedFactory func(s *Session) Client

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // Combined stream URL (e.g., wss://stream.binance.com:9443/stream?streams=btcusdt@ticker)
	PingInterval     time.Duration // How often we ping the server
	PingTimeout      time.Duration // Max time without ping/pong before considering connection stale
	WriteTimeout     time.Duration // Write deadline for sends
	HandshakeTimeout time.Duration // Dial handshake deadline
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingInterval:     30 * time.Second,
		PingTimeout:      60 * time.Second,
		WriteTimeout:     5 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		BufferSize:       256,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	Upstream        ClientConfig  // Template for every session's upstream feed
	ClientPingEvery time.Duration // Ping interval towards browser clients
	ClientPongWait  time.Duration // Read deadline extended by each client pong
	WriteTimeout    time.Duration // Write deadline for client sends
	ReadLimit       int64         // Max inbound client frame size
	AllowedOrigins  []string      // Empty allows any origin
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Upstream:        DefaultClientConfig(),
		ClientPingEvery: 30 * time.Second,
		ClientPongWait:  60 * time.Second,
		WriteTimeout:    5 * time.Second,
		ReadLimit:       4096,
	}
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	ActiveSessions int   `json:"active_sessions"`
	TotalOpened    int64 `json:"total_opened"`
	TotalClosed    int64 `json:"total_closed"`
}

// CombinedStreamURL joins stream names onto a combined-stream endpoint:
// base + "/stream?streams=a/b/c".
func CombinedStreamURL(base string, streams []string) string {
	return strings.TrimRight(base, "/") + "/stream?streams=" + strings.Join(streams, "/")
}
