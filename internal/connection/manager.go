package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Manager owns browser client sessions. Each session gets its own upstream
// feed and bridge; nothing is shared between sessions.
type Manager interface {
	// ServeHTTP upgrades the request to a WebSocket and starts a session.
	http.Handler

	// OnConnect starts a session on an already upgraded connection.
	OnConnect(conn *websocket.Conn) (*Session, error)

	// OnDisconnect tears a session down. Safe to call any number of times;
	// the upstream feed is closed exactly once.
	OnDisconnect(s *Session)

	// Stats returns current session statistics.
	Stats() ManagerStats

	// Stop disconnects every session and waits for their goroutines.
	Stop(ctx context.Context) error
}

// ManagerOption configures a Manager.
type ManagerOption func(*manager)

// WithFeedFactory replaces how upstream feed clients are built.
func WithFeedFactory(f FeedFactory) ManagerOption {
	return func(m *manager) {
		m.newFeed = f
	}
}

// manager implements the Manager interface.
type manager struct {
	cfg      ManagerConfig
	newFeed  FeedFactory
	newRelay BridgeFactory
	upgrader websocket.Upgrader
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	stopped  bool

	opened atomic.Int64
	closed atomic.Int64
}

// NewManager creates a new Connection Manager.
func NewManager(cfg ManagerConfig, factory BridgeFactory, logger *slog.Logger, opts ...ManagerOption) Manager {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultManagerConfig()
	if cfg.ClientPingEvery <= 0 {
		cfg.ClientPingEvery = def.ClientPingEvery
	}
	if cfg.ClientPongWait <= 0 {
		cfg.ClientPongWait = def.ClientPongWait
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = def.ReadLimit
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &manager{
		cfg:      cfg,
		newRelay: factory,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[uuid.UUID]*Session),
	}
	m.newFeed = func(s *Session) Client {
		return NewClient(m.cfg.Upstream, s.Logger())
	}
	m.upgrader = websocket.Upgrader{
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      m.checkOrigin,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *manager) checkOrigin(r *http.Request) bool {
	if len(m.cfg.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(m.cfg.AllowedOrigins, r.Header.Get("Origin"))
}

// ServeHTTP upgrades the connection and starts a session.
func (m *manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	stopped := m.stopped
	m.mu.RUnlock()
	if stopped {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		m.logger.Debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	if _, err := m.OnConnect(conn); err != nil {
		m.logger.Warn("failed to start session", "remote", r.RemoteAddr, "error", err)
	}
}

// OnConnect registers a session, creates its feed and bridge, and starts the
// client read pump, the client pinger and the bridge.
func (m *manager) OnConnect(conn *websocket.Conn) (*Session, error) {
	s := newSession(m.ctx, conn, m.cfg.WriteTimeout, m.logger)
	s.feed = m.newFeed(s)

	relay, err := m.newRelay(s)
	if err != nil {
		s.cancel()
		s.feed.Close()
		conn.Close()
		return nil, fmt.Errorf("create bridge: %w", err)
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		s.cancel()
		s.feed.Close()
		conn.Close()
		return nil, ErrManagerStopped
	}
	m.sessions[s.ID] = s
	m.wg.Add(3)
	m.mu.Unlock()

	m.opened.Add(1)
	s.logger.Info("client connected", "remote", conn.RemoteAddr().String())

	go m.readPump(s)
	go m.pingLoop(s)
	go m.runBridge(s, relay)

	return s, nil
}

// OnDisconnect tears the session down once.
func (m *manager) OnDisconnect(s *Session) {
	s.closeOnce.Do(func() {
		s.cancel()

		if err := s.feed.Close(); err != nil {
			s.logger.Debug("error closing upstream feed", "error", err)
		}

		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.conn.Close()

		m.mu.Lock()
		delete(m.sessions, s.ID)
		m.mu.Unlock()

		m.closed.Add(1)
		s.logger.Info("client disconnected", "duration", time.Since(s.OpenedAt).Round(time.Millisecond))
	})
}

// Stats returns current statistics.
func (m *manager) Stats() ManagerStats {
	m.mu.RLock()
	active := len(m.sessions)
	m.mu.RUnlock()

	return ManagerStats{
		ActiveSessions: active,
		TotalOpened:    m.opened.Load(),
		TotalClosed:    m.closed.Load(),
	}
}

// Stop gracefully shuts down.
func (m *manager) Stop(ctx context.Context) error {
	m.logger.Info("stopping connection manager")

	m.mu.Lock()
	m.stopped = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	m.cancel()
	for _, s := range sessions {
		m.OnDisconnect(s)
	}

	// Wait for goroutines with timeout
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, sessions still draining")
		return ctx.Err()
	}

	m.logger.Info("connection manager stopped", "sessions_closed", len(sessions))
	return nil
}

// readPump reads (and discards) client frames so close and pong frames are
// processed. A read error means the client is gone.
func (m *manager) readPump(s *Session) {
	defer m.wg.Done()
	defer m.OnDisconnect(s)

	conn := s.conn
	conn.SetReadLimit(m.cfg.ReadLimit)
	conn.SetReadDeadline(time.Now().Add(m.cfg.ClientPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(m.cfg.ClientPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if s.ctx.Err() == nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Warn("client connection lost", "error", err)
				} else {
					s.logger.Debug("client closed connection", "error", err)
				}
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(m.cfg.ClientPongWait))
	}
}

// pingLoop keeps the client connection alive.
func (m *manager) pingLoop(s *Session) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.ClientPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.ping(); err != nil {
				s.logger.Debug("failed to ping client", "error", err)
				m.OnDisconnect(s)
				return
			}
		}
	}
}

// runBridge runs the session's bridge; when it ends, so does the session.
func (m *manager) runBridge(s *Session, relay Bridge) {
	defer m.wg.Done()
	defer m.OnDisconnect(s)

	if err := relay.Run(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("bridge terminated", "error", err)
	}
}
