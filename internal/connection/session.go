package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Session is one browser client and the upstream feed opened on its behalf.
type Session struct {
	ID       uuid.UUID
	OpenedAt time.Time

	conn         *websocket.Conn
	feed         Client
	writeTimeout time.Duration
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newSession(parent context.Context, conn *websocket.Conn, writeTimeout time.Duration, logger *slog.Logger) *Session {
	id := uuid.New()
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		ID:           id,
		OpenedAt:     time.Now(),
		conn:         conn,
		writeTimeout: writeTimeout,
		logger:       logger.With("session", id.String()),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Context is cancelled when the session is torn down.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Feed returns the session's upstream stream client.
func (s *Session) Feed() Client {
	return s.feed
}

// Logger returns a logger tagged with the session ID.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// Send writes v to the client as one JSON text frame.
func (s *Session) Send(v any) error {
	if err := s.ctx.Err(); err != nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	return s.conn.WriteJSON(v)
}

// ping sends a control ping. WriteControl may run alongside Send.
func (s *Session) ping() error {
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout))
}
