package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/portfolio-relay/internal/connection"
	"github.com/rickgao/portfolio-relay/internal/model"
	"github.com/rickgao/portfolio-relay/internal/ratelimit"
	"github.com/rickgao/portfolio-relay/internal/version"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// ErrorPageText is the only detail a failed page load reveals.
const ErrorPageText = "Error fetching data"

// SnapshotSource values the portfolio.
type SnapshotSource interface {
	ComputeSnapshot(ctx context.Context) (*model.PortfolioSnapshot, error)
	Quote() string
}

// SessionHandler accepts WebSocket clients.
type SessionHandler interface {
	http.Handler
	Stats() connection.ManagerStats
}

// LimiterStats reports rate limiter usage.
type LimiterStats interface {
	Stats() ratelimit.Stats
}

// Config configures the Server.
type Config struct {
	ClientWSURL string // Injected into the page; empty means same host, /ws
	StaticDir   string // Served at / for paths the router does not own; empty disables
}

// Server routes HTTP requests.
type Server struct {
	cfg       Config
	snapshots SnapshotSource
	sessions  SessionHandler
	limiter   LimiterStats
	logger    *slog.Logger
	page      *template.Template
	started   time.Time
}

// NewServer creates the HTTP surface. limiter may be nil.
func NewServer(cfg Config, snapshots SnapshotSource, sessions SessionHandler, limiter LimiterStats, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	page, err := template.ParseFS(templateFS, "templates/index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}

	return &Server{
		cfg:       cfg,
		snapshots: snapshots,
		sessions:  sessions,
		limiter:   limiter,
		logger:    logger,
		page:      page,
		started:   time.Now(),
	}, nil
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /ws", s.sessions)
	mux.HandleFunc("GET /health", s.handleHealth)

	if s.cfg.StaticDir != "" {
		if info, err := os.Stat(s.cfg.StaticDir); err == nil && info.IsDir() {
			mux.Handle("GET /", http.FileServer(http.Dir(s.cfg.StaticDir)))
		} else {
			s.logger.Warn("static directory not found, static files disabled", "dir", s.cfg.StaticDir)
		}
	}

	return s.logRequests(mux)
}

// pageRow is one table row of the portfolio page.
type pageRow struct {
	Coin     string
	Quantity string
	Value    string
}

type pageData struct {
	Quote string
	Rows  []pageRow
	Total string
	WSURL string
}

// handleIndex renders the page from a fresh snapshot. Upgrade requests on /
// are handed to the session handler.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.sessions.ServeHTTP(w, r)
		return
	}

	snap, err := s.snapshots.ComputeSnapshot(r.Context())
	if err != nil {
		s.logger.Error("failed to compute snapshot for page", "error", err)
		http.Error(w, ErrorPageText, http.StatusInternalServerError)
		return
	}

	data := pageData{
		Quote: snap.Quote,
		Total: snap.TotalValue.StringFixed(model.ValuePlaces),
		WSURL: s.cfg.ClientWSURL,
	}
	for _, v := range snap.Ordered() {
		data.Rows = append(data.Rows, pageRow{
			Coin:     v.Asset,
			Quantity: v.Quantity.StringFixed(model.QuantityPlaces),
			Value:    v.QuoteEquivalent.StringFixed(model.ValuePlaces),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		s.logger.Error("failed to render page", "error", err)
	}
}

// healthReport is the /health response body.
type healthReport struct {
	Status   string                  `json:"status"`
	Version  string                  `json:"version"`
	Uptime   string                  `json:"uptime"`
	Quote    string                  `json:"quote"`
	Sessions connection.ManagerStats `json:"sessions"`
	Limiter  *ratelimit.Stats        `json:"limiter,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := healthReport{
		Status:   "ok",
		Version:  version.String(),
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Quote:    s.snapshots.Quote(),
		Sessions: s.sessions.Stats(),
	}
	if s.limiter != nil {
		stats := s.limiter.Stats()
		report.Limiter = &stats
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.logger.Debug("failed to write health report", "error", err)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

// HTTPServer wraps the router in an http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
}
