package config

import (
	"time"

	"github.com/rickgao/portfolio-relay/internal/ratelimit"
)

// Config is the root configuration for the relay.
type Config struct {
	API       APIConfig        `yaml:"api"`
	Portfolio PortfolioConfig  `yaml:"portfolio"`
	Server    ServerConfig     `yaml:"server"`
	RateLimit ratelimit.Config `yaml:"ratelimit"`
	Stream    StreamConfig     `yaml:"stream"`
	Log       LogConfig        `yaml:"log"`
}

// APIConfig holds exchange API settings.
type APIConfig struct {
	RestURL    string        `yaml:"rest_url"`
	WSURL      string        `yaml:"ws_url"`     // Stream host; "/stream?streams=..." is appended
	APIKey     string        `yaml:"api_key"`    // Sent as X-MBX-APIKEY
	APISecret  string        `yaml:"api_secret"` // HMAC-SHA256 signing secret
	Timeout    time.Duration `yaml:"timeout"`
	RecvWindow time.Duration `yaml:"recv_window"` // 0 = exchange default
}

// PortfolioConfig lists what to value and in which currency.
type PortfolioConfig struct {
	Assets []string `yaml:"assets"`
	Quote  string   `yaml:"quote"`
}

// ServerConfig holds the HTTP/WebSocket server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ClientWSURL     string        `yaml:"client_ws_url"` // URL the page's script connects to; empty = same host
	StaticDir       string        `yaml:"static_dir"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StreamConfig holds per-session upstream stream settings.
type StreamConfig struct {
	BufferSize   int           `yaml:"buffer_size"`
	Coalesce     bool          `yaml:"coalesce"`
	PingInterval time.Duration `yaml:"ping_interval"`
	PingTimeout  time.Duration `yaml:"ping_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
