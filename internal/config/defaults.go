package config

import (
	"time"

	"github.com/rickgao/portfolio-relay/internal/ratelimit"
)

// Default values for optional configuration fields.
const (
	DefaultRestURL         = "https://testnet.binance.vision"
	DefaultWSURL           = "wss://stream.testnet.binance.vision"
	DefaultAPITimeout      = 10 * time.Second
	DefaultQuote           = "USDT"
	DefaultPort            = 3000
	DefaultStaticDir       = "public"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBufferSize      = 256
	DefaultPingInterval    = 30 * time.Second
	DefaultPingTimeout     = 60 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// DefaultAssets is the tracked set when none is configured.
var DefaultAssets = []string{"AI", "BTC", "MANA", "USDT"}

func (c *Config) applyDefaults() {
	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.WSURL == "" {
		c.API.WSURL = DefaultWSURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}

	// Portfolio defaults
	if len(c.Portfolio.Assets) == 0 {
		c.Portfolio.Assets = append([]string(nil), DefaultAssets...)
	}
	if c.Portfolio.Quote == "" {
		c.Portfolio.Quote = DefaultQuote
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.StaticDir == "" {
		c.Server.StaticDir = DefaultStaticDir
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Rate limit defaults: all or nothing per section
	def := ratelimit.DefaultConfig()
	if len(c.RateLimit.Tiers) == 0 {
		c.RateLimit.Tiers = def.Tiers
	}
	if c.RateLimit.MaxBacklog == 0 {
		c.RateLimit.MaxBacklog = def.MaxBacklog
	}

	// Stream defaults
	if c.Stream.BufferSize == 0 {
		c.Stream.BufferSize = DefaultBufferSize
	}
	if c.Stream.PingInterval == 0 {
		c.Stream.PingInterval = DefaultPingInterval
	}
	if c.Stream.PingTimeout == 0 {
		c.Stream.PingTimeout = DefaultPingTimeout
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}
