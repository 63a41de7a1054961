package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.API.APIKey == "" {
		return errors.New("api.api_key is required (or set BINANCE_API_KEY)")
	}
	if c.API.APISecret == "" {
		return errors.New("api.api_secret is required (or set BINANCE_API_SECRET)")
	}
	if err := validateURL("api.rest_url", c.API.RestURL, "http", "https"); err != nil {
		return err
	}
	if err := validateURL("api.ws_url", c.API.WSURL, "ws", "wss"); err != nil {
		return err
	}
	if c.API.Timeout < 0 {
		return errors.New("api.timeout must be >= 0")
	}
	if c.API.RecvWindow < 0 || c.API.RecvWindow.Milliseconds() > 60000 {
		return errors.New("api.recv_window must be between 0 and 60s")
	}

	if len(c.Portfolio.Assets) == 0 {
		return errors.New("portfolio.assets must not be empty")
	}
	for _, a := range c.Portfolio.Assets {
		if strings.TrimSpace(a) == "" {
			return errors.New("portfolio.assets must not contain empty entries")
		}
	}
	if strings.TrimSpace(c.Portfolio.Quote) == "" {
		return errors.New("portfolio.quote is required")
	}
	if !slices.ContainsFunc(c.Portfolio.Assets, func(a string) bool {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(c.Portfolio.Quote))
	}) {
		return fmt.Errorf("portfolio.quote %q must be one of portfolio.assets", c.Portfolio.Quote)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.ClientWSURL != "" {
		if err := validateURL("server.client_ws_url", c.Server.ClientWSURL, "ws", "wss"); err != nil {
			return err
		}
	}

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("ratelimit: %w", err)
	}

	if c.Stream.BufferSize < 1 {
		return errors.New("stream.buffer_size must be >= 1")
	}
	if c.Stream.PingTimeout <= c.Stream.PingInterval {
		return errors.New("stream.ping_timeout must exceed stream.ping_interval")
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

func validateURL(field, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be an absolute %s URL, got %q", field, strings.Join(schemes, "/"), raw)
}
