package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/portfolio-relay/internal/auth"
	"github.com/rickgao/portfolio-relay/internal/version"
)

// Request weights as declared by the exchange for each endpoint.
const (
	WeightPing        = 1
	WeightAccount     = 20
	WeightTickerPrice = 2
)

// Client provides access to the Binance REST API.
type Client struct {
	baseURL    string
	creds      *auth.Credentials
	httpClient *http.Client
	logger     *slog.Logger
	userAgent  string
	recvWindow time.Duration

	now func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client. creds may be nil for clients that
// only call public endpoints.
func NewClient(baseURL string, creds *auth.Credentials, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		creds:   creds,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    slog.Default(),
		userAgent: version.UserAgent(),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRecvWindow sets the recvWindow sent on signed requests. Zero leaves the
// exchange default (5s).
func WithRecvWindow(d time.Duration) ClientOption {
	return func(c *Client) {
		c.recvWindow = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}
