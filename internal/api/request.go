package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rickgao/portfolio-relay/internal/auth"
)

// ErrNoCredentials is returned when a signed endpoint is called without credentials.
var ErrNoCredentials = errors.New("signed endpoint requires credentials")

// APIError represents a non-success response from the exchange.
type APIError struct {
	StatusCode int
	Code       int    // Exchange error code (e.g., -2015), 0 if absent
	Message    string // Exchange message, or the HTTP status text
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("binance api error %d (code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("binance api error %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited returns true if the exchange rejected the request for
// exceeding a quota (429) or has banned the caller for doing so (418).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusTeapot
}

// StatusOf returns the HTTP status carried by err, or 0 if there is none.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// doRequest performs an HTTP request with the given method and path.
func (c *Client) doRequest(ctx context.Context, method, path, rawQuery string, signed bool) ([]byte, error) {
	fullURL := c.baseURL + path
	if rawQuery != "" {
		fullURL += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if signed {
		req.Header.Set(auth.APIKeyHeader, c.creds.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
		var payload ErrorResponse
		if json.Unmarshal(body, &payload) == nil && payload.Msg != "" {
			apiErr.Code = payload.Code
			apiErr.Message = payload.Msg
		}
		return nil, apiErr
	}

	return body, nil
}

// get performs an unsigned GET request.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	body, err := c.doRequest(ctx, http.MethodGet, path, query.Encode(), false)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

// getSigned performs a GET request stamped with a timestamp and signature.
func (c *Client) getSigned(ctx context.Context, path string, query url.Values, result any) error {
	if c.creds == nil {
		return ErrNoCredentials
	}
	if query == nil {
		query = url.Values{}
	}
	if c.recvWindow > 0 {
		query.Set("recvWindow", strconv.FormatInt(c.recvWindow.Milliseconds(), 10))
	}

	body, err := c.doRequest(ctx, http.MethodGet, path, c.creds.SignQuery(query, c.now()), true)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
