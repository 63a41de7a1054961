// Package auth provides Binance API authentication using HMAC-SHA256 signatures.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"time"
)

// APIKeyHeader carries the API key on signed requests.
const APIKeyHeader = "X-MBX-APIKEY"

// Credentials holds the API key and secret for signing requests.
type Credentials struct {
	APIKey    string // Sent in the X-MBX-APIKEY header
	APISecret string // HMAC key, never sent
}

// NewCredentials validates and returns credentials.
func NewCredentials(apiKey, apiSecret string) (*Credentials, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}
	if apiSecret == "" {
		return nil, errors.New("API secret is required")
	}
	return &Credentials{APIKey: apiKey, APISecret: apiSecret}, nil
}

// Sign returns the hex-encoded HMAC-SHA256 of the payload.
func (c *Credentials) Sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.APISecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignQuery stamps the query with a millisecond timestamp and appends the
// signature of the encoded parameters. The returned string is ready to use as
// a raw query; signature must stay the last parameter.
func (c *Credentials) SignQuery(query url.Values, now time.Time) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set("timestamp", strconv.FormatInt(now.UnixMilli(), 10))

	payload := query.Encode()
	return payload + "&signature=" + c.Sign(payload)
}
