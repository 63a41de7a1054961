package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MalformedMessageError is returned for a stream message that is not a
// ticker event.
type MalformedMessageError struct {
	Reason string
	Raw    []byte
	Err    error
}

func (e *MalformedMessageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed stream message: %s: %v", e.Reason, e.Err)
	}
	return "malformed stream message: " + e.Reason
}

func (e *MalformedMessageError) Unwrap() error {
	return e.Err
}

// UpstreamStreamError means the upstream market stream could not be opened
// or failed while streaming.
type UpstreamStreamError struct {
	Op  string // "connect" or "read"
	Err error
}

func (e *UpstreamStreamError) Error() string {
	return fmt.Sprintf("upstream stream %s: %v", e.Op, e.Err)
}

func (e *UpstreamStreamError) Unwrap() error {
	return e.Err
}

// Tick is one 24h ticker event.
type Tick struct {
	Stream    string // e.g. "btcusdt@ticker"; empty for raw streams
	Symbol    string // upper-case pair, e.g. "BTCUSDT"
	EventTime time.Time
	LastPrice decimal.Decimal
}

// envelope wraps every message on a combined stream.
type envelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type tickerEvent struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	LastPrice string `json:"c"`
}

// ParseTick decodes a combined-stream ticker message. Bare ticker events
// (single-stream connections) are accepted too.
func ParseTick(data []byte) (Tick, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Tick{}, malformed("invalid json", data, err)
	}

	payload := []byte(env.Data)
	if len(payload) == 0 {
		payload = data
	}

	var ev tickerEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Tick{}, malformed("invalid ticker payload", data, err)
	}
	if ev.Symbol == "" {
		return Tick{}, malformed("missing symbol", data, nil)
	}

	tick := Tick{
		Stream: env.Stream,
		Symbol: strings.ToUpper(ev.Symbol),
	}
	if ev.EventTime > 0 {
		tick.EventTime = time.UnixMilli(ev.EventTime)
	}
	if ev.LastPrice != "" {
		price, err := decimal.NewFromString(ev.LastPrice)
		if err != nil {
			return Tick{}, malformed("invalid last price", data, err)
		}
		tick.LastPrice = price
	}

	return tick, nil
}

// StreamNames returns the ticker stream name for every non-quote asset,
// e.g. "btcusdt@ticker".
func StreamNames(assets []string, quote string) []string {
	quote = strings.ToLower(quote)
	names := make([]string, 0, len(assets))
	for _, asset := range assets {
		asset = strings.ToLower(asset)
		if asset == quote {
			continue
		}
		names = append(names, asset+quote+"@ticker")
	}
	return names
}

// IsMalformed reports whether err is a MalformedMessageError.
func IsMalformed(err error) bool {
	var m *MalformedMessageError
	return errors.As(err, &m)
}

const maxRawInError = 256

func malformed(reason string, data []byte, err error) *MalformedMessageError {
	raw := data
	if len(raw) > maxRawInError {
		raw = raw[:maxRawInError]
	}
	return &MalformedMessageError{
		Reason: reason,
		Raw:    append([]byte(nil), raw...),
		Err:    err,
	}
}
