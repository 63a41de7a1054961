package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Display precision for client-facing values.
const (
	QuantityPlaces = 6
	ValuePlaces    = 2
)

// -----------------------------------------------------------------------------
// Exchange Types
// -----------------------------------------------------------------------------

// Balance is the quantity of one asset held in the account.
type Balance struct {
	Asset  string          // Asset symbol (e.g., "BTC")
	Free   decimal.Decimal // Available quantity
	Locked decimal.Decimal // Quantity held by open orders (not valued)
}

// PriceQuote is the latest trade price for a base/quote pair.
type PriceQuote struct {
	Base  string          // Base asset (e.g., "BTC")
	Quote string          // Quote asset (e.g., "USDT")
	Price decimal.Decimal // Price of one base unit in quote units
}

// Symbol returns the exchange pair symbol (e.g., "BTCUSDT").
func (q PriceQuote) Symbol() string {
	return PairSymbol(q.Base, q.Quote)
}

// PairSymbol joins a base and quote asset into an exchange pair symbol.
func PairSymbol(base, quote string) string {
	return strings.ToUpper(base) + strings.ToUpper(quote)
}

// -----------------------------------------------------------------------------
// Portfolio Types
// -----------------------------------------------------------------------------

// AssetValuation is one tracked asset expressed in the quote asset.
type AssetValuation struct {
	Asset           string
	Quantity        decimal.Decimal
	QuoteEquivalent decimal.Decimal
}

// PortfolioSnapshot is one complete valuation of every tracked asset.
//
// Valuations holds exactly the tracked assets; assets missing from the account
// are zero-filled. TotalValue is the sum of every QuoteEquivalent.
type PortfolioSnapshot struct {
	Quote      string                    // Quote asset all values are expressed in
	Assets     []string                  // Tracked assets in configured order
	Valuations map[string]AssetValuation // Asset → valuation
	TotalValue decimal.Decimal
	Timestamp  time.Time
}

// Valuation returns the valuation for an asset.
func (s *PortfolioSnapshot) Valuation(asset string) (AssetValuation, bool) {
	v, ok := s.Valuations[strings.ToUpper(asset)]
	return v, ok
}

// Ordered returns the valuations in tracked-asset order.
func (s *PortfolioSnapshot) Ordered() []AssetValuation {
	out := make([]AssetValuation, 0, len(s.Assets))
	for _, asset := range s.Assets {
		out = append(out, s.Valuations[asset])
	}
	return out
}

// -----------------------------------------------------------------------------
// Client Messages
// -----------------------------------------------------------------------------

// AssetUpdate is pushed to a client after every upstream tick.
type AssetUpdate struct {
	Coin           string `json:"coin"`
	Quantity       string `json:"quantity"`
	USDTEquivalent string `json:"usdtEquivalent"`
	TotalValue     string `json:"totalValue"`
}

// ErrorMessage is pushed to a client when an update cannot be produced.
type ErrorMessage struct {
	Error string `json:"error"`
}

// NewAssetUpdate formats one asset of a snapshot for a client.
func NewAssetUpdate(s *PortfolioSnapshot, asset string) (AssetUpdate, bool) {
	v, ok := s.Valuation(asset)
	if !ok {
		return AssetUpdate{}, false
	}
	return AssetUpdate{
		Coin:           strings.ToUpper(v.Asset),
		Quantity:       v.Quantity.StringFixed(QuantityPlaces),
		USDTEquivalent: v.QuoteEquivalent.StringFixed(ValuePlaces),
		TotalValue:     s.TotalValue.StringFixed(ValuePlaces),
	}, true
}
