package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rickgao/portfolio-relay/internal/model"
)

var (
	ErrMissingPrice     = errors.New("price missing")
	ErrNonPositivePrice = errors.New("price must be positive")
)

// ParseDecimal parses an exchange decimal string. Empty input is zero.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d, nil
}

// ToBalances converts the account balances to model balances keyed by asset.
// When the exchange reports an asset twice the last entry wins.
func (r *AccountResponse) ToBalances() (map[string]model.Balance, error) {
	out := make(map[string]model.Balance, len(r.Balances))
	for _, b := range r.Balances {
		free, err := ParseDecimal(b.Free)
		if err != nil {
			return nil, fmt.Errorf("balance %s free: %w", b.Asset, err)
		}
		locked, err := ParseDecimal(b.Locked)
		if err != nil {
			return nil, fmt.Errorf("balance %s locked: %w", b.Asset, err)
		}
		asset := strings.ToUpper(b.Asset)
		out[asset] = model.Balance{
			Asset:  asset,
			Free:   free,
			Locked: locked,
		}
	}
	return out, nil
}

// ToPriceQuote converts a ticker price to a model quote for base/quote.
// Unlike balances, a missing or non-positive price is an error.
func (r *TickerPriceResponse) ToPriceQuote(base, quote string) (model.PriceQuote, error) {
	if strings.TrimSpace(r.Price) == "" {
		return model.PriceQuote{}, fmt.Errorf("ticker %s price: %w", r.Symbol, ErrMissingPrice)
	}
	price, err := ParseDecimal(r.Price)
	if err != nil {
		return model.PriceQuote{}, fmt.Errorf("ticker %s price: %w", r.Symbol, err)
	}
	if !price.IsPositive() {
		return model.PriceQuote{}, fmt.Errorf("ticker %s price %s: %w", r.Symbol, r.Price, ErrNonPositivePrice)
	}
	return model.PriceQuote{
		Base:  strings.ToUpper(base),
		Quote: strings.ToUpper(quote),
		Price: price,
	}, nil
}
