package api

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// GetTickerPrice fetches the latest price for one symbol (e.g., "BTCUSDT").
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (*TickerPriceResponse, error) {
	query := url.Values{}
	query.Set("symbol", strings.ToUpper(symbol))

	var resp TickerPriceResponse
	if err := c.get(ctx, "/api/v3/ticker/price", query, &resp); err != nil {
		return nil, fmt.Errorf("get ticker price %s: %w", symbol, err)
	}
	return &resp, nil
}
