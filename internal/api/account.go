package api

import (
	"context"
	"fmt"
)

// Ping checks connectivity to the REST API.
func (c *Client) Ping(ctx context.Context) error {
	var resp struct{}
	if err := c.get(ctx, "/api/v3/ping", nil, &resp); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// GetAccount fetches the signed account information including balances.
func (c *Client) GetAccount(ctx context.Context) (*AccountResponse, error) {
	var resp AccountResponse
	if err := c.getSigned(ctx, "/api/v3/account", nil, &resp); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &resp, nil
}
