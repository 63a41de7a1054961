// Package api provides the Binance spot REST client.
//
// REST endpoints:
//   - Production: https://api.binance.com
//   - Testnet: https://testnet.binance.vision
//
// Endpoints used: /api/v3/ping, /api/v3/account (signed), /api/v3/ticker/price
//
// The client never retries and never waits on a quota; callers admit every
// request through the shared rate limiter using the declared Weight* values.
package api
