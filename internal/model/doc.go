// Package model defines shared data types used across the portfolio relay.
//
// Conventions:
//   - Quantities and prices: shopspring decimal, full precision, never float64
//   - Asset symbols: upper-case (e.g., "BTC", "USDT")
//   - Pair symbols: base followed by quote (e.g., "BTCUSDT")
//   - Rounding happens only when a value is formatted for a client
package model
