// Package bridge relays upstream market ticks to one client as portfolio
// updates.
//
// A Bridge consumes a single combined ticker stream. Every tick for a tracked
// asset triggers a full portfolio snapshot; the client then receives that
// asset's quantity, its quote-asset value and the portfolio total. Malformed
// or untracked ticks are dropped. When the stream fails the client gets one
// error message and the bridge closes. It never reconnects.
package bridge
