// Package connection manages WebSocket connections on both sides of the relay.
//
// The Manager accepts browser clients. Each client is a Session with:
//   - its own upstream Client on the combined market stream
//   - one Bridge relaying that stream to the client
//   - a read pump and pinger that detect disconnects
//
// Whichever side ends first tears the whole session down, and the upstream
// stream is closed exactly once.
package connection
