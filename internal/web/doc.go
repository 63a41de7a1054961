// Package web serves the relay's HTTP surface: the portfolio page, the
// WebSocket endpoint, a health report and static assets.
package web
