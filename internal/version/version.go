// Package version provides build-time version information.
//
// Variables are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/rickgao/portfolio-relay/internal/version.Version=1.0.0 \
//	                   -X github.com/rickgao/portfolio-relay/internal/version.Commit=$(git rev-parse --short HEAD)" \
//	    ./cmd/relay
package version

// Build-time variables (set via ldflags)
var (
	Version = "dev"
	Commit  = "unknown"
)

// Product is the name reported to upstream services.
const Product = "portfolio-relay"

// String returns a formatted version string.
func String() string {
	return Version + " (" + Commit + ")"
}

// UserAgent returns the User-Agent sent on outbound REST requests.
func UserAgent() string {
	return Product + "/" + Version
}
