package portfolio

import "fmt"

// Stage identifies which upstream call failed.
type Stage string

const (
	StageBalances Stage = "balances"
	StagePrice    Stage = "price"
)

// UpstreamError reports a failed upstream call. Status is the HTTP status when
// the exchange answered, 429 when the local quota backlog was full, and 0 for
// transport failures.
type UpstreamError struct {
	Stage  Stage
	Asset  string // Set for StagePrice
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Asset != "" && e.Status != 0:
		return fmt.Sprintf("upstream %s %s failed with status %d: %v", e.Stage, e.Asset, e.Status, e.Err)
	case e.Asset != "":
		return fmt.Sprintf("upstream %s %s failed: %v", e.Stage, e.Asset, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("upstream %s failed with status %d: %v", e.Stage, e.Status, e.Err)
	default:
		return fmt.Sprintf("upstream %s failed: %v", e.Stage, e.Err)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsQuotaExceeded reports whether the call never left the process because the
// shared rate limiter backlog was full.
func (e *UpstreamError) IsQuotaExceeded() bool {
	return isQuotaErr(e.Err)
}
