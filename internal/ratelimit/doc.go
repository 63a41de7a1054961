// Package ratelimit implements the shared exchange quota.
//
// One Limiter is constructed at process start and handed to every component
// that talks to the exchange REST API. Each admission must be allowed by every
// tier at once:
//   - request_weight: weighted budget, charged the declared request weight
//   - raw_requests: raw count budget, charged 1 per request
//
// A tier is a discrete token bucket (Capacity tokens, +RefillAmount every
// RefillInterval) that additionally never admits more than Capacity units
// within any rolling RefillInterval, plus an optional minimum spacing between
// admissions.
//
// Waiters are served strictly FIFO across all callers. The backlog is bounded;
// a full backlog rejects immediately with ErrQuotaExceeded. A caller that gives
// up keeps its place: its request is still charged when it reaches the head.
package ratelimit
