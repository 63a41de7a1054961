// Package portfolio computes point-in-time portfolio snapshots.
//
// One snapshot costs one signed account call plus one price call per tracked
// asset other than the quote asset, each admitted through the shared rate
// limiter. Any failed call invalidates the whole snapshot; there are no
// partial results.
package portfolio
