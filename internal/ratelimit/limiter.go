// Package ratelimit gates report generation per caller identity. Two
// backends share one contract: an in-process fixed-window counter and a
// Postgres request log.
package ratelimit

import (
	"context"
	"time"
)

// Options selects the rule applied to one check.
type Options struct {
	Operation   string
	MaxRequests int
	Window      time.Duration
}

// Result is the outcome of a check. Remaining is never negative. Err is set
// when the backing store failed and the decision is the fail policy's.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	Err       error
}

// RetryAfter is the whole number of seconds until the window resets, at
// least one.
func (r Result) RetryAfter(now time.Time) int {
	d := r.ResetAt.Sub(now)
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

type Limiter interface {
	Check(ctx context.Context, identity string, opts Options) Result
}

func remaining(max, count int) int {
	if count >= max {
		return 0
	}
	return max - count
}
