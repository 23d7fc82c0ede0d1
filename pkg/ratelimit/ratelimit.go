// Package ratelimit implements the cooldown gate shared by every request and
// gateway command path. A (category, key) pair is admitted at most once per
// window: the first caller records the next-allowed time and later callers
// are blocked until it passes.
package ratelimit

import (
	"context"
	"time"
)

// Well-known categories.
const (
	CategoryLogin  = "login"
	CategorySignup = "signup"
	CategoryPost   = "post"
)

// Limiter is an atomic check-and-set cooldown gate.
type Limiter interface {
	// Check reports whether (category, key) is still cooling down. When it
	// is not, the next-allowed time is set to now+window in the same step.
	Check(ctx context.Context, category, key string, window time.Duration) (blocked bool, err error)
}

// Sweeper is implemented by limiters that hold state in process memory and
// need periodic pruning.
type Sweeper interface {
	Sweep() int
}
