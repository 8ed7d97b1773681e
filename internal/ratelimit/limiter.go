// Package ratelimit gates inbound generation traffic per client key using a
// fixed 60-second window. The default backend is a process-local map; a
// Redis backend implements the same interface for multi-instance
// deployments.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter admits or denies a request for a client key. Implementations are
// constructed once at process start and passed to the middleware.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
