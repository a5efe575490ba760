package repository

import (
	"context"
	"time"
)

// StateStore holds short-lived session state such as live refresh-token ids.
// Backends: Redis for multi-instance deployments, in-memory for a single process.
type StateStore interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	// Take returns the value and removes the key in one step, so two callers
	// racing on the same key cannot both observe it.
	Take(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
}

// RefreshTokenKey is the StateStore key under which a refresh token id is kept alive.
func RefreshTokenKey(jti string) string {
	return "refresh:" + jti
}
