// Package cache implements the cache-aside layer that memoizes expensive or
// rate-limited upstream calls: a dumb TTL store with pluggable backends and
// an orchestrator providing get-or-compute-and-store semantics on top.
package cache

import (
	"context"
	"time"

	dErrors "beacon/pkg/domain-errors"
)

// Entry is one cached value. ExpiresAt is advisory: the store returns
// entries regardless of expiry and the orchestrator decides freshness, so
// stores stay interchangeable dumb key/value media.
type Entry struct {
	Key       string
	Value     []byte
	ExpiresAt time.Time
}

// Fresh reports whether the entry is still usable at the given instant.
func (e Entry) Fresh(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// ErrNotFound keeps absent-key lookups consistent across backends. Stores
// wrap it so errors.Is works; anything else from Get/Put means the backend
// itself is unhealthy.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "cache entry not found")

// Store is the backing key/value medium. Put is last-write-wins per key;
// there is no delete and no background sweep. Growth is bounded only by the
// backend's own retention policy.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Put(ctx context.Context, key string, value []byte, expiresAt time.Time) error
}
