// Package cache provides TTL memoization of classification verdicts over an
// external key-value store.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// VerdictTTL is how long a verdict stays cached. Long enough to avoid
// re-probing the reputation service on every request from the same client,
// short enough that a client's status can change within a bounded time.
const VerdictTTL = 300 * time.Second

// keyPrefix namespaces verdict keys so they never collide with unrelated
// users of a shared store.
const keyPrefix = "traffic:"

// Store is the external TTL key-value collaborator contract.
// Implementations must treat ttl <= 0 as "no expiry".
type Store interface {
	// Get returns the value for key, reporting whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores the value under key with the given time-to-live.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// VerdictCache memoizes fingerprint -> verdict over a Store.
//
// Failure semantics: a store read or write failure must never abort
// classification. Reads degrade to a miss and writes are dropped; either way
// the pipeline still produces a correct, if uncached, verdict.
type VerdictCache struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewVerdictCache creates a verdict cache over the given store.
func NewVerdictCache(store Store, logger *slog.Logger) *VerdictCache {
	return &VerdictCache{
		store:  store,
		ttl:    VerdictTTL,
		logger: logger,
	}
}

// Get looks up a cached verdict by fingerprint. A store failure is logged
// and reported as a miss.
func (c *VerdictCache) Get(ctx context.Context, fingerprint string) (string, bool) {
	value, ok, err := c.store.Get(ctx, keyPrefix+fingerprint)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("verdict_cache_get_failed", "fingerprint", fingerprint, "error", err)
		}
		return "", false
	}
	return value, ok
}

// Set stores a verdict under the fingerprint with the standard TTL.
// A store failure is logged and dropped.
func (c *VerdictCache) Set(ctx context.Context, fingerprint, verdict string) {
	if err := c.store.Set(ctx, keyPrefix+fingerprint, verdict, c.ttl); err != nil {
		if c.logger != nil {
			c.logger.Warn("verdict_cache_set_failed", "fingerprint", fingerprint, "error", err)
		}
	}
}
