package web

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterEntryTTL        = 10 * time.Minute
)

// rateLimitEntry tracks rate limiting state for a single IP.
type rateLimitEntry struct {
	limiter    *rate.Limiter
	limit      int
	window     time.Duration
	lastAccess time.Time
}

// IPRateLimiter throttles requests per visitor IP. Limits are supplied on
// every call so that a config reload takes effect without restarting the
// limiter. It is safe for concurrent use.
type IPRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry

	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewIPRateLimiter creates a limiter and starts its cleanup goroutine.
func NewIPRateLimiter() *IPRateLimiter {
	rl := &IPRateLimiter{
		entries:     make(map[string]*rateLimitEntry),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Close stops the cleanup goroutine and releases resources.
func (rl *IPRateLimiter) Close() {
	close(rl.stopCleanup)
	<-rl.cleanupDone
}

// Allow reports whether a request from ip fits within limit requests per
// window. An entry whose parameters no longer match is rebuilt, so stale
// limiters from before a reload do not linger.
func (rl *IPRateLimiter) Allow(ip string, limit int, window time.Duration) bool {
	if limit <= 0 || window <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.entries[ip]
	if !exists || entry.limit != limit || entry.window != window {
		entry = &rateLimitEntry{
			limiter: rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), limit),
			limit:   limit,
			window:  window,
		}
		rl.entries[ip] = entry
	}
	entry.lastAccess = time.Now()

	return entry.limiter.Allow()
}

// cleanupLoop periodically removes entries that have not been accessed recently.
func (rl *IPRateLimiter) cleanupLoop() {
	defer close(rl.cleanupDone)

	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup removes entries older than the TTL.
func (rl *IPRateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-limiterEntryTTL)
	for ip, entry := range rl.entries {
		if entry.lastAccess.Before(cutoff) {
			delete(rl.entries, ip)
		}
	}
}

// EntryCount returns the number of tracked IPs.
func (rl *IPRateLimiter) EntryCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}
