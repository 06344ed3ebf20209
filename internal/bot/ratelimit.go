// Package bot – per-sender rate limiting.
//
// This file implements a lightweight, in-memory, token-bucket rate limiter
// with one bucket per Telegram sender and opportunistic garbage collection.
// It protects the bot (and the shared database) from a single chat flooding
// updates in a single-process deployment.
//
// Notes:
//   - The limiter is process-local. A horizontally scaled bot would need a
//     distributed limiter to enforce global limits.
//   - Limited updates are dropped silently; Telegram offers no useful
//     backpressure channel for a chat bot.
package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// visitor holds a single rate limiter and the last time it was seen.
// Used to opportunistically evict idle buckets.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SenderLimiter implements a per-sender token-bucket rate limiter.
//
// Buckets are created on demand and stored in an internal map guarded by a
// mutex. Idle buckets are evicted after a TTL via opportunistic cleanup
// during lookups to keep memory usage bounded.
//
// This type is safe for concurrent use.
type SenderLimiter struct {
	rps      rate.Limit
	burst    int
	mu       sync.Mutex
	visitors map[int64]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// NewSenderLimiter constructs a SenderLimiter with the given
// tokens-per-second and burst size.
//
//   - rps:   tokens replenished per second (0 allows no updates; use >0).
//   - burst: maximum burst size; values <= 0 are coerced to 1.
func NewSenderLimiter(rps float64, burst int) *SenderLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &SenderLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		visitors: make(map[int64]*visitor),
		ttl:      10 * time.Minute, // evict idle entries after TTL
	}
}

// Allow reports whether one update from sender may be processed now.
func (sl *SenderLimiter) Allow(sender int64) bool {
	return sl.getVisitor(sender).Allow()
}

// getVisitor returns (and updates) the limiter for sender, creating it if
// absent. It also performs opportunistic GC of idle entries after ~5000
// lookups. GC runs before touching the requested visitor so an "old" bucket
// can be evicted even when it's the one being fetched.
func (sl *SenderLimiter) getVisitor(sender int64) *rate.Limiter {
	now := time.Now()

	sl.mu.Lock()
	sl.cleanupN++
	if sl.cleanupN >= 5000 {
		for k, vv := range sl.visitors {
			if now.Sub(vv.lastSeen) >= sl.ttl {
				delete(sl.visitors, k)
			}
		}
		sl.cleanupN = 0
	}

	if v, ok := sl.visitors[sender]; ok {
		v.lastSeen = now
		lim := v.limiter
		sl.mu.Unlock()
		return lim
	}

	lim := rate.NewLimiter(sl.rps, sl.burst)
	sl.visitors[sender] = &visitor{limiter: lim, lastSeen: now}
	sl.mu.Unlock()
	return lim
}
