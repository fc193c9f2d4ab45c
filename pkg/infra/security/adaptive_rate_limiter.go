package security

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	common "github.com/matchcore/core/pkg/domain"
)

// TokenBucket is a single client's bucket: Tokens refills at RefillPerSecond
// up to Burst, consumed one-per-request.
type TokenBucket struct {
	Tokens         float64
	Burst          float64
	RefillPerSec   float64
	LastRefill     time.Time
}

func (b *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(b.LastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.Tokens = min(b.Burst, b.Tokens+elapsed*b.RefillPerSec)
	b.LastRefill = now
}

func (b *TokenBucket) take() bool {
	if b.Tokens < 1 {
		return false
	}
	b.Tokens--
	return true
}

// RateLimiter is a per-user token-bucket limiter guarding submitMatchRequest
// and cancelMatchRequest. It carries none of a tiered/adaptive/threat-scoring
// scheme — just a fixed rate and burst, since matchmaking submit/cancel is a
// single low-sensitivity endpoint pair, not a full API surface.
type RateLimiter struct {
	mu           sync.Mutex
	buckets      map[uuid.UUID]*TokenBucket
	burst        float64
	refillPerSec float64
}

// NewRateLimiter builds a limiter allowing refillPerSec sustained
// requests/second per user, with bursts up to burst.
func NewRateLimiter(refillPerSec, burst float64) *RateLimiter {
	return &RateLimiter{
		buckets:      make(map[uuid.UUID]*TokenBucket),
		burst:        burst,
		refillPerSec: refillPerSec,
	}
}

// Allow reports whether userID may proceed now, consuming a token if so.
func (l *RateLimiter) Allow(userID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[userID]
	if !ok {
		b = &TokenBucket{Tokens: l.burst, Burst: l.burst, RefillPerSec: l.refillPerSec, LastRefill: now}
		l.buckets[userID] = b
	}
	b.refill(now)
	return b.take()
}

// Check is Allow wrapped in the domain's RateLimit error kind, for direct use
// at the top of a use-case Exec method.
func (l *RateLimiter) Check(ctx context.Context, userID uuid.UUID) error {
	if !l.Allow(userID) {
		return common.NewErrRateLimit("too many matchmaking requests, slow down")
	}
	return nil
}

// Cleanup evicts buckets untouched for longer than idleAfter, bounding
// memory growth from one-shot users who never return.
func (l *RateLimiter) Cleanup(idleAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-idleAfter)
	for id, b := range l.buckets {
		if b.LastRefill.Before(cutoff) {
			delete(l.buckets, id)
		}
	}
}

// RunCleanup starts a background goroutine evicting idle buckets every
// interval, until ctx is cancelled.
func (l *RateLimiter) RunCleanup(ctx context.Context, interval, idleAfter time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup(idleAfter)
		}
	}
}
