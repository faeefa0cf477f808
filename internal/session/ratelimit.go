package session

import (
	"sync"
	"time"
)

// Default start-rate settings: a small burst, refilled once a minute.
const (
	DefaultStartCapacity = 3
	DefaultStartRefill   = 1
	DefaultStartPeriod   = time.Minute
)

// Limiter caps how often each user may start a conversation, one token
// bucket per user. Buckets start full so a fresh user's first starts
// are never rejected.
type Limiter struct {
	mu           sync.Mutex
	buckets      map[string]*bucket
	capacity     int
	refillRate   int
	refillPeriod time.Duration
}

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// NewLimiter creates a limiter with the given per-user bucket shape.
func NewLimiter(capacity, refillRate int, refillPeriod time.Duration) *Limiter {
	if capacity <= 0 {
		capacity = DefaultStartCapacity
	}
	if refillRate <= 0 {
		refillRate = DefaultStartRefill
	}
	if refillPeriod <= 0 {
		refillPeriod = DefaultStartPeriod
	}
	return &Limiter{
		buckets:      make(map[string]*bucket),
		capacity:     capacity,
		refillRate:   refillRate,
		refillPeriod: refillPeriod,
	}
}

// Allow tries to consume a token for userID, reporting whether the
// start is within budget.
func (l *Limiter) Allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[userID]
	if !ok {
		b = &bucket{tokens: l.capacity, lastRefill: now}
		l.buckets[userID] = b
	}

	l.refill(b, now)

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// refill adds tokens for the refill periods elapsed since the last one.
// Callers hold l.mu.
func (l *Limiter) refill(b *bucket, now time.Time) {
	periods := int(now.Sub(b.lastRefill) / l.refillPeriod)
	if periods <= 0 {
		return
	}

	b.tokens += periods * l.refillRate
	if b.tokens > l.capacity {
		b.tokens = l.capacity
	}
	b.lastRefill = b.lastRefill.Add(time.Duration(periods) * l.refillPeriod)
}
