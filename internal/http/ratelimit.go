package http

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// Budget applied per client IP to mutating requests.
	rateLimitBurst  = 60
	rateLimitRefill = time.Minute / rateLimitBurst

	rateLimitSweepEvery = 5 * time.Minute
	rateLimitStaleAfter = 10 * time.Minute
)

// rateLimiter is a per-IP token bucket. Tokens refill continuously, so a
// client that paces itself is never blocked while a burst beyond the budget
// is rejected immediately.
type rateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*tokenBucket
	stop     chan struct{}
	stopOnce sync.Once
}

type tokenBucket struct {
	tokens   float64
	lastSeen time.Time
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		buckets: make(map[string]*tokenBucket),
		stop:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *rateLimiter) sweepLoop() {
	ticker := time.NewTicker(rateLimitSweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep(time.Now())
		case <-rl.stop:
			return
		}
	}
}

// sweep drops buckets idle long enough to have fully refilled.
func (rl *rateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rateLimitStaleAfter {
			delete(rl.buckets, ip)
		}
	}
}

func (rl *rateLimiter) shutdown() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// allow spends one token for the IP, reporting whether the request may
// proceed. A rejected request still refreshes lastSeen so an abusive client
// keeps its drained bucket.
func (rl *rateLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[clientIP]
	if !ok {
		rl.buckets[clientIP] = &tokenBucket{tokens: rateLimitBurst - 1, lastSeen: now}
		return true
	}

	refilled := b.tokens + now.Sub(b.lastSeen).Seconds()/rateLimitRefill.Seconds()
	if refilled > rateLimitBurst {
		refilled = rateLimitBurst
	}
	b.lastSeen = now

	if refilled < 1 {
		b.tokens = refilled
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}

	b.tokens = refilled - 1
	return true
}
