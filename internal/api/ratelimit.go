package api

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/p-blackswan/lifeos/lru"
)

// clientIdleTTL drops buckets of clients that have gone quiet.
const clientIdleTTL = 10 * time.Minute

// RateLimitConfig holds rate limiter configuration.
type RateLimitConfig struct {
	RPS     int // requests per second
	Burst   int // burst size
	Clients int // tracked client buckets
}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

func newTokenBucket(rps, burst int, now time.Time) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: float64(rps),
		lastRefill: now,
	}
}

func (b *tokenBucket) allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

type rateLimiter struct {
	clients *lru.Cache[string, *tokenBucket]
	rps     int
	burst   int
	now     func() time.Time
}

func newRateLimiter(cfg RateLimitConfig, now func() time.Time) (*rateLimiter, error) {
	clients := cfg.Clients
	if clients <= 0 {
		clients = 1024
	}
	cache, err := lru.New[string, *tokenBucket](clients,
		lru.WithIdleTTL[string, *tokenBucket](clientIdleTTL),
		lru.WithClock[string, *tokenBucket](now),
	)
	if err != nil {
		return nil, err
	}
	return &rateLimiter{clients: cache, rps: cfg.RPS, burst: cfg.Burst, now: now}, nil
}

func (rl *rateLimiter) allow(client string) bool {
	now := rl.now()
	bucket, _ := rl.clients.GetOrAdd(client, func() *tokenBucket {
		return newTokenBucket(rl.rps, rl.burst, now)
	})
	return bucket.allow(now)
}

// NewRateLimitMiddleware returns a per-client token-bucket rate limiter whose
// client table is bounded by cfg.Clients.
func NewRateLimitMiddleware(cfg RateLimitConfig) (fiber.Handler, error) {
	rl, err := newRateLimiter(cfg, time.Now)
	if err != nil {
		return nil, err
	}
	return rl.handler, nil
}

func (rl *rateLimiter) handler(c *fiber.Ctx) error {
	if isProbe(c.Path()) {
		return c.Next()
	}

	if !rl.allow(c.IP()) {
		return problemResponse(c, fiber.StatusTooManyRequests,
			"rate_limit_exceeded", "Too Many Requests",
			"Rate limit exceeded. Please try again later.")
	}

	return c.Next()
}

func isProbe(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}
