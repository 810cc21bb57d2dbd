package auth

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ovis-hpc/ldms-registry/internal/config"
)

// RateLimiter implements token-bucket rate limiting for the HTTP API,
// kept close to the teacher's RateLimiter (same bucket math, same
// per-client/per-endpoint/global selection), just repointed at this
// module's config package.
type RateLimiter struct {
	cfg       config.RateLimitConfig
	mu        sync.Mutex
	global    *tokenBucket
	clients   map[string]*tokenBucket
	endpoints map[string]*tokenBucket
}

type tokenBucket struct {
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter builds a RateLimiter from cfg.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		cfg:       cfg,
		clients:   make(map[string]*tokenBucket),
		endpoints: make(map[string]*tokenBucket),
	}
	if cfg.Enabled {
		rl.global = newTokenBucket(float64(cfg.BurstSize), float64(cfg.RequestsPerSecond))
	}
	return rl
}

func newTokenBucket(maxTokens, refillRate float64) *tokenBucket {
	return &tokenBucket{tokens: maxTokens, maxTokens: maxTokens, refillRate: refillRate, lastRefill: time.Now()}
}

func (tb *tokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.maxTokens {
		tb.tokens = tb.maxTokens
	}
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

func (tb *tokenBucket) remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return int(tb.tokens)
}

// Middleware enforces the configured rate limit.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		var bucket *tokenBucket
		switch {
		case rl.cfg.PerClient:
			bucket = rl.getClientBucket(clientIP(r))
		case rl.cfg.PerEndpoint:
			bucket = rl.getEndpointBucket(r.Method + ":" + r.URL.Path)
		default:
			bucket = rl.global
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.RequestsPerSecond))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(bucket.remaining()))

		if !bucket.allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) getClientBucket(ip string) *tokenBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	bucket, ok := rl.clients[ip]
	if !ok {
		bucket = newTokenBucket(float64(rl.cfg.BurstSize), float64(rl.cfg.RequestsPerSecond))
		rl.clients[ip] = bucket
	}
	return bucket
}

func (rl *RateLimiter) getEndpointBucket(endpoint string) *tokenBucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	bucket, ok := rl.endpoints[endpoint]
	if !ok {
		bucket = newTokenBucket(float64(rl.cfg.BurstSize), float64(rl.cfg.RequestsPerSecond))
		rl.endpoints[endpoint] = bucket
	}
	return bucket
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// CleanupStaleClients removes client buckets unused for longer than maxAge.
func (rl *RateLimiter) CleanupStaleClients(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, bucket := range rl.clients {
		bucket.mu.Lock()
		stale := now.Sub(bucket.lastRefill) > maxAge
		bucket.mu.Unlock()
		if stale {
			delete(rl.clients, key)
		}
	}
}
