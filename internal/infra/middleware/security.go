package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Chain wraps h with mws; the first middleware is the outermost.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// SecurityHeaders adds response headers suited to a JSON-only endpoint.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")

		// HSTS only makes sense over TLS.
		if r.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimitConfig holds configuration for the rate limiter.
type RateLimitConfig struct {
	RequestsPerMin int           // sustained requests per client per minute
	BurstSize      int           // requests allowed at once
	TrustedProxies []string      // peers whose X-Forwarded-For is honored
	IdleTTL        time.Duration // forget clients idle this long (default 3m)
}

// RateLimiter applies a token bucket per client IP.
type RateLimiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	clients map[string]*rateClient
	now     func() time.Time
}

type rateClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter. Idle clients are swept until ctx is done.
func NewRateLimiter(ctx context.Context, cfg RateLimitConfig) *RateLimiter {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 3 * time.Minute
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 1
	}
	rl := &RateLimiter{
		cfg:     cfg,
		clients: make(map[string]*rateClient),
		now:     time.Now,
	}
	go rl.sweepLoop(ctx)
	return rl
}

// RateLimit is shorthand for NewRateLimiter(...).Middleware.
func RateLimit(ctx context.Context, requestsPerMin, burstSize int) func(http.Handler) http.Handler {
	return NewRateLimiter(ctx, RateLimitConfig{RequestsPerMin: requestsPerMin, BurstSize: burstSize}).Middleware
}

// Middleware rejects requests over the client's budget with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lim := rl.limiter(clientIP(r, rl.cfg.TrustedProxies))
		if !lim.Allow() {
			retry := time.Minute / time.Duration(max(rl.cfg.RequestsPerMin, 1))
			w.Header().Set("Retry-After", strconv.Itoa(int(max(retry.Seconds(), 1))))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[ip]
	if !ok {
		c = &rateClient{limiter: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerMin)/60.0, rl.cfg.BurstSize)}
		rl.clients[ip] = c
	}
	c.lastSeen = rl.now()
	return c.limiter
}

func (rl *RateLimiter) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.cfg.IdleTTL)
	for ip, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// clientIP returns the TCP peer address, or the first X-Forwarded-For /
// X-Real-IP entry when the peer is a trusted proxy.
func clientIP(r *http.Request, trustedProxies []string) string {
	direct := r.RemoteAddr
	if host, _, err := net.SplitHostPort(direct); err == nil {
		direct = host
	}
	if len(trustedProxies) == 0 {
		return direct
	}

	trusted := false
	for _, p := range trustedProxies {
		if direct == p {
			trusted = true
			break
		}
	}
	if !trusted {
		return direct
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return direct
}
