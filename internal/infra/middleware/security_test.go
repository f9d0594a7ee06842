package middleware

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestSecurityHeaders(t *testing.T) {
	req := httptest.NewRequest("POST", "/mcp", nil)
	w := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(w, req)

	expected := map[string]string{
		"X-Frame-Options":         "DENY",
		"X-Content-Type-Options":  "nosniff",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"Referrer-Policy":         "no-referrer",
		"Cache-Control":           "no-store",
	}
	for header, want := range expected {
		if got := w.Header().Get(header); got != want {
			t.Errorf("Header %s = %q, want %q", header, got, want)
		}
	}
	if hsts := w.Header().Get("Strict-Transport-Security"); hsts != "" {
		t.Errorf("HSTS header should not be set without TLS, got: %q", hsts)
	}
}

func TestSecurityHeaders_HSTS_WithTLS(t *testing.T) {
	req := httptest.NewRequest("POST", "/mcp", nil)
	req.TLS = &tls.ConnectionState{}
	w := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(w, req)

	if got := w.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}

func send(h http.Handler, remote string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/mcp", nil)
	req.RemoteAddr = remote
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimit_BurstThenBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := RateLimit(ctx, 60, 5)(okHandler)

	for i := 0; i < 5; i++ {
		if w := send(h, "192.168.1.1:1234", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i+1, w.Code)
		}
	}
	w := send(h, "192.168.1.1:1234", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
	}
}

func TestRateLimit_SeparatesClientsByIP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, RateLimitConfig{RequestsPerMin: 60, BurstSize: 1})
	h := rl.Middleware(okHandler)

	if w := send(h, "10.0.0.1:1", nil); w.Code != http.StatusOK {
		t.Fatalf("client 1: %d", w.Code)
	}
	if w := send(h, "10.0.0.1:2", nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("client 1 second request: %d", w.Code)
	}
	if w := send(h, "10.0.0.2:1", nil); w.Code != http.StatusOK {
		t.Fatalf("client 2: %d", w.Code)
	}
	if rl.Clients() != 2 {
		t.Errorf("Clients = %d", rl.Clients())
	}
}

func TestRateLimit_IPv6(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, RateLimitConfig{RequestsPerMin: 60, BurstSize: 1})
	h := rl.Middleware(okHandler)

	send(h, "[::1]:5000", nil)
	if w := send(h, "[::1]:5001", nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("same IPv6 host on another port should share a bucket, got %d", w.Code)
	}
}

func TestRateLimit_SweepForgetsIdleClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, RateLimitConfig{RequestsPerMin: 60, BurstSize: 1, IdleTTL: time.Minute})
	now := time.Now()
	rl.now = func() time.Time { return now }

	send(rl.Middleware(okHandler), "10.0.0.9:1", nil)
	rl.sweep()
	if rl.Clients() != 1 {
		t.Fatal("fresh client must survive a sweep")
	}
	now = now.Add(2 * time.Minute)
	rl.sweep()
	if rl.Clients() != 0 {
		t.Fatal("idle client should be forgotten")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		header  map[string]string
		trusted []string
		want    string
	}{
		{name: "direct", remote: "203.0.113.7:4000", want: "203.0.113.7"},
		{name: "spoofed header ignored", remote: "203.0.113.7:4000", header: map[string]string{"X-Forwarded-For": "1.1.1.1"}, want: "203.0.113.7"},
		{name: "untrusted peer", remote: "203.0.113.7:4000", header: map[string]string{"X-Forwarded-For": "1.1.1.1"}, trusted: []string{"10.0.0.1"}, want: "203.0.113.7"},
		{name: "trusted xff", remote: "10.0.0.1:80", header: map[string]string{"X-Forwarded-For": "1.1.1.1, 10.0.0.1"}, trusted: []string{"10.0.0.1"}, want: "1.1.1.1"},
		{name: "trusted real ip", remote: "10.0.0.1:80", header: map[string]string{"X-Real-IP": " 2.2.2.2 "}, trusted: []string{"10.0.0.1"}, want: "2.2.2.2"},
		{name: "trusted no header", remote: "10.0.0.1:80", trusted: []string{"10.0.0.1"}, want: "10.0.0.1"},
		{name: "no port", remote: "198.51.100.2", want: "198.51.100.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if got := clientIP(req, tt.trusted); got != tt.want {
				t.Errorf("clientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	send(Chain(okHandler, mw("a"), mw("b"), mw("c")), "1.2.3.4:5", nil)
	if len(order) != 3 || order[0] != "a" || order[2] != "c" {
		t.Fatalf("order = %v", order)
	}
}
