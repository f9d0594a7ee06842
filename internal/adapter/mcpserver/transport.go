package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"multiagent-mcp/internal/infra/config"
	"multiagent-mcp/internal/infra/middleware"
)

const (
	readHeaderTimeout      = 10 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// ServeStdio speaks MCP over in/out until ctx is cancelled or in is closed.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("serving MCP over stdio")
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio transport: %w", err)
	}
	return nil
}

// HTTPHandler returns the streamable-HTTP endpoint behind the security chain,
// plus an unauthenticated /healthz.
func (s *Server) HTTPHandler(ctx context.Context, cfg config.HTTPConfig) http.Handler {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "/mcp"
	}
	streamable := server.NewStreamableHTTPServer(s.mcp, server.WithEndpointPath(endpoint))

	mws := []func(http.Handler) http.Handler{middleware.SecurityHeaders}
	if cfg.RateLimitPerMin > 0 {
		mws = append(mws, middleware.RateLimit(ctx, cfg.RateLimitPerMin, cfg.RateLimitBurst))
	}
	mws = append(mws, middleware.BearerAuth(cfg.AuthTokens))

	mux := http.NewServeMux()
	mux.Handle(endpoint, middleware.Chain(streamable, mws...))
	mux.Handle("GET /healthz", middleware.Chain(http.HandlerFunc(s.handleHealth), middleware.SecurityHeaders))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","agents":%d}`, len(s.catalog.Names()))
}

// ServeHTTP listens on cfg.Addr until ctx is cancelled, then drains open
// requests for at most cfg.ShutdownTimeout.
func (s *Server) ServeHTTP(ctx context.Context, cfg config.HTTPConfig) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	return s.serveListener(ctx, ln, cfg)
}

func (s *Server) serveListener(ctx context.Context, ln net.Listener, cfg config.HTTPConfig) error {
	srv := &http.Server{
		Handler:           s.HTTPHandler(ctx, cfg),
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving MCP over HTTP", "addr", ln.Addr().String(), "endpoint", cfg.Endpoint,
			"auth", len(cfg.AuthTokens) > 0, "rate_limit_per_min", cfg.RateLimitPerMin)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http transport: %w", err)
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("HTTP transport stopped")
	return nil
}
