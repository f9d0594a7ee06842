package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"multiagent-mcp/internal/domain"
	"multiagent-mcp/internal/infra/config"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// Breaker guards one engine. When the engine fails repeatedly the circuit
// opens and calls fail fast without spawning a subprocess.
type Breaker struct {
	provider domain.ProviderKind
	cb       *gobreaker.CircuitBreaker[*domain.Generation]
}

// NewBreaker creates a breaker for provider. Zero config values fall back to
// defaults. onChange, if non-nil, is told about every state transition.
func NewBreaker(provider domain.ProviderKind, cfg config.CircuitBreakerConfig, logger *slog.Logger, onChange func(from, to gobreaker.State)) *Breaker {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[*domain.Generation](gobreaker.Settings{
		Name:        "engine:" + string(provider),
		MaxRequests: 1, // one probe while half-open
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			if onChange != nil {
				onChange(from, to)
			}
		},
		// A caller giving up is not an engine fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &Breaker{provider: provider, cb: cb}
}

// Wrap returns h guarded by the breaker.
func (b *Breaker) Wrap(h domain.ModelHandle) domain.ModelHandle {
	return &guardedHandle{inner: h, breaker: b}
}

// State returns the current circuit state.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

type guardedHandle struct {
	inner   domain.ModelHandle
	breaker *Breaker
}

func (g *guardedHandle) Provider() domain.ProviderKind { return g.inner.Provider() }
func (g *guardedHandle) Model() string                 { return g.inner.Model() }

func (g *guardedHandle) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.Generation, error) {
	gen, err := g.breaker.cb.Execute(func() (*domain.Generation, error) {
		return g.inner.Generate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, domain.NewSubSystemError("engine", string(g.breaker.provider)+".Generate", domain.ErrCircuitOpen,
				fmt.Sprintf("%s: %v", g.breaker.provider, err))
		}
		return nil, err
	}
	return gen, nil
}
