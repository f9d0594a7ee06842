package engine

import (
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker/v2"

	"multiagent-mcp/internal/domain"
	"multiagent-mcp/internal/infra/config"
)

// Resolver turns model identifiers into execution handles. Provider dispatch
// happens once, here, through the Engine interface.
type Resolver struct {
	engines  map[domain.ProviderKind]Engine
	breakers map[domain.ProviderKind]*Breaker
	logger   *slog.Logger
}

// NewResolver creates a resolver over the given engines. A nil breakers map
// disables circuit breaking.
func NewResolver(engines []Engine, breakers map[domain.ProviderKind]*Breaker, logger *slog.Logger) *Resolver {
	r := &Resolver{
		engines:  make(map[domain.ProviderKind]Engine, len(engines)),
		breakers: breakers,
		logger:   logger,
	}
	for _, e := range engines {
		r.engines[e.Provider()] = e
	}
	return r
}

// NewDefaultResolver wires the three CLI engines from config, each behind a
// circuit breaker when enabled.
func NewDefaultResolver(cfg config.EnginesConfig, runner Runner, logger *slog.Logger, onBreakerChange func(domain.ProviderKind, string, string)) *Resolver {
	engines := []Engine{
		NewCodex(cfg.Codex, runner, logger),
		NewClaude(cfg.Claude, runner, logger),
		NewGemini(cfg.Gemini, runner, logger),
	}
	var breakers map[domain.ProviderKind]*Breaker
	if cfg.CircuitBreaker.Enabled {
		breakers = make(map[domain.ProviderKind]*Breaker, len(engines))
		for _, e := range engines {
			p := e.Provider()
			breakers[p] = NewBreaker(p, cfg.CircuitBreaker, logger, breakerNotifier(p, onBreakerChange))
		}
	}
	return NewResolver(engines, breakers, logger)
}

// Resolve implements domain.ModelResolver. It parses the identifier, picks
// the engine and translates policy; no process is started.
func (r *Resolver) Resolve(identifier string, policy domain.AccessPolicy, workDir string) (domain.ModelHandle, error) {
	ref, err := ParseModelID(identifier)
	if err != nil {
		return nil, err
	}
	eng, ok := r.engines[ref.Provider]
	if !ok {
		return nil, domain.NewSubSystemError("provider", "Resolver.Resolve", domain.ErrMisconfigured,
			fmt.Sprintf("no engine registered for %q", ref.Provider))
	}
	h := eng.Handle(ref.Model, policy, workDir)
	if b, ok := r.breakers[ref.Provider]; ok {
		h = b.Wrap(h)
	}
	r.logger.Debug("model resolved", "model_id", identifier, "provider", string(ref.Provider),
		"model", ref.Model, "policy", policy.String())
	return h, nil
}

// BreakerStates reports the circuit state per provider.
func (r *Resolver) BreakerStates() map[domain.ProviderKind]string {
	out := make(map[domain.ProviderKind]string, len(r.breakers))
	for p, b := range r.breakers {
		out[p] = b.State().String()
	}
	return out
}

func breakerNotifier(p domain.ProviderKind, fn func(domain.ProviderKind, string, string)) func(from, to gobreaker.State) {
	if fn == nil {
		return nil
	}
	return func(from, to gobreaker.State) { fn(p, from.String(), to.String()) }
}
