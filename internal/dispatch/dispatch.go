// Package dispatch is the transport collaborator: it carries a routed
// request to a concrete provider endpoint and reports the result as a
// typed outcome instead of raising errors through the call stack.
package dispatch

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/config"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/types"
)

// FailureKind classifies a failed dispatch attempt. Only quota and auth
// failures lead to a blacklist entry; transient failures are retried.
type FailureKind string

const (
	KindQuotaExceeded FailureKind = "quota_exceeded"
	KindAuthError     FailureKind = "auth_error"
	KindTransient     FailureKind = "transient"
)

// Outcome is the result of one dispatch attempt.
type Outcome struct {
	OK       bool
	Response *types.ChatResponse
	Kind     FailureKind
	Err      error

	// Sent reports whether the request reached the provider. Quota is
	// consumed by sent requests, so the router releases the ledger
	// reservation of an attempt that never made it onto the wire.
	Sent bool
}

func success(resp *types.ChatResponse) Outcome {
	return Outcome{OK: true, Response: resp, Sent: true}
}

func failure(kind FailureKind, sent bool, err error) Outcome {
	return Outcome{Kind: kind, Sent: sent, Err: err}
}

// classifyStatus maps a provider HTTP status to a failure kind.
func classifyStatus(code int) FailureKind {
	switch code {
	case http.StatusTooManyRequests:
		return KindQuotaExceeded
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuthError
	default:
		return KindTransient
	}
}

// Dispatcher sends one request to one provider's API.
type Dispatcher interface {
	Name() string
	Dispatch(ctx context.Context, model string, req *types.ChatRequest) Outcome
}

// Registry maps provider names to dispatchers.
type Registry struct {
	mu          sync.RWMutex
	dispatchers map[string]Dispatcher
}

func NewRegistry() *Registry {
	return &Registry{dispatchers: make(map[string]Dispatcher)}
}

func (r *Registry) Register(name string, d Dispatcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatchers[name] = d
}

func (r *Registry) Get(name string) (Dispatcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.dispatchers[name]
	return d, ok
}

// Reload replaces the dispatcher set with one rebuilt from the given
// providers config, keeping in-flight Get calls safe.
func (r *Registry) Reload(provCfg *config.ProvidersConfig) {
	rebuilt := BuildFromConfig(provCfg)
	r.mu.Lock()
	r.dispatchers = rebuilt.dispatchers
	r.mu.Unlock()
}

// BuildFromConfig builds dispatchers from the providers config. A
// provider with no configured api_key falls back to the environment
// contract (APIKeyForProvider).
func BuildFromConfig(provCfg *config.ProvidersConfig) *Registry {
	registry := NewRegistry()
	for name, cfg := range provCfg.Providers {
		if cfg.APIKey == "" {
			if key, err := APIKeyForProvider(name); err == nil {
				cfg.APIKey = key
			}
		}
		client := &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        cfg.MaxConcurrent,
				MaxIdleConnsPerHost: cfg.MaxConcurrent,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		}

		var d Dispatcher
		switch cfg.Type {
		case "anthropic":
			d = NewAnthropicDispatcher(name, cfg, client)
		default:
			// OpenAI-compatible is the wire default for unknown types
			d = NewOpenAIDispatcher(name, cfg, client)
		}
		registry.Register(name, d)
	}
	return registry
}
