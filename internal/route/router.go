// Package route orchestrates one request through classify → select →
// dispatch, with blacklist-and-retry failover and a typed terminal
// outcome when every candidate is spent.
package route

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/blacklist"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/classify"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/config"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/dispatch"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/journal"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/ledger"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/registry"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/selector"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/telemetry"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/types"
)

// State is a phase of the routing state machine:
// RECEIVED → CLASSIFIED → DISPATCHING → {RESPONDED | RETRYING → DISPATCHING | EXHAUSTED}.
type State string

const (
	StateReceived    State = "received"
	StateClassified  State = "classified"
	StateDispatching State = "dispatching"
	StateRetrying    State = "retrying"
	StateResponded   State = "responded"
	StateExhausted   State = "exhausted"
)

// NoModelAvailableError is the typed terminal failure when every
// candidate for the task is blacklisted or over limit. It is a normal,
// handleable outcome, not a bug.
type NoModelAvailableError struct {
	Task types.TaskType
}

func (e *NoModelAvailableError) Error() string {
	return fmt.Sprintf("no models available for task %q", e.Task)
}

// Config tunes the failover loop and ban policy.
type Config struct {
	// MaxModelAttempts bounds how many distinct models one request may
	// try. Each model is tried at most once, plus one same-model retry
	// on a transient failure, so the loop always terminates.
	MaxModelAttempts int
	DispatchTimeout  time.Duration
	QuotaBanTTL      time.Duration
	AuthBanTTL       time.Duration
}

// ConfigFrom derives the router config from the file-level routing
// section, filling zero values with defaults.
func ConfigFrom(rc config.RoutingConfig) Config {
	cfg := Config{
		MaxModelAttempts: rc.MaxModelAttempts,
		DispatchTimeout:  rc.DispatchTimeout,
		QuotaBanTTL:      rc.QuotaBanTTL,
		AuthBanTTL:       rc.AuthBanTTL,
	}
	if cfg.MaxModelAttempts <= 0 {
		cfg.MaxModelAttempts = 3
	}
	if cfg.QuotaBanTTL <= 0 {
		cfg.QuotaBanTTL = 5 * time.Minute
	}
	if cfg.AuthBanTTL <= 0 {
		cfg.AuthBanTTL = 12 * time.Hour
	}
	return cfg
}

// Result is the terminal outcome of one routed request.
type Result struct {
	State    State
	Response *types.ChatResponse
	Score    classify.Score
	Model    string
	Provider string
	Attempts int
}

// Router wires the classifier, selector, ledger, blacklist and
// transport into the request state machine. One instance serves all
// callers concurrently; it holds no per-request state.
type Router struct {
	classifier  *classify.Classifier
	selector    *selector.Selector
	ledger      ledger.Store
	blacklist   *blacklist.Manager
	dispatchers *dispatch.Registry
	agents      Orchestrator
	metrics     *telemetry.Metrics
	journal     *journal.Journal
	cfg         Config
}

func New(
	cls *classify.Classifier,
	sel *selector.Selector,
	led ledger.Store,
	bl *blacklist.Manager,
	dispatchers *dispatch.Registry,
	agents Orchestrator,
	metrics *telemetry.Metrics,
	jr *journal.Journal,
	cfg Config,
) *Router {
	return &Router{
		classifier:  cls,
		selector:    sel,
		ledger:      led,
		blacklist:   bl,
		dispatchers: dispatchers,
		agents:      agents,
		metrics:     metrics,
		journal:     jr,
		cfg:         cfg,
	}
}

// Route runs one request to a terminal state. Provider failures are
// recovered internally; only NoModelAvailableError, caller
// cancellation, and unrecoverable orchestrator failures surface.
func (r *Router) Route(ctx context.Context, req *types.ChatRequest) (*Result, error) {
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = time.Now()
	}
	if req.EstimatedTokens == 0 {
		req.EstimatedTokens = req.EstimateTokens()
	}

	score := r.classifier.Analyze(req.UserText())
	if r.metrics != nil {
		r.metrics.RecordClassification(string(score.Category), score.Value)
	}
	slog.Info("request classified",
		"request_id", req.RequestID,
		"complexity", score.Value,
		"category", string(score.Category),
		"multi_agent", score.RequiresMultiAgent,
	)

	if score.RequiresMultiAgent {
		return r.handOff(ctx, req, score)
	}
	return r.dispatchDirect(ctx, req, score)
}

// handOff delegates to the multi-agent engine. The engine reuses the
// same selector for its own model needs, so its exhaustion surfaces as
// the same typed error.
func (r *Router) handOff(ctx context.Context, req *types.ChatRequest, score classify.Score) (*Result, error) {
	resp, err := r.agents.Execute(ctx, req, score)
	task := string(score.TaskType())
	if err != nil {
		r.finish(req, score, "exhausted", "", "", 0)
		if r.metrics != nil {
			r.metrics.RecordRoute("exhausted", task)
		}
		return &Result{State: StateExhausted, Score: score}, err
	}
	resp.HandedOff = true
	resp.RequestID = req.RequestID
	r.finish(req, score, "handed_off", resp.Model, resp.Provider, 0)
	if r.metrics != nil {
		r.metrics.RecordRoute("handed_off", task)
	}
	return &Result{State: StateResponded, Response: resp, Score: score}, nil
}

// dispatchDirect runs the single-call path: pick a candidate, reserve
// quota atomically, dispatch, and on a qualifying failure ban the model
// and move to the next candidate, up to the attempt bound.
func (r *Router) dispatchDirect(ctx context.Context, req *types.ChatRequest, score classify.Score) (*Result, error) {
	task := score.TaskType()
	tokens := req.EstimatedTokens
	tried := make(map[string]bool)
	attempts := 0

	for attempts < r.cfg.MaxModelAttempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		m, ok := r.selector.SelectExcluding(ctx, task, tokens, tried)
		if !ok {
			break
		}
		attempts++
		tried[m.ID] = true
		if r.metrics != nil {
			r.metrics.RecordSelection(string(task), m.ID)
		}

		resp, err := r.tryModel(ctx, m, req, tokens)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			r.finish(req, score, "responded", m.ID, m.Provider, attempts)
			if r.metrics != nil {
				r.metrics.RecordRoute("responded", string(task))
			}
			return &Result{
				State:    StateResponded,
				Response: resp,
				Score:    score,
				Model:    m.ID,
				Provider: m.Provider,
				Attempts: attempts,
			}, nil
		}
		// Failed over; the next loop iteration asks the selector for
		// the next candidate.
	}

	slog.Warn("routing exhausted",
		"request_id", req.RequestID,
		"task", string(task),
		"attempts", attempts,
	)
	r.finish(req, score, "exhausted", "", "", attempts)
	if r.metrics != nil {
		r.metrics.RecordRoute("exhausted", string(task))
	}
	return &Result{State: StateExhausted, Score: score, Attempts: attempts},
		&NoModelAvailableError{Task: task}
}

// tryModel dispatches to one model, retrying once on a transient
// failure. Returns (nil, nil) to request failover to the next
// candidate; a non-nil error aborts the whole route.
func (r *Router) tryModel(ctx context.Context, m registry.Model, req *types.ChatRequest, tokens int) (*types.ChatResponse, error) {
	d, ok := r.dispatchers.Get(m.Provider)
	if !ok {
		slog.Warn("no transport for provider", "provider", m.Provider, "model", m.ID)
		return nil, nil
	}

	transientRetried := false
	for {
		// Re-validate atomically at registration time: the selector's
		// earlier read may have raced another caller.
		if !r.ledger.Reserve(ctx, m, tokens) {
			if r.metrics != nil {
				r.metrics.RecordQuotaRejected(m.ID)
			}
			slog.Info("reservation rejected, failing over", "request_id", req.RequestID, "model", m.ID)
			return nil, nil
		}

		dctx := ctx
		cancel := func() {}
		if r.cfg.DispatchTimeout > 0 {
			dctx, cancel = context.WithTimeout(ctx, r.cfg.DispatchTimeout)
		}
		start := time.Now()
		out := d.Dispatch(dctx, m.ID, req)
		cancel()
		elapsed := time.Since(start)

		if !out.Sent {
			// Never reached the provider, so no quota was consumed.
			r.ledger.Release(ctx, m, tokens)
		}
		if out.OK {
			if r.metrics != nil {
				r.metrics.RecordDispatch(m.Provider, m.ID, float64(elapsed.Milliseconds()),
					out.Response.Usage.PromptTokens, out.Response.Usage.CompletionTokens)
			}
			return out.Response, nil
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		slog.Warn("dispatch failed",
			"request_id", req.RequestID,
			"model", m.ID,
			"provider", m.Provider,
			"kind", string(out.Kind),
			"sent", out.Sent,
			"error", out.Err,
		)

		switch out.Kind {
		case dispatch.KindQuotaExceeded:
			r.ban(m.ID, r.cfg.QuotaBanTTL, "quota_exceeded")
			return nil, nil
		case dispatch.KindAuthError:
			r.ban(m.ID, r.cfg.AuthBanTTL, "auth_error")
			return nil, nil
		default:
			// Transient: retry the same model once, without a ban.
			if !transientRetried {
				transientRetried = true
				continue
			}
			if r.metrics != nil {
				r.metrics.RecordFailover(m.ID, "transient")
			}
			return nil, nil
		}
	}
}

func (r *Router) ban(modelID string, ttl time.Duration, reason string) {
	r.blacklist.Blacklist(modelID, ttl, reason)
	if r.metrics != nil {
		r.metrics.RecordBlacklist(modelID, reason)
		r.metrics.RecordFailover(modelID, reason)
	}
}

func (r *Router) finish(req *types.ChatRequest, score classify.Score, outcome, model, provider string, attempts int) {
	r.journal.Record(journal.Entry{
		RequestID:  req.RequestID,
		Task:       string(score.TaskType()),
		Category:   string(score.Category),
		Complexity: score.Value,
		MultiAgent: score.RequiresMultiAgent,
		Model:      model,
		Provider:   provider,
		Outcome:    outcome,
		Attempts:   attempts,
		DurationMs: time.Since(req.ReceivedAt).Milliseconds(),
	})
}
