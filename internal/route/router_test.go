package route

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/blacklist"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/classify"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/dispatch"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/ledger"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/registry"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/selector"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/types"
)

// scriptedDispatcher returns canned outcomes per model, in order.
type scriptedDispatcher struct {
	name     string
	outcomes map[string][]dispatch.Outcome
	calls    map[string]int
}

func newScriptedDispatcher(name string) *scriptedDispatcher {
	return &scriptedDispatcher{
		name:     name,
		outcomes: make(map[string][]dispatch.Outcome),
		calls:    make(map[string]int),
	}
}

func (d *scriptedDispatcher) script(model string, outcomes ...dispatch.Outcome) {
	d.outcomes[model] = append(d.outcomes[model], outcomes...)
}

func (d *scriptedDispatcher) Name() string { return d.name }

func (d *scriptedDispatcher) Dispatch(_ context.Context, model string, req *types.ChatRequest) dispatch.Outcome {
	i := d.calls[model]
	d.calls[model]++
	script := d.outcomes[model]
	if i >= len(script) {
		return dispatch.Outcome{
			OK:   true,
			Sent: true,
			Response: &types.ChatResponse{
				RequestID: req.RequestID,
				Model:     model,
				Provider:  d.name,
			},
		}
	}
	out := script[i]
	if out.OK && out.Response == nil {
		out.Response = &types.ChatResponse{RequestID: req.RequestID, Model: model, Provider: d.name}
	}
	return out
}

func okOutcome() dispatch.Outcome {
	return dispatch.Outcome{OK: true, Sent: true}
}

func failOutcome(kind dispatch.FailureKind, sent bool) dispatch.Outcome {
	return dispatch.Outcome{Kind: kind, Sent: sent, Err: fmt.Errorf("provider failure: %s", kind)}
}

type fixture struct {
	router     *Router
	ledger     ledger.Store
	blacklist  *blacklist.Manager
	dispatcher *scriptedDispatcher
	models     []registry.Model
}

func dialogModel(id string, priority, rpm int) registry.Model {
	return registry.Model{
		ID:        id,
		Provider:  "openai",
		TaskTypes: []types.TaskType{types.TaskDialog},
		Priority:  priority,
		Limits:    registry.Limits{RPM: rpm, TPM: 1_000_000, RPD: 100_000},
	}
}

func newFixture(t *testing.T, agents Orchestrator, models ...registry.Model) *fixture {
	t.Helper()
	reg, err := registry.New(models)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	led := ledger.NewMemory()
	bl := blacklist.New()
	sel := selector.New(reg, led, bl)
	d := newScriptedDispatcher("openai")
	dispatchers := dispatch.NewRegistry()
	dispatchers.Register("openai", d)
	if agents == nil {
		agents = NewAckOrchestrator(sel)
	}
	router := New(classify.New(), sel, led, bl, dispatchers, agents, nil, nil, Config{
		MaxModelAttempts: 3,
		QuotaBanTTL:      5 * time.Minute,
		AuthBanTTL:       12 * time.Hour,
	})
	return &fixture{router: router, ledger: led, blacklist: bl, dispatcher: d, models: models}
}

func simpleRequest(text string) *types.ChatRequest {
	return &types.ChatRequest{
		RequestID: "req_test",
		Messages:  []types.Message{{Role: "user", Content: text}},
	}
}

func TestRoute_DirectPathSuccess(t *testing.T) {
	f := newFixture(t, nil, dialogModel("a", 1, 10))

	res, err := f.router.Route(context.Background(), simpleRequest("What is 2+2?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateResponded {
		t.Errorf("expected responded, got %s", res.State)
	}
	if res.Model != "a" {
		t.Errorf("expected model a, got %s", res.Model)
	}
	if res.Response.HandedOff {
		t.Error("direct path must not be marked handed off")
	}
	if u := f.ledger.Usage(context.Background(), "a"); u.RPMCount != 1 {
		t.Errorf("expected 1 registered use, got %d", u.RPMCount)
	}
}

func TestRoute_QuotaErrorBlacklistsAndFailsOver(t *testing.T) {
	f := newFixture(t, nil, dialogModel("a", 1, 10), dialogModel("b", 2, 10))
	f.dispatcher.script("a", failOutcome(dispatch.KindQuotaExceeded, true))

	res, err := f.router.Route(context.Background(), simpleRequest("hi there"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Model != "b" {
		t.Errorf("expected failover to b, got %s", res.Model)
	}
	if !f.blacklist.IsBlacklisted("a") {
		t.Error("expected a blacklisted after quota error")
	}
	remaining := f.blacklist.Status()["a"]
	if remaining > 5*time.Minute || remaining <= 0 {
		t.Errorf("expected short quota ban, got %s", remaining)
	}
}

func TestRoute_AuthErrorGetsLongBan(t *testing.T) {
	f := newFixture(t, nil, dialogModel("a", 1, 10), dialogModel("b", 2, 10))
	f.dispatcher.script("a", failOutcome(dispatch.KindAuthError, true))

	res, err := f.router.Route(context.Background(), simpleRequest("hi there"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Model != "b" {
		t.Errorf("expected failover to b, got %s", res.Model)
	}
	remaining := f.blacklist.Status()["a"]
	if remaining < time.Hour {
		t.Errorf("expected ban on the order of hours, got %s", remaining)
	}
}

func TestRoute_TransientRetriesSameModelWithoutBan(t *testing.T) {
	f := newFixture(t, nil, dialogModel("a", 1, 10))
	f.dispatcher.script("a", failOutcome(dispatch.KindTransient, true), okOutcome())

	res, err := f.router.Route(context.Background(), simpleRequest("hi there"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Model != "a" {
		t.Errorf("expected same-model retry to succeed on a, got %s", res.Model)
	}
	if f.dispatcher.calls["a"] != 2 {
		t.Errorf("expected 2 dispatch calls to a, got %d", f.dispatcher.calls["a"])
	}
	if f.blacklist.IsBlacklisted("a") {
		t.Error("transient failures must not blacklist")
	}
}

func TestRoute_DoubleTransientMovesToNextModel(t *testing.T) {
	f := newFixture(t, nil, dialogModel("a", 1, 10), dialogModel("b", 2, 10))
	f.dispatcher.script("a",
		failOutcome(dispatch.KindTransient, true),
		failOutcome(dispatch.KindTransient, true),
	)

	res, err := f.router.Route(context.Background(), simpleRequest("hi there"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Model != "b" {
		t.Errorf("expected failover to b after two transients, got %s", res.Model)
	}
	if f.blacklist.IsBlacklisted("a") {
		t.Error("transient failures must not blacklist")
	}
}

func TestRoute_UnsentAttemptReleasesQuota(t *testing.T) {
	f := newFixture(t, nil, dialogModel("a", 1, 10))
	// First attempt never reaches the provider; retry succeeds.
	f.dispatcher.script("a", failOutcome(dispatch.KindTransient, false), okOutcome())

	_, err := f.router.Route(context.Background(), simpleRequest("hi there"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Only the sent attempt may be counted.
	if u := f.ledger.Usage(context.Background(), "a"); u.RPMCount != 1 {
		t.Errorf("expected exactly 1 counted use, got %d", u.RPMCount)
	}
}

func TestRoute_ExhaustionReturnsTypedError(t *testing.T) {
	f := newFixture(t, nil, dialogModel("a", 1, 10), dialogModel("b", 2, 10))
	f.blacklist.Blacklist("a", time.Hour, "auth_error")
	f.blacklist.Blacklist("b", time.Hour, "auth_error")

	res, err := f.router.Route(context.Background(), simpleRequest("hi there"))
	if err == nil {
		t.Fatal("expected NoModelAvailableError")
	}
	var nmae *NoModelAvailableError
	if !errors.As(err, &nmae) {
		t.Fatalf("expected *NoModelAvailableError, got %T: %v", err, err)
	}
	if nmae.Task != types.TaskDialog {
		t.Errorf("expected dialog task in error, got %s", nmae.Task)
	}
	if res.State != StateExhausted {
		t.Errorf("expected exhausted state, got %s", res.State)
	}
}

func TestRoute_AllFailuresEndExhausted(t *testing.T) {
	f := newFixture(t, nil, dialogModel("a", 1, 10), dialogModel("b", 2, 10))
	f.dispatcher.script("a", failOutcome(dispatch.KindQuotaExceeded, true))
	f.dispatcher.script("b", failOutcome(dispatch.KindQuotaExceeded, true))

	res, err := f.router.Route(context.Background(), simpleRequest("hi there"))
	var nmae *NoModelAvailableError
	if !errors.As(err, &nmae) {
		t.Fatalf("expected *NoModelAvailableError, got %v", err)
	}
	if res.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", res.Attempts)
	}
}

func TestRoute_AttemptBoundIsRespected(t *testing.T) {
	models := []registry.Model{
		dialogModel("a", 1, 10),
		dialogModel("b", 2, 10),
		dialogModel("c", 3, 10),
		dialogModel("d", 4, 10),
		dialogModel("e", 5, 10),
	}
	f := newFixture(t, nil, models...)
	for _, m := range models {
		f.dispatcher.script(m.ID, failOutcome(dispatch.KindQuotaExceeded, true))
	}

	res, err := f.router.Route(context.Background(), simpleRequest("hi there"))
	var nmae *NoModelAvailableError
	if !errors.As(err, &nmae) {
		t.Fatalf("expected *NoModelAvailableError, got %v", err)
	}
	if res.Attempts != 3 {
		t.Errorf("expected the bound of 3 distinct models, got %d attempts", res.Attempts)
	}
}

func TestRoute_MultiAgentHandoff(t *testing.T) {
	f := newFixture(t, nil, dialogModel("a", 1, 10))

	res, err := f.router.Route(context.Background(),
		simpleRequest("Develop a full marketing strategy with budget, timeline, and audience segmentation, then draft three ad variants"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.State != StateResponded {
		t.Errorf("expected responded, got %s", res.State)
	}
	if !res.Response.HandedOff {
		t.Error("expected handed-off response")
	}
	if f.dispatcher.calls["a"] != 0 {
		t.Error("multi-agent path must not dispatch directly")
	}
}

type failingOrchestrator struct{ err error }

func (o *failingOrchestrator) Execute(context.Context, *types.ChatRequest, classify.Score) (*types.ChatResponse, error) {
	return nil, o.err
}

func TestRoute_OrchestratorExhaustionSurfacesTyped(t *testing.T) {
	f := newFixture(t, &failingOrchestrator{err: &NoModelAvailableError{Task: types.TaskDialog}},
		dialogModel("a", 1, 10))

	_, err := f.router.Route(context.Background(),
		simpleRequest("Sketch a pricing strategy."))
	var nmae *NoModelAvailableError
	if !errors.As(err, &nmae) {
		t.Fatalf("expected *NoModelAvailableError from orchestrator, got %v", err)
	}
}

func TestRoute_CodingTaskUsesCodingModels(t *testing.T) {
	coder := registry.Model{
		ID:        "coder",
		Provider:  "openai",
		TaskTypes: []types.TaskType{types.TaskCoding},
		Priority:  1,
		Limits:    registry.Limits{RPM: 10, TPM: 1_000_000, RPD: 100_000},
	}
	f := newFixture(t, nil, dialogModel("chatty", 1, 10), coder)

	res, err := f.router.Route(context.Background(),
		simpleRequest("Fix the off-by-one bug in this function."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Model != "coder" {
		t.Errorf("expected coding model, got %s", res.Model)
	}
}

func TestRoute_CancelledContextAborts(t *testing.T) {
	f := newFixture(t, nil, dialogModel("a", 1, 10))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.router.Route(ctx, simpleRequest("hi there"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestAckOrchestrator_ReusesSelector(t *testing.T) {
	f := newFixture(t, nil, dialogModel("a", 1, 10))
	f.blacklist.Blacklist("a", time.Hour, "auth_error")

	_, err := f.router.Route(context.Background(),
		simpleRequest("Sketch a pricing strategy."))
	var nmae *NoModelAvailableError
	if !errors.As(err, &nmae) {
		t.Fatalf("expected nested selection to hit the shared blacklist, got %v", err)
	}
}
