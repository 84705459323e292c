package selector

import (
	"context"
	"testing"
	"time"

	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/blacklist"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/ledger"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/registry"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/types"
)

func dialogModel(id string, priority, rpm int) registry.Model {
	return registry.Model{
		ID:        id,
		Provider:  "openai",
		TaskTypes: []types.TaskType{types.TaskDialog},
		Priority:  priority,
		Limits:    registry.Limits{RPM: rpm, TPM: 100_000, RPD: 10_000},
	}
}

func newSelector(t *testing.T, models ...registry.Model) (*Selector, ledger.Store, *blacklist.Manager) {
	t.Helper()
	reg, err := registry.New(models)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	led := ledger.NewMemory()
	bl := blacklist.New()
	return New(reg, led, bl), led, bl
}

func TestSelect_PrefersLowerPriorityNumber(t *testing.T) {
	s, _, _ := newSelector(t, dialogModel("b", 2, 5), dialogModel("a", 1, 5))

	m, ok := s.Select(context.Background(), types.TaskDialog, 10)
	if !ok {
		t.Fatal("expected a candidate")
	}
	if m.ID != "a" {
		t.Errorf("expected priority 1 model first, got %s", m.ID)
	}
}

// Scenario from the quota contract: model A (priority 1, rpm 2) and
// model B (priority 2, rpm 5) both serve dialog. Two uses of A make A
// ineligible and selection falls through to B.
func TestSelect_FallsThroughWhenOverLimit(t *testing.T) {
	ctx := context.Background()
	a := dialogModel("a", 1, 2)
	b := dialogModel("b", 2, 5)
	s, led, _ := newSelector(t, a, b)

	led.Register(ctx, a, 10)
	led.Register(ctx, a, 10)

	if led.CanUse(ctx, a, 10) {
		t.Fatal("expected a over its rpm limit")
	}
	m, ok := s.Select(ctx, types.TaskDialog, 10)
	if !ok {
		t.Fatal("expected a candidate")
	}
	if m.ID != "b" {
		t.Errorf("expected b after a exhausted, got %s", m.ID)
	}
}

func TestSelect_SkipsBlacklisted(t *testing.T) {
	s, _, bl := newSelector(t, dialogModel("a", 1, 5), dialogModel("b", 2, 5))

	bl.Blacklist("a", time.Minute, "quota_exceeded")
	m, ok := s.Select(context.Background(), types.TaskDialog, 10)
	if !ok {
		t.Fatal("expected a candidate")
	}
	if m.ID != "b" {
		t.Errorf("expected blacklisted a skipped, got %s", m.ID)
	}
	if bl.IsBlacklisted(m.ID) {
		t.Error("selected model is blacklisted")
	}
}

func TestSelect_ExhaustionReturnsNone(t *testing.T) {
	ctx := context.Background()
	a := dialogModel("a", 1, 1)
	b := dialogModel("b", 2, 1)
	s, led, bl := newSelector(t, a, b)

	led.Register(ctx, a, 10)
	bl.Blacklist("b", time.Hour, "auth_error")

	if _, ok := s.Select(ctx, types.TaskDialog, 10); ok {
		t.Error("expected no candidate when all models are blocked")
	}
}

func TestSelect_NoModelsForTask(t *testing.T) {
	s, _, _ := newSelector(t, dialogModel("a", 1, 5))
	if _, ok := s.Select(context.Background(), types.TaskVision, 10); ok {
		t.Error("expected no candidate for unsupported task type")
	}
}

func TestSelect_Deterministic(t *testing.T) {
	s, _, _ := newSelector(t, dialogModel("a", 1, 5), dialogModel("b", 1, 5), dialogModel("c", 2, 5))

	first, ok := s.Select(context.Background(), types.TaskDialog, 10)
	if !ok {
		t.Fatal("expected a candidate")
	}
	for i := 0; i < 20; i++ {
		m, ok := s.Select(context.Background(), types.TaskDialog, 10)
		if !ok || m.ID != first.ID {
			t.Fatalf("selection not deterministic: got %s then %s", first.ID, m.ID)
		}
	}
}

func TestSelectExcluding_SkipsTriedModels(t *testing.T) {
	s, _, _ := newSelector(t, dialogModel("a", 1, 5), dialogModel("b", 2, 5))

	tried := map[string]bool{"a": true}
	m, ok := s.SelectExcluding(context.Background(), types.TaskDialog, 10, tried)
	if !ok {
		t.Fatal("expected a candidate")
	}
	if m.ID != "b" {
		t.Errorf("expected excluded a skipped, got %s", m.ID)
	}

	tried["b"] = true
	if _, ok := s.SelectExcluding(context.Background(), types.TaskDialog, 10, tried); ok {
		t.Error("expected exhaustion when all models excluded")
	}
}
