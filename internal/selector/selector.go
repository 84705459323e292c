package selector

import (
	"context"

	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/blacklist"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/ledger"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/registry"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/types"
)

// Selector picks the best eligible model for a task. Selection is
// deterministic: the same registry, ledger and blacklist state always
// yields the same choice. Static priority is the only ordering; there
// is no randomness and no load-based tie-breaking.
//
// The ledger read here is advisory. Between Select and the dispatch
// another caller may consume the last remaining slot; the dispatcher
// closes that race by re-validating with an atomic ledger Reserve at
// registration time and failing over if rejected.
type Selector struct {
	registry  *registry.Registry
	ledger    ledger.Store
	blacklist *blacklist.Manager
}

func New(reg *registry.Registry, led ledger.Store, bl *blacklist.Manager) *Selector {
	return &Selector{registry: reg, ledger: led, blacklist: bl}
}

// Select returns the highest-priority model for the task that is
// neither blacklisted nor over any of its three limits. The second
// return is false when no candidate remains; callers must treat that
// as a normal, handleable outcome.
func (s *Selector) Select(ctx context.Context, task types.TaskType, tokens int) (registry.Model, bool) {
	return s.SelectExcluding(ctx, task, tokens, nil)
}

// SelectExcluding is Select with an extra per-request exclusion set,
// used during failover so a model already tried for this request is not
// offered again.
func (s *Selector) SelectExcluding(ctx context.Context, task types.TaskType, tokens int, exclude map[string]bool) (registry.Model, bool) {
	for _, m := range s.registry.ModelsForTask(task) {
		if exclude[m.ID] {
			continue
		}
		if s.blacklist.IsBlacklisted(m.ID) {
			continue
		}
		if !s.ledger.CanUse(ctx, m, tokens) {
			continue
		}
		return m, true
	}
	return registry.Model{}, false
}
