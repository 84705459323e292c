package registry

import (
	"fmt"
	"sort"

	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/types"
)

// ConfigError reports a malformed model entry. It is fatal at load
// time; the registry never surfaces malformed entries at use time.
type ConfigError struct {
	ModelID string
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.ModelID == "" {
		return "model registry: " + e.Reason
	}
	return fmt.Sprintf("model registry: %s: %s", e.ModelID, e.Reason)
}

// Registry is the static catalogue of available models. Read-only after
// construction, so it is safe for concurrent use without locking.
type Registry struct {
	models []Model
	byID   map[string]Model
}

// New validates the given descriptors and builds a registry. Any
// malformed entry (duplicate id, missing limits, no task types) yields
// a *ConfigError.
func New(models []Model) (*Registry, error) {
	byID := make(map[string]Model, len(models))
	for _, m := range models {
		if m.ID == "" {
			return nil, &ConfigError{Reason: "model id is required"}
		}
		if _, dup := byID[m.ID]; dup {
			return nil, &ConfigError{ModelID: m.ID, Reason: "duplicate model id"}
		}
		if m.Provider == "" {
			return nil, &ConfigError{ModelID: m.ID, Reason: "provider is required"}
		}
		if len(m.TaskTypes) == 0 {
			return nil, &ConfigError{ModelID: m.ID, Reason: "at least one task type is required"}
		}
		for _, t := range m.TaskTypes {
			if _, ok := types.ParseTaskType(string(t)); !ok {
				return nil, &ConfigError{ModelID: m.ID, Reason: fmt.Sprintf("unknown task type %q", t)}
			}
		}
		if m.Priority < 0 {
			return nil, &ConfigError{ModelID: m.ID, Reason: "priority must be non-negative"}
		}
		if m.Limits.RPM <= 0 || m.Limits.TPM <= 0 || m.Limits.RPD <= 0 {
			return nil, &ConfigError{ModelID: m.ID, Reason: "rpm, tpm and rpd limits must be positive"}
		}
		byID[m.ID] = m
	}

	sorted := make([]Model, len(models))
	copy(sorted, models)
	// Lower priority value means tried first; ties break on id so
	// selection stays deterministic.
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].ID < sorted[j].ID
	})

	return &Registry{models: sorted, byID: byID}, nil
}

// ModelsForTask returns the models supporting the given task type,
// ordered by priority ascending.
func (r *Registry) ModelsForTask(t types.TaskType) []Model {
	var out []Model
	for _, m := range r.models {
		if m.SupportsTask(t) {
			out = append(out, m)
		}
	}
	return out
}

// Get returns the model with the given id.
func (r *Registry) Get(id string) (Model, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// Models returns all registered models in priority order.
func (r *Registry) Models() []Model {
	out := make([]Model, len(r.models))
	copy(out, r.models)
	return out
}
