package config

import (
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/registry"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/types"
)

// ModelsConfig is the declarative model catalogue (models.yaml). Loaded
// once at startup; a malformed entry fails the load, never a request.
type ModelsConfig struct {
	Models []ModelEntry `yaml:"models"`
}

// ModelEntry is one record of the registry wire format.
type ModelEntry struct {
	ID        string   `yaml:"id" json:"id"`
	Provider  string   `yaml:"provider" json:"provider"`
	TaskTypes []string `yaml:"task_types" json:"task_types"`
	Priority  int      `yaml:"priority" json:"priority"`
	RPM       int      `yaml:"rpm" json:"rpm"`
	TPM       int      `yaml:"tpm" json:"tpm"`
	RPD       int      `yaml:"rpd" json:"rpd"`
}

// BuildRegistry converts the wire entries into the validated registry.
// Validation errors are *registry.ConfigError values.
func (c *ModelsConfig) BuildRegistry() (*registry.Registry, error) {
	models := make([]registry.Model, 0, len(c.Models))
	for _, e := range c.Models {
		tasks := make([]types.TaskType, 0, len(e.TaskTypes))
		for _, t := range e.TaskTypes {
			tasks = append(tasks, types.TaskType(t))
		}
		models = append(models, registry.Model{
			ID:        e.ID,
			Provider:  e.Provider,
			TaskTypes: tasks,
			Priority:  e.Priority,
			Limits:    registry.Limits{RPM: e.RPM, TPM: e.TPM, RPD: e.RPD},
		})
	}
	return registry.New(models)
}
