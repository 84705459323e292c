package registry

import (
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/types"
)

// Limits are the three quota dimensions tracked per model.
type Limits struct {
	RPM int // requests per minute
	TPM int // tokens per minute
	RPD int // requests per day
}

// Model is an immutable descriptor for one upstream model endpoint.
// Built once at startup from configuration; never mutated afterwards.
type Model struct {
	ID        string
	Provider  string
	TaskTypes []types.TaskType

	// Priority orders candidates: lower values are tried first.
	Priority int

	Limits Limits
}

func (m Model) SupportsTask(t types.TaskType) bool {
	for _, tt := range m.TaskTypes {
		if tt == t {
			return true
		}
	}
	return false
}
