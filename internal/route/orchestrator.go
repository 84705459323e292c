package route

import (
	"context"

	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/classify"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/selector"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/types"
)

// Orchestrator is the multi-agent execution engine collaborator. The
// engine itself (crew construction, task graphs, tool execution) lives
// outside this subsystem; the router only decides whether to hand off.
// Implementations needing a model reuse the shared ModelSelector so
// nested selections draw from the same ledger and blacklist state.
type Orchestrator interface {
	Execute(ctx context.Context, req *types.ChatRequest, score classify.Score) (*types.ChatResponse, error)
}

// AckOrchestrator is the built-in placeholder engine: it picks the lead
// model through the shared selector and acknowledges the handoff
// without running a crew. Deployments embed a real engine behind the
// same interface.
type AckOrchestrator struct {
	selector *selector.Selector
}

func NewAckOrchestrator(sel *selector.Selector) *AckOrchestrator {
	return &AckOrchestrator{selector: sel}
}

func (o *AckOrchestrator) Execute(ctx context.Context, req *types.ChatRequest, score classify.Score) (*types.ChatResponse, error) {
	task := score.TaskType()
	m, ok := o.selector.Select(ctx, task, req.EstimatedTokens)
	if !ok {
		return nil, &NoModelAvailableError{Task: task}
	}

	return &types.ChatResponse{
		RequestID: req.RequestID,
		Model:     m.ID,
		Provider:  m.Provider,
		Choices: []types.Choice{
			{
				Index: 0,
				Message: types.Message{
					Role:    "assistant",
					Content: "Request accepted for multi-agent execution.",
				},
				FinishReason: "stop",
			},
		},
	}, nil
}
