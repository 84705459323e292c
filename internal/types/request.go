package types

import "time"

// ChatRequest is the canonical internal representation of an incoming
// chat/task request. The router decides which model serves it; callers
// never name a model directly.
type ChatRequest struct {
	RequestID string `json:"request_id"`

	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`

	// Context is optional retrieval text supplied by the memory
	// subsystem. It participates in token estimation only.
	Context string `json:"context,omitempty"`

	// Internal tracking
	ReceivedAt      time.Time `json:"-"`
	EstimatedTokens int       `json:"-"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserText concatenates the user-authored message contents. This is the
// text the complexity classifier scores.
func (r *ChatRequest) UserText() string {
	var out string
	for _, m := range r.Messages {
		if m.Role != "user" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += m.Content
	}
	return out
}

// EstimateTokens returns a deterministic token estimate for the request:
// total prompt characters divided by four, rounded up, never below one.
// The reservation made against the ledger uses this number; quota is
// consumed by sent requests, not by completed ones.
func (r *ChatRequest) EstimateTokens() int {
	chars := len(r.Context)
	for _, m := range r.Messages {
		chars += len(m.Content)
	}
	n := (chars + 3) / 4
	if n < 1 {
		n = 1
	}
	return n
}
