package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/config"
	"github.com/annachemerisbvg4-stack/GopiAI-sub010/internal/types"
)

// AnthropicDispatcher talks to the Anthropic Messages API.
type AnthropicDispatcher struct {
	name   string
	cfg    config.ProviderConfig
	client *http.Client
}

func NewAnthropicDispatcher(name string, cfg config.ProviderConfig, client *http.Client) *AnthropicDispatcher {
	return &AnthropicDispatcher{name: name, cfg: cfg, client: client}
}

func (d *AnthropicDispatcher) Name() string { return d.name }

func (d *AnthropicDispatcher) Dispatch(ctx context.Context, model string, req *types.ChatRequest) Outcome {
	// System messages move to the dedicated field
	var system string
	var messages []anthropicMessage
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		messages = append(messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}

	// Anthropic requires max_tokens
	maxTokens := 4096
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	body := anthropicRequestBody{
		Model:       model,
		Messages:    messages,
		System:      system,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return failure(KindTransient, false, fmt.Errorf("marshal anthropic request: %w", err))
	}

	url := d.cfg.BaseURL + "/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return failure(KindTransient, false, fmt.Errorf("create http request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", d.cfg.APIKey)
	for k, v := range d.cfg.Headers {
		if v != "" {
			httpReq.Header.Set(k, v)
		}
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return failure(KindTransient, false, fmt.Errorf("send anthropic request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(KindTransient, true, fmt.Errorf("read anthropic response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return failure(classifyStatus(resp.StatusCode), true,
			fmt.Errorf("anthropic returned status %d: %s", resp.StatusCode, string(raw)))
	}

	var antResp anthropicResponseBody
	if err := json.Unmarshal(raw, &antResp); err != nil {
		return failure(KindTransient, true, fmt.Errorf("unmarshal anthropic response: %w", err))
	}

	var content string
	for _, block := range antResp.Content {
		if block.Type == "text" {
			content = block.Text
			break
		}
	}

	return success(&types.ChatResponse{
		RequestID: req.RequestID,
		Model:     antResp.Model,
		Provider:  d.name,
		Choices: []types.Choice{
			{
				Index:        0,
				Message:      types.Message{Role: "assistant", Content: content},
				FinishReason: mapStopReason(antResp.StopReason),
			},
		},
		Usage: types.Usage{
			PromptTokens:     antResp.Usage.InputTokens,
			CompletionTokens: antResp.Usage.OutputTokens,
			TotalTokens:      antResp.Usage.InputTokens + antResp.Usage.OutputTokens,
		},
	})
}

func mapStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	default:
		return reason
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequestBody struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicResponseBody struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}
