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

// OpenAIDispatcher talks to OpenAI-compatible chat completion APIs.
type OpenAIDispatcher struct {
	name   string
	cfg    config.ProviderConfig
	client *http.Client
}

func NewOpenAIDispatcher(name string, cfg config.ProviderConfig, client *http.Client) *OpenAIDispatcher {
	return &OpenAIDispatcher{name: name, cfg: cfg, client: client}
}

func (d *OpenAIDispatcher) Name() string { return d.name }

func (d *OpenAIDispatcher) Dispatch(ctx context.Context, model string, req *types.ChatRequest) Outcome {
	body := openAIRequestBody{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return failure(KindTransient, false, fmt.Errorf("marshal openai request: %w", err))
	}

	url := d.cfg.BaseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return failure(KindTransient, false, fmt.Errorf("create http request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)
	for k, v := range d.cfg.Headers {
		if v != "" {
			httpReq.Header.Set(k, v)
		}
	}

	// A transport error (including caller cancellation before the
	// request went out) counts as not sent: no provider acknowledged
	// receiving it, so its ledger reservation is released.
	resp, err := d.client.Do(httpReq)
	if err != nil {
		return failure(KindTransient, false, fmt.Errorf("send openai request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(KindTransient, true, fmt.Errorf("read openai response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return failure(classifyStatus(resp.StatusCode), true,
			fmt.Errorf("openai returned status %d: %s", resp.StatusCode, string(raw)))
	}

	var oaiResp openAIResponseBody
	if err := json.Unmarshal(raw, &oaiResp); err != nil {
		return failure(KindTransient, true, fmt.Errorf("unmarshal openai response: %w", err))
	}

	out := &types.ChatResponse{
		RequestID: req.RequestID,
		Model:     oaiResp.Model,
		Provider:  d.name,
		Usage: types.Usage{
			PromptTokens:     oaiResp.Usage.PromptTokens,
			CompletionTokens: oaiResp.Usage.CompletionTokens,
			TotalTokens:      oaiResp.Usage.TotalTokens,
		},
	}
	for _, c := range oaiResp.Choices {
		out.Choices = append(out.Choices, types.Choice{
			Index:        c.Index,
			Message:      types.Message{Role: c.Message.Role, Content: c.Message.Content},
			FinishReason: c.FinishReason,
		})
	}
	return success(out)
}

type openAIRequestBody struct {
	Model       string          `json:"model"`
	Messages    []types.Message `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
}

type openAIResponseBody struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int           `json:"index"`
		Message      types.Message `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
