package llm

import (
	"context"
	"fmt"

	"resty.dev/v3"
)

const (
	anthropicAPI   = "https://api.anthropic.com"
	anthropicModel = "claude-haiku-4-5-20251001"
)

// Anthropic calls the Anthropic Messages API directly.
type Anthropic struct {
	apiKey     string
	model      string
	maxRetries uint
	client     *resty.Client
}

// NewAnthropic creates a new Anthropic API client.
func NewAnthropic(apiKey, model string, opts Options) *Anthropic {
	if model == "" {
		model = anthropicModel
	}
	client := newHTTPClient(opts, anthropicAPI)
	client.SetHeader("x-api-key", apiKey)
	client.SetHeader("anthropic-version", "2023-06-01")
	return &Anthropic{
		apiKey:     apiKey,
		model:      model,
		maxRetries: opts.MaxRetries,
		client:     client,
	}
}

func (a *Anthropic) Available() bool { return a.apiKey != "" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends a prompt to the Anthropic API.
func (a *Anthropic) Complete(ctx context.Context, prompt string) (*Response, error) {
	req := anthropicRequest{
		Model:       a.model,
		MaxTokens:   2048,
		Temperature: 0.3,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	}

	var result anthropicResponse
	if err := post(ctx, a.client, "anthropic", "/v1/messages", a.maxRetries, req, &result); err != nil {
		return nil, err
	}
	if len(result.Content) == 0 {
		return nil, fmt.Errorf("anthropic api: empty content")
	}

	return &Response{
		Content:    result.Content[0].Text,
		Provider:   "anthropic",
		TokensUsed: result.Usage.InputTokens + result.Usage.OutputTokens,
	}, nil
}
