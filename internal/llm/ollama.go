package llm

import (
	"context"

	"resty.dev/v3"
)

const (
	ollamaAPI   = "http://localhost:11434"
	ollamaModel = "llama3.2"
)

// Ollama calls a local Ollama instance.
type Ollama struct {
	model      string
	maxRetries uint
	client     *resty.Client
}

// NewOllama creates a new Ollama client.
func NewOllama(model string, opts Options) *Ollama {
	if model == "" {
		model = ollamaModel
	}
	return &Ollama{
		model:      model,
		maxRetries: opts.MaxRetries,
		client:     newHTTPClient(opts, ollamaAPI),
	}
}

// Available is always true; a stopped daemon shows up as a call error.
func (o *Ollama) Available() bool { return true }

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options"`
}

type ollamaResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// Complete sends a prompt to Ollama's generate endpoint.
func (o *Ollama) Complete(ctx context.Context, prompt string) (*Response, error) {
	req := ollamaRequest{
		Model:  o.model,
		Prompt: prompt,
		Options: map[string]any{
			"temperature": 0.3,
			"num_predict": 2048,
		},
	}

	var result ollamaResponse
	if err := post(ctx, o.client, "ollama", "/api/generate", o.maxRetries, req, &result); err != nil {
		return nil, err
	}

	return &Response{
		Content:    result.Response,
		Provider:   "ollama",
		TokensUsed: result.PromptEvalCount + result.EvalCount,
	}, nil
}
