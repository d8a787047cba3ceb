package llm

import (
	"context"
	"fmt"

	"resty.dev/v3"
)

const (
	geminiAPI   = "https://generativelanguage.googleapis.com"
	geminiModel = "gemini-2.0-flash"
)

// Gemini calls the Google Generative Language API.
type Gemini struct {
	apiKey     string
	model      string
	maxRetries uint
	client     *resty.Client
}

// NewGemini creates a new Gemini API client.
func NewGemini(apiKey, model string, opts Options) *Gemini {
	if model == "" {
		model = geminiModel
	}
	client := newHTTPClient(opts, geminiAPI)
	client.SetHeader("x-goog-api-key", apiKey)
	return &Gemini{
		apiKey:     apiKey,
		model:      model,
		maxRetries: opts.MaxRetries,
		client:     client,
	}
}

func (g *Gemini) Available() bool { return g.apiKey != "" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Complete sends a prompt to the generateContent endpoint.
func (g *Gemini) Complete(ctx context.Context, prompt string) (*Response, error) {
	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}
	req.GenerationConfig.Temperature = 0.3
	req.GenerationConfig.MaxOutputTokens = 2048

	var result geminiResponse
	path := "/v1beta/models/" + g.model + ":generateContent"
	if err := post(ctx, g.client, "gemini", path, g.maxRetries, req, &result); err != nil {
		return nil, err
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini api: empty candidates")
	}

	return &Response{
		Content:    result.Candidates[0].Content.Parts[0].Text,
		Provider:   "gemini",
		TokensUsed: result.UsageMetadata.TotalTokenCount,
	}, nil
}
