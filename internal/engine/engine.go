// Package engine orchestrates the AI study features and the periodic
// review reminder sweep.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lazypower/lumine/internal/llm"
	"github.com/lazypower/lumine/internal/review"
	"github.com/lazypower/lumine/internal/srs"
	"github.com/lazypower/lumine/internal/store"
)

// Engine wires the AI provider to the note store and runs background work.
type Engine struct {
	DB       *store.DB
	LLM      llm.Client
	Reviews  *review.Service
	Notifier Notifier

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a new Engine. client may be nil when no provider is configured.
func New(db *store.DB, client llm.Client, reviews *review.Service) *Engine {
	return &Engine{
		DB:       db,
		LLM:      client,
		Reviews:  reviews,
		Notifier: LogNotifier{},
		stopCh:   make(chan struct{}),
	}
}

// Available reports whether AI features can be served.
func (e *Engine) Available() bool {
	return e.LLM != nil && e.LLM.Available()
}

// Stop shuts down the engine's background goroutines.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

func (e *Engine) complete(ctx context.Context, prompt string) (string, error) {
	if !e.Available() {
		return "", llm.ErrUnavailable
	}
	resp, err := e.LLM.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", llm.ErrUnavailable, err)
	}
	return strings.TrimSpace(resp.Content), nil
}

func requireText(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: %s is required", srs.ErrInvalidInput, field)
	}
	return s, nil
}
