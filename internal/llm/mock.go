package llm

import (
	"context"
	"sync"
)

// MockClient is a test double for the LLM Client interface.
// It can also be used for dry-run mode.
type MockClient struct {
	Response *Response
	Err      error
	// Unavailable makes Available report false.
	Unavailable bool

	mu    sync.Mutex
	Calls []string // records prompts sent
}

// Complete records the call and returns the mock response.
func (m *MockClient) Complete(ctx context.Context, prompt string) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, prompt)
	return m.Response, m.Err
}

func (m *MockClient) Available() bool { return !m.Unavailable }
