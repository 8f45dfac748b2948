package llm

import (
	"context"
	"sync"

	"github.com/centomomd/dictation-server/domain/repositories"
)

// MockCompleter is a scriptable ChatCompleter for tests.
type MockCompleter struct {
	mu       sync.Mutex
	Response repositories.CompletionResult
	Err      error
	Requests []repositories.CompletionRequest
}

func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

func (m *MockCompleter) Complete(ctx context.Context, req repositories.CompletionRequest) (repositories.CompletionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return repositories.CompletionResult{}, m.Err
	}

	resp := m.Response
	if resp.Text == "" {
		// Echo by default so pipelines remain observable in tests.
		resp.Text = req.UserContent
	}
	return resp, nil
}

func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
