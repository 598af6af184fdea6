package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is one scripted answer. Stop defaults to StopEnd.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Stop    string
	Err     error
}

// MockProvider replays scripted answers in order and records every
// request. Answers go through the same checks as a real adapter, so a
// scripted StopMaxTokens on a JSON request fails the same way.
type MockProvider struct {
	mu     sync.Mutex
	script []MockResponse
	model  string
	Calls  []Request
}

func NewMockProvider(script ...MockResponse) *MockProvider {
	return &MockProvider{script: script, model: "mock"}
}

// WithModel sets the model id the mock reports.
func (m *MockProvider) WithModel(model string) *MockProvider {
	m.mu.Lock()
	m.model = model
	m.mu.Unlock()
	return m
}

// Generate pops the next scripted answer. An exhausted script behaves
// like an unreachable vendor.
func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)
	if len(m.script) == 0 {
		return nil, &ErrProviderUnavailable{}
	}
	next := m.script[0]
	m.script = m.script[1:]
	if next.Err != nil {
		return nil, next.Err
	}

	stop := next.Stop
	if stop == "" {
		stop = StopEnd
	}
	return finish(req, next.Content, stop, "scripted", next.Usage, m.model)
}

func (m *MockProvider) ModelID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

// CallCount returns how many requests the mock has seen.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
