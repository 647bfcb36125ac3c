package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/tarkai/trustlens/internal/core/ports"
)

// MockProvider replays scripted responses in order. It backs mock mode and
// pipeline tests, where no model backend is reachable.
type MockProvider struct {
	mu        sync.Mutex
	responses []string
	calls     int
	cycle     bool
	err       error
}

// NewMockProvider creates a provider that returns the given responses one
// per Generate call, in order.
func NewMockProvider(responses ...string) *MockProvider {
	return &MockProvider{responses: responses}
}

// NewCyclingMockProvider replays the script repeatedly. It backs mock mode,
// where every pipeline run should succeed with canned data.
func NewCyclingMockProvider(responses ...string) *MockProvider {
	return &MockProvider{responses: responses, cycle: true}
}

// FailWith makes every subsequent call return err instead of a response.
func (m *MockProvider) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many Generate invocations were made.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockProvider) Generate(_ context.Context, _ []ports.Message, _ *ports.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", fmt.Errorf("%w: mock provider has no scripted response", ports.ErrLLMConnection)
	}
	if m.cycle {
		return m.responses[(m.calls-1)%len(m.responses)], nil
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func (m *MockProvider) GenerateStream(ctx context.Context, messages []ports.Message, opts *ports.GenerateOptions) (<-chan ports.StreamChunk, error) {
	text, err := m.Generate(ctx, messages, opts)
	if err != nil {
		return nil, err
	}
	out := make(chan ports.StreamChunk, 1)
	out <- ports.StreamChunk{Text: text}
	close(out)
	return out, nil
}
