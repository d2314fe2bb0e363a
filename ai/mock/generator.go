package mock

import (
	"context"
	"sync"

	"github.com/poiesic/vidrag/ai"
)

// DefaultReply is returned by MockGenerator when no GenerateFunc is set.
const DefaultReply = "mock reply"

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	GenerateFunc func(ctx context.Context, prompt ai.Prompt) (string, error)

	mu      sync.Mutex
	prompts []ai.Prompt
}

// NewMockGenerator creates a mock generator that replies with DefaultReply.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// NewMockGeneratorWithReplies creates a mock generator that returns replies in
// order, repeating the last one once exhausted.
func NewMockGeneratorWithReplies(replies ...string) *MockGenerator {
	g := &MockGenerator{}
	g.GenerateFunc = func(ctx context.Context, prompt ai.Prompt) (string, error) {
		if len(replies) == 0 {
			return DefaultReply, nil
		}
		n := g.CallCount() - 1
		if n >= len(replies) {
			n = len(replies) - 1
		}
		return replies[n], nil
	}
	return g
}

// Generate records the prompt and returns the injected or default reply.
func (g *MockGenerator) Generate(ctx context.Context, prompt ai.Prompt) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	fn := g.GenerateFunc
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt)
	}
	return DefaultReply, nil
}

// CallCount returns the number of Generate calls.
func (g *MockGenerator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// Prompts returns a copy of every prompt received, in call order.
func (g *MockGenerator) Prompts() []ai.Prompt {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ai.Prompt, len(g.prompts))
	copy(out, g.prompts)
	return out
}

// LastPrompt returns the most recent prompt, or false if none was received.
func (g *MockGenerator) LastPrompt() (ai.Prompt, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ai.Prompt{}, false
	}
	return g.prompts[len(g.prompts)-1], true
}

// Reset clears recorded prompts and injected behavior.
func (g *MockGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = nil
	g.GenerateFunc = nil
}
