// Package mock provides a deterministic in-process llm.Provider for tests and
// local development. No network calls are made.
package mock

import (
	"context"
	"sync"

	"github.com/recollect-ai/recollect-go/pkg/llm"
)

// Provider is a scriptable mock LLM.
//
// By default it echoes a canned acknowledgment. Tests can set Response or
// Err to control behavior, and inspect Calls afterwards.
type Provider struct {
	mu sync.Mutex

	// Response is returned from every generation call when Err is nil.
	Response string

	// Err, when set, is returned from every generation call.
	Err error

	// Calls records the message history of each generation call.
	Calls [][]llm.Message
}

// New creates a mock provider with a default response.
func New() *Provider {
	return &Provider{Response: "Understood."}
}

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	return p.GenerateWithMessages(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

// GenerateWithMessages implements llm.Provider.
func (p *Provider) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	recorded := make([]llm.Message, len(messages))
	copy(recorded, messages)
	p.Calls = append(p.Calls, recorded)

	if p.Err != nil {
		return "", p.Err
	}
	return p.Response, nil
}

// CallCount returns the number of generation calls made so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Close implements llm.Provider.
func (p *Provider) Close() error {
	return nil
}
