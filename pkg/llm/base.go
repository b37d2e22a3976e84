// Package llm defines the completion boundary of the pipeline.
//
// A Provider turns a prompt or a conversation into text; callers never see
// the wire protocol behind it. Backends live in subpackages: openai,
// anthropic, and a scriptable mock for tests.
package llm

import "context"

// Provider is implemented by every completion backend.
type Provider interface {
	// Generate completes a single prompt string.
	//
	// Parameters:
	//   - ctx: cancellation and deadline for the call
	//   - prompt: the prompt text
	//   - opts: sampling overrides, see GenerateOption
	//
	// Returns the completion text.
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (string, error)

	// GenerateWithMessages completes a conversation, typically a system
	// message followed by alternating user and assistant turns. The reply
	// continues the conversation from the assistant's side.
	GenerateWithMessages(ctx context.Context, messages []Message, opts ...GenerateOption) (string, error)

	// Close releases any connections held by the backend.
	Close() error
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a conversation passed to GenerateWithMessages.
type Message struct {
	// Role is one of RoleSystem, RoleUser, or RoleAssistant.
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// GenerateOptions holds the sampling parameters of one completion call.
type GenerateOptions struct {
	// Temperature scales randomness; 0 is near-deterministic.
	Temperature float64

	// MaxTokens caps the length of the reply.
	MaxTokens int

	// TopP is the nucleus sampling cutoff in (0, 1].
	TopP float64

	// Stop lists sequences that terminate generation early.
	Stop []string
}

// GenerateOption mutates GenerateOptions; pass them to Generate or
// GenerateWithMessages.
type GenerateOption func(*GenerateOptions)

// WithTemperature overrides the sampling temperature.
//
// Example:
//
//	reply, _ := provider.Generate(ctx, "Hello", llm.WithTemperature(0.2))
func WithTemperature(temp float64) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.Temperature = temp
	}
}

// WithMaxTokens caps the reply length in tokens.
func WithMaxTokens(max int) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.MaxTokens = max
	}
}

// WithTopP overrides the nucleus sampling cutoff.
func WithTopP(topP float64) GenerateOption {
	return func(opts *GenerateOptions) {
		opts.TopP = topP
	}
}

// ApplyGenerateOptions folds a slice of options over the defaults
// (Temperature 0.7, MaxTokens 1000, TopP 1.0). Backends call this once at the
// top of each request.
func ApplyGenerateOptions(opts []GenerateOption) *GenerateOptions {
	options := &GenerateOptions{
		Temperature: 0.7,
		MaxTokens:   1000,
		TopP:        1.0,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
