// Package anthropic provides an Anthropic-backed implementation of llm.Provider
// using the official anthropic-sdk-go Messages API.
package anthropic

import (
	"context"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/recollect-ai/recollect-go/pkg/llm"
)

// Client is an Anthropic LLM client.
// It implements the llm.Provider interface on top of the Messages API.
type Client struct {
	client *anthropic.Client
	model  string
}

// Config is the configuration for the Anthropic LLM client.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// Model is the model name to use, defaults to "claude-3-5-sonnet-latest".
	Model string

	// BaseURL is the API base URL, defaults to the Anthropic official address.
	BaseURL string
}

// NewClient creates a new Anthropic LLM client.
func NewClient(cfg *Config) (*Client, error) {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-sonnet-latest"
	}

	client := anthropic.NewClient(opts...)

	return &Client{
		client: &client,
		model:  model,
	}, nil
}

// Generate generates text based on the prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	messages := []llm.Message{
		{Role: "user", Content: prompt},
	}
	return c.GenerateWithMessages(ctx, messages, opts...)
}

// GenerateWithMessages generates text using message history.
//
// System messages are collected into the request's System field; user and
// assistant messages are forwarded in order.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	var systemParts []string
	var sdkMessages []anthropic.MessageParam
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			systemParts = append(systemParts, msg.Content)
		case "assistant":
			sdkMessages = append(sdkMessages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			sdkMessages = append(sdkMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	if len(sdkMessages) == 0 {
		return "", errors.New("llm generation failed: no user or assistant messages to send")
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(options.MaxTokens),
		Messages:    sdkMessages,
		Temperature: anthropic.Float(options.Temperature),
	}
	if len(systemParts) > 0 {
		params.System = []anthropic.TextBlockParam{
			{Text: strings.Join(systemParts, "\n\n")},
		}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", errors.New("llm generation failed: no text content returned from Anthropic API")
}

// Close closes the client connection.
// The Anthropic SDK client does not require explicit closing; this method is
// retained for interface compatibility.
func (c *Client) Close() error {
	return nil
}
