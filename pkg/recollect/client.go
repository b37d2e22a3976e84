// Package recollect assembles the full memory pipeline from configuration.
//
// It wires the relational store, vector index, LLM, and embedding providers
// together behind a single Client so applications only deal with turns in and
// results out.
package recollect

import (
	"context"

	"github.com/recollect-ai/recollect-go/pkg/core"
	"github.com/recollect-ai/recollect-go/pkg/embedder"
	"github.com/recollect-ai/recollect-go/pkg/llm"
	"github.com/recollect-ai/recollect-go/pkg/pipeline"
	"github.com/recollect-ai/recollect-go/pkg/store"
	"github.com/recollect-ai/recollect-go/pkg/vector"
	"github.com/recollect-ai/recollect-go/pkg/vector/chromem"
)

// Client is the top-level entry point to the Recollect pipeline.
//
// It owns the providers created from configuration and the orchestrator that
// sequences pipeline steps. The client is safe for concurrent use across
// sessions; turns within one session should be processed one at a time.
//
// Example:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, _ := recollect.NewClient(config)
//	defer client.Close()
//
//	result, _ := client.ProcessTurn(ctx, &pipeline.TurnInput{
//	    SessionID:   "session-1",
//	    ProfileID:   "personal",
//	    PrivacyMode: core.RegimeNormal,
//	    UserMessage: "I love hiking in the mountains.",
//	})
//	fmt.Println(result.Reply)
type Client struct {
	config       *core.Config
	store        store.Store
	index        vector.Index
	llm          llm.Provider
	embedder     embedder.Provider
	orchestrator *pipeline.Orchestrator
}

// NewClient creates a client from configuration.
//
// The client is initialized with:
//   - Relational store (SQLite, PostgreSQL, MySQL, or in-memory)
//   - LLM provider (OpenAI, Anthropic, or mock)
//   - Embedding provider (OpenAI or mock) backing the vector index
//
// Returns an error if the configuration is invalid or a provider fails to
// initialize.
func NewClient(cfg *core.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := initStore(cfg.Store)
	if err != nil {
		return nil, err
	}

	llmProvider, err := initLLM(cfg.LLM)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	embedderProvider, err := initEmbedder(cfg.Embedder)
	if err != nil {
		_ = st.Close()
		_ = llmProvider.Close()
		return nil, err
	}

	index := chromem.New(embedderProvider)

	orchestrator, err := pipeline.New(cfg.Pipeline, st, index, llmProvider)
	if err != nil {
		_ = st.Close()
		_ = llmProvider.Close()
		_ = embedderProvider.Close()
		return nil, err
	}

	return &Client{
		config:       cfg,
		store:        st,
		index:        index,
		llm:          llmProvider,
		embedder:     embedderProvider,
		orchestrator: orchestrator,
	}, nil
}

// ProcessTurn runs one user turn through the pipeline.
func (c *Client) ProcessTurn(ctx context.Context, input *pipeline.TurnInput) (*pipeline.TurnResult, error) {
	return c.orchestrator.RunTurn(ctx, input)
}

// Memories lists a profile's stored memories, newest first.
func (c *Client) Memories(ctx context.Context, profileID string, opts *store.ListOptions) ([]*core.Memory, error) {
	return c.store.ListMemories(ctx, profileID, opts)
}

// History returns the most recent messages of a session in chronological
// order.
func (c *Client) History(ctx context.Context, sessionID string, limit int) ([]*core.ChatMessage, error) {
	return c.store.RecentMessages(ctx, sessionID, limit)
}

// Forget deletes a memory, removes it from the vector index, and drops the
// profile's cached retrieval results so no later turn can quote it.
func (c *Client) Forget(ctx context.Context, profileID string, memoryID int64) error {
	if err := c.store.DeleteMemory(ctx, profileID, memoryID); err != nil {
		return err
	}
	if err := c.index.Delete(ctx, profileID, memoryID); err != nil {
		return err
	}
	c.orchestrator.Invalidate(profileID)
	return nil
}

// Close releases all resources held by the client.
func (c *Client) Close() error {
	var first error
	for _, closer := range []func() error{
		c.orchestrator.Close,
		c.index.Close,
		c.embedder.Close,
		c.llm.Close,
		c.store.Close,
	} {
		if err := closer(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
