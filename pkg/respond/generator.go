// Package respond assembles the conversational context for a turn and
// produces the assistant's reply through an LLM provider.
//
// The context is built in a fixed order: the system persona, the retrieved
// memories grouped by type with the most relevant first, and a bounded window
// of recent turns. When the provider fails after retries, the generator falls
// back to a fixed, regime-appropriate canned reply rather than failing the
// turn.
package respond

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/recollect-ai/recollect-go/pkg/core"
	"github.com/recollect-ai/recollect-go/pkg/llm"
)

// DefaultPersona is used when no persona is configured.
const DefaultPersona = "You are a helpful personal assistant. You remember what the user has told you in past conversations and use those recollections naturally when they are relevant. Be concise and warm."

// Canned fallback replies per regime, returned when the model cannot be
// reached. They never leak internal error detail.
var fallbackReplies = map[core.PrivacyRegime]string{
	core.RegimeNormal:         "I'm having trouble forming a full reply right now. Could you try asking again in a moment?",
	core.RegimeIncognito:      "I'm having trouble replying right now. Nothing from this incognito conversation has been stored.",
	core.RegimePauseRetention: "I'm having trouble forming a full reply right now. As requested, nothing from this conversation is being saved.",
}

// Generator builds prompts and produces replies.
type Generator struct {
	provider llm.Provider
	persona  string
	now      func() time.Time
}

// New creates a generator over the given provider. An empty persona falls
// back to DefaultPersona.
func New(provider llm.Provider, persona string) *Generator {
	if persona == "" {
		persona = DefaultPersona
	}
	return &Generator{provider: provider, persona: persona, now: time.Now}
}

// Request carries everything the generator needs for one reply.
type Request struct {
	// UserMessage is the sanitized text of the user's turn.
	UserMessage string

	// Memories are the ranked retrieval candidates for this turn.
	Memories []*core.RetrievalCandidate

	// RecentTurns is the bounded window of prior messages, oldest first.
	RecentTurns []*core.ChatMessage

	// Regime is the active privacy regime, used to pick the fallback reply.
	Regime core.PrivacyRegime
}

// Generate produces the assistant reply for the request.
//
// On provider failure the error is returned alongside the regime-appropriate
// fallback text, so the caller can both log the failure and still hand the
// user a reply.
func (g *Generator) Generate(ctx context.Context, req *Request) (string, error) {
	messages := g.BuildMessages(req)

	reply, err := g.provider.GenerateWithMessages(ctx, messages, llm.WithTemperature(0.7), llm.WithMaxTokens(1000))
	if err != nil {
		return Fallback(req.Regime), core.NewPipelineError("GenerateResponse", fmt.Errorf("%w: %v", core.ErrExternalService, err))
	}

	return strings.TrimSpace(reply), nil
}

// BuildMessages assembles the full message list sent to the model: persona,
// memory context, recent turns, then the current user message.
func (g *Generator) BuildMessages(req *Request) []llm.Message {
	messages := []llm.Message{{Role: llm.RoleSystem, Content: g.persona}}

	if memoryContext := g.formatMemories(req.Memories); memoryContext != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: memoryContext})
	}

	for _, turn := range req.RecentTurns {
		role := llm.RoleUser
		if turn.Role == "assistant" {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.UserMessage})
	return messages
}

// formatMemories renders the retrieved memories grouped by type in fixed
// category order, most relevant first within each group, each annotated with
// its relevance score and age.
func (g *Generator) formatMemories(memories []*core.RetrievalCandidate) string {
	if len(memories) == 0 {
		return ""
	}

	groups := make(map[core.MemoryType][]*core.RetrievalCandidate)
	for _, candidate := range memories {
		groups[candidate.Memory.Type] = append(groups[candidate.Memory.Type], candidate)
	}

	var b strings.Builder
	b.WriteString("What you remember about the user:\n")
	for _, memType := range core.MemoryTypes {
		group := groups[memType]
		if len(group) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("\n%s:\n", headingFor(memType)))
		for _, candidate := range group {
			b.WriteString(fmt.Sprintf("- %s (relevance %.2f, %s)\n",
				candidate.Memory.Content,
				candidate.RelevanceScore,
				formatAge(g.now().Sub(candidate.Memory.CreatedAt))))
		}
	}

	return b.String()
}

// Fallback returns the canned reply for a regime.
func Fallback(regime core.PrivacyRegime) string {
	if reply, ok := fallbackReplies[regime]; ok {
		return reply
	}
	return fallbackReplies[core.RegimeNormal]
}

func headingFor(memType core.MemoryType) string {
	switch memType {
	case core.MemoryFact:
		return "Facts"
	case core.MemoryPreference:
		return "Preferences"
	case core.MemoryEvent:
		return "Events"
	case core.MemoryRelationship:
		return "Relationships"
	default:
		return "Other notes"
	}
}

// formatAge renders a duration as a coarse human-readable age.
func formatAge(age time.Duration) string {
	switch {
	case age < time.Hour:
		return "just now"
	case age < 24*time.Hour:
		hours := int(age.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	default:
		days := int(age.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}
