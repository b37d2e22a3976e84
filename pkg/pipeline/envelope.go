// Package pipeline orchestrates the per-turn memory pipeline: privacy
// screening, memory retrieval, response generation, memory extraction, and
// periodic session analysis, sequenced by the active privacy regime.
package pipeline

import (
	"github.com/recollect-ai/recollect-go/pkg/core"
)

// Pipeline step names. They key the per-step token budgets and appear on
// step envelopes.
const (
	StepPrivacyCheck       = "privacy_check"
	StepMemoryRetrieval    = "memory_retrieval"
	StepResponseGeneration = "response_generation"
	StepMemoryExtraction   = "memory_extraction"
	StepAnalysis           = "analysis"
)

// Skip reasons recorded on skipped steps.
const (
	SkipReasonIncognito = "incognito"
	SkipReasonPaused    = "paused"
	SkipReasonNotDue    = "not due"
	SkipReasonFailed    = "failed"
)

// TurnInput is the uniform input envelope for a turn. The API layer maps
// HTTP requests onto it.
type TurnInput struct {
	// SessionID identifies the conversation.
	SessionID string `json:"session_id"`

	// UserMessage is the raw user message text.
	UserMessage string `json:"user_message"`

	// PrivacyMode is the active privacy regime for the session.
	PrivacyMode core.PrivacyRegime `json:"privacy_mode"`

	// ProfileID identifies the memory profile the session runs under.
	ProfileID string `json:"profile_id"`

	// Context carries optional caller-supplied metadata. It is passed
	// through to the turn result untouched.
	Context map[string]interface{} `json:"context,omitempty"`
}

// StepResult is the uniform output envelope every pipeline step produces.
type StepResult struct {
	// Step is the step name.
	Step string `json:"step"`

	// Success reports whether the step completed without error. Skipped
	// steps are successful.
	Success bool `json:"success"`

	// Data holds step-specific output.
	Data map[string]interface{} `json:"data,omitempty"`

	// Error is the human-readable failure description, empty on success.
	Error string `json:"error,omitempty"`

	// ErrorCode is the machine-readable failure code, empty on success.
	ErrorCode string `json:"error_code,omitempty"`

	// TokensUsed is the estimated token consumption of the step.
	TokensUsed int `json:"tokens_used"`

	// ExecutionTimeMS is the wall-clock duration of the step.
	ExecutionTimeMS int64 `json:"execution_time_ms"`

	// Skipped reports whether the regime or schedule skipped the step.
	Skipped bool `json:"skipped,omitempty"`

	// SkipReason records why a skipped step did not run.
	SkipReason string `json:"skip_reason,omitempty"`
}

// TurnResult aggregates everything a completed (or rejected) turn produced.
type TurnResult struct {
	// TurnID uniquely identifies this turn.
	TurnID string `json:"turn_id"`

	// SessionID echoes the input session.
	SessionID string `json:"session_id"`

	// ProfileID echoes the input profile.
	ProfileID string `json:"profile_id"`

	// Regime is the privacy regime the turn ran under.
	Regime core.PrivacyRegime `json:"privacy_mode"`

	// Reply is the assistant's reply, or the rejection text when the turn
	// was blocked. It never contains internal error detail.
	Reply string `json:"reply"`

	// Rejected reports whether the privacy check blocked the turn.
	Rejected bool `json:"rejected,omitempty"`

	// RejectionReason explains a rejection in user-facing terms.
	RejectionReason string `json:"rejection_reason,omitempty"`

	// Steps holds one envelope per pipeline step, in execution order.
	Steps []*StepResult `json:"steps"`

	// Warnings aggregates non-fatal notices: privacy findings, strategy
	// failures, and budget overruns.
	Warnings []string `json:"warnings,omitempty"`

	// MemoryIDs lists the memories created by this turn.
	MemoryIDs []int64 `json:"memory_ids,omitempty"`

	// TokensUsed is the estimated total token consumption of the turn.
	TokensUsed int `json:"tokens_used"`

	// Context echoes the caller-supplied metadata.
	Context map[string]interface{} `json:"context,omitempty"`
}

// StepFor returns the envelope recorded for a step name, or nil.
func (r *TurnResult) StepFor(name string) *StepResult {
	for _, step := range r.Steps {
		if step.Step == name {
			return step
		}
	}
	return nil
}
