package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"

	"github.com/recollect-ai/recollect-go/pkg/analyze"
	"github.com/recollect-ai/recollect-go/pkg/core"
	"github.com/recollect-ai/recollect-go/pkg/extract"
	"github.com/recollect-ai/recollect-go/pkg/llm"
	"github.com/recollect-ai/recollect-go/pkg/privacy"
	"github.com/recollect-ai/recollect-go/pkg/rank"
	"github.com/recollect-ai/recollect-go/pkg/respond"
	"github.com/recollect-ai/recollect-go/pkg/retrieve"
	"github.com/recollect-ai/recollect-go/pkg/store"
	"github.com/recollect-ai/recollect-go/pkg/vector"
)

// Orchestrator sequences the pipeline steps for each turn according to the
// active privacy regime, tracks token budgets, and implements the
// failure/fallback policy: a non-privacy, non-validation failure never
// prevents the user from receiving some reply.
//
// Turns for the same session are expected to run one at a time; the
// orchestrator itself is safe for concurrent use across sessions.
type Orchestrator struct {
	cfg       *core.PipelineConfig
	store     store.Store
	index     vector.Index
	enforcer  *privacy.Enforcer
	retriever *retrieve.Retriever
	generator *respond.Generator
	extractor *extract.Extractor
	analyst   *analyze.Analyst
	node      *snowflake.Node

	mu         sync.Mutex
	turnCounts map[string]int
}

// New creates an orchestrator wiring the pipeline over the given store,
// vector index, and LLM provider. A nil cfg uses defaults; a partial cfg is
// filled with defaults.
func New(cfg *core.PipelineConfig, st store.Store, index vector.Index, provider llm.Provider) (*Orchestrator, error) {
	if cfg == nil {
		cfg = core.DefaultPipelineConfig()
	} else {
		cfg.Normalize()
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, core.NewPipelineError("NewOrchestrator", err)
	}

	retriever, err := retrieve.New(st, index, rank.NewRanker(cfg.RecencyHorizonDays))
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		cfg:        cfg,
		store:      st,
		index:      index,
		enforcer:   privacy.NewEnforcer(),
		retriever:  retriever,
		generator:  respond.New(provider, cfg.Persona),
		extractor:  extract.New(),
		analyst:    analyze.New(),
		node:       node,
		turnCounts: make(map[string]int),
	}, nil
}

// Close releases the orchestrator's resources.
func (o *Orchestrator) Close() error {
	return o.retriever.Close()
}

// Invalidate drops the cached retrieval results for a profile. Callers that
// change a profile's memories outside a turn, such as deleting one, must
// invalidate or later turns can answer from stale cached retrievals.
func (o *Orchestrator) Invalidate(profileID string) {
	o.retriever.Invalidate(profileID)
}

// RunTurn processes one user turn end to end and returns the aggregated
// result.
//
// The step sequence is privacy_check, memory_retrieval,
// response_generation, memory_extraction, and periodic analysis; the regime
// decides which of them execute. A failed privacy check short-circuits the
// turn with a rejection. Malformed input returns an error; every other
// failure degrades per the fallback policy and the user still gets a reply.
func (o *Orchestrator) RunTurn(ctx context.Context, input *TurnInput) (*TurnResult, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	collector := NewCollector()
	result := &TurnResult{
		TurnID:    uuid.NewString(),
		SessionID: input.SessionID,
		ProfileID: input.ProfileID,
		Regime:    input.PrivacyMode,
		Context:   input.Context,
	}

	o.mu.Lock()
	o.turnCounts[input.SessionID]++
	turnNumber := o.turnCounts[input.SessionID]
	o.mu.Unlock()

	decision, err := o.runPrivacyCheck(input, collector)
	if err != nil {
		o.finish(result, collector)
		return result, err
	}
	for _, warning := range decision.Warnings {
		collector.Warn(warning)
	}
	if !decision.Allowed {
		result.Rejected = true
		result.RejectionReason = "blocking sensitive information detected in incognito mode"
		result.Reply = "I can't process that message because it appears to contain sensitive information. Please remove it and try again."
		o.finish(result, collector)
		return result, nil
	}
	sanitized := decision.SanitizedText

	var candidates []*core.RetrievalCandidate
	if input.PrivacyMode == core.RegimeIncognito {
		collector.RecordSkipped(StepMemoryRetrieval, SkipReasonIncognito)
	} else {
		candidates = o.runRetrieval(ctx, input, sanitized, collector)
	}

	result.Reply = o.runResponse(ctx, input, sanitized, candidates, collector)

	if input.PrivacyMode != core.RegimeIncognito {
		o.persistTurn(ctx, input, sanitized, result.Reply, collector)
	}

	switch input.PrivacyMode {
	case core.RegimeIncognito:
		collector.RecordSkipped(StepMemoryExtraction, SkipReasonIncognito)
	case core.RegimePauseRetention:
		collector.RecordSkipped(StepMemoryExtraction, SkipReasonPaused)
	default:
		result.MemoryIDs = o.runExtraction(ctx, input, sanitized, collector)
	}

	if input.PrivacyMode == core.RegimeIncognito {
		collector.RecordSkipped(StepAnalysis, SkipReasonIncognito)
	} else {
		o.runAnalysis(ctx, input, turnNumber, collector)
	}

	o.finish(result, collector)
	return result, nil
}

// runPrivacyCheck executes the privacy step. An error here means the input
// itself was invalid; it is surfaced to the caller and nothing else runs.
func (o *Orchestrator) runPrivacyCheck(input *TurnInput, collector *Collector) (*privacy.Decision, error) {
	step := &StepResult{Step: StepPrivacyCheck, TokensUsed: estimateTokens(input.UserMessage)}
	done := timeStep(step)

	decision, err := o.enforcer.Enforce(input.UserMessage, input.PrivacyMode)
	done()

	if err != nil {
		step.Error = "privacy check failed"
		step.ErrorCode = core.ErrorCode(err)
		collector.Record(step)
		return nil, err
	}

	step.Data = map[string]interface{}{
		"allowed":    decision.Allowed,
		"violations": len(decision.Violations),
	}
	if decision.Allowed {
		step.Success = true
	} else {
		blocked := fmt.Errorf("%w: blocking sensitive content in incognito mode", core.ErrPrivacyViolation)
		step.Error = blocked.Error()
		step.ErrorCode = core.ErrorCode(blocked)
	}
	o.checkBudget(step, collector)
	collector.Record(step)

	return decision, nil
}

// runRetrieval executes the retrieval step. Failures degrade to an empty
// candidate list; the turn continues.
func (o *Orchestrator) runRetrieval(ctx context.Context, input *TurnInput, sanitized string, collector *Collector) []*core.RetrievalCandidate {
	step := &StepResult{Step: StepMemoryRetrieval}
	done := timeStep(step)

	stepCtx, cancel := context.WithTimeout(ctx, o.cfg.StepTimeout)
	defer cancel()

	retrieval, err := o.retriever.Retrieve(stepCtx, input.ProfileID, sanitized, nil, o.cfg.RetrievalLimit)
	done()

	if err != nil {
		step.Error = "memory retrieval failed"
		step.ErrorCode = core.ErrorCode(err)
		collector.Record(step)
		collector.Warn(fmt.Sprintf("memory retrieval unavailable: %v", err))
		return nil
	}

	for _, failure := range retrieval.Failures {
		collector.Warn(failure)
	}

	tokens := 0
	for _, candidate := range retrieval.Candidates {
		tokens += estimateTokens(candidate.Memory.Content)
	}
	step.TokensUsed = tokens
	step.Success = true
	step.Data = map[string]interface{}{"memories": len(retrieval.Candidates)}
	o.checkBudget(step, collector)
	collector.Record(step)

	return retrieval.Candidates
}

// runResponse executes the response step with retries, falling back to the
// canned regime-appropriate reply when the provider stays unreachable.
func (o *Orchestrator) runResponse(ctx context.Context, input *TurnInput, sanitized string, candidates []*core.RetrievalCandidate, collector *Collector) string {
	step := &StepResult{Step: StepResponseGeneration}
	done := timeStep(step)

	var recent []*core.ChatMessage
	if messages, err := o.store.RecentMessages(ctx, input.SessionID, o.cfg.RecentTurnWindow); err != nil {
		collector.Warn(fmt.Sprintf("recent messages unavailable: %v", err))
	} else {
		recent = messages
	}

	req := &respond.Request{
		UserMessage: sanitized,
		Memories:    candidates,
		RecentTurns: recent,
		Regime:      input.PrivacyMode,
	}

	var reply string
	var genErr error
	for attempt := 0; attempt < o.cfg.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.StepTimeout)
		reply, genErr = o.generator.Generate(callCtx, req)
		cancel()

		if genErr == nil || !core.IsRetryable(genErr) {
			break
		}
		if attempt == o.cfg.MaxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			attempt = o.cfg.MaxRetries
		case <-time.After(o.cfg.RetryBackoff * time.Duration(attempt+1)):
		}
	}
	done()

	promptTokens := estimateTokens(sanitized)
	for _, msg := range recent {
		promptTokens += estimateTokens(msg.Content)
	}
	for _, candidate := range candidates {
		promptTokens += estimateTokens(candidate.Memory.Content)
	}
	step.TokensUsed = promptTokens + estimateTokens(reply)

	if genErr != nil {
		step.Error = "response generation failed"
		step.ErrorCode = core.ErrorCode(genErr)
		collector.Warn("response generation failed after retries; used fallback reply")
	} else {
		step.Success = true
	}
	step.Data = map[string]interface{}{"fallback": genErr != nil}
	o.checkBudget(step, collector)
	collector.Record(step)

	return reply
}

// persistTurn appends the user and assistant messages to the session
// history. Persistence failures never block the reply.
func (o *Orchestrator) persistTurn(ctx context.Context, input *TurnInput, sanitized, reply string, collector *Collector) {
	user := &core.ChatMessage{
		SessionID: input.SessionID,
		ProfileID: input.ProfileID,
		Role:      "user",
		Content:   sanitized,
	}
	if err := o.store.AppendMessage(ctx, user); err != nil {
		collector.Warn(fmt.Sprintf("failed to persist user message: %v", err))
	}

	assistant := &core.ChatMessage{
		SessionID: input.SessionID,
		ProfileID: input.ProfileID,
		Role:      "assistant",
		Content:   reply,
	}
	if err := o.store.AppendMessage(ctx, assistant); err != nil {
		collector.Warn(fmt.Sprintf("failed to persist assistant message: %v", err))
	}
}

// runExtraction proposes, consolidates, and commits new memories. A
// candidate whose vector similarity to an existing memory exceeds the
// duplicate threshold increments that memory's mention count instead of
// creating a new row. Memory creation is best-effort: every failure here is
// a warning, never a turn failure.
func (o *Orchestrator) runExtraction(ctx context.Context, input *TurnInput, sanitized string, collector *Collector) []int64 {
	step := &StepResult{Step: StepMemoryExtraction, TokensUsed: estimateTokens(sanitized)}
	done := timeStep(step)

	stepCtx, cancel := context.WithTimeout(ctx, o.cfg.StepTimeout)
	defer cancel()

	candidates := o.extractor.Consolidate(o.extractor.Extract(stepCtx, sanitized))

	var created []int64
	mentions := 0
	for _, candidate := range candidates {
		matches, err := o.index.Query(stepCtx, input.ProfileID, candidate.Content, 1)
		if err != nil {
			collector.Warn(fmt.Sprintf("duplicate check unavailable: %v", err))
		}
		if err == nil && len(matches) > 0 && matches[0].Distance <= 1-o.cfg.DuplicateThreshold {
			if err := o.store.IncrementMention(stepCtx, input.ProfileID, matches[0].MemoryID); err != nil {
				collector.Warn(fmt.Sprintf("failed to update mention count: %v", err))
			} else {
				mentions++
			}
			continue
		}

		memory := &core.Memory{
			ID:              o.node.Generate().Int64(),
			ProfileID:       input.ProfileID,
			Content:         candidate.Content,
			Type:            candidate.Type,
			ImportanceScore: candidate.ImportanceScore,
			Tags:            candidate.Tags,
			CreatedAt:       time.Now(),
		}
		if err := o.store.CreateMemory(stepCtx, memory); err != nil {
			collector.Warn(fmt.Sprintf("failed to create memory: %v", err))
			continue
		}
		if err := o.index.Upsert(stepCtx, input.ProfileID, memory.ID, memory.Content); err != nil {
			collector.Warn(fmt.Sprintf("failed to index memory %d: %v", memory.ID, err))
		}
		created = append(created, memory.ID)
	}

	if len(created) > 0 || mentions > 0 {
		o.retriever.Invalidate(input.ProfileID)
	}

	done()
	step.Success = true
	step.Data = map[string]interface{}{
		"candidates":      len(candidates),
		"created":         len(created),
		"mention_updates": mentions,
	}
	o.checkBudget(step, collector)
	collector.Record(step)

	return created
}

// runAnalysis runs the session analyst every AnalysisInterval turns. Any
// failure is silently skipped; analysis never affects the turn outcome.
func (o *Orchestrator) runAnalysis(ctx context.Context, input *TurnInput, turnNumber int, collector *Collector) {
	if turnNumber%o.cfg.AnalysisInterval != 0 {
		collector.RecordSkipped(StepAnalysis, SkipReasonNotDue)
		return
	}

	step := &StepResult{Step: StepAnalysis}
	done := timeStep(step)

	messages, err := o.store.RecentMessages(ctx, input.SessionID, o.cfg.RecentTurnWindow*2)
	if err != nil {
		done()
		collector.RecordSkipped(StepAnalysis, SkipReasonFailed)
		return
	}

	analysis := o.analyst.Analyze(messages)
	done()

	tokens := 0
	for _, msg := range messages {
		tokens += estimateTokens(msg.Content)
	}
	step.TokensUsed = tokens
	step.Success = true
	step.Data = map[string]interface{}{
		"sentiment": analysis.Sentiment,
		"topics":    analysis.Topics,
		"insight":   analysis.Insight,
	}
	o.checkBudget(step, collector)
	collector.Record(step)
}

// finish folds the collector into the result and checks the total budget.
func (o *Orchestrator) finish(result *TurnResult, collector *Collector) {
	if total := collector.TokensUsed(); total > o.cfg.TotalTokenBudget {
		overrun := fmt.Errorf("%w: turn used %d of its %d token budget", core.ErrBudgetExceeded, total, o.cfg.TotalTokenBudget)
		collector.Warn(overrun.Error())
	}
	result.Steps = collector.Steps()
	result.Warnings = collector.Warnings()
	result.TokensUsed = collector.TokensUsed()
}

// checkBudget tags the step envelope and surfaces a warning when a step
// overruns its budget. Overruns never abort the step.
func (o *Orchestrator) checkBudget(step *StepResult, collector *Collector) {
	budget, ok := o.cfg.StepBudgets[step.Step]
	if ok && step.TokensUsed > budget {
		overrun := fmt.Errorf("%w: %s used %d of its %d token budget", core.ErrBudgetExceeded, step.Step, step.TokensUsed, budget)
		if step.ErrorCode == "" {
			step.ErrorCode = core.ErrorCode(overrun)
		}
		collector.Warn(overrun.Error())
	}
}

func validateInput(input *TurnInput) error {
	switch {
	case input == nil:
		return core.NewPipelineError("RunTurn", fmt.Errorf("%w: input is required", core.ErrValidation))
	case input.SessionID == "":
		return core.NewPipelineError("RunTurn", fmt.Errorf("%w: session ID is required", core.ErrValidation))
	case input.ProfileID == "":
		return core.NewPipelineError("RunTurn", fmt.Errorf("%w: profile ID is required", core.ErrValidation))
	case input.UserMessage == "":
		return core.NewPipelineError("RunTurn", fmt.Errorf("%w: user message is required", core.ErrValidation))
	case !input.PrivacyMode.Valid():
		return core.NewPipelineError("RunTurn", fmt.Errorf("%w: unknown privacy mode %q", core.ErrValidation, input.PrivacyMode))
	}
	return nil
}

// estimateTokens approximates token usage as one token per four characters.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(text)/4 + 1
}
