package pipeline

import (
	"sync"
	"time"
)

// Collector records step envelopes and warnings for one turn. It is created
// per turn and passed explicitly through the pipeline; there is no global
// monitoring state.
type Collector struct {
	mu       sync.Mutex
	steps    []*StepResult
	warnings []string
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record appends a step envelope.
func (c *Collector) Record(step *StepResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, step)
}

// RecordSkipped appends an envelope for a step the regime or schedule
// skipped.
func (c *Collector) RecordSkipped(step, reason string) {
	c.Record(&StepResult{
		Step:       step,
		Success:    true,
		Skipped:    true,
		SkipReason: reason,
	})
}

// Warn appends a non-fatal notice.
func (c *Collector) Warn(warning string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, warning)
}

// Steps returns the recorded envelopes in order.
func (c *Collector) Steps() []*StepResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	steps := make([]*StepResult, len(c.steps))
	copy(steps, c.steps)
	return steps
}

// Warnings returns the recorded warnings in order.
func (c *Collector) Warnings() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	warnings := make([]string, len(c.warnings))
	copy(warnings, c.warnings)
	return warnings
}

// TokensUsed sums token usage across recorded steps.
func (c *Collector) TokensUsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, step := range c.steps {
		total += step.TokensUsed
	}
	return total
}

// timeStep measures a step's execution and fills the envelope's duration.
// Usage: defer timeStep(result)().
func timeStep(result *StepResult) func() {
	start := time.Now()
	return func() {
		result.ExecutionTimeMS = time.Since(start).Milliseconds()
	}
}
