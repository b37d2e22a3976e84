package privacy

import (
	"fmt"
	"sort"

	"github.com/recollect-ai/recollect-go/pkg/core"
)

// Decision is the outcome of enforcing a privacy regime on a piece of text.
type Decision struct {
	// Allowed reports whether the turn may proceed.
	Allowed bool

	// SanitizedText is the text the rest of the pipeline must use. It
	// equals the input except in incognito, where detected spans are
	// replaced by category tokens.
	SanitizedText string

	// Warnings are human-readable, non-blocking notices about what was
	// detected and how the regime treats the turn.
	Warnings []string

	// Violations are the scanner findings the decision was based on.
	Violations []Violation
}

// redactionTokens maps each category to its fixed replacement token. Tokens
// are chosen so that re-scanning redacted text yields no same-category
// violation, making redaction idempotent.
var redactionTokens = map[ViolationType]string{
	ViolationEmail:     "[EMAIL_REDACTED]",
	ViolationPhone:     "[PHONE_REDACTED]",
	ViolationCard:      "[CARD_REDACTED]",
	ViolationGovID:     "[GOV_ID_REDACTED]",
	ViolationFinancial: "[FINANCIAL_REDACTED]",
	ViolationHealth:    "[HEALTH_REDACTED]",
}

// ScanFunc detects violations in text. It exists so the enforcer's detection
// strategy can be swapped in tests without touching enforcement logic.
type ScanFunc func(text string) []Violation

// Enforcer applies the active privacy regime to scanner output.
type Enforcer struct {
	scan ScanFunc
}

// NewEnforcer creates an enforcer using the default scanner.
func NewEnforcer() *Enforcer {
	return &Enforcer{scan: Scan}
}

// NewEnforcerWithScanner creates an enforcer using a custom scan function.
func NewEnforcerWithScanner(scan ScanFunc) *Enforcer {
	return &Enforcer{scan: scan}
}

// Enforce decides whether text may proceed under the given regime and
// produces the sanitized copy the pipeline must use.
//
// Behavior per regime:
//   - normal: always allowed, text unchanged, one informational warning per
//     violation category present.
//   - pause_retention: always allowed, text unchanged, warnings additionally
//     state that no new memory will be created from this turn.
//   - incognito: every detected span is replaced by its category token;
//     allowed is false if and only if any violation has high severity.
//
// Returns core.ErrValidation for an unknown regime.
func (e *Enforcer) Enforce(text string, regime core.PrivacyRegime) (*Decision, error) {
	if !regime.Valid() {
		return nil, core.NewPipelineError("Enforce", fmt.Errorf("%w: unknown privacy regime %q", core.ErrValidation, regime))
	}

	violations := e.scan(text)
	decision := &Decision{
		Allowed:       true,
		SanitizedText: text,
		Violations:    violations,
	}

	switch regime {
	case core.RegimeNormal:
		for _, category := range categoriesPresent(violations) {
			decision.Warnings = append(decision.Warnings,
				fmt.Sprintf("detected %s in message", category))
		}

	case core.RegimePauseRetention:
		for _, category := range categoriesPresent(violations) {
			decision.Warnings = append(decision.Warnings,
				fmt.Sprintf("detected %s in message", category))
		}
		decision.Warnings = append(decision.Warnings,
			"memory retention is paused; no new memories will be created from this turn")

	case core.RegimeIncognito:
		decision.SanitizedText = redact(text, violations)
		for _, category := range categoriesPresent(violations) {
			decision.Warnings = append(decision.Warnings,
				fmt.Sprintf("redacted %s; content is not stored in incognito mode", category))
		}
		for _, v := range violations {
			if v.Severity == SeverityHigh {
				decision.Allowed = false
				decision.Warnings = append(decision.Warnings,
					"message blocked: high-severity sensitive information detected")
				break
			}
		}
	}

	return decision, nil
}

// redact replaces each violation span with its category token. Spans are
// processed in reverse position order so earlier replacements do not shift
// the offsets of later ones. Overlapping spans are collapsed into the first
// replacement.
func redact(text string, violations []Violation) string {
	ordered := make([]Violation, len(violations))
	copy(ordered, violations)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position > ordered[j].Position
	})

	result := text
	lastStart := len(text) + 1
	for _, v := range ordered {
		end := v.Position + len(v.ContentSpan)
		if end > lastStart {
			continue
		}
		result = result[:v.Position] + redactionTokens[v.Type] + result[end:]
		lastStart = v.Position
	}

	return result
}

// categoriesPresent returns the distinct violation categories in first-seen
// order.
func categoriesPresent(violations []Violation) []ViolationType {
	seen := make(map[ViolationType]bool)
	var categories []ViolationType
	for _, v := range violations {
		if !seen[v.Type] {
			seen[v.Type] = true
			categories = append(categories, v.Type)
		}
	}
	return categories
}
