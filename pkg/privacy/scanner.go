// Package privacy implements sensitive-information scanning and regime
// enforcement for chat turns.
//
// The scanner is a pure function over text: it detects email addresses,
// phone numbers, payment-card numbers, government-ID-like numbers, and
// keyword-triggered financial/health spans, and reports them as Violations
// ordered by position. The enforcer maps scanner output plus the active
// privacy regime to an allow/block decision with a sanitized copy of the
// text.
package privacy

import (
	"regexp"
	"sort"
)

// Severity is the blocking weight of a violation category.
type Severity string

const (
	// SeverityLow marks categories that are flagged but never block.
	SeverityLow Severity = "low"

	// SeverityMedium marks keyword-triggered categories.
	SeverityMedium Severity = "medium"

	// SeverityHigh marks categories that block the turn in incognito.
	SeverityHigh Severity = "high"
)

// ViolationType identifies the category of detected sensitive information.
type ViolationType string

const (
	ViolationEmail     ViolationType = "email"
	ViolationPhone     ViolationType = "phone"
	ViolationCard      ViolationType = "card"
	ViolationGovID     ViolationType = "gov_id"
	ViolationFinancial ViolationType = "financial"
	ViolationHealth    ViolationType = "health"
)

// Violation is a single sensitive span found in text. Violations are
// transient: they exist only to compute warnings and sanitized text for the
// current turn and are never persisted.
type Violation struct {
	// Type is the violation category.
	Type ViolationType

	// Severity is the fixed severity of the category.
	Severity Severity

	// ContentSpan is the matched text.
	ContentSpan string

	// Position is the byte offset of the match in the scanned text.
	Position int
}

// detector pairs a category with its pattern. Severity is fixed per
// category: card numbers and government IDs are high, email and phone are
// low, keyword-triggered financial/health spans are medium.
type detector struct {
	violationType ViolationType
	severity      Severity
	pattern       *regexp.Regexp
}

var detectors = []detector{
	{
		violationType: ViolationEmail,
		severity:      SeverityLow,
		pattern:       regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
	},
	{
		violationType: ViolationPhone,
		severity:      SeverityLow,
		// Separators are mandatory so 16-digit card groups are not
		// partially matched as phone numbers.
		pattern: regexp.MustCompile(`\(?\d{3}\)?[-.\s]\d{3}[-.\s]\d{4}\b`),
	},
	{
		violationType: ViolationCard,
		severity:      SeverityHigh,
		pattern:       regexp.MustCompile(`\b\d{4}[ -]?\d{4}[ -]?\d{4}[ -]?\d{3,4}\b`),
	},
	{
		violationType: ViolationGovID,
		severity:      SeverityHigh,
		pattern:       regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b|\b\d{9}\b`),
	},
	{
		violationType: ViolationFinancial,
		severity:      SeverityMedium,
		pattern:       regexp.MustCompile(`(?i)\b(bank account|routing number|credit score|account balance|salary|mortgage|loan payment)\b`),
	},
	{
		violationType: ViolationHealth,
		severity:      SeverityMedium,
		pattern:       regexp.MustCompile(`(?i)\b(diagnosis|prescription|medication|blood pressure|mental health|therapy session|medical record)\b`),
	},
}

// Scan detects sensitive-information spans in free text.
//
// Detectors run independently and their findings are unioned, so a single
// span may be reported under more than one category. The result is ordered
// by position of first occurrence. Scan is pure and deterministic.
func Scan(text string) []Violation {
	var violations []Violation
	for _, d := range detectors {
		for _, loc := range d.pattern.FindAllStringIndex(text, -1) {
			violations = append(violations, Violation{
				Type:        d.violationType,
				Severity:    d.severity,
				ContentSpan: text[loc[0]:loc[1]],
				Position:    loc[0],
			})
		}
	}

	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Position < violations[j].Position
	})

	return violations
}
