package retrieve

import "strings"

// Intent captures what a query asks for beyond its literal text: whether it
// references a time window and which named entities it mentions.
type Intent struct {
	// TimeReference reports whether the query asks about a time window.
	TimeReference bool

	// WindowDays is the size of the requested window in days. Only
	// meaningful when TimeReference is true.
	WindowDays int

	// Entities lists capitalized names mentioned in the query.
	Entities []string
}

// timeReferences maps query phrases to window sizes in days. Longer phrases
// are listed first so "last month" is not shadowed by a shorter match.
var timeReferences = []struct {
	phrase string
	days   int
}{
	{"last month", 30},
	{"past month", 30},
	{"last week", 7},
	{"past week", 7},
	{"this week", 7},
	{"few days", 3},
	{"yesterday", 1},
	{"recently", 7},
	{"today", 1},
}

// stopwords are excluded from keyword matching and entity detection.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"do": true, "does": true, "did": true, "have": true, "has": true, "had": true,
	"i": true, "you": true, "he": true, "she": true, "it": true, "we": true,
	"they": true, "my": true, "your": true, "his": true, "her": true, "its": true,
	"our": true, "their": true, "me": true, "him": true, "them": true,
	"what": true, "when": true, "where": true, "who": true, "why": true, "how": true,
	"this": true, "that": true, "these": true, "those": true,
	"to": true, "of": true, "in": true, "on": true, "at": true, "for": true,
	"with": true, "about": true, "from": true, "as": true, "by": true,
	"not": true, "no": true, "so": true, "if": true, "then": true,
	"can": true, "could": true, "will": true, "would": true, "should": true,
	"tell": true, "remember": true, "know": true, "think": true,
}

// ParseIntent derives an Intent from a raw query string.
//
// Time references are detected by fixed phrases ("yesterday", "last week",
// "last month"). Entities are capitalized words that are not sentence-initial
// and not stopwords.
func ParseIntent(query string) *Intent {
	intent := &Intent{}

	lower := strings.ToLower(query)
	for _, ref := range timeReferences {
		if strings.Contains(lower, ref.phrase) {
			intent.TimeReference = true
			intent.WindowDays = ref.days
			break
		}
	}

	words := strings.Fields(query)
	seen := make(map[string]bool)
	for i, word := range words {
		trimmed := strings.Trim(word, ".,!?;:'\"()")
		if len(trimmed) < 2 {
			continue
		}
		first := trimmed[0]
		if first < 'A' || first > 'Z' {
			continue
		}
		// Sentence-initial capitalization is not a name.
		if i == 0 || strings.ContainsAny(words[i-1], ".!?") {
			continue
		}
		key := strings.ToLower(trimmed)
		if stopwords[key] || seen[key] {
			continue
		}
		seen[key] = true
		intent.Entities = append(intent.Entities, trimmed)
	}

	return intent
}

// meaningfulWords returns the lowercase non-stopword tokens of a query that
// are long enough to be worth matching on.
func meaningfulWords(query string) []string {
	var words []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		trimmed := strings.Trim(word, ".,!?;:'\"()")
		if len(trimmed) < 3 || stopwords[trimmed] {
			continue
		}
		words = append(words, trimmed)
	}
	return words
}
