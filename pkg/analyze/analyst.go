// Package analyze derives sentiment, topic, and insight summaries from a
// session's recent messages.
//
// The analyst only reads; it never blocks other pipeline steps and the
// orchestrator may skip it entirely under resource pressure.
package analyze

import (
	"fmt"
	"sort"
	"strings"

	"github.com/recollect-ai/recollect-go/pkg/core"
)

// Analysis is the summary produced for a session.
type Analysis struct {
	// Sentiment is "positive", "negative", or "neutral".
	Sentiment string `json:"sentiment"`

	// Topics are the most frequent meaningful words across the user's
	// messages, most frequent first.
	Topics []string `json:"topics,omitempty"`

	// Insight is a one-line human-readable summary.
	Insight string `json:"insight"`

	// MessageCount is how many messages were analyzed.
	MessageCount int `json:"message_count"`
}

// maxTopics bounds the topic list.
const maxTopics = 5

var positiveWords = map[string]bool{
	"love": true, "like": true, "enjoy": true, "great": true, "good": true,
	"happy": true, "excited": true, "wonderful": true, "amazing": true,
	"thanks": true, "thank": true, "perfect": true, "nice": true,
}

var negativeWords = map[string]bool{
	"hate": true, "dislike": true, "bad": true, "terrible": true, "awful": true,
	"sad": true, "angry": true, "frustrated": true, "annoyed": true,
	"worried": true, "stressed": true, "tired": true, "problem": true,
}

// topicStopwords are excluded from topic counting.
var topicStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "this": true,
	"with": true, "about": true, "have": true, "was": true, "were": true,
	"you": true, "your": true, "are": true, "but": true, "not": true,
	"what": true, "when": true, "how": true, "can": true, "could": true,
	"would": true, "should": true, "just": true, "really": true, "very": true,
	"there": true, "been": true, "some": true, "from": true, "they": true,
}

// Analyst summarizes sessions. It is stateless; one instance serves all
// sessions.
type Analyst struct{}

// New creates an analyst.
func New() *Analyst {
	return &Analyst{}
}

// Analyze summarizes the given messages. Only user messages contribute to
// sentiment and topics; assistant replies would skew both.
func (a *Analyst) Analyze(messages []*core.ChatMessage) *Analysis {
	analysis := &Analysis{
		Sentiment:    "neutral",
		MessageCount: len(messages),
	}
	if len(messages) == 0 {
		analysis.Insight = "No messages to analyze."
		return analysis
	}

	positive, negative := 0, 0
	frequency := make(map[string]int)
	userMessages := 0

	for _, msg := range messages {
		if msg.Role != "user" {
			continue
		}
		userMessages++
		for _, word := range strings.Fields(strings.ToLower(msg.Content)) {
			word = strings.Trim(word, ".,!?;:'\"()")
			if positiveWords[word] {
				positive++
			}
			if negativeWords[word] {
				negative++
			}
			if len(word) < 4 || topicStopwords[word] {
				continue
			}
			frequency[word]++
		}
	}

	switch {
	case positive > negative:
		analysis.Sentiment = "positive"
	case negative > positive:
		analysis.Sentiment = "negative"
	}

	analysis.Topics = topTopics(frequency, maxTopics)

	if len(analysis.Topics) > 0 {
		analysis.Insight = fmt.Sprintf("Across %d message(s) the tone was %s; recurring topics: %s.",
			userMessages, analysis.Sentiment, strings.Join(analysis.Topics, ", "))
	} else {
		analysis.Insight = fmt.Sprintf("Across %d message(s) the tone was %s.",
			userMessages, analysis.Sentiment)
	}

	return analysis
}

// topTopics returns the n most frequent words, ties broken alphabetically so
// the result is deterministic.
func topTopics(frequency map[string]int, n int) []string {
	type wordCount struct {
		word  string
		count int
	}

	counts := make([]wordCount, 0, len(frequency))
	for word, count := range frequency {
		if count < 2 {
			continue
		}
		counts = append(counts, wordCount{word, count})
	}

	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].word < counts[j].word
	})

	if len(counts) > n {
		counts = counts[:n]
	}

	topics := make([]string, len(counts))
	for i, wc := range counts {
		topics[i] = wc.word
	}
	return topics
}
