// Package rank scores retrieval candidates against a query using a weighted
// combination of semantic similarity, recency, stored importance, and
// prior-mention frequency.
package rank

import (
	"math"
	"sort"
	"time"

	"github.com/recollect-ai/recollect-go/pkg/core"
)

// Component weights. They sum to 0.9 rather than 1.0: the headroom is part
// of the scoring contract, since callers compare the resulting absolute
// scores against fixed thresholds. Do not renormalize.
const (
	semanticWeight   = 0.4
	recencyWeight    = 0.2
	importanceWeight = 0.2
	mentionWeight    = 0.1
)

// mentionSaturation is the mention count at which the mention component
// reaches its maximum.
const mentionSaturation = 10.0

// Ranker scores and orders retrieval candidates.
type Ranker struct {
	recencyHorizon time.Duration
	now            func() time.Time
}

// NewRanker creates a ranker whose recency component decays to zero at the
// given horizon in days. A horizon of 0 or less defaults to 30 days.
func NewRanker(horizonDays int) *Ranker {
	if horizonDays <= 0 {
		horizonDays = 30
	}
	return &Ranker{
		recencyHorizon: time.Duration(horizonDays) * 24 * time.Hour,
		now:            time.Now,
	}
}

// Score computes the relevance of a single candidate.
//
// Score = 0.4*semantic + 0.2*recency + 0.2*importance + 0.1*mention, where:
//   - semantic = 1 - similarity distance
//   - recency decays linearly from 1.0 at age zero to 0.0 at the horizon
//   - importance is the stored importance score
//   - mention = min(mention_count / 10, 1.0)
//
// Every component is clamped into [0, 1] before weighting, so the result is
// always in [0, 0.9].
func (r *Ranker) Score(candidate *core.RetrievalCandidate) float64 {
	semantic := clamp01(1 - candidate.SimilarityDistance)

	age := r.now().Sub(candidate.Memory.CreatedAt)
	recency := clamp01(1 - age.Seconds()/r.recencyHorizon.Seconds())

	importance := clamp01(candidate.Memory.ImportanceScore)

	mention := clamp01(float64(candidate.Memory.MentionCount) / mentionSaturation)

	return semanticWeight*semantic +
		recencyWeight*recency +
		importanceWeight*importance +
		mentionWeight*mention
}

// Rank scores every candidate and returns them ordered by descending
// relevance, ties broken by most recent creation time. The input slice is
// not modified; scores are written onto the candidates themselves.
func (r *Ranker) Rank(candidates []*core.RetrievalCandidate) []*core.RetrievalCandidate {
	ranked := make([]*core.RetrievalCandidate, len(candidates))
	copy(ranked, candidates)

	for _, c := range ranked {
		c.RelevanceScore = r.Score(c)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].RelevanceScore != ranked[j].RelevanceScore {
			return ranked[i].RelevanceScore > ranked[j].RelevanceScore
		}
		return ranked[i].Memory.CreatedAt.After(ranked[j].Memory.CreatedAt)
	})

	return ranked
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
