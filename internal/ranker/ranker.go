// Package ranker implements the Ranker (§4.4): deterministic scoring of a
// candidate post set under a closed set of algorithms, with a seeded,
// stable tie-break so the ordering is a pure function of its inputs.
package ranker

import (
	"math"
	"sort"

	"github.com/dcrew44/llm-social-network/internal/domain"
	"github.com/dcrew44/llm-social-network/internal/store"
)

// Item is one ranked post, carrying the feature vector recorded on the
// timeline_served event. Features holds score, up_votes, age and
// ranking_version; the algorithm is not part of the per-item features (it
// is recorded once, on the timeline_served payload).
type Item struct {
	PostID   string
	Score    float64
	Features map[string]float64
}

// Rank scores candidates under algorithm, orders them descending by score
// with ties broken by domain.TieBreakKey(seed, post_id), and returns at
// most k items. currentTick is used by the hot algorithm's age term.
func Rank(candidates []store.CandidatePost, algorithm domain.RankingAlgorithm, currentTick int64, seed int64, k int) ([]Item, error) {
	if !algorithm.Valid() {
		return nil, domain.NewKernelError(domain.ErrCodeUnknownAlgorithm, "unknown ranking algorithm: "+string(algorithm))
	}

	items := make([]Item, len(candidates))
	for i, c := range candidates {
		score := scoreOf(algorithm, c, currentTick)
		age := currentTick - c.CreatedTick
		items[i] = Item{
			PostID: c.PostID,
			Score:  score,
			Features: map[string]float64{
				"score":           score,
				"up_votes":        float64(c.UpVotes),
				"age":             float64(age),
				"ranking_version": float64(domain.RankingVersion),
			},
		}
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return domain.TieBreakKey(seed, items[i].PostID) < domain.TieBreakKey(seed, items[j].PostID)
	})

	if k >= 0 && len(items) > k {
		items = items[:k]
	}
	return items, nil
}

func scoreOf(algorithm domain.RankingAlgorithm, c store.CandidatePost, currentTick int64) float64 {
	switch algorithm {
	case domain.AlgorithmNew:
		return float64(c.CreatedTick)
	case domain.AlgorithmTop:
		return float64(c.UpVotes)
	case domain.AlgorithmHot:
		return math.Log10(math.Max(float64(c.UpVotes), 1)) - 0.1*float64(currentTick-c.CreatedTick)
	default:
		return 0
	}
}
