package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcrew44/llm-social-network/internal/domain"
	"github.com/dcrew44/llm-social-network/internal/store"
)

func candidates() []store.CandidatePost {
	return []store.CandidatePost{
		{PostID: "p1", AuthorID: "a", CreatedTick: 10, UpVotes: 3},
		{PostID: "p2", AuthorID: "a", CreatedTick: 20, UpVotes: 1},
		{PostID: "p3", AuthorID: "a", CreatedTick: 5, UpVotes: 10},
	}
}

func TestRank_New_OrdersByCreatedTickDescending(t *testing.T) {
	items, err := Rank(candidates(), domain.AlgorithmNew, 30, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "p2", items[0].PostID)
	assert.Equal(t, "p1", items[1].PostID)
	assert.Equal(t, "p3", items[2].PostID)
}

func TestRank_Top_OrdersByUpVotesDescending(t *testing.T) {
	items, err := Rank(candidates(), domain.AlgorithmTop, 30, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "p3", items[0].PostID)
	assert.Equal(t, "p1", items[1].PostID)
	assert.Equal(t, "p2", items[2].PostID)
}

func TestRank_Hot_PenalizesAge(t *testing.T) {
	items, err := Rank(candidates(), domain.AlgorithmHot, 30, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 3)
	// p3 has both more up_votes and more age penalty than p1; just assert
	// the scores come back in non-increasing order.
	for i := 1; i < len(items); i++ {
		assert.GreaterOrEqual(t, items[i-1].Score, items[i].Score)
	}
}

func TestRank_TruncatesToK(t *testing.T) {
	items, err := Rank(candidates(), domain.AlgorithmTop, 30, 1, 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestRank_UnknownAlgorithm_Errors(t *testing.T) {
	_, err := Rank(candidates(), domain.RankingAlgorithm("bogus"), 30, 1, 10)
	require.Error(t, err)
	ke, ok := err.(*domain.KernelError)
	require.True(t, ok)
	assert.Equal(t, domain.ErrCodeUnknownAlgorithm, ke.Code)
}

func TestRank_TiesBrokenBySeededKey_DeterministicAndStable(t *testing.T) {
	tied := []store.CandidatePost{
		{PostID: "a", AuthorID: "x", CreatedTick: 10, UpVotes: 5},
		{PostID: "b", AuthorID: "x", CreatedTick: 10, UpVotes: 5},
	}
	items1, err := Rank(tied, domain.AlgorithmTop, 30, 42, 10)
	require.NoError(t, err)
	items2, err := Rank(tied, domain.AlgorithmTop, 30, 42, 10)
	require.NoError(t, err)
	assert.Equal(t, items1, items2)
}

func TestRank_FeatureVectorIncludesScoreUpVotesAgeVersion(t *testing.T) {
	items, err := Rank(candidates(), domain.AlgorithmTop, 30, 1, 10)
	require.NoError(t, err)
	f := items[0].Features
	assert.Contains(t, f, "score")
	assert.Contains(t, f, "up_votes")
	assert.Contains(t, f, "age")
	assert.Contains(t, f, "ranking_version")
}
