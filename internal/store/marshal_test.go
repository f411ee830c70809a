package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcrew44/llm-social-network/internal/domain"
)

func TestMarshalUnmarshalPayload_RunConfig_RoundTrips(t *testing.T) {
	p := domain.Payload{RunConfig: &domain.RunConfigPayload{
		RunID:            "run-1",
		Seed:             42,
		Agents:           10,
		RankingAlgorithm: domain.AlgorithmHot,
		K:                20,
		Ticks:            100,
	}}
	text, err := marshalPayload(domain.KindRunConfig, p)
	require.NoError(t, err)

	got, err := unmarshalPayload(domain.KindRunConfig, text)
	require.NoError(t, err)
	assert.Equal(t, p.RunConfig, got.RunConfig)
}

func TestMarshalPayload_SortsKeys(t *testing.T) {
	p := domain.Payload{AdvanceTick: &domain.AdvanceTickPayload{NewTick: 5}}
	text, err := marshalPayload(domain.KindAdvanceTick, p)
	require.NoError(t, err)
	assert.Equal(t, `{"new_tick":5}`, text)
}

func TestMarshalUnmarshalPayload_Action_OmitsNilOptionalFields(t *testing.T) {
	p := domain.Payload{Action: &domain.ActionPayload{
		ActorID:    "user-1",
		ActionType: domain.ActionFollow,
		Status:     domain.StatusAccepted,
	}}
	text, err := marshalPayload(domain.KindAction, p)
	require.NoError(t, err)
	assert.NotContains(t, text, "target_post_id")
	assert.NotContains(t, text, "body")

	got, err := unmarshalPayload(domain.KindAction, text)
	require.NoError(t, err)
	assert.Equal(t, p.Action, got.Action)
	assert.Nil(t, got.Action.TargetPostID)
}

func TestMarshalUnmarshalPayload_Action_RoundTripsOptionalFields(t *testing.T) {
	target := "post-xyz"
	reason := domain.ReasonOffFeed
	p := domain.Payload{Action: &domain.ActionPayload{
		ActorID:      "user-1",
		ActionType:   domain.ActionLike,
		TargetPostID: &target,
		Status:       domain.StatusRejected,
		Reason:       &reason,
	}}
	text, err := marshalPayload(domain.KindAction, p)
	require.NoError(t, err)

	got, err := unmarshalPayload(domain.KindAction, text)
	require.NoError(t, err)
	assert.Equal(t, p.Action, got.Action)
}

func TestMarshalUnmarshalPayload_TimelineServed_RoundTripsItems(t *testing.T) {
	p := domain.Payload{TimelineServed: &domain.TimelineServedPayload{
		TimelineID:     "tl-1",
		UserID:         "user-1",
		K:              2,
		Algorithm:      domain.AlgorithmTop,
		RankingVersion: domain.RankingVersion,
		Seed:           7,
		Items: []domain.TimelineItem{
			{PostID: "p1", Position: 0, Score: 10.5, Features: map[string]float64{"up_votes": 10}},
			{PostID: "p2", Position: 1, Score: 5, Features: map[string]float64{"up_votes": 5}},
		},
	}}
	text, err := marshalPayload(domain.KindTimelineServed, p)
	require.NoError(t, err)

	got, err := unmarshalPayload(domain.KindTimelineServed, text)
	require.NoError(t, err)
	assert.Equal(t, p.TimelineServed, got.TimelineServed)
}

func TestUnmarshalPayload_UnknownKind_Errors(t *testing.T) {
	_, err := unmarshalPayload(domain.EventKind("bogus"), `{}`)
	assert.Error(t, err)
}
