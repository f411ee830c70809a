package timeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcrew44/llm-social-network/internal/domain"
	"github.com/dcrew44/llm-social-network/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func appendAcceptedPost(t *testing.T, s *store.Store, opID, actor, body string) {
	t.Helper()
	ctx := context.Background()
	p := &domain.ActionPayload{ActorID: actor, ActionType: domain.ActionPost, Body: &body, Status: domain.StatusAccepted}
	ev := domain.Event{Kind: domain.KindAction, Payload: domain.Payload{Action: p}}
	_, err := s.Append(ctx, 0, ev.Kind, &opID, ev.Payload)
	require.NoError(t, err)
	require.NoError(t, s.ApplyEvent(ctx, ev))
}

func TestServe_ReturnsRankedItemsAndRecordsEvent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	appendAcceptedPost(t, s, "op-1", "author", "hello")

	result, err := Serve(ctx, s, "viewer", domain.AlgorithmNew, 10, 1)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.NotEmpty(t, result.TimelineID)

	events, err := s.Scan(ctx, 0)
	require.NoError(t, err)
	var sawTimelineServed bool
	for _, ev := range events {
		if ev.Kind == domain.KindTimelineServed {
			sawTimelineServed = true
			assert.Equal(t, result.TimelineID, ev.Payload.TimelineServed.TimelineID)
		}
	}
	assert.True(t, sawTimelineServed)
}

func TestServe_DistinctCallsProduceDistinctTimelineIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	appendAcceptedPost(t, s, "op-1", "author", "hello")

	r1, err := Serve(ctx, s, "viewer", domain.AlgorithmNew, 10, 1)
	require.NoError(t, err)
	r2, err := Serve(ctx, s, "viewer", domain.AlgorithmNew, 10, 1)
	require.NoError(t, err)

	assert.NotEqual(t, r1.TimelineID, r2.TimelineID)
}

func TestServe_UnknownAlgorithm_DoesNotAppendEvent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := Serve(ctx, s, "viewer", domain.RankingAlgorithm("bogus"), 10, 1)
	require.Error(t, err)

	events, err := s.Scan(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}
