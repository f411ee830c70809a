package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcrew44/llm-social-network/internal/domain"
)

func TestAppend_AssignsIncreasingSeq(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seq1, err := s.Append(ctx, 0, domain.KindAdvanceTick, nil,
		domain.Payload{AdvanceTick: &domain.AdvanceTickPayload{NewTick: 1}})
	require.NoError(t, err)

	seq2, err := s.Append(ctx, 1, domain.KindAdvanceTick, nil,
		domain.Payload{AdvanceTick: &domain.AdvanceTickPayload{NewTick: 2}})
	require.NoError(t, err)

	assert.Greater(t, seq2, seq1)
}

func TestAppend_DuplicateOpIDRejectedByUniqueConstraint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	opID := "op-1"
	body := "hi"
	payload := domain.Payload{Action: &domain.ActionPayload{
		ActorID: "u1", ActionType: domain.ActionPost, Body: &body, Status: domain.StatusAccepted,
	}}

	_, err := s.Append(ctx, 0, domain.KindAction, &opID, payload)
	require.NoError(t, err)

	_, err = s.Append(ctx, 0, domain.KindAction, &opID, payload)
	assert.Error(t, err)
}

func TestLookupByOpID_FindsExistingEvent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	opID := "op-1"
	body := "hi"
	payload := domain.Payload{Action: &domain.ActionPayload{
		ActorID: "u1", ActionType: domain.ActionPost, Body: &body, Status: domain.StatusAccepted,
	}}
	_, err := s.Append(ctx, 0, domain.KindAction, &opID, payload)
	require.NoError(t, err)

	ev, err := s.LookupByOpID(ctx, opID)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "u1", ev.Payload.Action.ActorID)
}

func TestLookupByOpID_MissingReturnsNilNoError(t *testing.T) {
	s := newTestStore(t)
	ev, err := s.LookupByOpID(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestScan_ReturnsEventsInSeqOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		_, err := s.Append(ctx, i, domain.KindAdvanceTick, nil,
			domain.Payload{AdvanceTick: &domain.AdvanceTickPayload{NewTick: i}})
		require.NoError(t, err)
	}

	events, err := s.Scan(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, int64(i+1), ev.Payload.AdvanceTick.NewTick)
	}
}

func TestScan_FromSeqExcludesEarlierEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seq1, err := s.Append(ctx, 1, domain.KindAdvanceTick, nil,
		domain.Payload{AdvanceTick: &domain.AdvanceTickPayload{NewTick: 1}})
	require.NoError(t, err)
	_, err = s.Append(ctx, 2, domain.KindAdvanceTick, nil,
		domain.Payload{AdvanceTick: &domain.AdvanceTickPayload{NewTick: 2}})
	require.NoError(t, err)

	events, err := s.Scan(ctx, seq1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(2), events[0].Payload.AdvanceTick.NewTick)
}
