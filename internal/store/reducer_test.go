package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcrew44/llm-social-network/internal/domain"
)

func TestApplyAction_Like_IncrementsUpVotesOnce(t *testing.T) {
	s := newTestStore(t)
	body := "hello"
	seedAcceptedAction(t, s, "op-post", &domain.ActionPayload{ActorID: "author", ActionType: domain.ActionPost, Body: &body})
	postID := domain.DerivePostID("op-post")

	seedAcceptedAction(t, s, "op-like", &domain.ActionPayload{ActorID: "voter", ActionType: domain.ActionLike, TargetPostID: &postID})

	posts, err := s.ListCandidatePosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(1), posts[0].UpVotes)
}

func TestApplyAction_Unlike_NeverGoesBelowZero(t *testing.T) {
	s := newTestStore(t)
	body := "hello"
	seedAcceptedAction(t, s, "op-post", &domain.ActionPayload{ActorID: "author", ActionType: domain.ActionPost, Body: &body})
	postID := domain.DerivePostID("op-post")

	seedAcceptedAction(t, s, "op-unlike", &domain.ActionPayload{ActorID: "voter", ActionType: domain.ActionUnlike, TargetPostID: &postID})

	posts, err := s.ListCandidatePosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(0), posts[0].UpVotes)
}

func TestApplyAction_LikeFromNeverSeenUserDoesNotViolateForeignKey(t *testing.T) {
	s := newTestStore(t)
	body := "hello"
	seedAcceptedAction(t, s, "op-post", &domain.ActionPayload{ActorID: "author", ActionType: domain.ActionPost, Body: &body})
	postID := domain.DerivePostID("op-post")

	// "first-timer" has never posted, commented, followed, or been followed —
	// its only users row must come from ensureUser inside applyLike itself.
	seedAcceptedAction(t, s, "op-like", &domain.ActionPayload{ActorID: "first-timer", ActionType: domain.ActionLike, TargetPostID: &postID})

	exists, err := s.UserExists(context.Background(), "first-timer")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestApplyTimelineServed_ForNeverSeenUserDoesNotViolateForeignKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ev := domain.Event{
		Tick: 0,
		Kind: domain.KindTimelineServed,
		Payload: domain.Payload{TimelineServed: &domain.TimelineServedPayload{
			TimelineID: "tl-1",
			UserID:     "never-seen",
			Algorithm:  domain.AlgorithmNew,
			K:          10,
			Seed:       1,
		}},
	}
	require.NoError(t, s.ApplyEvent(ctx, ev))

	exists, err := s.UserExists(ctx, "never-seen")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestApplyAction_RejectedActionDoesNotMutateProjections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	reason := domain.ReasonEmptyBody
	ev := domain.Event{
		Tick: 0,
		Kind: domain.KindAction,
		Payload: domain.Payload{Action: &domain.ActionPayload{
			ActorID: "u1", ActionType: domain.ActionPost, Status: domain.StatusRejected, Reason: &reason,
		}},
	}
	opID := "op-rejected"
	_, err := s.Append(ctx, 0, ev.Kind, &opID, ev.Payload)
	require.NoError(t, err)
	require.NoError(t, s.ApplyEvent(ctx, ev))

	ok, err := s.UserExists(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReplayAll_IsIdempotentAndDeterministic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	body := "hello"
	seedAcceptedAction(t, s, "op-post", &domain.ActionPayload{ActorID: "author", ActionType: domain.ActionPost, Body: &body})
	postID := domain.DerivePostID("op-post")
	seedAcceptedAction(t, s, "op-like", &domain.ActionPayload{ActorID: "voter", ActionType: domain.ActionLike, TargetPostID: &postID})

	hashBefore, err := s.ProjectionHash(ctx)
	require.NoError(t, err)

	require.NoError(t, s.ReplayAll(ctx))

	hashAfter, err := s.ProjectionHash(ctx)
	require.NoError(t, err)

	assert.Equal(t, hashBefore, hashAfter)

	require.NoError(t, s.ReplayAll(ctx))
	hashAfterSecond, err := s.ProjectionHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, hashAfter, hashAfterSecond)
}

func TestApplyAction_PostIDIsStableAcrossReplay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	body := "hello"
	seedAcceptedAction(t, s, "op-post", &domain.ActionPayload{ActorID: "author", ActionType: domain.ActionPost, Body: &body})
	postID := domain.DerivePostID("op-post")

	require.NoError(t, s.ReplayAll(ctx))

	ok, err := s.PostExists(ctx, postID)
	require.NoError(t, err)
	assert.True(t, ok)
}
