// Package timeline implements the Timeline Service (§4.5): it builds a
// ranked view of the candidate post set for a user, records it as a
// timeline_served event, and hands the caller back the items and the
// deterministic id under which they were recorded.
package timeline

import (
	"context"

	"github.com/dcrew44/llm-social-network/internal/domain"
	"github.com/dcrew44/llm-social-network/internal/ranker"
	"github.com/dcrew44/llm-social-network/internal/store"
)

// Result is what Serve returns to the calling agent: the id it must echo
// back on any action tied to this exposure, and the ranked items.
type Result struct {
	TimelineID string
	Items      []ranker.Item
}

// Serve computes the current projection snapshot, ranks it, derives a
// deterministic timeline id, and appends+applies a timeline_served event,
// all within one transaction (§4.5 steps 1-4).
func Serve(ctx context.Context, s *store.Store, userID string, algorithm domain.RankingAlgorithm, k int, seed int64) (Result, error) {
	tx, err := s.Begin(ctx)
	if err != nil {
		return Result{}, err
	}
	defer tx.Rollback()

	currentTick, err := tx.CurrentTick(ctx)
	if err != nil {
		return Result{}, err
	}
	candidates, err := tx.ListCandidatePosts(ctx)
	if err != nil {
		return Result{}, err
	}
	items, err := ranker.Rank(candidates, algorithm, currentTick, seed, k)
	if err != nil {
		return Result{}, err
	}

	runID, err := tx.RunID(ctx)
	if err != nil {
		return Result{}, err
	}
	counter, err := tx.NextTimelineCounter(ctx)
	if err != nil {
		return Result{}, err
	}
	timelineID := domain.DeriveTimelineID(runID, userID, currentTick, algorithm, seed, counter)

	payload := &domain.TimelineServedPayload{
		TimelineID:     timelineID,
		UserID:         userID,
		K:              k,
		Algorithm:      algorithm,
		RankingVersion: domain.RankingVersion,
		Seed:           seed,
		Items:          toTimelineItems(items),
	}
	ev := domain.Event{
		Tick:    currentTick,
		Kind:    domain.KindTimelineServed,
		Payload: domain.Payload{TimelineServed: payload},
	}
	if _, err := tx.Append(ctx, currentTick, ev.Kind, nil, ev.Payload); err != nil {
		return Result{}, err
	}
	if err := tx.ApplyEvent(ctx, ev); err != nil {
		return Result{}, err
	}
	if err := tx.Commit(); err != nil {
		return Result{}, domain.WrapKernelError(domain.ErrCodeStore, "commit timeline_served", err)
	}

	return Result{TimelineID: timelineID, Items: items}, nil
}

func toTimelineItems(items []ranker.Item) []domain.TimelineItem {
	out := make([]domain.TimelineItem, len(items))
	for i, item := range items {
		out[i] = domain.TimelineItem{
			PostID:   item.PostID,
			Position: i,
			Score:    item.Score,
			Features: item.Features,
		}
	}
	return out
}
