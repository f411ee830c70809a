package store

import (
	"context"
	"log/slog"

	"github.com/dcrew44/llm-social-network/internal/domain"
)

// AdvanceTick advances the clock by exactly one tick (§4.7): append an
// advance_tick event with new_tick = current_tick+1 and apply it via the
// reducer, inside one transaction.
func (s *Store) AdvanceTick(ctx context.Context) (int64, error) {
	tx, err := s.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	newTick, err := tx.advanceTickTo(ctx, -1) // -1 means "current+1"
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, domain.WrapKernelError(domain.ErrCodeStore, "commit advance_tick", err)
	}
	return newTick, nil
}

// AdvanceTickTo is the direct, out-of-order-capable form of AdvanceTick
// used only in tests (§4.7): it lets a test append an advance_tick event
// for an arbitrary tick value, returning TickRegression if it is not
// strictly greater than the current tick.
func (t *Tx) AdvanceTickTo(ctx context.Context, newTick int64) (int64, error) {
	if newTick < 0 {
		// Ticks start at 0, so a negative tick is never strictly greater
		// than the current one.
		return 0, domain.NewKernelError(domain.ErrCodeTickRegression,
			"advance_tick: new_tick must be strictly greater than current_tick")
	}
	return t.advanceTickTo(ctx, newTick)
}

func (t *Tx) advanceTickTo(ctx context.Context, newTick int64) (int64, error) {
	current, err := currentTick(ctx, t.tx)
	if err != nil {
		return 0, err
	}
	if newTick < 0 {
		newTick = current + 1
	} else if newTick <= current {
		slog.Warn("tick regression rejected", "current_tick", current, "requested_tick", newTick)
		return 0, domain.NewKernelError(domain.ErrCodeTickRegression,
			"advance_tick: new_tick must be strictly greater than current_tick")
	}

	ev := domain.Event{
		Tick:    newTick,
		Kind:    domain.KindAdvanceTick,
		Payload: domain.Payload{AdvanceTick: &domain.AdvanceTickPayload{NewTick: newTick}},
	}
	if _, err := t.Append(ctx, newTick, ev.Kind, nil, ev.Payload); err != nil {
		return 0, err
	}
	if err := t.ApplyEvent(ctx, ev); err != nil {
		return 0, err
	}
	return newTick, nil
}
