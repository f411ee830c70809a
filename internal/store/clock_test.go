package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcrew44/llm-social-network/internal/domain"
)

func TestAdvanceTick_IncrementsByOne(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	newTick, err := s.AdvanceTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), newTick)

	newTick, err = s.AdvanceTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), newTick)

	tick, err := s.CurrentTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), tick)
}

func TestAdvanceTickTo_RejectsNonMonotonicTick(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.AdvanceTick(ctx) // current_tick is now 1

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = tx.AdvanceTickTo(ctx, 1)
	require.Error(t, err)
	ke, ok := err.(*domain.KernelError)
	require.True(t, ok)
	assert.Equal(t, domain.ErrCodeTickRegression, ke.Code)
}

func TestAdvanceTickTo_AcceptsStrictlyIncreasingTick(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	newTick, err := tx.AdvanceTickTo(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), newTick)
	require.NoError(t, tx.Commit())

	tick, err := s.CurrentTick(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), tick)
}
