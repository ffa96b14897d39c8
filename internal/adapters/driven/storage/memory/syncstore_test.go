package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tidemark/internal/core/domain"
)

func TestSyncStateStore_RoundTrip(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()

	cp := domain.NewCheckpoint()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cp.Advance("tickets", now.Add(-time.Hour), now)

	state := domain.SyncState{
		SourceID: "helpdesk",
		Cursor:   cp.Encode(),
		LastSync: now,
		RunID:    "run-1",
	}
	require.NoError(t, store.Save(ctx, state))

	got, err := store.Get(ctx, "helpdesk")
	require.NoError(t, err)
	assert.Equal(t, state, *got)
	assert.Equal(t, 1, store.Saves())

	decoded, err := domain.DecodeCheckpoint(got.Cursor)
	require.NoError(t, err)
	mark, ok := decoded.Watermark("tickets")
	require.True(t, ok)
	assert.True(t, mark.Equal(now.Add(-time.Hour)))
}

func TestSyncStateStore_Overwrite(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.SyncState{SourceID: "a", RunID: "run-1"}))
	require.NoError(t, store.Save(ctx, domain.SyncState{SourceID: "a", RunID: "run-2"}))

	got, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.RunID)
	assert.Equal(t, 2, store.Saves())
}

func TestSyncStateStore_Errors(t *testing.T) {
	store := NewSyncStateStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.Save(ctx, domain.SyncState{}), domain.ErrInvalidInput)

	_, err := store.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Save(ctx, domain.SyncState{SourceID: "a"}))
	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
