package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campcal/internal/app/middleware"
	appoutbox "campcal/internal/app/outbox"
)

func TestOutboxClaimsOnlyFlushedRows(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	box := NewOutbox(DefaultOutboxCapacity)
	box.now = func() time.Time { return now }

	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "e1", Name: "calendar.selection_finalized", Payload: []byte(`{}`)}))
	doc, err := box.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, doc)

	require.NoError(t, box.Flush(ctx))
	doc, err = box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "e1", doc.ID)

	again, err := box.Claim(ctx, "w2")
	require.NoError(t, err)
	assert.Nil(t, again)

	require.NoError(t, box.MarkFailed(ctx, "e1", now.Add(time.Second), "broker down"))
	doc, err = box.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, doc)

	now = now.Add(2 * time.Second)
	doc, err = box.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, 1, doc.Attempts)

	require.NoError(t, box.MarkSent(ctx, "e1"))
	assert.Equal(t, 1, box.Published())
	assert.Zero(t, box.Queued())
}

func TestIdempotencyStoreRoundTrip(t *testing.T) {
	store := NewIdempotencyStore(time.Minute)
	_, ok, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(context.Background(), middleware.IdempotencyRecord{Key: "k", Payload: []byte(`{"ok":true}`)}))
	rec, ok, err := store.Get(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"ok":true}`, string(rec.Payload))
}

func TestOutboxStaysWithinCapacity(t *testing.T) {
	ctx := context.Background()
	fill := func(box *Outbox, n int) {
		for i := 0; i < n; i++ {
			require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: fmt.Sprintf("e%d", i), Name: "calendar.selection_finalized", Payload: []byte(`{}`)}))
			require.NoError(t, box.Flush(ctx))
		}
	}

	discard := NewOutbox(0)
	fill(discard, 50)
	assert.Zero(t, discard.Queued())
	assert.Equal(t, 50, discard.Dropped())

	bounded := NewOutbox(10)
	fill(bounded, 50)
	assert.Equal(t, 10, bounded.Queued())
	assert.Equal(t, 40, bounded.Dropped())
	doc, err := bounded.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "e40", doc.ID)
}
