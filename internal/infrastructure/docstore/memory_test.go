package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetPutUpdate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "tasks", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "tasks", "t1", Record{"name": "first", "status": "New"}))

	// Field merge leaves untouched fields alone.
	require.NoError(t, store.UpdateFields(ctx, "tasks", "t1", Record{"status": "Progress"}))
	rec, err := store.Get(ctx, "tasks", "t1")
	require.NoError(t, err)
	assert.Equal(t, "first", rec["name"])
	assert.Equal(t, "Progress", rec["status"])

	err = store.UpdateFields(ctx, "tasks", "missing", Record{"status": "New"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Query(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "tasks", "a", Record{"status": "New", "assignedMembers": []interface{}{"u1", "u2"}}))
	require.NoError(t, store.Put(ctx, "tasks", "b", Record{"status": "Progress", "assignedMembers": []interface{}{"u2"}}))
	require.NoError(t, store.Put(ctx, "tasks", "c", Record{"status": "New", "assignedMembers": []interface{}{"u3"}}))

	docs, err := store.Query(ctx, "tasks", []Filter{{Field: "status", Op: OpEqual, Value: "New"}})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = store.Query(ctx, "tasks", []Filter{{Field: "assignedMembers", Op: OpContains, Value: "u2"}})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = store.Query(ctx, "tasks", []Filter{
		{Field: "status", Op: OpEqual, Value: "New"},
		{Field: "assignedMembers", Op: OpContains, Value: "u2"},
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].ID)
}

func TestMemoryStore_SubscribeDeliversFullResultSet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "tasks", "a", Record{"status": "New"}))

	results := make(chan []Document, 4)
	cancel, err := store.Subscribe(ctx, "tasks", []Filter{{Field: "status", Op: OpEqual, Value: "New"}}, func(docs []Document) {
		results <- docs
	})
	require.NoError(t, err)
	defer cancel()

	// The subscription opens with the current matching set.
	first := waitForDocs(t, results)
	require.Len(t, first, 1)

	// Every mutation re-delivers the full matching set, not a delta.
	require.NoError(t, store.Put(ctx, "tasks", "b", Record{"status": "New"}))
	second := waitForDocs(t, results)
	assert.Len(t, second, 2)

	// A document leaving the filter shrinks the delivered set.
	require.NoError(t, store.UpdateFields(ctx, "tasks", "a", Record{"status": "Complete"}))
	third := waitForDocs(t, results)
	require.Len(t, third, 1)
	assert.Equal(t, "b", third[0].ID)

	cancel()
	require.NoError(t, store.Put(ctx, "tasks", "c", Record{"status": "New"}))
	select {
	case docs := <-results:
		t.Fatalf("received %d docs after cancel", len(docs))
	case <-time.After(50 * time.Millisecond):
	}
}

func waitForDocs(t *testing.T, ch chan []Document) []Document {
	t.Helper()
	select {
	case docs := <-ch:
		return docs
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscription delivery")
		return nil
	}
}
