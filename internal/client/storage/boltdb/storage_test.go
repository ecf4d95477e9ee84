package boltdb

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftsync/driftsync/internal/client/storage"
	"github.com/driftsync/driftsync/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := New(context.Background(), filepath.Join(t.TempDir(), "replica.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return s
}

func testOp(id, entityID string, kind models.OpKind, ts int64) *models.Operation {
	op := &models.Operation{
		OperationID: id,
		TenantID:    "acme",
		Table:       "tasks",
		EntityID:    entityID,
		Kind:        kind,
		ClientTS:    ts,
		ClientID:    "node-a",
	}
	if kind != models.OpDelete {
		op.Payload = []byte(`{"title":"hello"}`)
	}
	return op
}

func TestNew_CreatesBuckets(t *testing.T) {
	s := newTestStorage(t)

	count, err := s.PendingCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	cursor, err := s.Cursor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), cursor)
}

func TestEnqueue_WritesEntityAndLogTogether(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, testOp("op-1", "e1", models.OpInsert, 100)))

	ent, err := s.Get(ctx, "tasks", "e1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), ent.VersionTS)
	assert.False(t, ent.Synced, "optimistic write must be marked unsynced")

	count, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestEnqueue_RejectsInvalidOperation(t *testing.T) {
	s := newTestStorage(t)

	op := testOp("op-1", "e1", models.OpInsert, 100)
	op.Payload = nil

	err := s.Enqueue(context.Background(), op)
	require.Error(t, err)

	count, err := s.PendingCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count, "failed enqueue must leave the log untouched")
}

// No-loss under disconnect: N enqueued mutations with zero sync cycles leave
// exactly N log entries and N cached records.
func TestEnqueue_NoLossWithoutSync(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	const n = 25
	for i := 0; i < n; i++ {
		op := testOp(fmt.Sprintf("op-%d", i), fmt.Sprintf("e-%d", i), models.OpInsert, int64(i+1))
		require.NoError(t, s.Enqueue(ctx, op))
	}

	count, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, count)

	entities, err := s.List(ctx, "tasks")
	require.NoError(t, err)
	assert.Len(t, entities, n)
}

func TestPendingBatch_AppendOrderAndNonDestructive(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, testOp("op-1", "e1", models.OpInsert, 100)))
	require.NoError(t, s.Enqueue(ctx, testOp("op-2", "e1", models.OpUpdate, 200)))
	require.NoError(t, s.Enqueue(ctx, testOp("op-3", "e2", models.OpInsert, 300)))

	batch, err := s.PendingBatch(ctx, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "op-1", batch[0].OperationID)
	assert.Equal(t, "op-2", batch[1].OperationID)

	// Peeking twice returns the same batch: nothing was removed.
	again, err := s.PendingBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, again, 3)
	assert.Equal(t, "op-1", again[0].OperationID)
}

func TestAck_RemovesAndIsIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, testOp("op-1", "e1", models.OpInsert, 100)))

	require.NoError(t, s.Ack(ctx, "op-1"))
	count, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	ent, err := s.Get(ctx, "tasks", "e1")
	require.NoError(t, err)
	assert.True(t, ent.Synced, "acked entity must be marked synced")

	// Replayed ack is a no-op.
	require.NoError(t, s.Ack(ctx, "op-1"))
	require.NoError(t, s.Ack(ctx, "never-existed"))
}

func TestAck_KeepsUnsyncedWhileOpsPending(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, testOp("op-1", "e1", models.OpInsert, 100)))
	require.NoError(t, s.Enqueue(ctx, testOp("op-2", "e1", models.OpUpdate, 200)))

	require.NoError(t, s.Ack(ctx, "op-1"))

	ent, err := s.Get(ctx, "tasks", "e1")
	require.NoError(t, err)
	assert.False(t, ent.Synced, "a later pending op still references the entity")

	require.NoError(t, s.Ack(ctx, "op-2"))
	ent, err = s.Get(ctx, "tasks", "e1")
	require.NoError(t, err)
	assert.True(t, ent.Synced)
}

func TestReject_UnknownOperation(t *testing.T) {
	s := newTestStorage(t)

	err := s.Reject(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrOperationNotFound)
}

func TestGet_TombstoneIsNotFound(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, testOp("op-1", "e1", models.OpInsert, 100)))
	require.NoError(t, s.Enqueue(ctx, testOp("op-2", "e1", models.OpDelete, 200)))

	_, err := s.Get(ctx, "tasks", "e1")
	assert.ErrorIs(t, err, storage.ErrEntityNotFound)

	entities, err := s.List(ctx, "tasks")
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestApplyRemote_LWWMerge(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	changed, err := s.ApplyRemote(ctx, &models.LocalEntity{
		Table: "tasks", EntityID: "e1", Payload: []byte(`{"v":1}`),
		VersionTS: 100, ClientID: "node-b",
	})
	require.NoError(t, err)
	assert.True(t, changed)

	// Older delta loses.
	changed, err = s.ApplyRemote(ctx, &models.LocalEntity{
		Table: "tasks", EntityID: "e1", Payload: []byte(`{"v":0}`),
		VersionTS: 50, ClientID: "node-b",
	})
	require.NoError(t, err)
	assert.False(t, changed)

	// Replaying the same delta is a no-op.
	changed, err = s.ApplyRemote(ctx, &models.LocalEntity{
		Table: "tasks", EntityID: "e1", Payload: []byte(`{"v":1}`),
		VersionTS: 100, ClientID: "node-b",
	})
	require.NoError(t, err)
	assert.False(t, changed)

	// Newer delta wins and the record is marked synced.
	changed, err = s.ApplyRemote(ctx, &models.LocalEntity{
		Table: "tasks", EntityID: "e1", Payload: []byte(`{"v":2}`),
		VersionTS: 200, ClientID: "node-b",
	})
	require.NoError(t, err)
	assert.True(t, changed)

	ent, err := s.Get(ctx, "tasks", "e1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":2}`), []byte(ent.Payload))
	assert.True(t, ent.Synced)
}

func TestApplyRemote_DoesNotClobberPendingLocalEdit(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	// Local speculative write at t=300, not yet acknowledged.
	require.NoError(t, s.Enqueue(ctx, testOp("op-1", "e1", models.OpInsert, 300)))

	// Older remote delta must not overwrite it.
	changed, err := s.ApplyRemote(ctx, &models.LocalEntity{
		Table: "tasks", EntityID: "e1", Payload: []byte(`{"remote":true}`),
		VersionTS: 200, ClientID: "node-b",
	})
	require.NoError(t, err)
	assert.False(t, changed)

	ent, err := s.Get(ctx, "tasks", "e1")
	require.NoError(t, err)
	assert.False(t, ent.Synced)
	assert.Equal(t, int64(300), ent.VersionTS)
}

func TestApplyRemote_RemoteDeleteWins(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, testOp("op-1", "e1", models.OpInsert, 100)))
	require.NoError(t, s.Ack(ctx, "op-1"))

	changed, err := s.ApplyRemote(ctx, &models.LocalEntity{
		Table: "tasks", EntityID: "e1",
		VersionTS: 200, ClientID: "node-b", Deleted: true,
	})
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = s.Get(ctx, "tasks", "e1")
	assert.ErrorIs(t, err, storage.ErrEntityNotFound)
}

func TestCursor_ForwardOnly(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SetCursor(ctx, 10))
	require.NoError(t, s.SetCursor(ctx, 10), "equal cursor is accepted")
	require.NoError(t, s.SetCursor(ctx, 25))

	err := s.SetCursor(ctx, 24)
	assert.ErrorIs(t, err, storage.ErrCursorRegression)

	cursor, err := s.Cursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(25), cursor)
}

func TestClientID_StableAcrossCalls(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	first, err := s.ClientID(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := s.ClientID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLogSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "replica.db")
	ctx := context.Background()

	s, err := New(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Enqueue(ctx, testOp("op-1", "e1", models.OpInsert, 100)))
	require.NoError(t, s.SetCursor(ctx, 7))
	require.NoError(t, s.Close())

	s2, err := New(ctx, path)
	require.NoError(t, err)
	defer s2.Close()

	count, err := s2.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	cursor, err := s2.Cursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), cursor)
}
