package engine

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftsync/driftsync/internal/client/storage"
	"github.com/driftsync/driftsync/internal/client/storage/boltdb"
	"github.com/driftsync/driftsync/internal/client/transport"
	"github.com/driftsync/driftsync/internal/models"
	"github.com/driftsync/driftsync/pkg/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func fastConfig() Config {
	return Config{
		TenantID:       "acme",
		BatchSize:      10,
		RequestTimeout: time.Second,
		BackoffBase:    time.Millisecond,
		BackoffCap:     5 * time.Millisecond,
		MaxRetries:     2,
	}
}

func newTestEngine(t *testing.T, mock *transport.ClientMock) (*Engine, *boltdb.Storage) {
	t.Helper()

	replica, err := boltdb.New(context.Background(), filepath.Join(t.TempDir(), "replica.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = replica.Close() })

	eng, err := New(context.Background(), replica, mock, testLogger(), fastConfig())
	require.NoError(t, err)

	return eng, replica
}

func ackAll(cursor uint64) func(ctx context.Context, req api.SyncRequest) (*api.SyncResponse, error) {
	return func(ctx context.Context, req api.SyncRequest) (*api.SyncResponse, error) {
		resp := &api.SyncResponse{NewCursor: cursor}
		for _, op := range req.Operations {
			resp.Results = append(resp.Results, api.OpResult{
				OperationID: op.OperationID,
				Status:      api.StatusAck,
			})
		}
		return resp, nil
	}
}

func TestEngine_EnqueueIsDurableAndNotifies(t *testing.T) {
	eng, _ := newTestEngine(t, &transport.ClientMock{})
	ctx := context.Background()

	var changes []Change
	unsubscribe := eng.Subscribe(func(ch Change) { changes = append(changes, ch) })
	defer unsubscribe()

	opID, err := eng.Enqueue(ctx, Mutation{
		Table:    "tasks",
		EntityID: "e1",
		Kind:     models.OpInsert,
		Payload:  []byte(`{"title":"hello"}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, opID)

	ent, err := eng.Get(ctx, "tasks", "e1")
	require.NoError(t, err)
	assert.False(t, ent.Synced)

	count, err := eng.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, changes, 1)
	assert.Equal(t, OriginLocal, changes[0].Origin)
	assert.Equal(t, "e1", changes[0].Entity.EntityID)
}

func TestEngine_EnqueueValidatesIdents(t *testing.T) {
	eng, _ := newTestEngine(t, &transport.ClientMock{})
	ctx := context.Background()

	_, err := eng.Enqueue(ctx, Mutation{Table: "bad table", EntityID: "e1", Kind: models.OpInsert, Payload: []byte(`{}`)})
	assert.Error(t, err)

	_, err = eng.Enqueue(ctx, Mutation{Table: "tasks", EntityID: "", Kind: models.OpInsert, Payload: []byte(`{}`)})
	assert.Error(t, err)
}

func TestEngine_EnqueueTimestampsAdvance(t *testing.T) {
	eng, _ := newTestEngine(t, &transport.ClientMock{})
	ctx := context.Background()

	_, err := eng.Enqueue(ctx, Mutation{Table: "tasks", EntityID: "e1", Kind: models.OpInsert, Payload: []byte(`{}`)})
	require.NoError(t, err)
	_, err = eng.Enqueue(ctx, Mutation{Table: "tasks", EntityID: "e1", Kind: models.OpUpdate, Payload: []byte(`{}`)})
	require.NoError(t, err)

	batch, err := eng.replica.PendingBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Greater(t, batch[1].ClientTS, batch[0].ClientTS)
}

func TestSyncOnce_AcksDrainLog(t *testing.T) {
	mock := &transport.ClientMock{SyncFunc: ackAll(5)}
	eng, _ := newTestEngine(t, mock)
	ctx := context.Background()

	_, err := eng.Enqueue(ctx, Mutation{Table: "tasks", EntityID: "e1", Kind: models.OpInsert, Payload: []byte(`{"v":1}`)})
	require.NoError(t, err)

	require.NoError(t, eng.SyncOnce(ctx))

	count, err := eng.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	ent, err := eng.Get(ctx, "tasks", "e1")
	require.NoError(t, err)
	assert.True(t, ent.Synced)

	cursor, err := eng.Cursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), cursor)

	// The request carried the batch and the initial cursor.
	calls := mock.SyncCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "acme", calls[0].Req.TenantID)
	assert.Equal(t, uint64(0), calls[0].Req.Cursor)
	require.Len(t, calls[0].Req.Operations, 1)
}

func TestSyncOnce_ConflictInstallsWinner(t *testing.T) {
	winnerPayload := []byte(`{"title":"remote wins"}`)
	mock := &transport.ClientMock{
		SyncFunc: func(ctx context.Context, req api.SyncRequest) (*api.SyncResponse, error) {
			require.Len(t, req.Operations, 1)
			op := req.Operations[0]
			return &api.SyncResponse{
				Results: []api.OpResult{{
					OperationID: op.OperationID,
					Status:      api.StatusConflict,
					Conflict: &api.Conflict{
						Reason: api.ReasonStaleVersion,
						Winning: api.Entity{
							Table:     op.Table,
							EntityID:  op.EntityID,
							Payload:   winnerPayload,
							VersionTS: op.ClientTS + 1000,
							ClientID:  "node-b",
						},
					},
				}},
				NewCursor: 9,
			}, nil
		},
	}
	eng, _ := newTestEngine(t, mock)
	ctx := context.Background()

	var conflicts []Change
	eng.Subscribe(func(ch Change) {
		if ch.Origin == OriginConflict {
			conflicts = append(conflicts, ch)
		}
	})

	_, err := eng.Enqueue(ctx, Mutation{Table: "tasks", EntityID: "e1", Kind: models.OpUpdate, Payload: []byte(`{"title":"local"}`)})
	require.NoError(t, err)

	require.NoError(t, eng.SyncOnce(ctx))

	// Losing operation is gone from the log, never to be retried.
	count, err := eng.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// The winner overwrote the speculative local state.
	ent, err := eng.Get(ctx, "tasks", "e1")
	require.NoError(t, err)
	assert.Equal(t, winnerPayload, []byte(ent.Payload))
	assert.Equal(t, "node-b", ent.ClientID)
	assert.True(t, ent.Synced)

	require.Len(t, conflicts, 1)
	assert.Equal(t, "e1", conflicts[0].Entity.EntityID)
}

func TestSyncOnce_TransportFailureKeepsOperationsQueued(t *testing.T) {
	mock := &transport.ClientMock{
		SyncFunc: func(ctx context.Context, req api.SyncRequest) (*api.SyncResponse, error) {
			return nil, errors.New("connection refused")
		},
	}
	eng, _ := newTestEngine(t, mock)
	ctx := context.Background()

	_, err := eng.Enqueue(ctx, Mutation{Table: "tasks", EntityID: "e1", Kind: models.OpInsert, Payload: []byte(`{}`)})
	require.NoError(t, err)

	err = eng.SyncOnce(ctx)
	require.Error(t, err)

	// Retried up to the ceiling, then gave up with everything still queued.
	assert.Len(t, mock.SyncCalls(), 3) // 1 attempt + MaxRetries(2)

	count, err := eng.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSyncOnce_PermanentErrorNotRetried(t *testing.T) {
	mock := &transport.ClientMock{
		SyncFunc: func(ctx context.Context, req api.SyncRequest) (*api.SyncResponse, error) {
			return nil, &transport.StatusError{Code: http.StatusUnauthorized, Message: "invalid token"}
		},
	}
	eng, _ := newTestEngine(t, mock)
	ctx := context.Background()

	_, err := eng.Enqueue(ctx, Mutation{Table: "tasks", EntityID: "e1", Kind: models.OpInsert, Payload: []byte(`{}`)})
	require.NoError(t, err)

	err = eng.SyncOnce(ctx)
	require.Error(t, err)
	assert.Len(t, mock.SyncCalls(), 1, "auth failure must not be retried")
}

func TestSyncOnce_CursorRegressionAbortsCycle(t *testing.T) {
	mock := &transport.ClientMock{SyncFunc: ackAll(10)}
	eng, replica := newTestEngine(t, mock)
	ctx := context.Background()

	require.NoError(t, replica.SetCursor(ctx, 20))

	_, err := eng.Enqueue(ctx, Mutation{Table: "tasks", EntityID: "e1", Kind: models.OpInsert, Payload: []byte(`{}`)})
	require.NoError(t, err)

	err = eng.SyncOnce(ctx)
	require.ErrorIs(t, err, ErrProtocolViolation)

	// Nothing was consumed, cursor kept at the last known-good value.
	count, err := eng.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	cursor, err := eng.Cursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), cursor)
}

func TestSyncOnce_MergesRemoteChanges(t *testing.T) {
	remoteTS := time.Now().UnixMilli() + 60_000
	mock := &transport.ClientMock{
		SyncFunc: func(ctx context.Context, req api.SyncRequest) (*api.SyncResponse, error) {
			return &api.SyncResponse{
				Changes: []api.Entity{
					{Table: "tasks", EntityID: "remote-1", Payload: []byte(`{"from":"b"}`), VersionTS: remoteTS, ClientID: "node-b"},
				},
				NewCursor: 1,
			}, nil
		},
	}
	eng, _ := newTestEngine(t, mock)
	ctx := context.Background()

	var remote []Change
	eng.Subscribe(func(ch Change) {
		if ch.Origin == OriginRemote {
			remote = append(remote, ch)
		}
	})

	require.NoError(t, eng.SyncOnce(ctx))

	ent, err := eng.Get(ctx, "tasks", "remote-1")
	require.NoError(t, err)
	assert.True(t, ent.Synced)
	require.Len(t, remote, 1)

	// The hybrid clock observed the remote timestamp: the next local write
	// must be ordered after it.
	_, err = eng.Enqueue(ctx, Mutation{Table: "tasks", EntityID: "remote-1", Kind: models.OpUpdate, Payload: []byte(`{}`)})
	require.NoError(t, err)

	batch, err := eng.replica.PendingBatch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Greater(t, batch[0].ClientTS, remoteTS)
}

func TestSyncOnce_ReplayedResponseIsIdempotent(t *testing.T) {
	// The same response applied twice (simulating a retried batch whose
	// first response was lost) must not change state the second time.
	resp := &api.SyncResponse{
		Changes: []api.Entity{
			{Table: "tasks", EntityID: "e1", Payload: []byte(`{"v":1}`), VersionTS: 100, ClientID: "node-b"},
		},
		NewCursor: 3,
	}
	mock := &transport.ClientMock{
		SyncFunc: func(ctx context.Context, req api.SyncRequest) (*api.SyncResponse, error) {
			return resp, nil
		},
	}
	eng, _ := newTestEngine(t, mock)
	ctx := context.Background()

	require.NoError(t, eng.SyncOnce(ctx))
	require.NoError(t, eng.SyncOnce(ctx))

	cursor, err := eng.Cursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), cursor)

	ent, err := eng.Get(ctx, "tasks", "e1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), ent.VersionTS)
}

func TestSyncOnce_CoalescesConcurrentCycles(t *testing.T) {
	eng, _ := newTestEngine(t, &transport.ClientMock{})

	// Simulate an in-flight cycle holding the lock: a second call must be
	// a no-op instead of a second network round trip.
	eng.syncMu.Lock()
	defer eng.syncMu.Unlock()

	require.NoError(t, eng.SyncOnce(context.Background()))
}

func TestFlushNow_Coalesces(t *testing.T) {
	eng, _ := newTestEngine(t, &transport.ClientMock{})

	// Multiple requests collapse into a single pending trigger.
	eng.FlushNow()
	eng.FlushNow()
	eng.FlushNow()

	assert.Len(t, eng.flushC, 1)
}

func TestRun_FlushTriggersCycleAndStopsOnCancel(t *testing.T) {
	synced := make(chan struct{}, 8)
	mock := &transport.ClientMock{
		SyncFunc: func(ctx context.Context, req api.SyncRequest) (*api.SyncResponse, error) {
			synced <- struct{}{}
			return &api.SyncResponse{}, nil
		},
	}
	eng, _ := newTestEngine(t, mock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	eng.FlushNow()
	select {
	case <-synced:
	case <-time.After(2 * time.Second):
		t.Fatal("flush did not trigger a sync cycle")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancellation")
	}
}

func TestNew_StorageFailureLoadingIdentity(t *testing.T) {
	replica := &storage.ReplicaMock{
		ClientIDFunc: func(ctx context.Context) (string, error) {
			return "", errors.New("disk error")
		},
	}

	_, err := New(context.Background(), replica, &transport.ClientMock{}, testLogger(), fastConfig())
	assert.Error(t, err)
}
