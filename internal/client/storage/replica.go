package storage

import (
	"context"

	"github.com/driftsync/driftsync/internal/models"
)

//go:generate moq -out replica_mock.go . Replica

// Replica is the durable state owned by one client replica: the local entity
// cache, the operation log of unacknowledged mutations and the sync cursor.
// Implementations must make Enqueue atomic across the cache write and the
// log append, and every mutation durable before returning.
type Replica interface {
	// Enqueue writes the optimistic local record and appends the operation
	// to the log in a single transaction. Either both are committed or
	// neither is.
	Enqueue(ctx context.Context, op *models.Operation) error

	// Get returns the cached record for (table, entity_id).
	// Returns ErrEntityNotFound when the cache has no copy or only a
	// tombstone.
	Get(ctx context.Context, table, entityID string) (*models.LocalEntity, error)

	// List returns all live (non-deleted) cached records of a table.
	List(ctx context.Context, table string) ([]*models.LocalEntity, error)

	// PendingBatch returns up to max pending operations in append order
	// without removing them.
	PendingBatch(ctx context.Context, max int) ([]*models.Operation, error)

	// PendingCount returns the number of unacknowledged operations.
	PendingCount(ctx context.Context) (int, error)

	// Ack removes an acknowledged operation from the log. Idempotent:
	// acking an unknown id is a no-op, because a retried batch may carry
	// acks the replica already consumed.
	Ack(ctx context.Context, operationID string) error

	// Reject removes a conflicted operation from the log. Returns
	// ErrOperationNotFound if no such operation is pending.
	Reject(ctx context.Context, operationID string) error

	// ApplyRemote merges a canonical record from the Authority into the
	// cache under the LWW policy. Returns true when the local copy changed.
	ApplyRemote(ctx context.Context, rec *models.LocalEntity) (bool, error)

	// Cursor returns the last observed change-feed cursor, 0 before the
	// first successful sync.
	Cursor(ctx context.Context) (uint64, error)

	// SetCursor advances the stored cursor. Returns ErrCursorRegression
	// when the value moves backwards.
	SetCursor(ctx context.Context, cursor uint64) error

	// ClientID returns the stable identity of this replica, generating and
	// persisting one on first call.
	ClientID(ctx context.Context) (string, error)
}
