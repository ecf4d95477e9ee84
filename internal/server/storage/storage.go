// Package storage defines the Authority's canonical storage contract.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/driftsync/driftsync/internal/models"
	"github.com/driftsync/driftsync/pkg/api"
)

var (
	// ErrEntityNotFound is returned when no canonical record exists for
	// the requested key.
	ErrEntityNotFound = errors.New("entity not found")
)

// FeedEntry is one change-feed row: a canonical record plus its per-tenant
// monotonic sequence number.
type FeedEntry struct {
	Record models.EntityRecord
	Seq    uint64
}

// DataStorage is the canonical store behind the Authority: entity records,
// the applied-operation ledger and the change feed, all mutated together in
// per-operation transactions.
type DataStorage interface {
	// ApplyOperation applies one operation transactionally. A previously
	// applied operation_id returns the recorded result unchanged; this is
	// the idempotence guarantee against duplicate delivery.
	ApplyOperation(ctx context.Context, op *models.Operation) (*api.OpResult, error)

	// ChangesSince returns the tenant's change-feed entries with sequence
	// strictly greater than cursor, in sequence order, at most limit rows.
	ChangesSince(ctx context.Context, tenantID string, cursor uint64, limit int) ([]FeedEntry, error)

	// GetEntity returns the canonical record, tombstones included.
	// Returns ErrEntityNotFound when no record exists at all.
	GetEntity(ctx context.Context, tenantID, table, entityID string) (*models.EntityRecord, error)

	// PruneAppliedOps drops ledger entries older than the retention
	// horizon and returns how many were removed. The horizon must
	// comfortably exceed any realistic client retry window.
	PruneAppliedOps(ctx context.Context, olderThan time.Time) (int64, error)
}
