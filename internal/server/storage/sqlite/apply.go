package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/driftsync/driftsync/internal/lww"
	"github.com/driftsync/driftsync/internal/models"
	"github.com/driftsync/driftsync/internal/server/storage"
	"github.com/driftsync/driftsync/pkg/api"
)

// compile-time interface check
var _ storage.DataStorage = (*Storage)(nil)

// ApplyOperation applies one operation inside its own transaction:
// ledger lookup, LWW verdict, canonical write, feed append and ledger
// record either all commit or none do.
func (s *Storage) ApplyOperation(ctx context.Context, op *models.Operation) (result *api.OpResult, err error) {
	if err := op.Validate(); err != nil {
		return nil, fmt.Errorf("invalid operation: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Idempotent replay: a duplicate delivery returns the recorded result.
	replayed, err := lookupAppliedResult(ctx, tx, op.OperationID)
	if err != nil {
		return nil, err
	}
	if replayed != nil {
		if err = tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return replayed, nil
	}

	current, err := getEntityTx(ctx, tx, op.TenantID, op.Table, op.EntityID)
	if err != nil && !errors.Is(err, storage.ErrEntityNotFound) {
		return nil, err
	}

	wins := true
	if current != nil {
		incoming := lww.Version{TS: op.ClientTS, ClientID: op.ClientID}
		existing := lww.Version{TS: current.VersionTS, ClientID: current.ClientID}
		wins = lww.Wins(incoming, existing)
	}

	if wins {
		rec := recordFromOp(op)
		if err = upsertEntity(ctx, tx, rec); err != nil {
			return nil, err
		}
		if err = appendFeed(ctx, tx, rec); err != nil {
			return nil, err
		}
		result = &api.OpResult{OperationID: op.OperationID, Status: api.StatusAck}
	} else {
		reason := api.ReasonStaleVersion
		if current.Deleted {
			reason = api.ReasonDeleted
		}
		result = &api.OpResult{
			OperationID: op.OperationID,
			Status:      api.StatusConflict,
			Conflict: &api.Conflict{
				Reason:  reason,
				Winning: entityToWire(current),
			},
		}
	}

	// The op is recorded as applied whether it won or lost, so a retried
	// delivery of a losing op yields the same conflict again.
	if err = recordApplied(ctx, tx, op, result); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

// recordFromOp builds the canonical record an applied winning op produces.
// Every kind resolves to the same upsert shape: inserts and updates write
// the payload, deletes write a tombstone. The switch is exhaustive over
// models.OpKind.
func recordFromOp(op *models.Operation) *models.EntityRecord {
	rec := &models.EntityRecord{
		TenantID:  op.TenantID,
		Table:     op.Table,
		EntityID:  op.EntityID,
		VersionTS: op.ClientTS,
		ClientID:  op.ClientID,
		UpdatedAt: time.Now().UTC(),
	}

	switch op.Kind {
	case models.OpInsert, models.OpUpdate:
		rec.Payload = op.Payload
	case models.OpDelete:
		rec.Deleted = true
	}

	return rec
}

func lookupAppliedResult(ctx context.Context, tx *sql.Tx, opID string) (*api.OpResult, error) {
	var data []byte
	err := tx.QueryRowContext(ctx,
		`SELECT result FROM applied_ops WHERE op_id = ?`, opID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up applied op: %w", err)
	}

	var result api.OpResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recorded result: %w", err)
	}
	return &result, nil
}

func recordApplied(ctx context.Context, tx *sql.Tx, op *models.Operation, result *api.OpResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO applied_ops (op_id, tenant_id, result, applied_at) VALUES (?, ?, ?, ?)`,
		op.OperationID, op.TenantID, data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record applied op: %w", err)
	}
	return nil
}

func upsertEntity(ctx context.Context, tx *sql.Tx, rec *models.EntityRecord) error {
	query := `
		INSERT INTO entities (tenant_id, tbl, entity_id, payload, version_ts, client_id, deleted, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, tbl, entity_id) DO UPDATE SET
			payload = excluded.payload,
			version_ts = excluded.version_ts,
			client_id = excluded.client_id,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at
	`

	_, err := tx.ExecContext(ctx, query,
		rec.TenantID, rec.Table, rec.EntityID, rec.Payload,
		rec.VersionTS, rec.ClientID, boolToInt(rec.Deleted), rec.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert entity: %w", err)
	}
	return nil
}

func appendFeed(ctx context.Context, tx *sql.Tx, rec *models.EntityRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO change_feed (tenant_id, tbl, entity_id, payload, version_ts, client_id, deleted, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TenantID, rec.Table, rec.EntityID, rec.Payload,
		rec.VersionTS, rec.ClientID, boolToInt(rec.Deleted), rec.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to append change feed: %w", err)
	}
	return nil
}

// PruneAppliedOps drops ledger entries older than the retention horizon.
func (s *Storage) PruneAppliedOps(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM applied_ops WHERE applied_at < ?`, olderThan.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune applied ops: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}
