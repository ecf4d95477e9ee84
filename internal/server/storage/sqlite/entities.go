package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/driftsync/driftsync/internal/models"
	"github.com/driftsync/driftsync/internal/server/storage"
	"github.com/driftsync/driftsync/pkg/api"
)

// GetEntity returns the canonical record for (tenant, table, entity),
// tombstones included. The LWW policy needs tombstone versions to compare
// against, so deletion does not hide the row here.
func (s *Storage) GetEntity(ctx context.Context, tenantID, table, entityID string) (*models.EntityRecord, error) {
	return getEntity(ctx, s.db, tenantID, table, entityID)
}

func getEntityTx(ctx context.Context, tx *sql.Tx, tenantID, table, entityID string) (*models.EntityRecord, error) {
	return getEntity(ctx, tx, tenantID, table, entityID)
}

// queryer is the common subset of *sql.DB and *sql.Tx the readers need.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getEntity(ctx context.Context, q queryer, tenantID, table, entityID string) (*models.EntityRecord, error) {
	query := `
		SELECT tenant_id, tbl, entity_id, payload, version_ts, client_id, deleted, updated_at
		FROM entities
		WHERE tenant_id = ? AND tbl = ? AND entity_id = ?
	`

	rec := &models.EntityRecord{}
	var deleted int
	var updatedAt int64

	err := q.QueryRowContext(ctx, query, tenantID, table, entityID).Scan(
		&rec.TenantID,
		&rec.Table,
		&rec.EntityID,
		&rec.Payload,
		&rec.VersionTS,
		&rec.ClientID,
		&deleted,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	rec.Deleted = intToBool(deleted)
	rec.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return rec, nil
}

// ChangesSince returns the tenant's feed entries with seq > cursor in
// sequence order, at most limit rows.
func (s *Storage) ChangesSince(ctx context.Context, tenantID string, cursor uint64, limit int) ([]storage.FeedEntry, error) {
	query := `
		SELECT seq, tenant_id, tbl, entity_id, payload, version_ts, client_id, deleted, created_at
		FROM change_feed
		WHERE tenant_id = ? AND seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query change feed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []storage.FeedEntry
	for rows.Next() {
		var entry storage.FeedEntry
		var deleted int
		var createdAt int64

		err := rows.Scan(
			&entry.Seq,
			&entry.Record.TenantID,
			&entry.Record.Table,
			&entry.Record.EntityID,
			&entry.Record.Payload,
			&entry.Record.VersionTS,
			&entry.Record.ClientID,
			&deleted,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed entry: %w", err)
		}

		entry.Record.Deleted = intToBool(deleted)
		entry.Record.UpdatedAt = time.Unix(createdAt, 0).UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return entries, nil
}

// entityToWire converts a canonical record to its wire representation.
func entityToWire(rec *models.EntityRecord) api.Entity {
	return api.Entity{
		Table:     rec.Table,
		EntityID:  rec.EntityID,
		Payload:   rec.Payload,
		VersionTS: rec.VersionTS,
		ClientID:  rec.ClientID,
		Deleted:   rec.Deleted,
		UpdatedAt: rec.UpdatedAt,
	}
}
