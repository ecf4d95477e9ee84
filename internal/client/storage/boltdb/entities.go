package boltdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/driftsync/driftsync/internal/client/storage"
	"github.com/driftsync/driftsync/internal/lww"
	"github.com/driftsync/driftsync/internal/models"
)

// Get returns the cached record for (table, entityID).
// Tombstones are reported as not found: reads never surface deleted rows.
func (s *Storage) Get(ctx context.Context, table, entityID string) (*models.LocalEntity, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var ent *models.LocalEntity

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEntities).Get(entityKey(table, entityID))
		if data == nil {
			return storage.ErrEntityNotFound
		}

		ent = &models.LocalEntity{}
		if err := json.Unmarshal(data, ent); err != nil {
			return fmt.Errorf("failed to unmarshal entity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if ent.Deleted {
		return nil, storage.ErrEntityNotFound
	}
	return ent, nil
}

// List returns all live records of a table in key order.
func (s *Storage) List(ctx context.Context, table string) ([]*models.LocalEntity, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	prefix := entityKey(table, "")
	var entities []*models.LocalEntity

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketEntities).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var ent models.LocalEntity
			if err := json.Unmarshal(v, &ent); err != nil {
				return fmt.Errorf("failed to unmarshal entity: %w", err)
			}
			if !ent.Deleted {
				entities = append(entities, &ent)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	return entities, nil
}

// ApplyRemote merges a canonical record from the Authority into the cache.
// The record is written only when it beats the cached version under the LWW
// policy, so replayed change feeds are idempotent and a record carrying
// unacknowledged local edits (with a later local timestamp) is not
// clobbered by an older delta.
func (s *Storage) ApplyRemote(ctx context.Context, rec *models.LocalEntity) (bool, error) {
	if s.db == nil {
		return false, storage.ErrStorageClosed
	}

	changed := false

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketEntities)
		key := entityKey(rec.Table, rec.EntityID)

		if data := bucket.Get(key); data != nil {
			var existing models.LocalEntity
			if err := json.Unmarshal(data, &existing); err != nil {
				return fmt.Errorf("failed to unmarshal existing entity: %w", err)
			}

			incoming := lww.Version{TS: rec.VersionTS, ClientID: rec.ClientID}
			current := lww.Version{TS: existing.VersionTS, ClientID: existing.ClientID}
			if !lww.Wins(incoming, current) {
				return nil
			}
		}

		merged := rec.Clone()
		merged.Synced = true

		data, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("failed to marshal entity: %w", err)
		}
		if err := bucket.Put(key, data); err != nil {
			return fmt.Errorf("failed to save entity: %w", err)
		}

		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return changed, nil
}

// markEntitySynced flips the synced flag of an entity if, and only if, no
// pending operation still references it. Runs inside the caller's
// transaction.
func markEntitySynced(tx *bbolt.Tx, table, entityID string) error {
	// Any remaining pending op for the same entity keeps the flag false.
	var pending bool
	err := tx.Bucket(bucketOplog).ForEach(func(k, v []byte) error {
		var op models.Operation
		if err := json.Unmarshal(v, &op); err != nil {
			return fmt.Errorf("failed to unmarshal operation: %w", err)
		}
		if op.Table == table && op.EntityID == entityID {
			pending = true
		}
		return nil
	})
	if err != nil {
		return err
	}
	if pending {
		return nil
	}

	bucket := tx.Bucket(bucketEntities)
	key := entityKey(table, entityID)
	data := bucket.Get(key)
	if data == nil {
		return nil
	}

	var ent models.LocalEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	if ent.Synced {
		return nil
	}

	ent.Synced = true
	updated, err := json.Marshal(&ent)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}
	return bucket.Put(key, updated)
}
