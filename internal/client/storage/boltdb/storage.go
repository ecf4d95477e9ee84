// Package boltdb implements the replica storage on top of a single bbolt
// file. One bbolt transaction spans the entity cache and the operation log,
// which is what makes the enqueue path atomic as a pair.
package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/driftsync/driftsync/internal/client/storage"
)

var (
	// BoltDB bucket names
	bucketEntities = []byte("entities") // table\x00entity_id -> LocalEntity JSON
	bucketOplog    = []byte("oplog")    // big-endian sequence -> Operation JSON
	bucketOpIndex  = []byte("opindex")  // operation_id -> oplog key
	bucketMeta     = []byte("meta")     // cursor, client_id
)

// entityKeySep separates table from entity id inside entity keys. Table
// names are validated to never contain it.
const entityKeySep = byte(0x00)

// Storage is the bbolt-backed replica store.
type Storage struct {
	db *bbolt.DB
}

// compile-time interface check
var _ storage.Replica = (*Storage)(nil)

// New opens (or creates) the replica database at dbPath.
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}

	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database file.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// initBuckets creates the buckets if they do not exist yet.
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketEntities, bucketOplog, bucketOpIndex, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

// entityKey builds the entities bucket key for (table, entityID).
func entityKey(table, entityID string) []byte {
	key := make([]byte, 0, len(table)+1+len(entityID))
	key = append(key, table...)
	key = append(key, entityKeySep)
	key = append(key, entityID...)
	return key
}
