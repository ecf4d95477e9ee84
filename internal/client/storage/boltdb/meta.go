package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/driftsync/driftsync/internal/client/storage"
)

var (
	metaCursorKey   = []byte("cursor")
	metaClientIDKey = []byte("client_id")
)

// Cursor returns the last observed change-feed cursor, 0 before the first
// successful sync.
func (s *Storage) Cursor(ctx context.Context) (uint64, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	var cursor uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		if data := tx.Bucket(bucketMeta).Get(metaCursorKey); len(data) == 8 {
			cursor = binary.BigEndian.Uint64(data)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read cursor: %w", err)
	}

	return cursor, nil
}

// SetCursor advances the stored cursor. Equal values are accepted (an empty
// sync cycle keeps the cursor where it was); smaller values are refused.
func (s *Storage) SetCursor(ctx context.Context, cursor uint64) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMeta)

		if data := bucket.Get(metaCursorKey); len(data) == 8 {
			if current := binary.BigEndian.Uint64(data); cursor < current {
				return storage.ErrCursorRegression
			}
		}

		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, cursor)
		return bucket.Put(metaCursorKey, buf)
	})
	if err != nil {
		if err == storage.ErrCursorRegression {
			return err
		}
		return fmt.Errorf("failed to save cursor: %w", err)
	}

	return nil
}

// ClientID returns this replica's stable identity, generating and
// persisting a UUID on first use.
func (s *Storage) ClientID(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", storage.ErrStorageClosed
	}

	var clientID string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMeta)

		if data := bucket.Get(metaClientIDKey); data != nil {
			clientID = string(data)
			return nil
		}

		clientID = uuid.New().String()
		return bucket.Put(metaClientIDKey, []byte(clientID))
	})
	if err != nil {
		return "", fmt.Errorf("failed to load client id: %w", err)
	}

	return clientID, nil
}
