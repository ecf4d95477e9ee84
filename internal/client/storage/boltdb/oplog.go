package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/driftsync/driftsync/internal/client/storage"
	"github.com/driftsync/driftsync/internal/models"
)

// Enqueue writes the optimistic local record and appends the operation to
// the log inside one bbolt transaction. A crash between the two is
// impossible: either both land or neither does.
func (s *Storage) Enqueue(ctx context.Context, op *models.Operation) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	if err := op.Validate(); err != nil {
		return fmt.Errorf("invalid operation: %w", err)
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		oplog := tx.Bucket(bucketOplog)

		seq, err := oplog.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate sequence: %w", err)
		}
		seqKey := make([]byte, 8)
		binary.BigEndian.PutUint64(seqKey, seq)

		opData, err := json.Marshal(op)
		if err != nil {
			return fmt.Errorf("failed to marshal operation: %w", err)
		}
		if err := oplog.Put(seqKey, opData); err != nil {
			return fmt.Errorf("failed to append operation: %w", err)
		}
		if err := tx.Bucket(bucketOpIndex).Put([]byte(op.OperationID), seqKey); err != nil {
			return fmt.Errorf("failed to index operation: %w", err)
		}

		// Optimistic local write, layered on top of whatever the cache held.
		ent := &models.LocalEntity{
			Table:     op.Table,
			EntityID:  op.EntityID,
			Payload:   op.Payload,
			VersionTS: op.ClientTS,
			ClientID:  op.ClientID,
			Deleted:   op.Kind == models.OpDelete,
			Synced:    false,
		}
		entData, err := json.Marshal(ent)
		if err != nil {
			return fmt.Errorf("failed to marshal entity: %w", err)
		}
		if err := tx.Bucket(bucketEntities).Put(entityKey(op.Table, op.EntityID), entData); err != nil {
			return fmt.Errorf("failed to save entity: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue transaction failed: %w", err)
	}

	return nil
}

// PendingBatch returns up to max pending operations in append order. The
// log is not modified: the reconciler trims entries only on ack or reject,
// so a timed-out sync cycle loses nothing.
func (s *Storage) PendingBatch(ctx context.Context, max int) ([]*models.Operation, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var ops []*models.Operation

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketOplog).Cursor()
		for k, v := c.First(); k != nil && len(ops) < max; k, v = c.Next() {
			var op models.Operation
			if err := json.Unmarshal(v, &op); err != nil {
				return fmt.Errorf("failed to unmarshal operation: %w", err)
			}
			ops = append(ops, &op)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read pending batch: %w", err)
	}

	return ops, nil
}

// PendingCount returns the number of unacknowledged operations.
func (s *Storage) PendingCount(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	var count int
	err := s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket(bucketOplog).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count pending operations: %w", err)
	}

	return count, nil
}

// Ack removes an acknowledged operation from the log and refreshes the
// synced flag of its entity. Acking an id that is no longer pending is a
// no-op, because a retried batch can return acks the replica has already
// consumed.
func (s *Storage) Ack(ctx context.Context, operationID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		op, err := removeOp(tx, operationID)
		if err != nil || op == nil {
			return err
		}
		return markEntitySynced(tx, op.Table, op.EntityID)
	})
	if err != nil {
		return fmt.Errorf("ack transaction failed: %w", err)
	}

	return nil
}

// Reject removes a conflicted operation from the log. The caller is
// expected to follow up with ApplyRemote for the winning record, which also
// restores the synced flag.
func (s *Storage) Reject(ctx context.Context, operationID string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		op, err := removeOp(tx, operationID)
		if err != nil {
			return err
		}
		if op == nil {
			return storage.ErrOperationNotFound
		}
		return nil
	})
	if err != nil {
		if err == storage.ErrOperationNotFound {
			return err
		}
		return fmt.Errorf("reject transaction failed: %w", err)
	}

	return nil
}

// removeOp deletes an operation from the log and its index. Returns the
// removed operation, or nil when the id is not pending.
func removeOp(tx *bbolt.Tx, operationID string) (*models.Operation, error) {
	index := tx.Bucket(bucketOpIndex)
	seqKey := index.Get([]byte(operationID))
	if seqKey == nil {
		return nil, nil
	}

	oplog := tx.Bucket(bucketOplog)
	data := oplog.Get(seqKey)
	if data == nil {
		// Index entry without a log entry should not happen; drop the index.
		return nil, index.Delete([]byte(operationID))
	}

	var op models.Operation
	if err := json.Unmarshal(data, &op); err != nil {
		return nil, fmt.Errorf("failed to unmarshal operation: %w", err)
	}

	if err := oplog.Delete(seqKey); err != nil {
		return nil, fmt.Errorf("failed to delete operation: %w", err)
	}
	if err := index.Delete([]byte(operationID)); err != nil {
		return nil, fmt.Errorf("failed to delete operation index: %w", err)
	}

	return &op, nil
}
