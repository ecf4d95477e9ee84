package storage

import "errors"

var (
	// ErrEntityNotFound is returned when the local cache has no record for
	// the requested (table, entity_id).
	ErrEntityNotFound = errors.New("entity not found")

	// ErrOperationNotFound is returned by Reject when no pending operation
	// carries the given operation_id. Ack treats the same situation as a
	// no-op instead, because acks may be replayed.
	ErrOperationNotFound = errors.New("operation not found")

	// ErrCursorRegression is returned by SetCursor when the new cursor is
	// smaller than the stored one. Cursors only move forward.
	ErrCursorRegression = errors.New("cursor regression")

	// ErrStorageClosed is returned on use after Close.
	ErrStorageClosed = errors.New("storage is closed")
)
