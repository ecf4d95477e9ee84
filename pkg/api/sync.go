package api

import (
	"encoding/json"
	"time"
)

// Operation kinds on the wire. Mirrors internal/models.OpKind.
const (
	KindInsert = "insert"
	KindUpdate = "update"
	KindDelete = "delete"
)

// Result statuses returned per operation.
const (
	StatusAck      = "ack"
	StatusConflict = "conflict"
)

// Conflict reasons.
const (
	ReasonStaleVersion = "stale_version"
	ReasonDeleted      = "deleted"
)

// Operation is one queued mutation shipped to the Authority.
type Operation struct {
	OperationID string          `json:"operation_id"`
	Table       string          `json:"table"`
	EntityID    string          `json:"entity_id"`
	Kind        string          `json:"kind"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	ClientTS    int64           `json:"client_ts"`
	ClientID    string          `json:"client_id"`
}

// Entity is a canonical record on the wire: either a change-feed delta or
// the winning side of a conflict.
type Entity struct {
	UpdatedAt time.Time       `json:"updated_at"`
	Table     string          `json:"table"`
	EntityID  string          `json:"entity_id"`
	ClientID  string          `json:"client_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	VersionTS int64           `json:"version_ts"`
	Deleted   bool            `json:"deleted"`
}

// Conflict describes why an operation lost and which record won.
type Conflict struct {
	Reason  string `json:"reason"` // stale_version | deleted
	Winning Entity `json:"winning"`
}

// OpResult is the Authority's verdict for a single operation. A replayed
// operation_id yields the identical result (idempotent apply).
type OpResult struct {
	Conflict    *Conflict `json:"conflict,omitempty"`
	OperationID string    `json:"operation_id"`
	Status      string    `json:"status"` // ack | conflict
}

// SyncRequest carries a batch of pending operations plus the cursor of the
// last change-feed entry the replica has observed.
type SyncRequest struct {
	TenantID   string      `json:"tenant_id"`
	Operations []Operation `json:"operations"`
	Cursor     uint64      `json:"cursor"`
}

// SyncResponse returns per-operation results, the change-feed entries past
// the supplied cursor and the new cursor. NewCursor is always >= the request
// cursor; a smaller value is a protocol violation on the client side.
type SyncResponse struct {
	Results   []OpResult `json:"results"`
	Changes   []Entity   `json:"changes"`
	NewCursor uint64     `json:"new_cursor"`
}

// ErrorResponse is the JSON error body for non-2xx responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
