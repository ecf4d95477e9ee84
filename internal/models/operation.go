package models

import "fmt"

// OpKind enumerates the mutation kinds a replica can enqueue.
// The set is closed: every switch over OpKind must handle all three.
type OpKind string

const (
	OpInsert OpKind = "insert"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Valid reports whether k is one of the known operation kinds.
func (k OpKind) Valid() bool {
	switch k {
	case OpInsert, OpUpdate, OpDelete:
		return true
	}
	return false
}

// Operation is a single pending mutation in the operation log.
// OperationID is generated once per logical mutation and never reused;
// the Authority treats a replayed OperationID as a no-op.
type Operation struct {
	OperationID string `json:"operation_id"` // UUID, globally unique
	TenantID    string `json:"tenant_id"`
	Table       string `json:"table"`
	EntityID    string `json:"entity_id"`
	Kind        OpKind `json:"kind"`
	Payload     []byte `json:"payload,omitempty"` // opaque JSON document, nil for delete
	ClientTS    int64  `json:"client_ts"`         // hybrid clock timestamp, milliseconds
	ClientID    string `json:"client_id"`         // replica identity, tie-break in LWW
}

// Validate checks the structural invariants of an operation before it is
// accepted into the log or applied by the Authority.
func (o *Operation) Validate() error {
	if o.OperationID == "" {
		return fmt.Errorf("operation_id is required")
	}
	if o.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if o.Table == "" || o.EntityID == "" {
		return fmt.Errorf("table and entity_id are required")
	}
	if !o.Kind.Valid() {
		return fmt.Errorf("unknown operation kind %q", o.Kind)
	}
	if o.Kind == OpDelete && len(o.Payload) != 0 {
		return fmt.Errorf("delete operation must not carry a payload")
	}
	if o.Kind != OpDelete && len(o.Payload) == 0 {
		return fmt.Errorf("%s operation requires a payload", o.Kind)
	}
	if o.ClientTS <= 0 {
		return fmt.Errorf("client_ts must be positive")
	}
	if o.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	return nil
}

// Clone returns a deep copy of the operation.
func (o *Operation) Clone() *Operation {
	cp := *o
	if o.Payload != nil {
		cp.Payload = make([]byte, len(o.Payload))
		copy(cp.Payload, o.Payload)
	}
	return &cp
}
