package models

import "time"

// EntityRecord is the canonical state of one entity on the Authority side.
// Exactly one record exists per (tenant_id, table, entity_id); deletes are
// tombstones so that the LWW policy can compare against them later.
type EntityRecord struct {
	TenantID  string    `json:"tenant_id"`
	Table     string    `json:"table"`
	EntityID  string    `json:"entity_id"`
	Payload   []byte    `json:"payload,omitempty"` // opaque JSON document, nil for tombstones
	VersionTS int64     `json:"version_ts"`        // timestamp of the winning write
	ClientID  string    `json:"client_id"`         // replica that produced the winning write
	Deleted   bool      `json:"deleted"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the record.
func (e *EntityRecord) Clone() *EntityRecord {
	cp := *e
	if e.Payload != nil {
		cp.Payload = make([]byte, len(e.Payload))
		copy(cp.Payload, e.Payload)
	}
	return &cp
}

// LocalEntity is the replica's cached copy of an entity. Synced is false
// while the record carries unacknowledged local edits.
type LocalEntity struct {
	Table     string `json:"table"`
	EntityID  string `json:"entity_id"`
	Payload   []byte `json:"payload,omitempty"`
	VersionTS int64  `json:"version_ts"`
	ClientID  string `json:"client_id"`
	Deleted   bool   `json:"deleted"`
	Synced    bool   `json:"synced"`
}

// Clone returns a deep copy of the local entity.
func (e *LocalEntity) Clone() *LocalEntity {
	cp := *e
	if e.Payload != nil {
		cp.Payload = make([]byte, len(e.Payload))
		copy(cp.Payload, e.Payload)
	}
	return &cp
}
