package validation

import (
	"fmt"
	"regexp"
)

// IdentPattern defines the accepted shape of tenant IDs and table names:
// latin letters, digits, underscore and hyphen, 1-64 characters. Entity IDs
// are application controlled and only length-bounded.
var IdentPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

const (
	// MaxIdentLen is the upper bound for tenant IDs and table names.
	MaxIdentLen = 64
	// MaxEntityIDLen is the upper bound for entity IDs.
	MaxEntityIDLen = 256
)

// ValidateIdent checks a tenant ID or table name against IdentPattern.
// The label names the field in the returned error.
func ValidateIdent(label, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", label)
	}
	if len(value) > MaxIdentLen {
		return fmt.Errorf("%s must not exceed %d characters", label, MaxIdentLen)
	}
	if !IdentPattern.MatchString(value) {
		return fmt.Errorf("%s can only contain letters, digits, underscore and hyphen", label)
	}
	return nil
}

// ValidateEntityID checks an entity ID. Entity IDs are opaque to the engine,
// so only emptiness and length are enforced.
func ValidateEntityID(id string) error {
	if id == "" {
		return fmt.Errorf("entity_id cannot be empty")
	}
	if len(id) > MaxEntityIDLen {
		return fmt.Errorf("entity_id must not exceed %d characters", MaxEntityIDLen)
	}
	return nil
}
