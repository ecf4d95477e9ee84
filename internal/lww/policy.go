// Package lww implements the last-write-wins conflict policy shared by the
// replica and the Authority. The policy is a pure total-order comparator:
// both sides must reach the same verdict for the same pair of versions.
package lww

// Version is the (timestamp, client) pair every comparison runs on.
type Version struct {
	ClientID string
	TS       int64
}

// Compare returns a negative value if a loses to b, a positive value if a
// beats b, and 0 only when both fields are equal. Timestamps order first;
// exact ties are broken by lexicographic client ID so the order is total
// and stable across replays.
func Compare(a, b Version) int {
	switch {
	case a.TS < b.TS:
		return -1
	case a.TS > b.TS:
		return 1
	case a.ClientID < b.ClientID:
		return -1
	case a.ClientID > b.ClientID:
		return 1
	}
	return 0
}

// Wins reports whether an incoming version beats the current one. The
// incoming side must be strictly greater: an identical version does not
// overwrite, which keeps replayed merges idempotent.
//
// Deletion needs no special casing here. A delete at a later timestamp wins
// over any update because tombstones carry the delete's timestamp, and an
// update at a later timestamp resurrects a tombstone for the same reason.
func Wins(incoming, current Version) bool {
	return Compare(incoming, current) > 0
}
