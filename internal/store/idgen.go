package store

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	defaultOwnerID    = "Vendor"
	defaultTypeAbbrev = "TBD"
)

// NewOID generates a fresh opaque identifier for a Thing (spec.md §3: "User-
// created Things are born in the local store with a freshly generated oid").
func NewOID() string { return uuid.NewString() }

// GenerateProductID builds the human-facing `id` for a HardwareProduct or
// Template: owner id (or "Vendor"), product-type abbreviation (or "TBD"),
// and a monotonically increasing zero-padded 7-digit suffix that does not
// collide with any existing HardwareProduct or Template id (spec.md §4.2
// "Unique-id generation").
func (s *Store) GenerateProductID(ownerID, typeAbbrev string) string {
	if ownerID == "" {
		ownerID = defaultOwnerID
	}
	if typeAbbrev == "" {
		typeAbbrev = defaultTypeAbbrev
	}

	s.mu.RLock()
	existing := make(map[string]bool)
	for _, t := range s.things {
		if t.CName == CNameHardwareProduct || t.CName == CNameTemplate {
			existing[t.Meta.ID] = true
		}
	}
	s.mu.RUnlock()

	prefix := fmt.Sprintf("%s-%s-", ownerID, typeAbbrev)
	for seq := 1; ; seq++ {
		candidate := fmt.Sprintf("%s%07d", prefix, seq)
		if !existing[candidate] {
			return candidate
		}
	}
}
