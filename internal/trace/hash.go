package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future algorithm change.
const (
	DomainEntry = "enki/trace-entry/v1"
	DomainTrace = "enki/trace/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EntryID returns the content-addressed ID of an entry.
// Two entries with identical fields have identical IDs.
func EntryID(e Entry) (string, error) {
	canonical, err := MarshalCanonical(e)
	if err != nil {
		return "", fmt.Errorf("EntryID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEntry, canonical), nil
}

// Hash returns a digest over a whole trace. Replaying the same raises with
// the same raise IDs yields the same hash.
func Hash(entries []Entry) (string, error) {
	canonical, err := MarshalCanonical(entries)
	if err != nil {
		return "", fmt.Errorf("Hash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}

// MustEntryID is like EntryID but panics on error.
// Entry values only hold canonical-safe fields, so this never panics in
// practice.
func MustEntryID(e Entry) string {
	id, err := EntryID(e)
	if err != nil {
		panic(err)
	}
	return id
}
