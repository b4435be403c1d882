package storage

import (
	"crypto/rand"
	"crypto/sha1" //nolint:gosec
	"fmt"
)

const (
	// IDShort is the display length for conversation IDs in CLI output.
	IDShort = 7
	// IDMinPrefix is the minimum prefix length considered for ID matching.
	IDMinPrefix = 4
)

// NewConversationID returns a 40-char hex identifier. It hashes random bytes
// purely to get git-like IDs; there is no security property here.
func NewConversationID() string {
	b := make([]byte, 512)
	_, _ = rand.Read(b)
	//nolint:gosec // identifier generation, not a security boundary
	return fmt.Sprintf("%x", sha1.Sum(b))
}

// ShortID truncates an ID to its display length.
func ShortID(id string) string {
	if len(id) > IDShort {
		return id[:IDShort]
	}
	return id
}
