// Package cache provides optional caching of extracted volume content.
//
// Extracting a file means reopening its origin volume and reading a byte
// range. A Cache lets repeated extractions skip that I/O. Keys are digests
// of the entry location (origin, offset, size and timestamp), so a patched
// volume that replaces an entry never collides with the stale copy.
package cache

import (
	_ "crypto/sha256" // registers digest.Canonical
	"fmt"

	"github.com/opencontainers/go-digest"
)

// Cache stores extracted file content by location key.
//
// Implementations should handle their own size limits and eviction policies
// and must be safe for concurrent use.
type Cache interface {
	// Get retrieves content by key.
	// Returns nil, false if the content is not cached.
	Get(key digest.Digest) ([]byte, bool)

	// Put stores content under key.
	Put(key digest.Digest, content []byte) error
}

// Key derives the cache key for an entry location.
func Key(origin string, offset, size, timestamp uint32) digest.Digest {
	return digest.FromString(fmt.Sprintf("%s\x00%d\x00%d\x00%d", origin, offset, size, timestamp))
}
