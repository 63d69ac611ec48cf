package cache

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Key builds a namespaced cache key, e.g. Key("crates", "serde/owner_user").
func Key(namespace, key string) string {
	return namespace + ":" + key
}

// Hash computes a BLAKE3-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}
