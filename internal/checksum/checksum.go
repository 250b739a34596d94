// Package checksum computes the content digests used for change detection
// and cache keys. The digest format (hex SHA-256) is part of the index
// schema: stored checksums are compared byte for byte.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SumString is Sum for string content.
func SumString(s string) string {
	return Sum([]byte(s))
}
