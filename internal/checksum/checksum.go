// Package checksum computes the content digests used as document ETags:
// a document update carrying an If-Match value is applied only when the
// value still matches the stored content.
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

// Match reports whether etag is the current digest of data.
func Match(data []byte, etag string) bool {
	return etag == Sum(data)
}
