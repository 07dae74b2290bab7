package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashText returns a stable hex digest used as a cache key for embeddings.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
