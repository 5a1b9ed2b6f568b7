package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ChunkID derives a deterministic chunk identifier from content. Identical
// content always maps to the same id, which is what makes re-ingestion of the
// same document a natural dedup.
func ChunkID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return fmt.Sprintf("doc_%s", hex.EncodeToString(sum[:])[:8])
}

// ContentHash returns the full hex digest of content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
