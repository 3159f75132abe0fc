package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashUserKey returns a filesystem- and S3-safe namespace for a user ID.
// Guest IDs contain a colon, so the raw ID never appears in a storage key.
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
