// Package util holds the small helpers shared by both object store
// implementations.
package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashUserKey maps a user ID (which may contain colons or arbitrary guest
// input) to a fixed-width, filesystem-safe directory name.
func HashUserKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
