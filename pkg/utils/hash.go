package utils

import (
	"crypto/sha256"
	"fmt"
)

// HashString is used for cache keys derived from message text, so the raw
// text never appears in a redis key.
func HashString(input string) string {
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", hash[:16])
}
