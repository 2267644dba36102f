package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey returns a stable, path-safe hex digest of s.
func HashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// ShortHash returns the first n hex characters of HashKey(s).
func ShortHash(s string, n int) string {
	h := HashKey(s)
	if n <= 0 || n > len(h) {
		return h
	}
	return h[:n]
}
