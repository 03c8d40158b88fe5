package sdk

import "crypto/sha256"

// Hash returns sha256(b).
func Hash(b []byte) []byte {
	h := sha256.Sum256(b)
	return h[:]
}
