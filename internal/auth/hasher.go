// Package auth provides the password hashing capability consumed by the user
// registry: HMAC-SHA256 with a server-side pepper and constant-time
// comparison.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HMACHasher hashes passwords with HMAC-SHA256 keyed by a server-side
// pepper. Hashes are deterministic, one-way, and comparable, which is all
// the user registry requires.
type HMACHasher struct {
	pepper []byte
}

// NewHMACHasher creates a hasher with the given pepper.
func NewHMACHasher(pepper []byte) *HMACHasher {
	return &HMACHasher{pepper: pepper}
}

// Hash returns the hex-encoded HMAC-SHA256 of the password.
func (h *HMACHasher) Hash(password string) string {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(password))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the hash and compares in constant time to guard against
// timing side-channels.
func (h *HMACHasher) Verify(hash, password string) bool {
	computed := hmac.New(sha256.New, h.pepper)
	computed.Write([]byte(password))
	sum := computed.Sum(nil)

	stored, err := hex.DecodeString(hash)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(sum, stored) == 1
}
