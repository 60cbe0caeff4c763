// Package cryptox holds content hashing for stored files.
package cryptox

import (
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Checksum returns the hex BLAKE2b-256 digest of data.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum reports whether data hashes to want.
func VerifyChecksum(data []byte, want string) bool {
	got := Checksum(data)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
