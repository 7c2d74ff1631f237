package internal

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
)

// Digest is the one-way transform of a room secret. It is base64 encoded so
// it can travel inside JSON envelopes and be compared without ever holding
// the cleartext. An empty Digest means "not set".
type Digest string

// HashSecret derives the digest for a secret. Equal secrets always produce
// equal digests, which is what lets the client and server derive the same
// value independently.
func HashSecret(secret string) Digest {
	sum := sha512.Sum512([]byte(secret))
	return Digest(base64.StdEncoding.EncodeToString(sum[:]))
}

// DigestsEqual compares two digests in constant time.
func DigestsEqual(a, b Digest) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
