package session

import (
	"crypto/rand"
	"encoding/hex"
)

// TokenLength is the length of a session token in hex characters.
const TokenLength = 30

// NewToken generates a session token: TokenLength lowercase hex characters
// from a cryptographically strong random source. The token is the sole
// bearer credential for API access to a session, so the entropy source is
// a security requirement, not a quality preference.
func NewToken() string {
	b := make([]byte, TokenLength/2)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	return hex.EncodeToString(b)
}
