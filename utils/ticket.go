package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateNonce returns n cryptographically random bytes hex-encoded.
func GenerateNonce(n int) (string, error) {
	byt := make([]byte, n)

	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	return hex.EncodeToString(byt), nil
}

// GenerateTicketHash mints a ticket identifier from the booking inputs.
// An empty nonce draws a fresh 8-byte random one, which makes identifiers
// practically unique even when phone, event and timestamp collide. Passing
// an explicit nonce reproduces the same identifier for the same inputs.
//
// Uniqueness is enforced by the caller against the booking store; this
// function only mints candidates.
func GenerateTicketHash(userPhone, eventID, timestampISO, nonce string) (string, error) {
	if nonce == "" {
		var err error
		nonce, err = GenerateNonce(8)
		if err != nil {
			return "", err
		}
	}

	raw := fmt.Sprintf("%s|%s|%s|%s", userPhone, eventID, timestampISO, nonce)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:]), nil
}
