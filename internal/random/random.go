// Package random provides cryptographic random value helpers.
//
// It uses crypto/rand for everything; none of the generated values are
// guessable from prior outputs.
package random

import (
	crand "crypto/rand"
	"fmt"
)

const passwordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Password generates a random initial password of the given length drawn
// from an unambiguous alphanumeric alphabet.
func Password(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("password length must be positive")
	}
	raw := make([]byte, length)
	if _, err := crand.Read(raw); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	out := make([]byte, length)
	for i, b := range raw {
		out[i] = passwordAlphabet[int(b)%len(passwordAlphabet)]
	}
	return string(out), nil
}
