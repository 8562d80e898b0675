package booking

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const bookingAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewBookingID returns an id shaped BK-XXXX-XXX.
func NewBookingID() (string, error) {
	chars, err := randomChars(7)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("BK-%s-%s", chars[:4], chars[4:]), nil
}

// randomChars draws uniformly from bookingAlphabet by rejecting bytes that
// would bias the modulo.
func randomChars(n int) (string, error) {
	const limit = 256 - 256%len(bookingAlphabet)
	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, bookingAlphabet[int(b)%len(bookingAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// NewRequestID returns the 24-hex-char idempotency key a checkout carries.
func NewRequestID() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
