package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const refreshTokenLength = 32 // 32 bytes = 256 bits

// NewRefreshToken returns an opaque random refresh token.
func NewRefreshToken() (string, error) {
	tokenBytes := make([]byte, refreshTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(tokenBytes), nil
}
