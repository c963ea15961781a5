package token

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const signingKeyLength = 32

// DeriveKey expands the session secret into a 32-byte key bound to info.
func DeriveKey(secret []byte, info string) ([]byte, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("[token DeriveKey] secret is empty")
	}
	key := make([]byte, signingKeyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("[token DeriveKey] %w", err)
	}
	return key, nil
}
