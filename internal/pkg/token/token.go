package token

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// SessionID returns a 256-bit URL-safe random token.
func SessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes failed: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// EmbedKey returns a 128-bit hex token suitable for public widget snippets.
func EmbedKey() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes failed: %w", err)
	}
	return hex.EncodeToString(b), nil
}
