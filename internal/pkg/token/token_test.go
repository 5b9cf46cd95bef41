package token

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id, err := SessionID()
		require.NoError(t, err)
		assert.Len(t, id, 43)
		_, dup := seen[id]
		require.False(t, dup, "duplicate session id")
		seen[id] = struct{}{}
	}
}

func TestEmbedKeyIsHex(t *testing.T) {
	key, err := EmbedKey()
	require.NoError(t, err)
	assert.Len(t, key, 32)
	_, err = hex.DecodeString(key)
	assert.NoError(t, err)
}
