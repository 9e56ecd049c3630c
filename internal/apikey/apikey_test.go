package apikey_test

import (
	"strings"
	"testing"

	"github.com/crawd/crawd-server/internal/apikey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	key, hash, prefix, err := apikey.Generate()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, apikey.Namespace))
	assert.True(t, strings.HasPrefix(key, prefix))
	assert.Len(t, prefix, apikey.PrefixLen)
	assert.Equal(t, apikey.Hash(key), hash)

	// 64 hex chars for SHA-256
	assert.Len(t, hash, 64)
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		_, hash, _, err := apikey.Generate()
		require.NoError(t, err)
		assert.False(t, seen[hash], "duplicate hash generated")
		seen[hash] = true
	}
}

func TestHash_Deterministic(t *testing.T) {
	key, hash, _, err := apikey.Generate()
	require.NoError(t, err)

	assert.Equal(t, hash, apikey.Hash(key))
	assert.NotEqual(t, hash, apikey.Hash(key+"x"))
}

func TestGenerateStreamKey(t *testing.T) {
	sk, err := apikey.GenerateStreamKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sk, "live_"))
	assert.Greater(t, len(sk), 5+32)

	other, err := apikey.GenerateStreamKey()
	require.NoError(t, err)
	assert.NotEqual(t, sk, other)
}
