package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, h.Verify("correct horse", hash))
	assert.False(t, h.Verify("battery staple", hash))
	assert.False(t, h.Verify("correct horse", ""))
}

func TestNewHasher_DefaultCost(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewHasher(0).cost)
	assert.Equal(t, DefaultBcryptCost, NewHasher(99).cost)
	assert.Equal(t, 10, NewHasher(10).cost)
}
