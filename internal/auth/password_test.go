package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	for _, plaintext := range []string{"pw123", "", "correct horse battery staple", "ünïcødé"} {
		hash, err := h.Hash(plaintext)
		require.NoError(t, err)
		assert.NotEqual(t, plaintext, hash)
		assert.True(t, h.Verify(plaintext, hash))
		assert.False(t, h.Verify(plaintext+"x", hash))
	}
}

func TestBcryptHasher_Salted(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	first, err := h.Hash("pw123")
	require.NoError(t, err)
	second, err := h.Hash("pw123")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestBcryptHasher_VerifyGarbageHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	assert.False(t, h.Verify("pw123", "not-a-bcrypt-hash"))
}

func TestNewBcryptHasher_CostBounds(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(bcrypt.MaxCost+1).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
}
