package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/goliatone/go-signin"
)

func TestBcryptHasher(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.HashPassword("123456")
	require.NoError(t, err)
	assert.NotEqual(t, "123456", hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	assert.NoError(t, hasher.ComparePasswordAndHash("123456", hash))
	assert.ErrorIs(t, hasher.ComparePasswordAndHash("654321", hash), auth.ErrMismatchedHashAndPassword)
	assert.Error(t, hasher.ComparePasswordAndHash("123456", "not-a-hash"))
}

func TestBcryptHasher_EmptyPassword(t *testing.T) {
	_, err := auth.NewBcryptHasher(bcrypt.MinCost).HashPassword("")
	assert.ErrorIs(t, err, auth.ErrNoEmptyString)
}

func TestNewBcryptHasher_OutOfRangeCost(t *testing.T) {
	assert.NotEqual(t, 1, auth.NewBcryptHasher(1).Cost)
	assert.NotEqual(t, 99, auth.NewBcryptHasher(99).Cost)
	assert.Equal(t, bcrypt.MinCost+1, auth.NewBcryptHasher(bcrypt.MinCost+1).Cost)
}
