package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)

	token, err := s.GenerateJWT("3b8e0f1c-principal", "alice")
	require.NoError(t, err)

	claims, err := s.ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.EqualValues(t, "3b8e0f1c-principal", claims.Principal)
	assert.Equal(t, "3b8e0f1c-principal", claims.Subject)
}

func TestValidateJWTRejects(t *testing.T) {
	s := NewSigner("test-secret", time.Hour)
	token, err := s.GenerateJWT("p", "alice")
	require.NoError(t, err)

	other := NewSigner("other-secret", time.Hour)
	_, err = other.ValidateJWT(token)
	assert.Error(t, err, "wrong secret")

	_, err = s.ValidateJWT("not-a-token")
	assert.Error(t, err)

	expired := NewSigner("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.GenerateJWT("p", "alice")
	require.NoError(t, err)
	_, err = s.ValidateJWT(old)
	assert.Error(t, err, "expired")
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse", hash)
	assert.True(t, CheckPasswordHash("correct-horse", hash))
	assert.False(t, CheckPasswordHash("correct-horsf", hash))

	_, err = HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordLength)
}
