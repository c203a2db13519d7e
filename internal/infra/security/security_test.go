package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := h.Hash("hunter2")
	require.NoError(t, err)
	assert.NoError(t, h.Compare(hash, "hunter2"))
	assert.Error(t, h.Compare(hash, "hunter3"))
	assert.Error(t, h.Compare("", "hunter2"))
}

func TestResolveAdminHash(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}

	got, err := h.ResolveAdminHash("", "")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = h.ResolveAdminHash("", "letmein")
	require.NoError(t, err)
	assert.NoError(t, h.Compare(got, "letmein"))

	existing, err := h.Hash("other")
	require.NoError(t, err)
	got, err = h.ResolveAdminHash(existing, "letmein")
	require.NoError(t, err)
	assert.Equal(t, existing, got)

	_, err = h.ResolveAdminHash("plain-text", "")
	assert.Error(t, err)
}

func TestJWTIssuer(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	j, err := NewJWTIssuer("0123456789abcdef0123")
	require.NoError(t, err)
	j.now = func() time.Time { return now }

	token, err := j.Issue("admin", now.Add(time.Hour))
	require.NoError(t, err)

	sub, err := j.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", sub)

	j.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = j.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewJWTIssuer("another-secret-of-length")
	require.NoError(t, err)
	other.now = func() time.Time { return now }
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewJWTIssuer("short")
	assert.Error(t, err)
}
