package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickeats/quickeats/internal/model"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	s := NewSigner("test-secret", 15)
	assert.Equal(t, 15*time.Minute, s.TTL())

	raw, exp, err := s.Issue(42, "jane@example.com", model.RoleRestaurant)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.WithinDuration(t, time.Now().Add(s.TTL()), exp, time.Minute)

	claims, err := s.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID())
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, model.RoleRestaurant, claims.Role)
}

func TestVerifyExpired(t *testing.T) {
	// Negative TTL yields a token that is already past its exp claim.
	s := NewSigner("test-secret", -1)
	raw, _, err := s.Issue(1, "a@b.c", model.RoleCustomer)
	require.NoError(t, err)

	_, err = s.Verify(raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	issued, _, err := NewSigner("secret-a", 15).Issue(1, "a@b.c", model.RoleCustomer)
	require.NoError(t, err)

	_, err = NewSigner("secret-b", 15).Verify(issued)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyMalformed(t *testing.T) {
	s := NewSigner("test-secret", 15)
	for _, raw := range []string{"", "not-a-jwt", "a.b"} {
		_, err := s.Verify(raw)
		assert.ErrorIs(t, err, ErrTokenMalformed, "input %q", raw)
	}
}

func TestNewRefresh(t *testing.T) {
	a, err := NewRefresh(7)
	require.NoError(t, err)
	b, err := NewRefresh(7)
	require.NoError(t, err)

	assert.Len(t, a.Raw, 96) // 48 bytes hex-encoded
	assert.NotEqual(t, a.Raw, b.Raw)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), a.Exp, time.Minute)

	// The persisted form is a stable digest of the raw value.
	assert.Equal(t, HashRefreshRaw(a.Raw), HashRefreshRaw(a.Raw))
	assert.NotEqual(t, HashRefreshRaw(a.Raw), HashRefreshRaw(b.Raw))
	assert.Len(t, HashRefreshRaw(a.Raw), 64)
}
