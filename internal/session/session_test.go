package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_RoundTrip(t *testing.T) {
	p := NewParser("top-secret")
	tok, err := p.Issue(Session{UserID: "buyer-1", Role: RoleBuyer}, time.Hour)
	require.NoError(t, err)

	s, err := p.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "buyer-1", s.UserID)
	assert.True(t, s.IsBuyer())
	assert.False(t, s.IsOwner())
}

func TestParser_AcceptsUserIDClaim(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "seller-1",
		"role":    "owner",
	}).SignedString([]byte("top-secret"))
	require.NoError(t, err)

	s, err := NewParser("top-secret").Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, Session{UserID: "seller-1", Role: RoleOwner}, s)
}

func TestParser_Rejects(t *testing.T) {
	p := NewParser("top-secret")

	_, err := p.Parse("")
	assert.ErrorIs(t, err, ErrMissingToken)

	expired, err := p.Issue(Session{UserID: "b", Role: RoleBuyer}, -time.Minute)
	require.NoError(t, err)
	_, err = p.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := NewParser("other").Issue(Session{UserID: "b", Role: RoleBuyer}, time.Hour)
	require.NoError(t, err)
	_, err = p.Parse(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "b"}).SignedString([]byte("top-secret"))
	require.NoError(t, err)
	_, err = p.Parse(noRole)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "b", "role": "buyer"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = p.Parse(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewParser("").Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestContext(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)

	ctx := With(context.Background(), Session{UserID: "u", Role: RoleOwner})
	s, ok := From(ctx)
	require.True(t, ok)
	assert.True(t, s.IsOwner())
}
