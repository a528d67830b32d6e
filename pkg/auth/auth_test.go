package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_IssueAndParse(t *testing.T) {
	m := NewTokenManager("test-secret")

	token, err := m.Issue(Principal{UserID: "u1", Role: RoleManager, Email: "u1@example.com"}, time.Hour)
	require.NoError(t, err)

	p, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "u1", Role: RoleManager, Email: "u1@example.com"}, p)
}

func TestTokenManager_RejectsWrongSecretAndExpired(t *testing.T) {
	issuer := NewTokenManager("secret-a")
	token, err := issuer.Issue(Principal{UserID: "u1", Role: RoleUser}, time.Hour)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := issuer.Issue(Principal{UserID: "u1"}, -time.Minute)
	require.NoError(t, err)
	_, err = issuer.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{UserID: "u1", Role: RoleAdmin}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager("secret").Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_DefaultsRoleToUser(t *testing.T) {
	m := NewTokenManager("secret")
	token, err := m.Issue(Principal{UserID: "u2"}, time.Hour)
	require.NoError(t, err)

	p, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, RoleUser, p.Role)
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	_, err = BearerToken("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = BearerToken("Basic dXNlcjpwYXNz")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPrincipal_Permissions(t *testing.T) {
	owner := Principal{UserID: "u1", Role: RoleUser}
	other := Principal{UserID: "u2", Role: RoleUser}
	admin := Principal{UserID: "a1", Role: RoleAdmin}
	manager := Principal{UserID: "m1", Role: RoleManager}

	assert.True(t, owner.CanAccessBooking("u1"))
	assert.False(t, other.CanAccessBooking("u1"))
	assert.True(t, admin.CanAccessBooking("u1"))
	assert.False(t, Principal{}.CanAccessBooking(""))

	assert.True(t, manager.CanManageRestaurant("m1"))
	assert.False(t, manager.CanManageRestaurant("m2"))
	assert.False(t, Principal{UserID: "m1", Role: RoleUser}.CanManageRestaurant("m1"))
	assert.True(t, admin.CanManageRestaurant("m2"))
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{UserID: "u1", Role: RoleUser})
	p, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", p.UserID)
}
