package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestIssueAndParse(t *testing.T) {
	tok, err := IssueToken(secret, "lumine", "alice", time.Hour, time.Now())
	require.NoError(t, err)

	sub, err := ParseToken(secret, "lumine", tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)

	sub, err = ParseToken(secret, "", tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestParseRejects(t *testing.T) {
	now := time.Now()
	good, err := IssueToken(secret, "lumine", "alice", time.Hour, now)
	require.NoError(t, err)
	expired, err := IssueToken(secret, "lumine", "alice", time.Hour, now.Add(-2*time.Hour))
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "alice",
		"exp": now.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"}).SignedString(secret)
	require.NoError(t, err)

	cases := []struct {
		name   string
		secret []byte
		issuer string
		token  string
	}{
		{"wrong secret", []byte("other"), "lumine", good},
		{"wrong issuer", secret, "elsewhere", good},
		{"expired", secret, "lumine", expired},
		{"alg none", secret, "", none},
		{"no expiry", secret, "", noExpiry},
		{"garbage", secret, "", "not.a.token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseToken(tc.secret, tc.issuer, tc.token)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestIssueRequiresSecretAndUser(t *testing.T) {
	_, err := IssueToken(nil, "lumine", "alice", time.Hour, time.Now())
	assert.Error(t, err)
	_, err = IssueToken(secret, "lumine", "", time.Hour, time.Now())
	assert.Error(t, err)
}

func TestUserContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, UserFromContext(ctx))

	ctx = StoreUserInContext(ctx, "alice")
	require.NotNil(t, UserFromContext(ctx))
	assert.Equal(t, "alice", UserFromContext(ctx).ID)
}
