package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken("secret", "ops-console", RoleOperator, time.Minute)
	require.NoError(t, err)
	assert.True(t, tok.Exp.After(time.Now()))

	claims, err := ParseAccessToken("secret", tok.Token)
	require.NoError(t, err)
	assert.Equal(t, Claims{Subject: "ops-console", Role: RoleOperator}, claims)
}

func TestParseAccessTokenRejects(t *testing.T) {
	good, err := NewAccessToken("secret", "svc", RoleViewer, time.Minute)
	require.NoError(t, err)
	expired, err := NewAccessToken("secret", "svc", RoleViewer, -time.Minute)
	require.NoError(t, err)
	noRole, err := NewAccessToken("secret", "svc", "", time.Minute)
	require.NoError(t, err)

	cases := map[string]struct{ secret, raw string }{
		"wrong secret": {"other", good.Token},
		"expired":      {"secret", expired.Token},
		"garbage":      {"secret", "not-a-jwt"},
		"missing role": {"secret", noRole.Token},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAccessToken(tc.secret, tc.raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestAPIKeyHashing(t *testing.T) {
	hash, err := HashAPIKey("k-123", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyAPIKey(hash, "k-123"))
	assert.False(t, VerifyAPIKey(hash, "k-124"))
	assert.False(t, VerifyAPIKey("", "k-123"))
	assert.False(t, VerifyAPIKey(hash, ""))
}
