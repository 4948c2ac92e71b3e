package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWT(t *testing.T) *JWT {
	t.Helper()
	j, err := NewJWT(Config{Secret: "s3cret", Issuer: "pantry", TTL: time.Hour})
	require.NoError(t, err)
	return j
}

func TestJWT_IssueVerify(t *testing.T) {
	j := newTestJWT(t)

	token, err := j.Issue("user-1")
	require.NoError(t, err)

	sub, err := j.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestJWT_Rejects(t *testing.T) {
	j := newTestJWT(t)

	other, err := NewJWT(Config{Secret: "other", Issuer: "pantry"})
	require.NoError(t, err)
	foreign, err := other.Issue("user-1")
	require.NoError(t, err)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: "user-1", Issuer: "someone-else", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: "user-1", Issuer: "pantry",
	}}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	expired := newTestJWT(t)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := expired.Issue("user-1")
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-jwt",
		"wrong secret": foreign,
		"wrong issuer": wrongIssuer,
		"alg none":     none,
		"expired":      stale,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := j.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewJWT_RequiresSecret(t *testing.T) {
	_, err := NewJWT(Config{})
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestBearerToken(t *testing.T) {
	tok, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	tok, err = BearerToken("bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	for _, h := range []string{"", "Bearer ", "Basic abc", "abc"} {
		_, err := BearerToken(h)
		assert.ErrorIs(t, err, ErrMissingToken, h)
	}
}
