package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseValidToken(t *testing.T) {
	cfg := Config{Secret: "s3cret", Issuer: "plantrack"}
	token := sign(t, cfg.Secret, jwt.MapClaims{
		"sub": "pm-1",
		"iss": "plantrack",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	claims, err := Parse(token, cfg)
	require.NoError(t, err)
	require.Equal(t, "pm-1", claims.Subject)
	require.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestParseRejects(t *testing.T) {
	cfg := Config{Secret: "s3cret", Issuer: "plantrack"}
	future := time.Now().Add(time.Hour).Unix()

	cases := map[string]string{
		"wrong secret": sign(t, "other", jwt.MapClaims{"sub": "a", "iss": "plantrack", "exp": future}),
		"wrong issuer": sign(t, cfg.Secret, jwt.MapClaims{"sub": "a", "iss": "evil", "exp": future}),
		"expired":      sign(t, cfg.Secret, jwt.MapClaims{"sub": "a", "iss": "plantrack", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no subject":   sign(t, cfg.Secret, jwt.MapClaims{"iss": "plantrack", "exp": future}),
		"no expiry":    sign(t, cfg.Secret, jwt.MapClaims{"sub": "a", "iss": "plantrack"}),
		"garbage":      "not.a.token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(token, cfg)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err := Parse("  ", cfg)
	require.ErrorIs(t, err, ErrMissingToken)
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/mcp", nil)
	require.Empty(t, BearerToken(r))

	r.Header.Set("Authorization", "Bearer abc.def")
	require.Equal(t, "abc.def", BearerToken(r))

	r.Header.Set("Authorization", "Basic xyz")
	require.Empty(t, BearerToken(r))
}
