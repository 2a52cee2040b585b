// FILE: src/internal/auth/verifier_test.go
package auth

import (
	"testing"
	"time"

	"chronicle/src/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func TestNewVerifier_Disabled(t *testing.T) {
	assert.Nil(t, NewVerifier(nil, newTestLogger()))
	assert.Nil(t, NewVerifier(&config.ViewerAuthConfig{}, newTestLogger()))
}

func TestStaticToken(t *testing.T) {
	v := NewVerifier(&config.ViewerAuthConfig{Token: "s3cret"}, newTestLogger())
	require.NotNil(t, v)

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, v.Verify("Bearer s3cret", "127.0.0.1:1234"))
	})

	t.Run("WrongToken", func(t *testing.T) {
		assert.Error(t, v.Verify("Bearer nope", "127.0.0.1:1234"))
	})

	t.Run("MissingBearerPrefix", func(t *testing.T) {
		assert.Error(t, v.Verify("s3cret", "127.0.0.1:1234"))
	})

	t.Run("EmptyHeader", func(t *testing.T) {
		assert.Error(t, v.Verify("", "127.0.0.1:1234"))
	})

	stats := v.GetStats()
	assert.Equal(t, "token", stats["mode"])
	assert.Equal(t, uint64(1), stats["successes"])
	assert.Equal(t, uint64(3), stats["failures"])
}

func TestJWT(t *testing.T) {
	secret := "jwt-secret"
	v := NewVerifier(&config.ViewerAuthConfig{JWTSecret: secret}, newTestLogger())
	require.NotNil(t, v)

	sign := func(claims jwt.MapClaims) string {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(secret))
		require.NoError(t, err)
		return signed
	}

	t.Run("Valid", func(t *testing.T) {
		signed := sign(jwt.MapClaims{
			"sub": "viewer",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		assert.NoError(t, v.Verify("Bearer "+signed, "127.0.0.1:1234"))
	})

	t.Run("Expired", func(t *testing.T) {
		signed := sign(jwt.MapClaims{
			"sub": "viewer",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		assert.Error(t, v.Verify("Bearer "+signed, "127.0.0.1:1234"))
	})

	t.Run("MissingExpiry", func(t *testing.T) {
		signed := sign(jwt.MapClaims{"sub": "viewer"})
		assert.Error(t, v.Verify("Bearer "+signed, "127.0.0.1:1234"))
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString([]byte("other-secret"))
		require.NoError(t, err)
		assert.Error(t, v.Verify("Bearer "+signed, "127.0.0.1:1234"))
	})

	assert.Equal(t, "jwt", v.GetStats()["mode"])
}
