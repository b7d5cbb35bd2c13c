package auth

import (
	"testing"
	"time"

	"civicdesk/backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	u := &models.User{ID: "u-1", Role: models.RoleOfficial}

	raw, err := tokens.Generate(u)
	require.NoError(t, err)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, models.RoleOfficial, claims.Role)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestTokens_Rejects(t *testing.T) {
	u := &models.User{ID: "u-1", Role: models.RoleCitizen}

	t.Run("expired", func(t *testing.T) {
		tokens := NewTokens("secret", time.Hour)
		tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		raw, err := tokens.Generate(u)
		require.NoError(t, err)

		_, err = NewTokens("secret", time.Hour).Parse(raw)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		raw, err := NewTokens("secret", time.Hour).Generate(u)
		require.NoError(t, err)
		_, err = NewTokens("other", time.Hour).Parse(raw)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := &Claims{UserID: "u-1", RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = NewTokens("secret", time.Hour).Parse(raw)
		assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
	})

	t.Run("no user id", func(t *testing.T) {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = NewTokens("secret", time.Hour).Parse(raw)
		assert.ErrorIs(t, err, errNoSubject)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := NewTokens("secret", time.Hour).Parse("not.a.token")
		assert.Error(t, err)
	})
}
