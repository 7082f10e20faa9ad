package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entropy80/investment-app-sub002/src/logger"
	"github.com/entropy80/investment-app-sub002/src/security"
)

const testSecret = "test-secret-key-that-is-long-enough-for-hs256"

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestAuthMiddleware(t *testing.T) {
	validator := security.NewAuthService(testSecret)
	var gotUserID int64
	var called bool

	handler := AuthMiddleware(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		gotUserID, _ = GetUserIDFromContext(r)
	}))

	t.Run("valid token", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "7"))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.True(t, called)
		assert.Equal(t, int64(7), gotUserID)
	})

	t.Run("missing header", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-numeric subject", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "alice"))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
