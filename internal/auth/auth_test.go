package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTokens_RoundTrip(t *testing.T) {
	tokens, err := NewTokens("test-secret", zap.NewNop())
	require.NoError(t, err)

	id := uuid.New()
	signed, err := tokens.Generate(id)
	require.NoError(t, err)

	got, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestTokens_RejectsForeignAndExpired(t *testing.T) {
	a, err := NewTokens("secret-a", nil)
	require.NoError(t, err)
	b, err := NewTokens("secret-b", nil)
	require.NoError(t, err)

	signed, err := a.Generate(uuid.New())
	require.NoError(t, err)
	_, err = b.Parse(signed)
	assert.Error(t, err, "token signed with another secret")

	a.now = func() time.Time { return time.Now().Add(-2 * TokenTTL) }
	stale, err := a.Generate(uuid.New())
	require.NoError(t, err)
	a.now = time.Now
	_, err = a.Parse(stale)
	assert.Error(t, err, "expired token")
}

func TestNewTokens_EphemeralSecret(t *testing.T) {
	a, err := NewTokens("", nil)
	require.NoError(t, err)
	b, err := NewTokens("  ", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, a.secret)
	assert.NotEqual(t, a.secret, b.secret)
}

func TestMiddleware(t *testing.T) {
	tokens, err := NewTokens("mw-secret", nil)
	require.NoError(t, err)
	id := uuid.New()
	valid, err := tokens.Generate(id)
	require.NoError(t, err)

	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		uid, err := GetUserIDFromContext(c)
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, uid.String())
	}, Middleware(tokens))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, id.String(), rec.Body.String())
			}
		})
	}
}

func TestValidateSignup(t *testing.T) {
	assert.NoError(t, validateSignup(SignupRequest{Email: "rep@example.com", Password: "longenough"}))
	assert.ErrorIs(t, validateSignup(SignupRequest{Email: "not-an-email", Password: "longenough"}), ErrInvalidInput)
	assert.ErrorIs(t, validateSignup(SignupRequest{Email: "rep@example.com", Password: "short"}), ErrInvalidInput)
	assert.Equal(t, "rep@example.com", normalizeEmail("  Rep@Example.COM "))
}
