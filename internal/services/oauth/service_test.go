package oauth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims CustomClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no header", "", ""},
		{"bearer token", "Bearer abc.def", "abc.def"},
		{"lowercase scheme", "bearer abc", "abc"},
		{"wrong scheme", "Basic abc", ""},
		{"missing token", "Bearer ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, ExtractToken(r))
		})
	}
}

func TestValidateToken(t *testing.T) {
	valid := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "web-frontend",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Scopes: []string{ScopeChatWrite},
	}

	t.Run("valid token", func(t *testing.T) {
		result := ValidateToken(signToken(t, jwt.SigningMethodHS256, testSecret, valid), testSecret)
		assert.True(t, result.Valid)
		assert.Equal(t, "web-frontend", result.Subject)
		assert.True(t, result.HasScope(ScopeChatWrite))
		assert.False(t, result.HasScope(ScopeSearchRead))
	})

	t.Run("wrong secret", func(t *testing.T) {
		result := ValidateToken(signToken(t, jwt.SigningMethodHS256, []byte("other"), valid), testSecret)
		assert.False(t, result.Valid)
	})

	t.Run("expired", func(t *testing.T) {
		expired := valid
		expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		result := ValidateToken(signToken(t, jwt.SigningMethodHS256, testSecret, expired), testSecret)
		assert.False(t, result.Valid)
	})

	t.Run("missing expiry", func(t *testing.T) {
		noExpiry := valid
		noExpiry.ExpiresAt = nil
		result := ValidateToken(signToken(t, jwt.SigningMethodHS256, testSecret, noExpiry), testSecret)
		assert.False(t, result.Valid)
	})

	t.Run("other algorithm", func(t *testing.T) {
		result := ValidateToken(signToken(t, jwt.SigningMethodHS512, testSecret, valid), testSecret)
		assert.False(t, result.Valid)
	})

	t.Run("garbage", func(t *testing.T) {
		assert.False(t, ValidateToken("not-a-jwt", testSecret).Valid)
	})
}
