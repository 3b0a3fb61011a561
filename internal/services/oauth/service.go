package oauth

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const (
	ScopeChatWrite  = "chat:write"
	ScopeSearchRead = "search:read"
)

func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		log.Debug().Msg("No Authorization header found")
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		log.Warn().Msg("Malformed Authorization header")
		return ""
	}

	return parts[1]
}

type TokenValidationResult struct {
	Valid     bool
	Subject   string
	ExpiresAt time.Time
	Scopes    []string
}

func (r TokenValidationResult) HasScope(scope string) bool {
	for _, s := range r.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

type CustomClaims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scp"`
}

// ValidateToken verifies an HS256 client token signed with secret
func ValidateToken(tokenString string, secret []byte) TokenValidationResult {
	result := TokenValidationResult{Valid: false}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		log.Warn().Err(err).Msg("Failed to parse client token")
		return result
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		log.Warn().Msg("Invalid client token claims")
		return result
	}

	result.Valid = true
	result.Subject = claims.Subject
	result.ExpiresAt = claims.ExpiresAt.Time
	result.Scopes = claims.Scopes
	return result
}
