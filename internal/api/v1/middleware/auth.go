package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/threadgate/internal/config"
	"github.com/deepgram/threadgate/internal/services/oauth"
	"github.com/deepgram/threadgate/pkg/httpext"
)

type contextKey string

const (
	tokenValidationKey contextKey = "tokenValidation"
	requestIDKey       contextKey = "requestID"
)

// RequireAuth validates the caller's bearer token. Without GATEWAY_JWT_SECRET
// the gateway is open and every request passes through.
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := config.GetJWTSecret()
			if len(secret) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			tokenString := oauth.ExtractToken(r)
			if tokenString == "" {
				httpext.JsonDetail(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			validation := oauth.ValidateToken(tokenString, secret)
			if !validation.Valid {
				httpext.JsonDetail(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), tokenValidationKey, &validation)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			validation := GetTokenValidation(r)
			if validation == nil {
				if len(config.GetJWTSecret()) == 0 {
					next.ServeHTTP(w, r)
					return
				}
				log.Error().
					Str("path", r.URL.Path).
					Msg("Scope check failed - missing token validation context")
				httpext.JsonDetail(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			if !validation.HasScope(scope) {
				log.Warn().
					Str("required_scope", scope).
					Strs("token_scopes", validation.Scopes).
					Str("path", r.URL.Path).
					Msg("Access denied - token missing required scope")
				httpext.JsonDetail(w, "Missing required scope", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetTokenValidation retrieves the token validation result from the request context
func GetTokenValidation(r *http.Request) *oauth.TokenValidationResult {
	if validation, ok := r.Context().Value(tokenValidationKey).(*oauth.TokenValidationResult); ok {
		return validation
	}
	return nil
}
