package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/deepgram/threadgate/internal/config"
	"github.com/deepgram/threadgate/pkg/httpext"
	"github.com/deepgram/threadgate/pkg/ratelimit"
)

// RateLimit limits each client IP on the limitKey route group. A non-nil
// counter shares the window across replicas; otherwise limits are per process.
func RateLimit(limitKey string, counter ratelimit.Counter) func(http.Handler) http.Handler {
	cfg := config.GetRateLimitConfig(limitKey)

	var limiter ratelimit.Limiter
	if counter != nil {
		limiter = ratelimit.NewWindowLimiter(counter, "ratelimit:"+limitKey, cfg.Window, cfg.MaxHits)
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.Window, cfg.MaxHits)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)
			allowed, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				log.Warn().Err(err).Str("limit", limitKey).Msg("Rate limiter unavailable - allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				log.Warn().Str("ip", ip).Str("limit", limitKey).Msg("Rate limit exceeded")
				httpext.JsonDetail(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP prefers the first X-Forwarded-For hop, falling back to the peer address
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
