package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

// CronAuthMiddleware guards scheduled-job endpoints with a shared secret sent
// as "Authorization: Bearer <secret>". An empty secret denies every request.
func CronAuthMiddleware(secret string, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				logger.Error().Msg("Cron auth middleware configured without a secret; requests will be denied")
				WriteError(w, logger, http.StatusInternalServerError, codeInternal, "cron secret not configured")
				return
			}

			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				logger.Warn().Msg("Missing or malformed Authorization header in cron request")
				WriteError(w, logger, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
				return
			}

			if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(secret)) != 1 {
				logger.Warn().Msg("Cron request presented the wrong secret")
				WriteError(w, logger, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
