package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"

	"github.com/fundshare/exchange-backend/internal/api/response"
)

// APIKeyMiddleware guards admin endpoints with a shared API key. The
// expected key comes from the INTERNAL_API_KEY environment variable; when it
// is unset every request is rejected rather than let the guard fall open.
func APIKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expected := os.Getenv("INTERNAL_API_KEY")
		if expected == "" {
			response.RespondError(w, http.StatusForbidden, "admin API is not configured", "")
			return
		}

		provided := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			response.RespondError(w, http.StatusUnauthorized, "invalid API key", "")
			return
		}

		next.ServeHTTP(w, r)
	})
}
