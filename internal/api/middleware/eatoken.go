package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/fundshare/exchange-backend/internal/api/response"
)

// EAToken authenticates pushes from the trading robots. Each robot holds
// the shared fernet key and sends a fresh token per request as a bearer
// credential; fernet's TTL check doubles as replay protection for stale
// tokens.
type EAToken struct {
	keys []*fernet.Key
	ttl  time.Duration
}

// NewEAToken creates the EA token middleware from a base64 fernet key.
func NewEAToken(key string, ttl time.Duration) (*EAToken, error) {
	keys, err := fernet.DecodeKeys(key)
	if err != nil {
		return nil, err
	}
	return &EAToken{keys: keys, ttl: ttl}, nil
}

// Handler verifies the bearer token on each request.
func (e *EAToken) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.RespondError(w, http.StatusUnauthorized, "missing bearer token", "")
			return
		}

		if msg := fernet.VerifyAndDecrypt([]byte(token), e.ttl, e.keys); msg == nil {
			response.RespondError(w, http.StatusUnauthorized, "invalid or expired token", "")
			return
		}

		next.ServeHTTP(w, r)
	})
}
