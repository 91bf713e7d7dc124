package middleware

import (
	"context"
	"net/http"

	"github.com/fundshare/exchange-backend/internal/api/response"
	"github.com/fundshare/exchange-backend/internal/apperrors"
	"github.com/fundshare/exchange-backend/internal/validation"
)

type contextKey string

const userIDKey contextKey = "userID"

// Identity resolves the calling user from the X-User-ID header and stores
// it on the request context. Identity verification itself happens upstream
// at the gateway; this layer only requires that a well-formed identity is
// present.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			response.RespondError(w, http.StatusUnauthorized, apperrors.ErrMissingUserIdentity.Error(), "")
			return
		}
		if err := validation.ValidateUUID(userID); err != nil {
			response.RespondError(w, http.StatusUnauthorized, apperrors.ErrMissingUserIdentity.Error(), err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the authenticated user ID stored by Identity, or the empty
// string when the middleware did not run.
func UserID(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}
