package api

import (
	"context"
	"net/http"
	"strings"

	domainerrors "github.com/homelibrary/homelibrary-server/internal/errors"
	"github.com/homelibrary/homelibrary-server/internal/service"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// GetUserID returns the authenticated user ID from ctx, or an unauthorized
// error.
func GetUserID(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(userIDKey).(int64)
	if !ok || userID <= 0 {
		return 0, domainerrors.Unauthorized("authentication required")
	}
	return userID, nil
}

func setUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// authMiddleware resolves a bearer token to a user ID in the request
// context. Requests without a valid token pass through anonymously; the
// operations that need a user reject them via GetUserID.
func authMiddleware(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || auth == nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := auth.VerifyToken(r.Context(), strings.TrimSpace(token))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(setUserID(r.Context(), user.ID)))
		})
	}
}
