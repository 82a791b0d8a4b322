package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"chatdoc/internal/contextutil"
	"chatdoc/internal/storage"
)

type contextKey string

const userKey contextKey = "user"

// CurrentUser returns the authenticated account stored in the request
// context, or nil outside an authenticated request.
func CurrentUser(ctx context.Context) *storage.UserRecord {
	if user, ok := ctx.Value(userKey).(*storage.UserRecord); ok {
		return user
	}
	return nil
}

// Middleware resolves the session cookie to an account and stores it in
// the request context. Requests without a valid session get 401.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := contextutil.LoggerFromContext(ctx)

		cookie, err := r.Cookie(CookieName)
		if err != nil || cookie.Value == "" {
			logger.WarnContext(ctx, "missing session cookie", "path", r.URL.Path)
			unauthorized(w)
			return
		}

		user, err := s.Authenticate(ctx, cookie.Value)
		if err != nil {
			logger.WarnContext(ctx, "invalid session", "error", err)
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userKey, user)))
	})
}

// WithUser returns a context carrying the given account. Test helper
// for handlers that expect an authenticated request.
func WithUser(ctx context.Context, user *storage.UserRecord) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Could not validate credentials"})
}
