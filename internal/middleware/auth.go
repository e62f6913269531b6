package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/series-locker/backend/internal/auth"
	"github.com/series-locker/backend/internal/models"
	"github.com/series-locker/backend/internal/web"
)

type ctxKey int

const userKey ctxKey = 0

// CurrentUser returns the authenticated user attached by RequireAuth, or nil.
func CurrentUser(r *http.Request) *models.User {
	u, _ := r.Context().Value(userKey).(*models.User)
	return u
}

// WithUser attaches a user to the context the way RequireAuth does.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// extractToken pulls the session token from the Authorization header
// (bearer scheme) or, failing that, the jwt cookie.
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(auth.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// RequireAuth guards a route: it verifies the bearer token, loads the user it
// belongs to, rejects tokens issued before the user's last password change and
// attaches the user to the request context.
func RequireAuth(tokens *auth.TokenService, users auth.UserStore, debug bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				web.Fail(w, web.NewError(http.StatusUnauthorized, "You are not logged in. Please log in to get access."), debug)
				return
			}

			userID, issuedAt, err := tokens.Verify(token)
			if err != nil {
				msg := "Invalid token. Please log in again."
				if errors.Is(err, auth.ErrTokenExpired) {
					msg = "Your token has expired. Please log in again."
				}
				web.Fail(w, web.NewError(http.StatusUnauthorized, msg), debug)
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if err != nil {
				web.Fail(w, err, debug)
				return
			}
			if user == nil {
				web.Fail(w, web.NewError(http.StatusUnauthorized, "The user belonging to this token no longer exists."), debug)
				return
			}

			// A password change invalidates every token issued before it.
			if !user.PasswordChangedAt.IsZero() && issuedAt.Before(user.PasswordChangedAt) {
				web.Fail(w, web.NewError(http.StatusUnauthorized, "Password was changed recently. Please log in again."), debug)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
