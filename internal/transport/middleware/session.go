package middleware

import (
	"log/slog"
	"net/http"

	"github.com/winstonacademy/crm-gateway/internal/session"
)

// RequireSession rejects requests when the gateway holds no live session
// and otherwise attaches the session user to the request context. The
// expiry check runs through CurrentToken, so an expired session tears
// itself down on first contact.
func RequireSession(manager *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager.CurrentToken() == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			user := manager.CurrentUser()
			if user == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := session.ContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCapability gates a route on one of the user's boolean access flags.
func RequireCapability(capability session.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := session.UserFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !user.Can(capability) {
				slog.Warn("access denied: user lacks capability",
					"user_id", user.ID,
					"capability", capability,
					"role", user.Role)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
