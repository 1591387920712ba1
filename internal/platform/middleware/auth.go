package middleware

import (
	"log/slog"
	"net/http"

	"beacon/pkg/requestcontext"
)

// UserDirectory resolves a header-supplied username to a principal. Real
// authentication lives outside this service; the directory is the stand-in
// contract for whatever fronts it.
type UserDirectory map[string]requestcontext.User

// DefaultUsers mirrors the well-known operator accounts seeded in every
// environment.
func DefaultUsers() UserDirectory {
	return UserDirectory{
		"netrunnerX":  {Name: "netrunnerX", Role: "admin"},
		"reliefAdmin": {Name: "reliefAdmin", Role: "contributor"},
	}
}

// RequireUser resolves the X-User header against the directory and stores
// the principal in the request context. Unknown or missing users get 401.
func RequireUser(users UserDirectory, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := r.Header.Get("X-User")
			user, ok := users[name]
			if !ok {
				logger.WarnContext(r.Context(), "unauthorized request",
					"user", name,
					"path", r.URL.Path,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"invalid or missing user"}`))
				return
			}

			ctx := requestcontext.WithPrincipal(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
