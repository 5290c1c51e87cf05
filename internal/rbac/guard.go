// Package rbac provides the route guard middleware gating protected
// views by session and derived role.
package rbac

import (
	"log/slog"
	"net/http"

	"github.com/egepakten/cognito-student-registry/internal/platform/httpx"
	"github.com/egepakten/cognito-student-registry/internal/roles"
	"github.com/egepakten/cognito-student-registry/internal/shared"
)

// Guard gates navigation to protected views. The session check runs
// synchronously on every guarded request, never cached, so a session
// invalidated elsewhere is caught on the next navigation.
type Guard struct {
	Logger    *slog.Logger
	EntryPath string
}

// NewGuard constructs a Guard redirecting to entryPath when no valid
// session is present.
func NewGuard(logger *slog.Logger, entryPath string) *Guard {
	if entryPath == "" {
		entryPath = "/"
	}
	return &Guard{Logger: logger, EntryPath: entryPath}
}

// RequireSession redirects unauthenticated requests to the public
// entry point.
func (g *Guard) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.SessionFromContext(r.Context()) == nil {
			http.Redirect(w, r, g.EntryPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Require allows only sessions whose derived role is one of allowed.
// Unauthenticated requests are redirected; authenticated requests
// with the wrong role get 403.
func (g *Guard) Require(allowed ...roles.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil {
				http.Redirect(w, r, g.EntryPath, http.StatusSeeOther)
				return
			}
			role := sess.Role()
			for _, want := range allowed {
				if role == want {
					next.ServeHTTP(w, r)
					return
				}
			}
			if g.Logger != nil {
				g.Logger.Warn("role denied",
					slog.String("path", r.URL.Path),
					slog.String("role", string(role)))
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient role")
		})
	}
}
