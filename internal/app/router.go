package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/egepakten/cognito-student-registry/internal/auth"
	"github.com/egepakten/cognito-student-registry/internal/dashboard"
	"github.com/egepakten/cognito-student-registry/internal/platform/httpx"
	"github.com/egepakten/cognito-student-registry/internal/rbac"
	"github.com/egepakten/cognito-student-registry/internal/records"
	"github.com/egepakten/cognito-student-registry/internal/session"
	"github.com/egepakten/cognito-student-registry/internal/shared"
	"github.com/egepakten/cognito-student-registry/internal/storage"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger      *slog.Logger
	Config      *Config
	Sessions    *session.Store
	CSRFManager *shared.CSRFManager
	Guard       *rbac.Guard

	AuthHandler      *auth.Handler
	RecordsHandler   *records.Handler
	StorageHandler   *storage.Handler
	DashboardHandler *dashboard.Handler
}

// NewRouter constructs the chi.Router with portal defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:      params.Logger,
		Config:      params.Config,
		Sessions:    params.Sessions,
		CSRFManager: params.CSRFManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Public entry point. Guarded routes redirect here when no
	// session is present.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{"name": "student registry"}
		if sess := shared.SessionFromContext(r.Context()); sess != nil {
			body["email"] = sess.Email()
			body["role"] = string(sess.Role())
		}
		httpx.JSON(w, http.StatusOK, body)
	})

	// Credential endpoints get a tighter per-IP limit than the rest
	// of the app.
	r.Route("/auth", func(r chi.Router) {
		r.Use(httprate.Limit(15, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		params.AuthHandler.MountRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(params.Guard.RequireSession)
		r.Route("/api", func(r chi.Router) {
			params.RecordsHandler.MountRoutes(r, params.Guard)
			params.StorageHandler.MountRoutes(r)
		})
		r.Route("/dashboard", func(r chi.Router) {
			params.DashboardHandler.MountRoutes(r, params.Guard)
		})
	})

	return r
}
