package dashboard

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/egepakten/cognito-student-registry/internal/federation"
	"github.com/egepakten/cognito-student-registry/internal/platform/httpx"
	"github.com/egepakten/cognito-student-registry/internal/rbac"
	"github.com/egepakten/cognito-student-registry/internal/roles"
	"github.com/egepakten/cognito-student-registry/internal/shared"
)

// Handler serves the dashboard views.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers dashboard routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router, guard *rbac.Guard) {
	r.Get("/", h.handleStudent)
	r.With(guard.Require(roles.RoleProfessor, roles.RoleAdmin)).Get("/roster/{courseID}", h.handleRoster)
	r.With(guard.Require(roles.RoleAdmin)).Get("/users", h.handleUsers)
}

func (h *Handler) handleStudent(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Student(r.Context(), shared.SessionFromContext(r.Context()))
	if err != nil {
		h.respondError(w, "student dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleRoster(w http.ResponseWriter, r *http.Request) {
	roster, err := h.service.Roster(r.Context(), shared.SessionFromContext(r.Context()), chi.URLParam(r, "courseID"))
	if err != nil {
		h.respondError(w, "roster dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, roster)
}

func (h *Handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	role := roles.Role(r.URL.Query().Get("role"))
	switch role {
	case roles.RoleStudent, roles.RoleProfessor, roles.RoleAdmin:
	default:
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "role must be one of student, professor, admin")
		return
	}
	users, err := h.service.Users(r.Context(), shared.SessionFromContext(r.Context()), role)
	if err != nil {
		h.respondError(w, "users dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		httpx.Problem(w, http.StatusUnauthorized, "Not Authenticated", "an active session is required")
	case errors.Is(err, federation.ErrFederation):
		httpx.Problem(w, http.StatusForbidden, "Credential Exchange Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
