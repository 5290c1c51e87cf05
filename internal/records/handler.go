package records

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/egepakten/cognito-student-registry/internal/federation"
	"github.com/egepakten/cognito-student-registry/internal/platform/httpx"
	"github.com/egepakten/cognito-student-registry/internal/rbac"
	"github.com/egepakten/cognito-student-registry/internal/roles"
	"github.com/egepakten/cognito-student-registry/internal/shared"
)

// Handler exposes the record operations over HTTP. All routes assume
// the session middleware has already run; role checks are a UI
// convenience layered in front of the cloud policy.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers record routes on the provided router. The
// guard gates the grading and administrative surfaces.
func (h *Handler) MountRoutes(r chi.Router, guard *rbac.Guard) {
	r.Get("/profile", h.handleMyProfile)
	r.Put("/profile", h.handleSaveProfile)
	r.Get("/enrollments", h.handleMyEnrollments)
	r.Post("/enrollments", h.handleEnroll)
	r.Get("/grades", h.handleMyGrades)
	r.Get("/courses", h.handleListCourses)
	r.Get("/courses/{courseID}", h.handleCourse)

	r.Group(func(r chi.Router) {
		r.Use(guard.Require(roles.RoleProfessor, roles.RoleAdmin))
		r.Post("/grades", h.handleAssignGrade)
		r.Get("/courses/{courseID}/roster", h.handleRoster)
	})

	r.Group(func(r chi.Router) {
		r.Use(guard.Require(roles.RoleAdmin))
		r.Post("/courses", h.handleCreateCourse)
		r.Get("/users", h.handleListUsers)
		r.Delete("/users/{identityID}", h.handleDeleteUser)
	})
}

func (h *Handler) handleMyProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.MyProfile(r.Context(), shared.SessionFromContext(r.Context()))
	if err != nil {
		h.respondError(w, "get profile", err)
		return
	}
	if profile == nil {
		httpx.Problem(w, http.StatusNotFound, "Profile Not Found", "no profile has been saved yet")
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

type saveProfileRequest struct {
	Name string `json:"name" validate:"required"`
}

func (h *Handler) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var req saveProfileRequest
	if !h.decode(w, r, &req) {
		return
	}
	profile, err := h.service.SaveMyProfile(r.Context(), shared.SessionFromContext(r.Context()), req.Name)
	if err != nil {
		h.respondError(w, "save profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func (h *Handler) handleMyEnrollments(w http.ResponseWriter, r *http.Request) {
	enrollments, err := h.service.MyEnrollments(r.Context(), shared.SessionFromContext(r.Context()))
	if err != nil {
		h.respondError(w, "list enrollments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, enrollments)
}

type enrollRequest struct {
	CourseID   string `json:"courseId" validate:"required"`
	CourseName string `json:"courseName" validate:"required"`
	Semester   string `json:"semester" validate:"required"`
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if !h.decode(w, r, &req) {
		return
	}
	enrollment, err := h.service.Enroll(r.Context(), shared.SessionFromContext(r.Context()), req.CourseID, req.CourseName, req.Semester)
	if err != nil {
		h.respondError(w, "enroll", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, enrollment)
}

func (h *Handler) handleMyGrades(w http.ResponseWriter, r *http.Request) {
	grades, err := h.service.MyGrades(r.Context(), shared.SessionFromContext(r.Context()))
	if err != nil {
		h.respondError(w, "list grades", err)
		return
	}
	httpx.JSON(w, http.StatusOK, grades)
}

type assignGradeRequest struct {
	StudentID string `json:"studentId" validate:"required"`
	CourseID  string `json:"courseId" validate:"required"`
	Grade     string `json:"grade" validate:"required"`
}

func (h *Handler) handleAssignGrade(w http.ResponseWriter, r *http.Request) {
	var req assignGradeRequest
	if !h.decode(w, r, &req) {
		return
	}
	grade, err := h.service.AssignGrade(r.Context(), shared.SessionFromContext(r.Context()), req.StudentID, req.CourseID, req.Grade)
	if err != nil {
		h.respondError(w, "assign grade", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, grade)
}

func (h *Handler) handleListCourses(w http.ResponseWriter, r *http.Request) {
	semester := r.URL.Query().Get("semester")
	if semester == "" {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "semester query parameter is required")
		return
	}
	courses, err := h.service.Courses(r.Context(), shared.SessionFromContext(r.Context()), semester)
	if err != nil {
		h.respondError(w, "list courses", err)
		return
	}
	httpx.JSON(w, http.StatusOK, courses)
}

func (h *Handler) handleCourse(w http.ResponseWriter, r *http.Request) {
	course, err := h.service.Course(r.Context(), shared.SessionFromContext(r.Context()), chi.URLParam(r, "courseID"))
	if err != nil {
		h.respondError(w, "get course", err)
		return
	}
	if course == nil {
		httpx.Problem(w, http.StatusNotFound, "Course Not Found", "no such course")
		return
	}
	httpx.JSON(w, http.StatusOK, course)
}

type createCourseRequest struct {
	CourseID string `json:"courseId" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Semester string `json:"semester" validate:"required"`
}

func (h *Handler) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if !h.decode(w, r, &req) {
		return
	}
	course, err := h.service.CreateCourse(r.Context(), shared.SessionFromContext(r.Context()), req.CourseID, req.Name, req.Semester)
	if err != nil {
		h.respondError(w, "create course", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, course)
}

func (h *Handler) handleRoster(w http.ResponseWriter, r *http.Request) {
	roster, err := h.service.Roster(r.Context(), shared.SessionFromContext(r.Context()), chi.URLParam(r, "courseID"))
	if err != nil {
		h.respondError(w, "list roster", err)
		return
	}
	httpx.JSON(w, http.StatusOK, roster)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	role := roles.Role(r.URL.Query().Get("role"))
	switch role {
	case roles.RoleStudent, roles.RoleProfessor, roles.RoleAdmin:
	default:
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "role must be student, professor, or admin")
		return
	}
	users, err := h.service.UsersByRole(r.Context(), shared.SessionFromContext(r.Context()), role)
	if err != nil {
		h.respondError(w, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), shared.SessionFromContext(r.Context()), chi.URLParam(r, "identityID")); err != nil {
		h.respondError(w, "delete user", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "request body is not valid JSON")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
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
