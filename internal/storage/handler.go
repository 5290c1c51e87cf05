package storage

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/egepakten/cognito-student-registry/internal/federation"
	"github.com/egepakten/cognito-student-registry/internal/platform/httpx"
	"github.com/egepakten/cognito-student-registry/internal/shared"
)

// maxUploadBytes caps multipart upload bodies.
const maxUploadBytes = 32 << 20

// Handler exposes homework upload and listing over HTTP.
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

// MountRoutes registers file routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/files", h.handleUpload)
	r.Get("/files", h.handleListMine)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "expected a multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "missing file field")
		return
	}
	defer func() { _ = file.Close() }()

	key, err := h.service.Upload(r.Context(), shared.SessionFromContext(r.Context()),
		header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.respondError(w, "upload", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	objects, err := h.service.ListMine(r.Context(), shared.SessionFromContext(r.Context()))
	if err != nil {
		h.respondError(w, "list files", err)
		return
	}
	httpx.JSON(w, http.StatusOK, objects)
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
