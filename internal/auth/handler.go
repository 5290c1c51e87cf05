package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/egepakten/cognito-student-registry/internal/platform/httpx"
	"github.com/egepakten/cognito-student-registry/internal/session"
	"github.com/egepakten/cognito-student-registry/internal/shared"
)

// SessionCookie is the cookie carrying the portal session ID.
const SessionCookie = "registry_session"

// GatewayAPI is the identity-provider surface the handler drives.
type GatewayAPI interface {
	SignUp(ctx context.Context, email, password, name string) error
	VerifyEmail(ctx context.Context, email, code string) error
	ResendVerificationCode(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (session.Tokens, error)
	ForgotPassword(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error
	ChangePassword(ctx context.Context, sess *session.Session, oldPassword, newPassword string) error
	Logout(ctx context.Context, sess *session.Session) error
}

// CodeExchanger performs the authorization-code grant.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (session.Tokens, error)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger        *slog.Logger
	gateway       GatewayAPI
	exchanger     CodeExchanger
	sessions      *session.Store
	csrf          *shared.CSRFManager
	hosted        HostedUI
	validator     *validator.Validate
	latch         *codeLatch
	secureCookies bool
	postLoginPath string
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, gateway GatewayAPI, exchanger CodeExchanger, sessions *session.Store, csrf *shared.CSRFManager, hosted HostedUI, secureCookies bool) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:        logger,
		gateway:       gateway,
		exchanger:     exchanger,
		sessions:      sessions,
		csrf:          csrf,
		hosted:        hosted,
		validator:     validator.New(),
		latch:         newCodeLatch(),
		secureCookies: secureCookies,
		postLoginPath: "/dashboard",
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/signup", h.handleSignUp)
	r.Post("/verify", h.handleVerifyEmail)
	r.Post("/resend", h.handleResendCode)
	r.Post("/login", h.handleLogin)
	r.Post("/forgot", h.handleForgotPassword)
	r.Post("/reset", h.handleConfirmReset)
	r.Post("/password", h.handleChangePassword)
	r.Post("/logout", h.handleLogout)
	r.Get("/callback", h.handleCallback)
	r.Get("/hosted-ui", h.handleHostedUI)
}

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.gateway.SignUp(r.Context(), req.Email, req.Password, req.Name); err != nil {
		h.respondAuthError(w, "signup", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"status": "pending_verification"})
}

type verifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required"`
}

func (h *Handler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.gateway.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		h.respondAuthError(w, "verify email", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *Handler) handleResendCode(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.gateway.ResendVerificationCode(r.Context(), req.Email); err != nil {
		h.respondAuthError(w, "resend code", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "code_sent"})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	tokens, err := h.gateway.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondAuthError(w, "login", err)
		return
	}

	sess, err := h.establishSession(w, r, tokens)
	if err != nil {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{
		"email":     sess.Email(),
		"name":      sess.Claims.Name(),
		"role":      string(sess.Role()),
		"csrfToken": h.csrf.TokenFor(sess.ID),
	})
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.gateway.ForgotPassword(r.Context(), req.Email); err != nil {
		h.respondAuthError(w, "forgot password", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "code_sent"})
}

type confirmResetRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

func (h *Handler) handleConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req confirmResetRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.gateway.ConfirmPasswordReset(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		h.respondAuthError(w, "confirm reset", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "password_reset"})
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Not Authenticated", "an active session is required")
		return
	}
	var req changePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.gateway.ChangePassword(r.Context(), sess, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			httpx.Problem(w, http.StatusUnauthorized, "Not Authenticated", "an active session is required")
			return
		}
		h.respondAuthError(w, "change password", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.gateway.Logout(r.Context(), sess); err != nil {
			h.logger.Warn("provider sign-out", slog.Any("error", err))
		}
		if err := h.sessions.Clear(r.Context(), sess.ID); err != nil {
			h.logger.Warn("clear session", slog.Any("error", err))
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.NoContent(w)
}

// handleCallback terminates the hosted-UI redirect flow. The exchange
// runs at most once per received code; a duplicate trigger skips the
// POST entirely and just moves the browser along.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if oauthErr := query.Get("error"); oauthErr != "" {
		detail := query.Get("error_description")
		if detail == "" {
			detail = oauthErr
		}
		httpx.Problem(w, http.StatusBadRequest, "Authorization Failed", detail)
		return
	}

	code := query.Get("code")
	if code == "" {
		httpx.Problem(w, http.StatusBadRequest, "Authorization Failed", "no authorization code received")
		return
	}

	if !h.latch.tryAcquire(code) {
		http.Redirect(w, r, h.postLoginPath, http.StatusSeeOther)
		return
	}

	tokens, err := h.exchanger.Exchange(r.Context(), code)
	if err != nil {
		var exchangeErr *TokenExchangeError
		if errors.As(err, &exchangeErr) {
			httpx.Problem(w, http.StatusBadGateway, "Token Exchange Failed", exchangeErr.Error())
			return
		}
		h.logger.Error("token exchange", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Token Exchange Failed", "could not reach the token endpoint")
		return
	}

	if _, err := h.establishSession(w, r, tokens); err != nil {
		return
	}
	http.Redirect(w, r, h.postLoginPath, http.StatusSeeOther)
}

func (h *Handler) handleHostedUI(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{
		"login":  h.hosted.LoginURL(),
		"signup": h.hosted.SignupURL(),
		"logout": h.hosted.LogoutURL(),
	})
}

// establishSession persists the tokens under a fresh session ID and
// sets the session cookie.
func (h *Handler) establishSession(w http.ResponseWriter, r *http.Request, tokens session.Tokens) (*session.Session, error) {
	id := uuid.NewString()
	sess, err := h.sessions.Save(r.Context(), id, tokens)
	if err != nil {
		if errors.Is(err, session.ErrInvalidToken) {
			httpx.Problem(w, http.StatusBadGateway, "Invalid Token", "the provider returned an undecodable ID token")
		} else {
			h.logger.Error("persist session", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return nil, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(h.sessions.TTL()),
	})
	return sess, nil
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

// respondAuthError maps the stable error taxonomy onto HTTP statuses.
// The raw provider message travels in the detail field, the category
// in the type field.
func (h *Handler) respondAuthError(w http.ResponseWriter, op string, err error) {
	var authErr *Error
	if !errors.As(err, &authErr) {
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Identity Provider Failure", "")
		return
	}

	status := http.StatusBadGateway
	title := "Identity Provider Failure"
	switch authErr.Category {
	case CategoryDuplicateAccount:
		status, title = http.StatusConflict, "Account Already Exists"
	case CategoryInvalidCredentials:
		status, title = http.StatusUnauthorized, "Invalid Credentials"
	case CategoryUnverifiedAccount:
		status, title = http.StatusForbidden, "Account Not Verified"
	case CategoryAccountNotFound:
		status, title = http.StatusNotFound, "Account Not Found"
	case CategoryInvalidOrExpiredCode:
		status, title = http.StatusBadRequest, "Invalid Or Expired Code"
	case CategoryWeakPassword:
		status, title = http.StatusBadRequest, "Password Too Weak"
	case CategoryRateLimited:
		status, title = http.StatusTooManyRequests, "Too Many Attempts"
	default:
		h.logger.Error(op, slog.Any("error", err))
	}

	httpx.JSON(w, status, httpx.ProblemDetail{
		Type:   string(authErr.Category),
		Title:  title,
		Status: status,
		Detail: authErr.Message,
	})
}
