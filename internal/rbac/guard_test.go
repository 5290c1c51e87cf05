package rbac_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/egepakten/cognito-student-registry/internal/rbac"
	"github.com/egepakten/cognito-student-registry/internal/roles"
	"github.com/egepakten/cognito-student-registry/internal/session"
	"github.com/egepakten/cognito-student-registry/internal/shared"
	"github.com/egepakten/cognito-student-registry/internal/token"
	_ "github.com/egepakten/cognito-student-registry/testing"
)

func sessionWithGroups(groups ...string) *session.Session {
	members := make([]any, len(groups))
	for i, g := range groups {
		members[i] = g
	}
	return &session.Session{
		ID:     "sid-1",
		Claims: token.Claims{MapClaims: jwt.MapClaims{"cognito:groups": members}},
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireSessionRedirectsAnonymous(t *testing.T) {
	guard := rbac.NewGuard(nil, "/")

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	res := httptest.NewRecorder()
	guard.RequireSession(okHandler()).ServeHTTP(res, req)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/", res.Header().Get("Location"))
}

func TestRequireSessionAllowsAuthenticated(t *testing.T) {
	guard := rbac.NewGuard(nil, "/")

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sessionWithGroups("students")))
	res := httptest.NewRecorder()
	guard.RequireSession(okHandler()).ServeHTTP(res, req)

	assert.Equal(t, http.StatusOK, res.Code)
}

func TestRequireRole(t *testing.T) {
	guard := rbac.NewGuard(nil, "/")
	protected := guard.Require(roles.RoleProfessor, roles.RoleAdmin)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/courses/CS101/grades", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sessionWithGroups("professors")))
	res := httptest.NewRecorder()
	protected.ServeHTTP(res, req)
	assert.Equal(t, http.StatusOK, res.Code)

	req = httptest.NewRequest(http.MethodPost, "/courses/CS101/grades", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sessionWithGroups("students")))
	res = httptest.NewRecorder()
	protected.ServeHTTP(res, req)
	assert.Equal(t, http.StatusForbidden, res.Code)

	req = httptest.NewRequest(http.MethodPost, "/courses/CS101/grades", nil)
	res = httptest.NewRecorder()
	protected.ServeHTTP(res, req)
	assert.Equal(t, http.StatusSeeOther, res.Code)
}
