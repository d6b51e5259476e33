package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talentloop/talentsync/internal/models"
)

func callWithRoles(t *testing.T, required models.UserRole, roles []models.UserRole) *httptest.ResponseRecorder {
	t.Helper()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if roles != nil {
		req = req.WithContext(WithIdentity(context.Background(), "u1", roles))
	}
	rec := httptest.NewRecorder()
	RequireRole(required)(next).ServeHTTP(rec, req)
	return rec
}

func TestRequireRoleUnauthenticated(t *testing.T) {
	rec := callWithRoles(t, models.RoleViewer, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "authentication required")
}

func TestRequireRoleInsufficientTier(t *testing.T) {
	rec := callWithRoles(t, models.RoleAdmin, []models.UserRole{models.RoleEditor})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "admin")
}

func TestRequireRoleHigherTierPasses(t *testing.T) {
	rec := callWithRoles(t, models.RoleEditor, []models.UserRole{models.RoleAdmin})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
