package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/noc-portal-api/internal/models"
)

func performWithRole(t *testing.T, role models.UserRole, authenticated bool, required ...models.UserRole) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reached := false
	r := gin.New()
	if authenticated {
		r.Use(func(c *gin.Context) {
			c.Set(ContextUserKey, &models.JWTClaims{UserID: "u1", Role: role})
		})
	}
	r.GET("/protected", RequireRoles(required...), func(c *gin.Context) {
		reached = true
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	return rec, reached
}

func TestRequireRolesAllows(t *testing.T) {
	rec, reached := performWithRole(t, models.RoleFaculty, true, models.RoleFaculty)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestRequireRolesForbids(t *testing.T) {
	rec, reached := performWithRole(t, models.RoleStudent, true, models.RoleFaculty)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
}

func TestRequireRolesUnauthenticated(t *testing.T) {
	rec, reached := performWithRole(t, models.RoleStudent, false, models.RoleStudent)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}
