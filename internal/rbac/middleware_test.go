package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"sales-crm/internal/auth"

	"github.com/gin-gonic/gin"
)

func serveAs(role, workspace string, mws ...gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	handlers := append([]gin.HandlerFunc{func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "u", workspace, role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}}, mws...)
	handlers = append(handlers, func(c *gin.Context) { c.Status(200) })
	r.GET("/x", handlers...)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w
}

func TestRequireAnyRole_SuperAdminBypasses(t *testing.T) {
	w := serveAs(RoleSuperAdmin, "w", RequireWorkspace(), RequireAnyRole(RoleOwner))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequireAnyRole_RepDeniedForManagerRoute(t *testing.T) {
	w := serveAs(RoleRep, "w", RequireWorkspace(), RequireAnyRole(RoleOwner, RoleManager))
	if w.Code != 403 {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestRequireAnyRole_HiddenRoleDeniedUnlessAllowed(t *testing.T) {
	w := serveAs(RoleCompliance, "w", RequireWorkspace(), RequireAnyRole(RoleOwner))
	if w.Code != 403 {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	w = serveAs(RoleCompliance, "w", RequireWorkspace(), RequireAnyRole(RoleCompliance))
	if w.Code != 200 {
		t.Fatalf("expected 200 for explicitly allowed hidden role, got %d", w.Code)
	}
}

func TestRequireAnyRole_WorkspaceRequired(t *testing.T) {
	w := serveAs(RoleOwner, "", RequireWorkspace(), RequireAnyRole(RoleOwner))
	if w.Code != 401 {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
