package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sales-crm/internal/audit"
	"sales-crm/internal/auth"
	"sales-crm/internal/calls"
	"sales-crm/internal/config"
	"sales-crm/internal/contacts"
	"sales-crm/internal/dnc"
	"sales-crm/internal/messaging"
	"sales-crm/internal/rbac"
	"sales-crm/internal/recordings"
	"sales-crm/internal/reminders"
	"sales-crm/internal/reporting"
	"sales-crm/internal/templates"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mgr, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}

	callRepo := calls.NewMemoryRepo()
	messageRepo := messaging.NewMemoryRepo()
	reminderStore := reminders.NewMemoryStore()

	contactSvc := contacts.NewService(contacts.NewMemoryRepo())
	h := Handlers{
		Auth:       mgr,
		Contacts:   contactSvc,
		Calls:      calls.NewService(callRepo, contactSvc, nil),
		DNC:        dnc.NewService(dnc.NewMemoryStore()),
		Reminders:  reminders.NewService(reminderStore, nil),
		Templates:  templates.NewService(templates.NewMemoryRepo()),
		Messaging:  messaging.NewService(messageRepo, nil, nil, nil),
		Recordings: recordings.NewService(recordings.NewMemoryRepo(), callRepo, nil),
		Reporting: reporting.NewService(&reporting.SourceRepo{
			Calls:     callRepo,
			Messages:  messageRepo,
			Reminders: reminderStore,
		}),
		Audit: audit.NewService(audit.NewMemoryRepo()),
	}

	r := gin.New()
	r.POST("/v1/auth/login", h.Login)
	r.POST("/v1/auth/refresh", h.Refresh)

	v1 := r.Group("/v1", auth.RequireAccessToken(mgr))
	v1.GET("/me", h.Me)

	sellers := RequireWorkspaceAndAnyRole(
		rbac.RoleRep, rbac.RoleManager, rbac.RoleOwner, rbac.RoleSuperAdmin,
	)
	anyMember := RequireWorkspaceAndAnyRole(
		rbac.RoleRep, rbac.RoleManager, rbac.RoleOwner, rbac.RoleAnalyst, rbac.RoleSuperAdmin,
	)

	cg := v1.Group("/contacts", sellers...)
	cg.POST("", h.CreateContact)
	cg.GET("", h.ListContacts)
	cg.GET("/:id", h.GetContact)
	cg.DELETE("/:id", h.DeleteContact)

	dg := v1.Group("/dnc", anyMember...)
	dg.GET("", h.ListDNC)
	edit := RequireWorkspaceAndAnyRole(rbac.RoleManager, rbac.RoleOwner, rbac.RoleCompliance, rbac.RoleSuperAdmin)
	dg.POST("", append(edit, h.AddDNC)...)
	dg.DELETE("/:number", append(edit, h.RemoveDNC)...)

	mg := v1.Group("/messages", sellers...)
	mg.POST("", h.ComposeMessage)
	mg.POST("/:id/send", h.SendMessage)

	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r *gin.Engine, userID, workspaceID, role string) (access, refresh string) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/v1/auth/login", "", gin.H{
		"user_id": userID, "workspace_id": workspaceID, "role": role,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return resp.AccessToken, resp.RefreshToken
}

func TestLoginRefreshRoundTrip(t *testing.T) {
	r := newTestRouter(t)

	access, refresh := login(t, r, "u-1", "ws-1", rbac.RoleRep)

	w := doJSON(t, r, http.MethodGet, "/v1/me", access, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me status %d: %s", w.Code, w.Body.String())
	}
	var me map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &me)
	if me["user_id"] != "u-1" || me["workspace_id"] != "ws-1" || me["role"] != rbac.RoleRep {
		t.Fatalf("unexpected identity: %v", me)
	}

	// Refresh must yield a usable access token carrying the same role.
	w = doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "", gin.H{"refresh_token": refresh})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status %d: %s", w.Code, w.Body.String())
	}
	var pair struct {
		AccessToken string `json:"access_token"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &pair)
	w = doJSON(t, r, http.MethodGet, "/v1/me", pair.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me with refreshed token: status %d", w.Code)
	}

	// An access token is not accepted on the refresh endpoint.
	w = doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "", gin.H{"refresh_token": access})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for access token on refresh, got %d", w.Code)
	}
}

func TestLoginValidation(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodPost, "/v1/auth/login", "", gin.H{"user_id": "u-1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRequestsWithoutTokenRejected(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/v1/me", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestContactLifecycle(t *testing.T) {
	r := newTestRouter(t)
	access, _ := login(t, r, "u-1", "ws-1", rbac.RoleRep)

	w := doJSON(t, r, http.MethodPost, "/v1/contacts", access, gin.H{
		"first_name": "Ada", "last_name": "Park", "phone": "+1 555 000 1111",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", w.Code, w.Body.String())
	}
	var created contacts.Contact
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.ID == "" || created.Phone != "+15550001111" {
		t.Fatalf("unexpected contact: %+v", created)
	}

	// Same phone again is a conflict.
	w = doJSON(t, r, http.MethodPost, "/v1/contacts", access, gin.H{
		"first_name": "Other", "phone": "+15550001111",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate phone, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/v1/contacts/"+created.ID, access, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/v1/contacts?q=ada", access, nil)
	var list struct {
		Contacts []contacts.Contact `json:"contacts"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Contacts) != 1 {
		t.Fatalf("expected 1 search hit, got %d", len(list.Contacts))
	}

	w = doJSON(t, r, http.MethodDelete, "/v1/contacts/"+created.ID, access, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/v1/contacts/"+created.ID, access, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestDNCRoleGate(t *testing.T) {
	r := newTestRouter(t)
	rep, _ := login(t, r, "u-rep", "ws-1", rbac.RoleRep)
	manager, _ := login(t, r, "u-mgr", "ws-1", rbac.RoleManager)

	if w := doJSON(t, r, http.MethodPost, "/v1/dnc", rep, gin.H{"number": "+15550002222"}); w.Code != http.StatusForbidden {
		t.Fatalf("rep should not edit dnc, got %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/v1/dnc", manager, gin.H{"number": "+15550002222"}); w.Code != http.StatusNoContent {
		t.Fatalf("manager add dnc: %d", w.Code)
	}

	w := doJSON(t, r, http.MethodGet, "/v1/dnc", rep, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("rep list dnc: %d", w.Code)
	}
	var list struct {
		Numbers []string `json:"numbers"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Numbers) != 1 {
		t.Fatalf("expected 1 dnc entry, got %v", list.Numbers)
	}

	if w := doJSON(t, r, http.MethodDelete, "/v1/dnc/+15550002222", manager, nil); w.Code != http.StatusNoContent {
		t.Fatalf("manager remove dnc: %d", w.Code)
	}
}

func TestSendMessageWithoutSender(t *testing.T) {
	r := newTestRouter(t)
	access, _ := login(t, r, "u-1", "ws-1", rbac.RoleRep)

	w := doJSON(t, r, http.MethodPost, "/v1/messages", access, gin.H{
		"channel": "sms", "to": "+15550003333", "body": "hello",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("compose status %d: %s", w.Code, w.Body.String())
	}
	var m messaging.Message
	_ = json.Unmarshal(w.Body.Bytes(), &m)

	// No sender is configured in this fixture.
	w = doJSON(t, r, http.MethodPost, "/v1/messages/"+m.ID+"/send", access, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing sender, got %d: %s", w.Code, w.Body.String())
	}
}
