package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"sales-crm/internal/audit"
	"sales-crm/internal/auth"
	"sales-crm/internal/calls"
	"sales-crm/internal/contacts"
	"sales-crm/internal/dnc"
	"sales-crm/internal/messaging"
	"sales-crm/internal/rbac"
	"sales-crm/internal/recordings"
	"sales-crm/internal/reminders"
	"sales-crm/internal/reporting"
	"sales-crm/internal/templates"
	"sales-crm/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth       *auth.Manager
	Contacts   *contacts.Service
	Calls      *calls.Service
	DNC        *dnc.Service
	Reminders  *reminders.Service
	Templates  *templates.Service
	Messaging  *messaging.Service
	Recordings *recordings.Service
	Reporting  *reporting.Service
	Audit      *audit.Service
}

// identity pulls the authenticated identity or aborts with 401.
func identity(c *gin.Context) (userID, workspaceID, role string, ok bool) {
	ctx := c.Request.Context()
	workspaceID, err := auth.WorkspaceID(ctx)
	if err != nil || workspaceID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return "", "", "", false
	}
	userID, _ = auth.UserID(ctx)
	role, _ = auth.Role(ctx)
	return userID, workspaceID, role, true
}

func notFoundOr500(c *gin.Context, err error, notFound error) {
	if errors.Is(err, notFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
		return
	}
	logger.FromGin(c).Error("request failed", "error", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// --- Auth ---

type loginRequest struct {
	UserID      string `json:"user_id"`
	WorkspaceID string `json:"workspace_id"`
	Role        string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.WorkspaceID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, workspace_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.WorkspaceID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new pair.
func (h Handlers) Refresh(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), claims.UserID, claims.WorkspaceID, claims.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// Me echoes the authenticated identity.
func (h Handlers) Me(c *gin.Context) {
	uid, wid, role, ok := identity(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": uid, "workspace_id": wid, "role": role})
}

// --- Contacts ---

type contactRequest struct {
	OwnerUserID string `json:"owner_user_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Company     string `json:"company"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	LeadStatus  string `json:"lead_status"`
	Source      string `json:"source"`
	Notes       string `json:"notes"`
}

func (r contactRequest) toModel(workspaceID string) contacts.Contact {
	return contacts.Contact{
		WorkspaceID: workspaceID,
		OwnerUserID: r.OwnerUserID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Company:     r.Company,
		Phone:       r.Phone,
		Email:       r.Email,
		LeadStatus:  contacts.LeadStatus(r.LeadStatus),
		Source:      r.Source,
		Notes:       r.Notes,
	}
}

func (h Handlers) CreateContact(c *gin.Context) {
	uid, wid, role, ok := identity(c)
	if !ok {
		return
	}
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	created, err := h.Contacts.Create(c.Request.Context(), req.toModel(wid))
	if err != nil {
		switch {
		case errors.Is(err, contacts.ErrDuplicate):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, contacts.ErrInvalidContact):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			notFoundOr500(c, err, contacts.ErrNotFound)
		}
		return
	}
	h.auditContact(c, wid, uid, role, created.ID, "contact created")
	c.JSON(http.StatusCreated, created)
}

func (h Handlers) UpdateContact(c *gin.Context) {
	uid, wid, role, ok := identity(c)
	if !ok {
		return
	}
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	m := req.toModel(wid)
	m.ID = c.Param("id")
	updated, err := h.Contacts.Update(c.Request.Context(), m)
	if err != nil {
		switch {
		case errors.Is(err, contacts.ErrDuplicate):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, contacts.ErrInvalidContact):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			notFoundOr500(c, err, contacts.ErrNotFound)
		}
		return
	}
	h.auditContact(c, wid, uid, role, updated.ID, "contact updated")
	c.JSON(http.StatusOK, updated)
}

func (h Handlers) DeleteContact(c *gin.Context) {
	uid, wid, role, ok := identity(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if err := h.Contacts.Delete(c.Request.Context(), wid, id); err != nil {
		notFoundOr500(c, err, contacts.ErrNotFound)
		return
	}
	h.auditContact(c, wid, uid, role, id, "contact deleted")
	c.Status(http.StatusNoContent)
}

func (h Handlers) GetContact(c *gin.Context) {
	_, wid, _, ok := identity(c)
	if !ok {
		return
	}
	got, err := h.Contacts.Get(c.Request.Context(), wid, c.Param("id"))
	if err != nil {
		notFoundOr500(c, err, contacts.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, got)
}

func (h Handlers) ListContacts(c *gin.Context) {
	_, wid, _, ok := identity(c)
	if !ok {
		return
	}
	q := contacts.Query{
		Search:      c.Query("q"),
		OwnerUserID: c.Query("owner"),
		LeadStatus:  contacts.LeadStatus(c.Query("status")),
		Limit:       intQuery(c, "limit"),
		Offset:      intQuery(c, "offset"),
	}
	got, err := h.Contacts.List(c.Request.Context(), wid, q)
	if err != nil {
		notFoundOr500(c, err, contacts.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": got})
}

// ImportContacts accepts a CSV body (or multipart "file" field) and returns
// the per-row import report.
func (h Handlers) ImportContacts(c *gin.Context) {
	uid, wid, _, ok := identity(c)
	if !ok {
		return
	}
	body := c.Request.Body
	if f, _, err := c.Request.FormFile("file"); err == nil {
		defer f.Close()
		body = f
	}
	report, err := h.Contacts.ImportCSV(c.Request.Context(), wid, uid, body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h Handlers) auditContact(c *gin.Context, wid, uid, role, contactID, message string) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.LogContactChange(c.Request.Context(), wid, uid, role, c.ClientIP(), contactID, message, ""); err != nil {
		logger.FromGin(c).Warn("audit write failed", "error", err)
	}
}

// --- Calls (history) ---

func (h Handlers) ListCalls(c *gin.Context) {
	_, wid, _, ok := identity(c)
	if !ok {
		return
	}
	f := calls.Filter{
		ContactID: c.Query("contact_id"),
		UserID:    c.Query("user_id"),
		Outcome:   calls.Outcome(c.Query("outcome")),
		Limit:     intQuery(c, "limit"),
	}
	got, err := h.Calls.List(c.Request.Context(), wid, f)
	if err != nil {
		notFoundOr500(c, err, calls.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calls": got})
}

type callNoteRequest struct {
	Notes string `json:"notes"`
}

func (h Handlers) SetCallNotes(c *gin.Context) {
	_, wid, _, ok := identity(c)
	if !ok {
		return
	}
	var req callNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Calls.AttachNote(c.Request.Context(), wid, c.Param("id"), req.Notes); err != nil {
		notFoundOr500(c, err, calls.ErrNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- DNC ---

type dncRequest struct {
	Number string `json:"number"`
}

func (h Handlers) ListDNC(c *gin.Context) {
	_, wid, _, ok := identity(c)
	if !ok {
		return
	}
	numbers, err := h.DNC.List(c.Request.Context(), wid)
	if err != nil {
		notFoundOr500(c, err, dnc.ErrInvalidArgument)
		return
	}
	c.JSON(http.StatusOK, gin.H{"numbers": numbers})
}

func (h Handlers) AddDNC(c *gin.Context) {
	uid, wid, role, ok := identity(c)
	if !ok {
		return
	}
	var req dncRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Number == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "number required"})
		return
	}
	if err := h.DNC.Add(c.Request.Context(), wid, req.Number); err != nil {
		if errors.Is(err, dnc.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		notFoundOr500(c, err, dnc.ErrInvalidArgument)
		return
	}
	if h.Audit != nil {
		_ = h.Audit.LogDNCChange(c.Request.Context(), wid, uid, role, c.ClientIP(), req.Number, "number added to dnc")
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) RemoveDNC(c *gin.Context) {
	uid, wid, role, ok := identity(c)
	if !ok {
		return
	}
	number := c.Param("number")
	if err := h.DNC.Remove(c.Request.Context(), wid, number); err != nil {
		if errors.Is(err, dnc.ErrInvalidArgument) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		notFoundOr500(c, err, dnc.ErrInvalidArgument)
		return
	}
	if h.Audit != nil {
		_ = h.Audit.LogDNCChange(c.Request.Context(), wid, uid, role, c.ClientIP(), number, "number removed from dnc")
	}
	c.Status(http.StatusNoContent)
}

// --- Reminders ---

type reminderRequest struct {
	ContactID string    `json:"contact_id"`
	Note      string    `json:"note"`
	DueAt     time.Time `json:"due_at"`
}

func (h Handlers) CreateReminder(c *gin.Context) {
	uid, wid, _, ok := identity(c)
	if !ok {
		return
	}
	var req reminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	created, err := h.Reminders.Create(c.Request.Context(), reminders.Reminder{
		WorkspaceID: wid,
		UserID:      uid,
		ContactID:   req.ContactID,
		Note:        req.Note,
		DueAt:       req.DueAt,
	})
	if err != nil {
		if errors.Is(err, reminders.ErrInvalidReminder) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		notFoundOr500(c, err, reminders.ErrNotFound)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h Handlers) ListReminders(c *gin.Context) {
	_, wid, _, ok := identity(c)
	if !ok {
		return
	}
	got, err := h.Reminders.List(c.Request.Context(), wid)
	if err != nil {
		notFoundOr500(c, err, reminders.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminders": got})
}

func (h Handlers) CompleteReminder(c *gin.Context) {
	_, wid, _, ok := identity(c)
	if !ok {
		return
	}
	done, err := h.Reminders.Complete(c.Request.Context(), wid, c.Param("id"))
	if err != nil {
		notFoundOr500(c, err, reminders.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, done)
}

// --- Templates ---

type templateRequest struct {
	Name    string `json:"name"`
	Channel string `json:"channel"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h Handlers) CreateTemplate(c *gin.Context) {
	_, wid, _, ok := identity(c)
	if !ok {
		return
	}
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	created, err := h.Templates.Create(c.Request.Context(), templates.Template{
		WorkspaceID: wid,
		Name:        req.Name,
		Channel:     templates.Channel(req.Channel),
		Subject:     req.Subject,
		Body:        req.Body,
	})
	if err != nil {
		if errors.Is(err, templates.ErrInvalidTemplate) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		notFoundOr500(c, err, templates.ErrNotFound)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h Handlers) ListTemplates(c *gin.Context) {
	_, wid, _, ok := identity(c)
	if !ok {
		return
	}
	got, err := h.Templates.List(c.Request.Context(), wid)
	if err != nil {
		notFoundOr500(c, err, templates.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": got})
}

func (h Handlers) DeleteTemplate(c *gin.Context) {
	_, wid, _, ok := identity(c)
	if !ok {
		return
	}
	if err := h.Templates.Delete(c.Request.Context(), wid, c.Param("id")); err != nil {
		notFoundOr500(c, err, templates.ErrNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// RenderTemplate previews a template against a contact.
func (h Handlers) RenderTemplate(c *gin.Context) {
	uid, wid, _, ok := identity(c)
	if !ok {
		return
	}
	contactID := c.Query("contact_id")
	if contactID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "contact_id required"})
		return
	}
	contact, err := h.Contacts.Get(c.Request.Context(), wid, contactID)
	if err != nil {
		notFoundOr500(c, err, contacts.ErrNotFound)
		return
	}
	subject, body, err := h.Templates.RenderContact(c.Request.Context(), wid, c.Param("id"), contact, uid)
	if err != nil {
		notFoundOr500(c, err, templates.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subject": subject, "body": body})
}

// --- Messaging ---

type composeRequest struct {
	ContactID string `json:"contact_id"`
	Channel   string `json:"channel"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

func (h Handlers) ComposeMessage(c *gin.Context) {
	uid, wid, _, ok := identity(c)
	if !ok {
		return
	}
	var req composeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	m, err := h.Messaging.Compose(c.Request.Context(), messaging.Message{
		WorkspaceID: wid,
		UserID:      uid,
		ContactID:   req.ContactID,
		Channel:     messaging.Channel(req.Channel),
		To:          req.To,
		Subject:     req.Subject,
		Body:        req.Body,
	})
	if err != nil {
		if errors.Is(err, messaging.ErrInvalidMessage) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		notFoundOr500(c, err, messaging.ErrNotFound)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h Handlers) SendMessage(c *gin.Context) {
	_, wid, _, ok := identity(c)
	if !ok {
		return
	}
	m, err := h.Messaging.Send(c.Request.Context(), wid, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, messaging.ErrAlreadySent):
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, messaging.ErrNoSender):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, messaging.ErrNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			// Delivery failed; the message carries the failure reason.
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error(), "message": m})
		}
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h Handlers) ListMessages(c *gin.Context) {
	_, wid, _, ok := identity(c)
	if !ok {
		return
	}
	got, err := h.Messaging.List(c.Request.Context(), wid, c.Query("contact_id"))
	if err != nil {
		notFoundOr500(c, err, messaging.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": got})
}

type draftRequest struct {
	Channel     string `json:"channel"`
	Instruction string `json:"instruction"`
	ContactID   string `json:"contact_id"`
}

// DraftMessage asks the drafting API for a suggested body.
func (h Handlers) DraftMessage(c *gin.Context) {
	uid, wid, _, ok := identity(c)
	if !ok {
		return
	}
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	dr := messaging.DraftRequest{
		Channel:     messaging.Channel(req.Channel),
		Instruction: req.Instruction,
		SenderName:  uid,
	}
	if req.ContactID != "" {
		if contact, err := h.Contacts.Get(c.Request.Context(), wid, req.ContactID); err == nil {
			dr.ContactName = contact.DisplayName()
			dr.Company = contact.Company
		}
	}
	body, err := h.Messaging.Draft(c.Request.Context(), dr)
	if err != nil {
		if errors.Is(err, messaging.ErrDrafterUnavailable) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"body": body})
}

// --- Recordings ---

func (h Handlers) ListRecordings(c *gin.Context) {
	_, wid, _, ok := identity(c)
	if !ok {
		return
	}
	got, err := h.Recordings.List(c.Request.Context(), wid, c.Query("unreviewed") == "true")
	if err != nil {
		notFoundOr500(c, err, recordings.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recordings": got})
}

func (h Handlers) ReviewRecording(c *gin.Context) {
	uid, wid, _, ok := identity(c)
	if !ok {
		return
	}
	rec, err := h.Recordings.MarkReviewed(c.Request.Context(), wid, c.Param("id"), uid)
	if err != nil {
		notFoundOr500(c, err, recordings.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type recordingNoteRequest struct {
	Note string `json:"note"`
}

func (h Handlers) NoteRecording(c *gin.Context) {
	_, wid, _, ok := identity(c)
	if !ok {
		return
	}
	var req recordingNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	rec, err := h.Recordings.AttachNote(c.Request.Context(), wid, c.Param("id"), req.Note)
	if err != nil {
		if errors.Is(err, recordings.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// --- Reporting ---

func (h Handlers) CallsReport(c *gin.Context) {
	_, wid, _, ok := identity(c)
	if !ok {
		return
	}
	rng, err := parseRange(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sum, err := h.Reporting.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{
		WorkspaceID: wid,
		Range:       rng,
		UserID:      c.Query("user_id"),
	})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		notFoundOr500(c, err, reporting.ErrInvalidRequest)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h Handlers) ActivityReport(c *gin.Context) {
	_, wid, _, ok := identity(c)
	if !ok {
		return
	}
	rng, err := parseRange(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sum, err := h.Reporting.ActivitySummary(c.Request.Context(), reporting.ActivitySummaryRequest{
		WorkspaceID: wid,
		Range:       rng,
		UserID:      c.Query("user_id"),
	})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		notFoundOr500(c, err, reporting.ErrInvalidRequest)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// --- helpers ---

func intQuery(c *gin.Context, name string) int {
	n, _ := strconv.Atoi(c.Query(name))
	return n
}

func parseRange(c *gin.Context) (reporting.TimeRange, error) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		return reporting.TimeRange{}, errors.New("from must be RFC3339")
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		return reporting.TimeRange{}, errors.New("to must be RFC3339")
	}
	return reporting.TimeRange{From: from, To: to}, nil
}

// Convenience middleware bundles.

func RequireWorkspaceAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireWorkspace(), rbac.RequireAnyRole(roles...)}
}
