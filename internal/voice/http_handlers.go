package voice

import (
	"context"
	"io"
	"net/http"

	"sales-crm/internal/auth"
	"sales-crm/internal/dialpolicy"
	"sales-crm/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers expose the session manager to the two presentation consumers (the
// full dialer screen and the floating overlay). Both read the identical
// snapshot and invoke the same commands; no screen-local call state exists.
//
// Keep these thin: parse/validate input, call the manager, return JSON.
type Handlers struct {
	Manager *Manager
	Tokens  TokenProvider
	Policy  *dialpolicy.Engine
	Audit   DialAuditor
}

// DialAuditor records privileged dials that went through despite a policy
// warning.
type DialAuditor interface {
	LogDialOverride(ctx context.Context, workspaceID, actorUserID, actorRole, ip, phoneNumber, reason string) error
}

type dialRequest struct {
	To          string `json:"to"`
	From        string `json:"from"`
	DisplayName string `json:"display_name"`
}

type digitRequest struct {
	Digit string `json:"digit"`
}

// GetSession returns the current snapshot.
func (h Handlers) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.Manager.Snapshot())
}

// StreamEvents pushes a snapshot over SSE after every transition. The dialer
// and the overlay subscribe to the same stream shape.
func (h Handlers) StreamEvents(c *gin.Context) {
	ch, cancel := h.Manager.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// Initial state so a late joiner renders immediately.
	c.SSEvent("snapshot", h.Manager.Snapshot())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case snap, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("snapshot", snap)
			return true
		}
	})
}

// Dial places an outbound call after the dial policy clears the target.
func (h Handlers) Dial(c *gin.Context) {
	log := logger.FromGin(c)

	var req dialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.To == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to required"})
		return
	}

	if h.Policy != nil {
		workspaceID, _ := auth.WorkspaceID(c.Request.Context())
		role, _ := auth.Role(c.Request.Context())
		dec, err := h.Policy.EvaluateOutbound(c.Request.Context(), dialpolicy.OutboundInput{
			WorkspaceID: workspaceID,
			ActorRole:   role,
			To:          req.To,
		})
		if err != nil {
			log.Error("dial policy evaluation failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dial policy failed"})
			return
		}
		if !dec.Allow {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": dec.Reason})
			return
		}
		if dec.Warning != "" && h.Audit != nil {
			userID, _ := auth.UserID(c.Request.Context())
			if err := h.Audit.LogDialOverride(c.Request.Context(), workspaceID, userID, role, c.ClientIP(), req.To, dec.Warning); err != nil {
				log.Warn("dial override audit failed", "err", err)
			}
		}
	}

	switch err := h.Manager.Dial(c.Request.Context(), req.To, req.From, req.DisplayName); err {
	case nil:
		c.JSON(http.StatusOK, h.Manager.Snapshot())
	case ErrLineBusy:
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "line busy"})
	case ErrInvalidNumber:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid number"})
	default:
		log.Error("dial failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dial failed"})
	}
}

// Hangup ends the active call. Fire-and-forget; the caller observes the
// eventual transition via the snapshot or the event stream.
func (h Handlers) Hangup(c *gin.Context) {
	h.Manager.Hangup()
	c.JSON(http.StatusOK, h.Manager.Snapshot())
}

// MuteToggle flips mute while connected; a guarded no-op otherwise.
func (h Handlers) MuteToggle(c *gin.Context) {
	h.Manager.MuteToggle()
	c.JSON(http.StatusOK, h.Manager.Snapshot())
}

// SendDigit sends one DTMF digit while connected.
func (h Handlers) SendDigit(c *gin.Context) {
	var req digitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !validDigit(req.Digit) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "digit must be one of 0-9 * # w"})
		return
	}
	h.Manager.SendDigit(req.Digit)
	c.JSON(http.StatusOK, h.Manager.Snapshot())
}

// AcceptIncoming answers the pending invitation.
func (h Handlers) AcceptIncoming(c *gin.Context) {
	switch err := h.Manager.AcceptIncoming(c.Request.Context()); err {
	case nil:
		c.JSON(http.StatusOK, h.Manager.Snapshot())
	case ErrNoIncoming:
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no pending incoming call"})
	case ErrLineBusy:
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "end the current call first"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "accept failed"})
	}
}

// RejectIncoming discards the pending invitation without touching any
// in-progress session.
func (h Handlers) RejectIncoming(c *gin.Context) {
	if err := h.Manager.RejectIncoming(); err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no pending incoming call"})
		return
	}
	c.JSON(http.StatusOK, h.Manager.Snapshot())
}

// ClearError clears the surfaced error message.
func (h Handlers) ClearError(c *gin.Context) {
	h.Manager.ClearError()
	c.JSON(http.StatusOK, h.Manager.Snapshot())
}

// IssueToken mints a signaling credential for the caller's identity so a
// browser-side SDK can register its own endpoint.
func (h Handlers) IssueToken(c *gin.Context) {
	if h.Tokens == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "telephony not configured"})
		return
	}
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}
	cred, err := h.Tokens.FetchCredential(c.Request.Context(), userID)
	if err != nil {
		logger.FromGin(c).Error("credential mint failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "credential mint failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      cred.Token,
		"identity":   cred.Identity,
		"expires_at": cred.ExpiresAt,
	})
}
