package main

import (
	"database/sql"
	"net/http"
	"time"

	"sales-crm/internal/auth"
	"sales-crm/internal/httpapi"
	"sales-crm/internal/rbac"
	"sales-crm/internal/telephony"
	"sales-crm/internal/voice"
	"sales-crm/pkg/utils"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	auth     *auth.Manager
	db       *sql.DB
	api      httpapi.Handlers
	voice    voice.Handlers
	webhooks *telephony.WebhookHandlers
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, d routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), d.db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider webhooks (public, signature-validated inside the handlers).
	wh := r.Group("/webhooks/twilio")
	{
		wh.POST("/voice", d.webhooks.InboundVoice)
		wh.POST("/status", d.webhooks.CallStatus)
		wh.POST("/recording", d.webhooks.RecordingStatus)
	}

	// Token issuance is public; everything else under /v1 requires an
	// access token.
	v1 := r.Group("/v1")

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/login", d.api.Login)
		authGroup.POST("/refresh", d.api.Refresh)
	}

	v1.Use(auth.RequireAccessToken(d.auth))

	v1.GET("/me", d.api.Me)

	anyMember := httpapi.RequireWorkspaceAndAnyRole(
		rbac.RoleRep, rbac.RoleManager, rbac.RoleOwner, rbac.RoleAnalyst, rbac.RoleSuperAdmin,
	)
	sellers := httpapi.RequireWorkspaceAndAnyRole(
		rbac.RoleRep, rbac.RoleManager, rbac.RoleOwner, rbac.RoleSuperAdmin,
	)

	contactsGroup := v1.Group("/contacts", sellers...)
	{
		contactsGroup.POST("", d.api.CreateContact)
		contactsGroup.GET("", d.api.ListContacts)
		contactsGroup.POST("/import", d.api.ImportContacts)
		contactsGroup.GET("/:id", d.api.GetContact)
		contactsGroup.PUT("/:id", d.api.UpdateContact)
		contactsGroup.DELETE("/:id", d.api.DeleteContact)
	}

	callsGroup := v1.Group("/calls", anyMember...)
	{
		callsGroup.GET("", d.api.ListCalls)
		callsGroup.PUT("/:id/notes", d.api.SetCallNotes)
	}

	// Reading the blocklist is open to members; editing it is restricted to
	// managers and the compliance role.
	dncGroup := v1.Group("/dnc", anyMember...)
	{
		dncGroup.GET("", d.api.ListDNC)

		edit := httpapi.RequireWorkspaceAndAnyRole(
			rbac.RoleManager, rbac.RoleOwner, rbac.RoleCompliance, rbac.RoleSuperAdmin,
		)
		dncGroup.POST("", append(edit, d.api.AddDNC)...)
		dncGroup.DELETE("/:number", append(edit, d.api.RemoveDNC)...)
	}

	remindersGroup := v1.Group("/reminders", sellers...)
	{
		remindersGroup.POST("", d.api.CreateReminder)
		remindersGroup.GET("", d.api.ListReminders)
		remindersGroup.POST("/:id/complete", d.api.CompleteReminder)
	}

	templatesGroup := v1.Group("/templates", sellers...)
	{
		templatesGroup.POST("", d.api.CreateTemplate)
		templatesGroup.GET("", d.api.ListTemplates)
		templatesGroup.DELETE("/:id", d.api.DeleteTemplate)
		templatesGroup.GET("/:id/render", d.api.RenderTemplate)
	}

	messagesGroup := v1.Group("/messages", sellers...)
	{
		messagesGroup.POST("", d.api.ComposeMessage)
		messagesGroup.GET("", d.api.ListMessages)
		messagesGroup.POST("/draft", d.api.DraftMessage)
		messagesGroup.POST("/:id/send", d.api.SendMessage)
	}

	recordingsGroup := v1.Group("/recordings", anyMember...)
	{
		recordingsGroup.GET("", d.api.ListRecordings)

		review := httpapi.RequireWorkspaceAndAnyRole(
			rbac.RoleManager, rbac.RoleOwner, rbac.RoleSuperAdmin,
		)
		recordingsGroup.POST("/:id/review", append(review, d.api.ReviewRecording)...)
		recordingsGroup.POST("/:id/notes", d.api.NoteRecording)
	}

	reportsGroup := v1.Group("/reports", httpapi.RequireWorkspaceAndAnyRole(
		rbac.RoleAnalyst, rbac.RoleManager, rbac.RoleOwner, rbac.RoleSuperAdmin,
	)...)
	{
		reportsGroup.GET("/calls", d.api.CallsReport)
		reportsGroup.GET("/activity", d.api.ActivityReport)
	}

	// Call session endpoints. The dialer screen and the floating overlay
	// consume the same session and the same event stream.
	voiceGroup := v1.Group("/voice", sellers...)
	{
		voiceGroup.GET("/session", d.voice.GetSession)
		voiceGroup.GET("/events", d.voice.StreamEvents)
		voiceGroup.POST("/token", d.voice.IssueToken)
		voiceGroup.POST("/dial", d.voice.Dial)
		voiceGroup.POST("/hangup", d.voice.Hangup)
		voiceGroup.POST("/mute", d.voice.MuteToggle)
		voiceGroup.POST("/digits", d.voice.SendDigit)
		voiceGroup.POST("/incoming/accept", d.voice.AcceptIncoming)
		voiceGroup.POST("/incoming/reject", d.voice.RejectIncoming)
		voiceGroup.POST("/error/clear", d.voice.ClearError)
	}
}
