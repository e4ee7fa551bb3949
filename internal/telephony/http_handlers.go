package telephony

import (
	"context"
	"net/http"

	"sales-crm/internal/config"
	"sales-crm/pkg/logger"

	"github.com/gin-gonic/gin"
)

// RecordingSink receives finished recording callbacks.
type RecordingSink interface {
	AttachRecording(ctx context.Context, ev RecordingEvent) error
}

// WebhookHandlers serves the provider-facing callback endpoints. These are
// unauthenticated at the JWT layer; request signatures are the auth.
type WebhookHandlers struct {
	Cfg        config.TwilioConfig
	Hub        *Hub
	Recordings RecordingSink
}

// verify checks the provider signature on a webhook request. The signature
// covers the full public URL, so proxies must preserve Host and scheme.
func (h *WebhookHandlers) verify(c *gin.Context) bool {
	if err := c.Request.ParseForm(); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return false
	}
	secret := h.Cfg.WebhookSecret
	if secret == "" {
		secret = h.Cfg.AuthToken
	}
	scheme := "https"
	if c.Request.TLS == nil && c.GetHeader("X-Forwarded-Proto") != "https" {
		scheme = "http"
	}
	fullURL := scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()
	sig := c.GetHeader("X-Twilio-Signature")
	if !ValidateSignature(secret, fullURL, c.Request.PostForm, sig) {
		logger.FromGin(c).Warn("webhook signature rejected", "path", c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
		return false
	}
	return true
}

// InboundVoice handles a new inbound leg. The response TwiML parks the
// caller while the agent decides; if no device is live the call is declined.
func (h *WebhookHandlers) InboundVoice(c *gin.Context) {
	if !h.verify(c) {
		return
	}
	form, err := ParseInboundCall(c.Request.PostForm)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dev := h.Hub.Current()
	var twiml string
	if dev == nil {
		twiml, err = TwiMLReject()
	} else {
		twiml, err = dev.HandleIncoming(form)
	}
	if err != nil {
		logger.FromGin(c).Error("inbound twiml render failed", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, "text/xml", []byte(twiml))
}

// CallStatus handles call progress callbacks.
func (h *WebhookHandlers) CallStatus(c *gin.Context) {
	if !h.verify(c) {
		return
	}
	ev, err := ParseStatusEvent(c.Request.PostForm)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if dev := h.Hub.Current(); dev != nil {
		dev.HandleStatusEvent(ev)
	}
	c.Status(http.StatusNoContent)
}

// RecordingStatus handles finished-recording callbacks and attaches the
// artifact to the owning call.
func (h *WebhookHandlers) RecordingStatus(c *gin.Context) {
	if !h.verify(c) {
		return
	}
	ev, err := ParseRecordingEvent(c.Request.PostForm)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if ev.Status != "" && ev.Status != "completed" {
		c.Status(http.StatusNoContent)
		return
	}
	if h.Recordings != nil {
		if err := h.Recordings.AttachRecording(c.Request.Context(), ev); err != nil {
			logger.FromGin(c).Error("attach recording failed", "call_sid", ev.CallSID, "error", err)
		}
	}
	c.Status(http.StatusNoContent)
}
