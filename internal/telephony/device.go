package telephony

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"sales-crm/internal/config"
	"sales-crm/internal/voice"

	"github.com/golang-jwt/jwt/v5"
)

// tokenRefreshLead is how long before credential expiry the device asks its
// supervisor for a fresh token.
const tokenRefreshLead = time.Minute

// Options configure the Twilio adapter.
type Options struct {
	Config config.TwilioConfig
	// BaseURL overrides the Twilio API endpoint, for tests.
	BaseURL string
	// StatusCallbackURL is the public URL Twilio posts call progress to.
	// Without it outbound legs never report ringing/answered/completed.
	StatusCallbackURL string
	Log               *slog.Logger
}

// Hub tracks the process's current device so webhook handlers can route
// provider callbacks to it. The supervisor rebuilds devices over time; the
// hub always points at the live one.
type Hub struct {
	mu  sync.Mutex
	dev *TwilioDevice
}

func NewHub() *Hub { return &Hub{} }

func (h *Hub) set(d *TwilioDevice) {
	h.mu.Lock()
	h.dev = d
	h.mu.Unlock()
}

func (h *Hub) clear(d *TwilioDevice) {
	h.mu.Lock()
	if h.dev == d {
		h.dev = nil
	}
	h.mu.Unlock()
}

// Current returns the live device, or nil when none is registered.
func (h *Hub) Current() *TwilioDevice {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dev
}

// NewDeviceFactory builds the voice.DeviceFactory for the Twilio REST
// control plane. When telephony is not configured it reports
// voice.ErrSDKUnavailable so the session manager can degrade instead of
// failing.
func NewDeviceFactory(opts Options, hub *Hub) voice.DeviceFactory {
	return func(credential string, events voice.DeviceEvents) (voice.Device, error) {
		if !opts.Config.Configured() {
			return nil, voice.ErrSDKUnavailable
		}
		log := opts.Log
		if log == nil {
			log = slog.Default()
		}
		d := &TwilioDevice{
			log:      log.With("component", "telephony"),
			client:   newRESTClient(opts.Config.AccountSID, opts.Config.AuthToken, opts.BaseURL),
			cfg:      opts.Config,
			callback: opts.StatusCallbackURL,
			events:   events,
			hub:      hub,
			calls:    make(map[string]*twilioCall),
		}
		d.setCredential(credential)
		if hub != nil {
			hub.set(d)
		}
		return d, nil
	}
}

// TwilioDevice drives calls over the Twilio REST API. Media stays on the
// browser SDK leg; this side owns signaling, call control and the mapping
// from provider status callbacks to adapter events.
type TwilioDevice struct {
	log      *slog.Logger
	client   *restClient
	cfg      config.TwilioConfig
	callback string
	events   voice.DeviceEvents
	hub      *Hub

	mu         sync.Mutex
	credential string
	identity   string
	expiry     *time.Timer
	closed     bool
	calls      map[string]*twilioCall
}

type callResource struct {
	Sid    string `json:"sid"`
	Status string `json:"status"`
}

// Register validates the account credentials. The REST control plane has no
// persistent registration handshake, so a successful account fetch is the
// readiness signal.
func (d *TwilioDevice) Register(ctx context.Context) error {
	if err := d.client.get(ctx, ".json", nil); err != nil {
		d.reportFault(err)
		return fmt.Errorf("telephony: register: %w", err)
	}
	d.events.DeviceRegistered()
	return nil
}

// reportFault surfaces credential expiry as a device-level event. An expired
// access token is recoverable only through a device rebuild, so it cannot
// stay a per-call error.
func (d *TwilioDevice) reportFault(err error) {
	if !voice.IsTokenExpired(err) {
		return
	}
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if !closed {
		d.events.DeviceError(err)
	}
}

// UpdateToken hot-swaps the signaling credential without touching any
// active call.
func (d *TwilioDevice) UpdateToken(credential string) error {
	if credential == "" {
		return fmt.Errorf("telephony: empty credential")
	}
	d.setCredential(credential)
	return nil
}

func (d *TwilioDevice) setCredential(credential string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.credential = credential
	d.identity = tokenIdentity(credential)
	if d.expiry != nil {
		d.expiry.Stop()
		d.expiry = nil
	}
	if d.closed {
		return
	}
	if exp, ok := tokenExpiry(credential); ok {
		lead := time.Until(exp) - tokenRefreshLead
		if lead < time.Second {
			lead = time.Second
		}
		d.expiry = time.AfterFunc(lead, func() {
			d.mu.Lock()
			closed := d.closed
			d.mu.Unlock()
			if !closed {
				d.events.TokenWillExpire()
			}
		})
	}
}

// Connect starts an outbound leg to p.To. Call progress arrives via the
// status callback webhook, not the HTTP response.
func (d *TwilioDevice) Connect(ctx context.Context, p voice.ConnectParams, events voice.CallEvents) (voice.Call, error) {
	from := p.From
	if from == "" {
		from = d.cfg.CallerID
	}
	form := url.Values{}
	form.Set("To", p.To)
	form.Set("From", from)
	form.Set("ApplicationSid", d.cfg.TwiMLAppSID)
	if d.callback != "" {
		form.Set("StatusCallback", d.callback)
		form.Add("StatusCallbackEvent", "initiated")
		form.Add("StatusCallbackEvent", "ringing")
		form.Add("StatusCallbackEvent", "answered")
		form.Add("StatusCallbackEvent", "completed")
	}

	var res callResource
	if err := d.client.postForm(ctx, "/Calls.json", form, &res); err != nil {
		d.reportFault(err)
		return nil, err
	}

	call := &twilioCall{dev: d, sid: res.Sid, events: events}
	d.mu.Lock()
	d.calls[res.Sid] = call
	d.mu.Unlock()

	d.log.Info("outbound leg created", "call_sid", res.Sid, "to", p.To)
	return call, nil
}

// Destroy detaches the device from the hub and drops call tracking. In-flight
// webhook deliveries for old legs are silently ignored afterwards.
func (d *TwilioDevice) Destroy() {
	d.mu.Lock()
	d.closed = true
	if d.expiry != nil {
		d.expiry.Stop()
		d.expiry = nil
	}
	d.calls = make(map[string]*twilioCall)
	d.mu.Unlock()
	if d.hub != nil {
		d.hub.clear(d)
	}
}

// HandleIncoming registers an unanswered inbound leg and offers it to the
// session layer. It returns the TwiML that keeps the caller's leg ringing
// while the agent decides.
func (d *TwilioDevice) HandleIncoming(form InboundCallForm) (string, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return TwiMLReject()
	}

	inv := &twilioInvite{
		dev:        d,
		sid:        form.CallSID,
		from:       form.From,
		callerName: form.CallerName,
	}
	d.log.Info("inbound leg offered", "call_sid", form.CallSID, "from", form.From)
	d.events.IncomingCall(inv)
	return TwiMLHold(30)
}

// HandleStatusEvent maps a provider status callback onto the adapter event
// sink of the matching call. Unknown SIDs are ignored; they belong to legs
// from a destroyed device or a finished session.
func (d *TwilioDevice) HandleStatusEvent(ev StatusEvent) {
	d.mu.Lock()
	call := d.calls[ev.CallSID]
	if call != nil && terminalCallStatus(ev.Status) {
		delete(d.calls, ev.CallSID)
	}
	d.mu.Unlock()
	if call == nil {
		d.log.Debug("status event for unknown leg", "call_sid", ev.CallSID, "status", ev.Status)
		return
	}

	switch ev.Status {
	case "ringing":
		call.events.CallRinging()
	case "in-progress":
		call.events.CallAccepted()
	case "completed":
		call.events.CallDisconnected()
	case "busy":
		call.events.CallRejected()
	case "no-answer", "canceled":
		call.events.CallCanceled()
	case "failed":
		msg := ev.ErrorMessage
		if msg == "" {
			msg = "call failed"
		}
		call.events.CallError(&voice.DeviceError{Code: ev.ErrorCode, Message: msg})
	}
}

func terminalCallStatus(s string) bool {
	switch s {
	case "completed", "busy", "no-answer", "canceled", "failed":
		return true
	}
	return false
}

// twilioCall controls one live leg via call-resource updates.
type twilioCall struct {
	dev    *TwilioDevice
	sid    string
	events voice.CallEvents
}

func (c *twilioCall) update(form url.Values) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := c.dev.client.postForm(ctx, "/Calls/"+c.sid+".json", form, nil)
	c.dev.reportFault(err)
	return err
}

func (c *twilioCall) Disconnect() error {
	form := url.Values{}
	form.Set("Status", "completed")
	return c.update(form)
}

// Mute acknowledges the toggle. The microphone lives on the browser SDK leg,
// so the backend's job is to mirror the authoritative state back to the
// session manager.
func (c *twilioCall) Mute(muted bool) error {
	c.events.CallMuted(muted)
	return nil
}

func (c *twilioCall) SendDigits(digits string) error {
	twiml, err := TwiMLPlayDigits(digits)
	if err != nil {
		return err
	}
	form := url.Values{}
	form.Set("Twiml", twiml)
	return c.update(form)
}

// twilioInvite is an inbound leg parked on hold TwiML until the agent acts.
type twilioInvite struct {
	dev        *TwilioDevice
	sid        string
	from       string
	callerName string
}

func (i *twilioInvite) From() string       { return i.from }
func (i *twilioInvite) CallerName() string { return i.callerName }

// Accept bridges the parked leg to the agent's registered client.
func (i *twilioInvite) Accept(ctx context.Context, events voice.CallEvents) (voice.Call, error) {
	i.dev.mu.Lock()
	identity := i.dev.identity
	i.dev.mu.Unlock()

	twiml, err := TwiMLDialClient(identity, true)
	if err != nil {
		return nil, err
	}
	call := &twilioCall{dev: i.dev, sid: i.sid, events: events}

	i.dev.mu.Lock()
	i.dev.calls[i.sid] = call
	i.dev.mu.Unlock()

	form := url.Values{}
	form.Set("Twiml", twiml)
	if err := i.dev.client.postForm(ctx, "/Calls/"+i.sid+".json", form, nil); err != nil {
		i.dev.mu.Lock()
		delete(i.dev.calls, i.sid)
		i.dev.mu.Unlock()
		i.dev.reportFault(err)
		return nil, err
	}
	return call, nil
}

// Reject hangs up the parked leg. The Reject verb only works before answer,
// and the hold TwiML has already answered it.
func (i *twilioInvite) Reject() error {
	twiml, err := TwiMLHangup()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	form := url.Values{}
	form.Set("Twiml", twiml)
	return i.dev.client.postForm(ctx, "/Calls/"+i.sid+".json", form, nil)
}

// tokenExpiry reads the exp claim off an access token without verifying it.
// The adapter minted the token itself; it only needs the deadline.
func tokenExpiry(credential string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// tokenIdentity reads the voice grant identity off an access token.
func tokenIdentity(credential string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return ""
	}
	grants, ok := claims["grants"].(map[string]any)
	if !ok {
		return ""
	}
	id, _ := grants["identity"].(string)
	return id
}
