package telephony

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"sales-crm/internal/voice"
)

type deviceEventsRec struct {
	mu         sync.Mutex
	registered int
	invites    []voice.Invite
	errs       []error
	willExpire int
}

func (r *deviceEventsRec) DeviceRegistered() {
	r.mu.Lock()
	r.registered++
	r.mu.Unlock()
}

func (r *deviceEventsRec) DeviceError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *deviceEventsRec) IncomingCall(inv voice.Invite) {
	r.mu.Lock()
	r.invites = append(r.invites, inv)
	r.mu.Unlock()
}

func (r *deviceEventsRec) TokenWillExpire() {
	r.mu.Lock()
	r.willExpire++
	r.mu.Unlock()
}

type callEventsRec struct {
	mu     sync.Mutex
	events []string
}

func (r *callEventsRec) push(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *callEventsRec) CallRinging()         { r.push("ringing") }
func (r *callEventsRec) CallAccepted()        { r.push("accepted") }
func (r *callEventsRec) CallDisconnected()    { r.push("disconnected") }
func (r *callEventsRec) CallCanceled()        { r.push("canceled") }
func (r *callEventsRec) CallRejected()        { r.push("rejected") }
func (r *callEventsRec) CallError(err error)  { r.push("error:" + err.Error()) }
func (r *callEventsRec) CallMuted(muted bool) { r.push("muted") }

func (r *callEventsRec) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// twilioStub fakes the Calls resource and records every form posted to it.
type twilioStub struct {
	mu       sync.Mutex
	posts    []*http.Request
	forms    []url.Values
	failCode int
	failMsg  string
	srv      *httptest.Server
}

func newTwilioStub(t *testing.T) *twilioStub {
	t.Helper()
	s := &twilioStub{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_ = r.ParseForm()
			s.mu.Lock()
			s.posts = append(s.posts, r)
			s.forms = append(s.forms, r.PostForm)
			s.mu.Unlock()
		}
		s.mu.Lock()
		failCode, failMsg := s.failCode, s.failMsg
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if failCode != 0 {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprintf(w, `{"code":%d,"message":%q,"status":401}`, failCode, failMsg)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/Calls.json") {
			io.WriteString(w, `{"sid":"CAnew","status":"queued"}`)
			return
		}
		io.WriteString(w, `{}`)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *twilioStub) setFail(code int, msg string) {
	s.mu.Lock()
	s.failCode, s.failMsg = code, msg
	s.mu.Unlock()
}

func (s *twilioStub) lastForm(t *testing.T) url.Values {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.forms) == 0 {
		t.Fatal("no form posted")
	}
	return s.forms[len(s.forms)-1]
}

func newTestDevice(t *testing.T, stub *twilioStub) (*TwilioDevice, *deviceEventsRec, *Hub) {
	t.Helper()
	cfg := testTwilioConfig()
	hub := NewHub()
	factory := NewDeviceFactory(Options{
		Config:            cfg,
		BaseURL:           stub.srv.URL,
		StatusCallbackURL: "https://crm.example.com/webhooks/twilio/status",
		Log:               slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, hub)

	cred, err := NewAccessTokenProvider(cfg).FetchCredential(context.Background(), "agent-7")
	if err != nil {
		t.Fatalf("mint credential: %v", err)
	}
	events := &deviceEventsRec{}
	dev, err := factory(cred.Token, events)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	td, ok := dev.(*TwilioDevice)
	if !ok {
		t.Fatalf("factory returned %T", dev)
	}
	t.Cleanup(td.Destroy)
	return td, events, hub
}

func TestFactoryReportsSDKUnavailableWhenUnconfigured(t *testing.T) {
	factory := NewDeviceFactory(Options{}, NewHub())
	if _, err := factory("tok", &deviceEventsRec{}); err != voice.ErrSDKUnavailable {
		t.Fatalf("err = %v, want ErrSDKUnavailable", err)
	}
}

func TestRegisterEmitsDeviceRegistered(t *testing.T) {
	stub := newTwilioStub(t)
	dev, events, hub := newTestDevice(t, stub)

	if hub.Current() != dev {
		t.Fatal("hub does not track the new device")
	}
	if err := dev.Register(context.Background()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	events.mu.Lock()
	registered := events.registered
	events.mu.Unlock()
	if registered != 1 {
		t.Fatalf("registered = %d, want 1", registered)
	}
}

func TestExpiredCredentialSurfacesAsDeviceError(t *testing.T) {
	stub := newTwilioStub(t)
	dev, events, _ := newTestDevice(t, stub)

	stub.setFail(voice.CodeAccessTokenExpired, "Access Token expired")
	if err := dev.Register(context.Background()); err == nil {
		t.Fatal("expected register to fail")
	}
	events.mu.Lock()
	errs := append([]error(nil), events.errs...)
	events.mu.Unlock()
	if len(errs) != 1 || !voice.IsTokenExpired(errs[0]) {
		t.Fatalf("device errors = %v, want one token expiry", errs)
	}

	// Call control hits the same wall mid-session.
	stub.setFail(0, "")
	call, err := dev.Connect(context.Background(), voice.ConnectParams{To: "+15550002222"}, &callEventsRec{})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	stub.setFail(voice.CodeAccessTokenExpired, "Access Token expired")
	if err := call.Disconnect(); err == nil {
		t.Fatal("expected disconnect to fail")
	}
	events.mu.Lock()
	n := len(events.errs)
	events.mu.Unlock()
	if n != 2 {
		t.Fatalf("device errors = %d, want 2", n)
	}
}

func TestUnrelatedAPIErrorStaysOffTheDeviceChannel(t *testing.T) {
	stub := newTwilioStub(t)
	dev, events, _ := newTestDevice(t, stub)

	stub.setFail(20003, "Authentication Error")
	if _, err := dev.Connect(context.Background(), voice.ConnectParams{To: "+15550002222"}, &callEventsRec{}); err == nil {
		t.Fatal("expected connect to fail")
	}
	events.mu.Lock()
	n := len(events.errs)
	events.mu.Unlock()
	if n != 0 {
		t.Fatalf("device errors = %d, want none", n)
	}
}

func TestConnectCreatesLegAndRoutesStatusEvents(t *testing.T) {
	stub := newTwilioStub(t)
	dev, _, _ := newTestDevice(t, stub)

	rec := &callEventsRec{}
	call, err := dev.Connect(context.Background(), voice.ConnectParams{To: "+15550002222"}, rec)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	form := stub.lastForm(t)
	if form.Get("To") != "+15550002222" {
		t.Fatalf("To = %q", form.Get("To"))
	}
	if form.Get("From") != "+15550001111" {
		t.Fatalf("From = %q, want configured caller id", form.Get("From"))
	}
	if form.Get("ApplicationSid") == "" {
		t.Fatal("ApplicationSid not set")
	}
	if form.Get("StatusCallback") == "" {
		t.Fatal("StatusCallback not set")
	}

	dev.HandleStatusEvent(StatusEvent{CallSID: "CAnew", Status: "ringing"})
	dev.HandleStatusEvent(StatusEvent{CallSID: "CAnew", Status: "in-progress"})
	dev.HandleStatusEvent(StatusEvent{CallSID: "CAnew", Status: "completed"})
	// Terminal status drops the leg; a late duplicate is ignored.
	dev.HandleStatusEvent(StatusEvent{CallSID: "CAnew", Status: "completed"})

	got := rec.all()
	want := []string{"ringing", "accepted", "disconnected"}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}

	if err := call.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if form := stub.lastForm(t); form.Get("Status") != "completed" {
		t.Fatalf("hangup form = %v", form)
	}
}

func TestFailedStatusEmitsCallError(t *testing.T) {
	stub := newTwilioStub(t)
	dev, _, _ := newTestDevice(t, stub)

	rec := &callEventsRec{}
	if _, err := dev.Connect(context.Background(), voice.ConnectParams{To: "+15550002222"}, rec); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	dev.HandleStatusEvent(StatusEvent{CallSID: "CAnew", Status: "failed", ErrorCode: 13224, ErrorMessage: "invalid number"})

	got := rec.all()
	if len(got) != 1 || !strings.HasPrefix(got[0], "error:") {
		t.Fatalf("events = %v, want a single error", got)
	}
}

func TestMuteMirrorsStateThroughEvents(t *testing.T) {
	stub := newTwilioStub(t)
	dev, _, _ := newTestDevice(t, stub)

	rec := &callEventsRec{}
	call, err := dev.Connect(context.Background(), voice.ConnectParams{To: "+15550002222"}, rec)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := call.Mute(true); err != nil {
		t.Fatalf("Mute: %v", err)
	}
	got := rec.all()
	if len(got) != 1 || got[0] != "muted" {
		t.Fatalf("events = %v, want [muted]", got)
	}
}

func TestSendDigitsUpdatesLegWithPlayTwiML(t *testing.T) {
	stub := newTwilioStub(t)
	dev, _, _ := newTestDevice(t, stub)

	call, err := dev.Connect(context.Background(), voice.ConnectParams{To: "+15550002222"}, &callEventsRec{})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := call.SendDigits("5"); err != nil {
		t.Fatalf("SendDigits: %v", err)
	}
	form := stub.lastForm(t)
	if !strings.Contains(form.Get("Twiml"), `digits="5"`) {
		t.Fatalf("Twiml = %q", form.Get("Twiml"))
	}
}

func TestHandleIncomingOffersInviteAndParksLeg(t *testing.T) {
	stub := newTwilioStub(t)
	dev, events, _ := newTestDevice(t, stub)

	twiml, err := dev.HandleIncoming(InboundCallForm{CallSID: "CAin", From: "+15550003333", CallerName: "Dana"})
	if err != nil {
		t.Fatalf("HandleIncoming: %v", err)
	}
	if !strings.Contains(twiml, "<Pause") {
		t.Fatalf("expected hold twiml, got %q", twiml)
	}

	events.mu.Lock()
	invites := append([]voice.Invite(nil), events.invites...)
	events.mu.Unlock()
	if len(invites) != 1 {
		t.Fatalf("invites = %d, want 1", len(invites))
	}
	if invites[0].From() != "+15550003333" || invites[0].CallerName() != "Dana" {
		t.Fatalf("invite = %q/%q", invites[0].From(), invites[0].CallerName())
	}
}

func TestInviteAcceptBridgesToClientIdentity(t *testing.T) {
	stub := newTwilioStub(t)
	dev, events, _ := newTestDevice(t, stub)

	if _, err := dev.HandleIncoming(InboundCallForm{CallSID: "CAin", From: "+15550003333"}); err != nil {
		t.Fatalf("HandleIncoming: %v", err)
	}
	events.mu.Lock()
	inv := events.invites[0]
	events.mu.Unlock()

	rec := &callEventsRec{}
	if _, err := inv.Accept(context.Background(), rec); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	form := stub.lastForm(t)
	if !strings.Contains(form.Get("Twiml"), "<Client>agent-7</Client>") {
		t.Fatalf("Twiml = %q", form.Get("Twiml"))
	}

	// The bridged leg now receives status events.
	dev.HandleStatusEvent(StatusEvent{CallSID: "CAin", Status: "in-progress"})
	got := rec.all()
	if len(got) != 1 || got[0] != "accepted" {
		t.Fatalf("events = %v", got)
	}
}

func TestInviteRejectHangsUpParkedLeg(t *testing.T) {
	stub := newTwilioStub(t)
	dev, events, _ := newTestDevice(t, stub)

	if _, err := dev.HandleIncoming(InboundCallForm{CallSID: "CAin", From: "+15550003333"}); err != nil {
		t.Fatalf("HandleIncoming: %v", err)
	}
	events.mu.Lock()
	inv := events.invites[0]
	events.mu.Unlock()

	if err := inv.Reject(); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	form := stub.lastForm(t)
	if !strings.Contains(form.Get("Twiml"), "<Hangup>") {
		t.Fatalf("Twiml = %q", form.Get("Twiml"))
	}
}

func TestDestroyDetachesDeviceFromHub(t *testing.T) {
	stub := newTwilioStub(t)
	dev, _, hub := newTestDevice(t, stub)

	dev.Destroy()
	if hub.Current() != nil {
		t.Fatal("hub still holds destroyed device")
	}
	twiml, err := dev.HandleIncoming(InboundCallForm{CallSID: "CAin", From: "+15550003333"})
	if err != nil {
		t.Fatalf("HandleIncoming after destroy: %v", err)
	}
	if !strings.Contains(twiml, "<Reject") {
		t.Fatalf("expected reject twiml, got %q", twiml)
	}
}

func TestTokenExpiryHelpers(t *testing.T) {
	cfg := testTwilioConfig()
	cred, err := NewAccessTokenProvider(cfg).FetchCredential(context.Background(), "agent-7")
	if err != nil {
		t.Fatalf("mint credential: %v", err)
	}
	exp, ok := tokenExpiry(cred.Token)
	if !ok {
		t.Fatal("tokenExpiry failed")
	}
	if until := time.Until(exp); until <= 0 || until > cfg.VoiceTokenTTL+time.Minute {
		t.Fatalf("expiry %v out of range", until)
	}
	if id := tokenIdentity(cred.Token); id != "agent-7" {
		t.Fatalf("identity = %q", id)
	}
	if _, ok := tokenExpiry("not-a-jwt"); ok {
		t.Fatal("tokenExpiry accepted garbage")
	}
}
