package voice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

var (
	// ErrLineBusy is returned when a command needs a free line but a session
	// is already active.
	ErrLineBusy = errors.New("voice: line busy")
	// ErrNoIncoming is returned when accept/reject is issued without a
	// pending invitation.
	ErrNoIncoming = errors.New("voice: no pending incoming call")
	// ErrInvalidNumber is returned for an empty or malformed dial target.
	ErrInvalidNumber = errors.New("voice: invalid number")
)

// connectRequestTimeout bounds the adapter's connect/accept request itself,
// not how long a placed call may ring. A session that is still ringing past
// it keeps ringing; only a signaling request that never returns is cut off.
const connectRequestTimeout = 30 * time.Second

// Manager owns the one logical call session for the whole process. It is the
// only component allowed to mutate session state: consumers read snapshots
// and invoke commands, the signaling adapter feeds events, and everything is
// funneled through one mutex so two screens can never independently end or
// reinitialize the same call.
//
// The manager is injected at application root and handed to every consumer;
// it survives arbitrarily across screens because nothing here is scoped to a
// request.
type Manager struct {
	mu sync.Mutex

	log *slog.Logger

	session  CallSession
	pending  Invite
	pendInfo *Incoming

	deviceState  DeviceState
	sdkAvailable bool

	device Device
	call   Call

	// epoch advances on every terminal reset. Async completions and call
	// events carry the epoch they were issued under, so anything that
	// finishes after the session ended is discarded instead of applied.
	epoch uint64

	// tickStop is non-nil exactly while the duration ticker runs.
	tickStop  chan struct{}
	tickEvery time.Duration

	calls CallLogger
	clock func() time.Time

	subs    map[uint64]chan Snapshot
	nextSub uint64
}

func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		log:          log.With("component", "voice"),
		session:      CallSession{Status: StatusIdle, Direction: DirectionNone},
		deviceState:  DeviceUnregistered,
		sdkAvailable: true,
		tickEvery:    time.Second,
		clock:        time.Now,
		subs:         map[uint64]chan Snapshot{},
	}
}

// SetCallLogger attaches a call log sink. Optional.
func (m *Manager) SetCallLogger(cl CallLogger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = cl
}

/* ===================== CONSUMER SURFACE ===================== */

// Snapshot returns a copy of the current state. Safe from any goroutine.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers a listener that receives a snapshot after every
// transition. The returned cancel must be called when the consumer goes
// away; the manager itself is never torn down on navigation.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan Snapshot, 8)
	m.subs[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Dial starts an outbound session. Allowed only when no session is active.
func (m *Manager) Dial(ctx context.Context, to, from, displayName string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return ErrInvalidNumber
	}

	m.mu.Lock()
	switch m.session.Status {
	case StatusIdle, StatusReady:
	default:
		m.mu.Unlock()
		return ErrLineBusy
	}

	m.session.Peer = Peer{ToNumber: to, FromNumber: from, DisplayName: displayName}
	m.session.Direction = DirectionOutbound
	m.session.LastError = ""
	m.transitionLocked(StatusCalling)

	dev := m.device
	e := m.epoch

	if dev == nil {
		// Signaling-unavailable mode: the session still walks the normal
		// lifecycle so the application is not blocked, but there is no
		// audio path. The UI warns via voice_sdk_available=false.
		m.applyConnectedLocked()
		m.mu.Unlock()
		return nil
	}
	m.notifyLocked()
	m.mu.Unlock()

	go func() {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), connectRequestTimeout)
		defer cancel()
		call, err := dev.Connect(cctx, ConnectParams{To: to, From: from}, callSink{m: m, epoch: e})
		m.connectIssued(e, call, err)
	}()
	return nil
}

// Hangup ends the active session. Fire-and-forget: the terminal transition
// happens on the adapter's own disconnect event, never optimistically. A
// hangup mid-connect is still forwarded to the adapter's disconnect path.
func (m *Manager) Hangup() {
	m.mu.Lock()
	switch m.session.Status {
	case StatusCalling, StatusRinging, StatusConnected:
	default:
		m.mu.Unlock()
		return
	}

	m.transitionLocked(StatusDisconnecting)
	call := m.call
	degraded := m.device == nil && call == nil

	if degraded {
		// No adapter to confirm anything; settle immediately.
		m.terminalResetLocked("", OutcomeCompleted)
		m.mu.Unlock()
		return
	}
	m.notifyLocked()
	m.mu.Unlock()

	if call != nil {
		go func() {
			if err := call.Disconnect(); err != nil {
				m.log.Warn("hangup disconnect failed", "err", err)
			}
		}()
	}
	// If the connect is still in flight, connectIssued sees the
	// disconnecting status and tears the late call down there.
}

// MuteToggle flips mute optimistically. The adapter's own mute event is the
// source of truth and overwrites the optimistic value on conflict. A no-op
// outside the connected state.
func (m *Manager) MuteToggle() {
	m.mu.Lock()
	if m.session.Status != StatusConnected {
		m.mu.Unlock()
		return
	}
	want := !m.session.IsMuted
	m.session.IsMuted = want
	call := m.call
	m.notifyLocked()
	m.mu.Unlock()

	if call == nil {
		return
	}
	// Forwarded on the caller's goroutine: a pair of rapid toggles must
	// reach the adapter in the order they happened.
	if err := call.Mute(want); err != nil {
		m.log.Warn("mute request failed", "muted", want, "err", err)
	}
}

// SendDigit sends one DTMF digit. A no-op outside the connected state.
// Digits are forwarded on the caller's goroutine so an IVR sequence reaches
// the adapter in the order it was typed.
func (m *Manager) SendDigit(d string) {
	if !validDigit(d) {
		return
	}
	m.mu.Lock()
	if m.session.Status != StatusConnected {
		m.mu.Unlock()
		return
	}
	call := m.call
	m.mu.Unlock()

	if call == nil {
		return
	}
	if err := call.SendDigits(d); err != nil {
		m.log.Warn("send digits failed", "err", err)
	}
}

// AcceptIncoming promotes the pending invitation to a full session. The
// design is sequential, not concurrent: if a session is still active the
// current one must fully end first.
func (m *Manager) AcceptIncoming(ctx context.Context) error {
	m.mu.Lock()
	if m.pending == nil {
		m.mu.Unlock()
		return ErrNoIncoming
	}
	if m.session.Status.IsActive() {
		m.mu.Unlock()
		return ErrLineBusy
	}

	inv := m.pending
	m.pending = nil
	info := m.pendInfo
	m.pendInfo = nil

	m.session.Peer = Peer{FromNumber: info.From, DisplayName: info.CallerName}
	m.session.Direction = DirectionInbound
	m.session.LastError = ""
	m.transitionLocked(StatusRinging)
	e := m.epoch
	m.notifyLocked()
	m.mu.Unlock()

	go func() {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), connectRequestTimeout)
		defer cancel()
		call, err := inv.Accept(actx, callSink{m: m, epoch: e})
		m.connectIssued(e, call, err)
	}()
	return nil
}

// RejectIncoming discards the pending invitation. It performs a
// provider-level reject and touches no session fields.
func (m *Manager) RejectIncoming() error {
	m.mu.Lock()
	if m.pending == nil {
		m.mu.Unlock()
		return ErrNoIncoming
	}
	inv := m.pending
	m.pending = nil
	m.pendInfo = nil
	m.notifyLocked()
	m.mu.Unlock()

	go func() {
		if err := inv.Reject(); err != nil {
			m.log.Warn("reject incoming failed", "err", err)
		}
	}()
	return nil
}

// ClearError clears the last surfaced error message.
func (m *Manager) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.LastError == "" {
		return
	}
	m.session.LastError = ""
	m.notifyLocked()
}

/* ===================== DEVICE SIDE (Supervisor) ===================== */

// SetDevice installs or clears the adapter device. Called by the Supervisor
// only; the device object itself is created once and outlives every screen.
func (m *Manager) SetDevice(dev Device) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.device = dev
}

// SetDeviceState records the signaling device lifecycle and, while no call
// is active, keeps the no-call status (idle/initializing/ready) in line.
func (m *Manager) SetDeviceState(ds DeviceState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deviceState == ds {
		return
	}
	m.deviceState = ds
	if !m.session.Status.IsActive() {
		m.transitionLocked(m.inactiveStatusLocked())
	}
	m.notifyLocked()
}

// SetSDKAvailable flags whether real audio transport exists. With the SDK
// unavailable the session still reaches ready/connected for UI purposes.
func (m *Manager) SetSDKAvailable(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sdkAvailable == ok {
		return
	}
	m.sdkAvailable = ok
	if !m.session.Status.IsActive() {
		m.transitionLocked(m.inactiveStatusLocked())
	}
	m.notifyLocked()
}

// DropSession force-terminates any active session, surfacing reason via the
// error field. Used when a device fault (expired token) kills the transport
// under a live call; the reference design accepts that the call is lost.
func (m *Manager) DropSession(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.session.Status.IsActive() {
		return
	}
	m.terminalResetLocked(reason, OutcomeFailed)
}

// HandleIncoming surfaces an unsolicited inbound invitation. The active
// session, if any, is left untouched; with an invitation already pending the
// new one is rejected (first offer wins).
func (m *Manager) HandleIncoming(inv Invite) {
	m.mu.Lock()
	if m.pending != nil {
		m.mu.Unlock()
		m.log.Info("incoming call while one already pending, rejecting", "from", inv.From())
		go func() { _ = inv.Reject() }()
		return
	}
	m.pending = inv
	m.pendInfo = &Incoming{From: inv.From(), CallerName: inv.CallerName()}
	m.log.Info("incoming call", "from", m.pendInfo.From)
	m.notifyLocked()
	m.mu.Unlock()
}

/* ===================== EVENT APPLICATION ===================== */

// callSink binds adapter call events to the manager under a fixed epoch, so
// events from an already-ended session are discarded.
type callSink struct {
	m     *Manager
	epoch uint64
}

func (s callSink) CallRinging() {
	s.m.withEpoch(s.epoch, func() {
		if s.m.session.Status == StatusCalling {
			s.m.transitionLocked(StatusRinging)
			s.m.notifyLocked()
		}
	})
}

func (s callSink) CallAccepted() {
	s.m.withEpoch(s.epoch, func() {
		switch s.m.session.Status {
		case StatusCalling, StatusRinging:
			s.m.applyConnectedLocked()
		}
	})
}

func (s callSink) CallDisconnected() {
	s.m.withEpoch(s.epoch, func() { s.m.terminalResetLocked("", OutcomeCompleted) })
}

func (s callSink) CallCanceled() {
	s.m.withEpoch(s.epoch, func() { s.m.terminalResetLocked("", OutcomeCanceled) })
}

func (s callSink) CallRejected() {
	s.m.withEpoch(s.epoch, func() { s.m.terminalResetLocked("call was rejected", OutcomeRejected) })
}

func (s callSink) CallError(err error) {
	s.m.withEpoch(s.epoch, func() { s.m.terminalResetLocked(err.Error(), OutcomeFailed) })
}

func (s callSink) CallMuted(muted bool) {
	s.m.withEpoch(s.epoch, func() {
		if s.m.session.Status != StatusConnected {
			return
		}
		if s.m.session.IsMuted != muted {
			s.m.session.IsMuted = muted
			s.m.notifyLocked()
		}
	})
}

// withEpoch runs fn under the lock only if the session that produced the
// event still exists.
func (m *Manager) withEpoch(e uint64, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e != m.epoch {
		return
	}
	fn()
}

// connectIssued receives the result of an async Connect/Accept. The status
// field is the one source of truth: a completion that lands after the user
// already hung up tears the late call down instead of resurrecting it.
func (m *Manager) connectIssued(e uint64, call Call, err error) {
	m.mu.Lock()

	stale := e != m.epoch
	hungUp := m.session.Status == StatusDisconnecting
	if stale || hungUp {
		if call == nil || err != nil {
			// The connect never produced a usable call, so no adapter
			// event will ever arrive to finish the hangup. Settle here.
			if hungUp && !stale {
				m.terminalResetLocked("", OutcomeCanceled)
			}
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()
		if derr := call.Disconnect(); derr != nil {
			m.log.Warn("late call teardown failed", "err", derr)
		}
		return
	}

	if err != nil {
		m.terminalResetLocked("connect failed: "+err.Error(), OutcomeFailed)
		m.mu.Unlock()
		return
	}
	m.call = call
	m.mu.Unlock()
}

/* ===================== INTERNAL TRANSITIONS ===================== */

func (m *Manager) transitionLocked(next Status) {
	cur := m.session.Status
	if cur == next {
		return
	}
	if !cur.CanTransitionTo(next) {
		m.log.Warn("illegal status transition ignored", "from", cur, "to", next)
		return
	}
	m.session.Status = next
	m.log.Debug("status", "from", cur, "to", next)
}

func (m *Manager) applyConnectedLocked() {
	m.transitionLocked(StatusConnected)
	if m.session.Status != StatusConnected {
		return
	}
	m.session.StartedAt = m.clock().UTC()
	m.session.DurationSeconds = 0
	m.session.IsMuted = false
	m.session.IsRecording = m.sdkAvailable
	m.session.LastError = ""
	m.startTickerLocked()
	m.notifyLocked()
}

// terminalResetLocked destroys the session. Idempotent: a second terminal
// event for the same logical call finds no active session and does nothing,
// so duplicated cancel+disconnect pairs cause exactly one reset.
func (m *Manager) terminalResetLocked(errMsg, outcome string) {
	if !m.session.Status.IsActive() {
		if errMsg != "" && m.session.LastError == "" {
			m.session.LastError = errMsg
			m.notifyLocked()
		}
		return
	}

	m.logCallLocked(outcome)

	m.stopTickerLocked()
	m.epoch++
	m.call = nil

	m.session.Peer = Peer{}
	m.session.Direction = DirectionNone
	m.session.StartedAt = time.Time{}
	m.session.DurationSeconds = 0
	m.session.IsMuted = false
	m.session.IsRecording = false
	if errMsg != "" {
		m.session.LastError = errMsg
	}
	m.transitionLocked(m.inactiveStatusLocked())
	m.notifyLocked()
}

// inactiveStatusLocked picks the no-call status. Idle and ready differ only
// by whether real signaling is usable; the degraded no-SDK mode reports
// ready so the rest of the CRM is not blocked.
func (m *Manager) inactiveStatusLocked() Status {
	if !m.sdkAvailable {
		return StatusReady
	}
	switch m.deviceState {
	case DeviceRegistered:
		return StatusReady
	case DeviceRegistering:
		return StatusInitializing
	default:
		return StatusIdle
	}
}

func (m *Manager) logCallLocked(outcome string) {
	if m.calls == nil || m.session.Direction == DirectionNone {
		return
	}
	rec := CallRecord{
		Direction:       m.session.Direction,
		To:              m.session.Peer.ToNumber,
		From:            m.session.Peer.FromNumber,
		DisplayName:     m.session.Peer.DisplayName,
		StartedAt:       m.session.StartedAt,
		EndedAt:         m.clock().UTC(),
		DurationSeconds: m.session.DurationSeconds,
		Outcome:         outcome,
	}
	cl := m.calls
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		cl.LogCall(ctx, rec)
	}()
}

/* ===================== DURATION TICKER ===================== */

// startTickerLocked starts the 1-second duration ticker exactly once per
// connected session. Re-entering connected with a ticker already running is
// a guarded no-op, never a second ticker.
func (m *Manager) startTickerLocked() {
	if m.tickStop != nil {
		return
	}
	stop := make(chan struct{})
	m.tickStop = stop
	e := m.epoch

	go func() {
		t := time.NewTicker(m.tickEvery)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				m.tickOnce(e)
			}
		}
	}()
}

func (m *Manager) stopTickerLocked() {
	if m.tickStop == nil {
		return
	}
	close(m.tickStop)
	m.tickStop = nil
}

// tickOnce advances the duration counter strictly while connected.
func (m *Manager) tickOnce(e uint64) {
	m.withEpoch(e, func() {
		if m.session.Status != StatusConnected {
			return
		}
		m.session.DurationSeconds++
		m.notifyLocked()
	})
}

/* ===================== SNAPSHOTS ===================== */

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{
		Status:            m.session.Status,
		Direction:         m.session.Direction,
		DurationSeconds:   m.session.DurationSeconds,
		IsMuted:           m.session.IsMuted,
		IsRecording:       m.session.IsRecording,
		LastError:         m.session.LastError,
		DeviceState:       m.deviceState,
		DeviceReady:       m.deviceState == DeviceRegistered,
		VoiceSDKAvailable: m.sdkAvailable,
	}
	if m.session.Status.IsActive() {
		p := m.session.Peer
		s.Peer = &p
	}
	if !m.session.StartedAt.IsZero() {
		t := m.session.StartedAt
		s.StartedAt = &t
	}
	if m.pendInfo != nil {
		pi := *m.pendInfo
		s.PendingIncoming = &pi
	}
	return s
}

// notifyLocked pushes the current snapshot to every subscriber. Slow
// consumers are skipped rather than blocking the state machine; the UI can
// always re-read the snapshot.
func (m *Manager) notifyLocked() {
	snap := m.snapshotLocked()
	for _, ch := range m.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func validDigit(d string) bool {
	if len(d) != 1 {
		return false
	}
	switch d[0] {
	case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9', '*', '#', 'w':
		return true
	default:
		return false
	}
}
