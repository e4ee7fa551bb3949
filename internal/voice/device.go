package voice

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const defaultRebuildBackoff = 2 * time.Second

// Supervisor keeps exactly one registered signaling device alive for the
// application's lifetime and recovers from credential expiry.
//
// Recovery policy:
//   - tokenWillExpire: fetch a fresh credential and hot-swap it into the live
//     device. Must not disturb an active call.
//   - access-token-expired device error: the current device instance is
//     unrecoverable. Destroy it, wait a short fixed backoff, rebuild from a
//     fresh credential and register again. A call active at that moment is
//     lost; the session is dropped with an error the UI can show.
//   - SDK unavailable: stay up in a no-audio mode instead of failing startup.
type Supervisor struct {
	log      *slog.Logger
	mgr      *Manager
	tokens   TokenProvider
	factory  DeviceFactory
	identity string

	backoff time.Duration

	mu     sync.Mutex
	ctx    context.Context
	device Device
	gen    int
}

func NewSupervisor(log *slog.Logger, mgr *Manager, tokens TokenProvider, factory DeviceFactory, identity string) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	return &Supervisor{
		log:      log.With("component", "voice.device"),
		mgr:      mgr,
		tokens:   tokens,
		factory:  factory,
		identity: identity,
		backoff:  defaultRebuildBackoff,
	}
}

// Start performs the initial registration in the background. A credential or
// registration failure leaves the device unregistered rather than crashing
// the application; the CRM stays usable without telephony.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	go func() {
		if err := s.register(ctx); err != nil {
			s.log.Warn("initial device registration failed", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		s.shutdown()
	}()
}

func (s *Supervisor) register(ctx context.Context) error {
	s.mgr.SetDeviceState(DeviceRegistering)

	cred, err := s.tokens.FetchCredential(ctx, s.identity)
	if err != nil {
		s.mgr.SetDeviceState(DeviceUnregistered)
		return err
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	dev, err := s.factory(cred.Token, &deviceSink{s: s, gen: gen})
	if err != nil {
		if errors.Is(err, ErrSDKUnavailable) {
			s.log.Warn("signaling sdk unavailable, entering no-audio mode")
			s.mgr.SetSDKAvailable(false)
			s.mgr.SetDeviceState(DeviceUnregistered)
			return nil
		}
		s.mgr.SetDeviceState(DeviceFaulted)
		return err
	}

	s.mu.Lock()
	s.device = dev
	s.mu.Unlock()
	s.mgr.SetDevice(dev)

	if err := dev.Register(ctx); err != nil {
		s.mgr.SetDeviceState(DeviceFaulted)
		return err
	}
	// The registered state is applied when the adapter confirms it via the
	// DeviceRegistered event, not optimistically here.
	return nil
}

func (s *Supervisor) shutdown() {
	s.mu.Lock()
	dev := s.device
	s.device = nil
	s.gen++ // invalidate outstanding sinks
	s.mu.Unlock()

	s.mgr.SetDevice(nil)
	s.mgr.SetDeviceState(DeviceUnregistered)
	if dev != nil {
		dev.Destroy()
	}
}

// refreshToken hot-swaps a fresh credential into the live device.
func (s *Supervisor) refreshToken(gen int) {
	s.mu.Lock()
	ctx := s.ctx
	dev := s.device
	current := s.gen
	s.mu.Unlock()

	if dev == nil || gen != current || ctx == nil {
		return
	}

	cred, err := s.tokens.FetchCredential(ctx, s.identity)
	if err != nil {
		// The device keeps running on the old credential until it expires;
		// the expiry error path will rebuild it.
		s.log.Warn("credential refresh failed", "err", err)
		return
	}
	if err := dev.UpdateToken(cred.Token); err != nil {
		s.log.Warn("token hot-swap failed", "err", err)
		return
	}
	s.log.Info("signaling credential refreshed")
}

// rebuild discards the current device instance and constructs a new one
// after a fixed backoff.
func (s *Supervisor) rebuild(gen int) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	dev := s.device
	s.device = nil
	s.gen++ // anything the old device emits from here on is ignored
	s.mu.Unlock()

	s.mgr.DropSession("voice access token expired, reconnecting")
	s.mgr.SetDevice(nil)
	s.mgr.SetDeviceState(DeviceRegistering)

	if dev != nil {
		dev.Destroy()
	}
	if ctx == nil {
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(s.backoff):
	}

	if err := s.register(ctx); err != nil {
		s.log.Error("device rebuild failed", "err", err)
	}
}

// deviceSink routes device events from one device generation. Events from a
// destroyed instance are dropped.
type deviceSink struct {
	s   *Supervisor
	gen int
}

func (d *deviceSink) live() bool {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	return d.gen == d.s.gen
}

func (d *deviceSink) DeviceRegistered() {
	if !d.live() {
		return
	}
	d.s.log.Info("signaling device registered", "identity", d.s.identity)
	d.s.mgr.SetDeviceState(DeviceRegistered)
}

func (d *deviceSink) DeviceError(err error) {
	if !d.live() {
		return
	}
	if IsTokenExpired(err) {
		d.s.log.Warn("access token expired, rebuilding device")
		go d.s.rebuild(d.gen)
		return
	}
	d.s.log.Error("signaling device error", "err", err)
	d.s.mgr.SetDeviceState(DeviceFaulted)
}

func (d *deviceSink) IncomingCall(inv Invite) {
	if !d.live() {
		return
	}
	d.s.mgr.HandleIncoming(inv)
}

func (d *deviceSink) TokenWillExpire() {
	if !d.live() {
		return
	}
	go d.s.refreshToken(d.gen)
}
