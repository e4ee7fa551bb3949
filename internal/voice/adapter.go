package voice

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrSDKUnavailable is returned by a DeviceFactory when the signaling SDK
// cannot be used at all (telephony not configured, offline environment).
// The session manager then degrades to a no-audio mode instead of blocking
// the rest of the application.
var ErrSDKUnavailable = errors.New("voice: signaling sdk unavailable")

// CodeAccessTokenExpired is the provider error code for an expired signaling
// credential. It is the one device-level fault that forces a full device
// rebuild rather than a session-level error.
const CodeAccessTokenExpired = 20104

// DeviceError is an adapter-level fault with the provider's error code.
type DeviceError struct {
	Code    int
	Message string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("voice device error %d: %s", e.Code, e.Message)
}

// IsTokenExpired classifies err as a signaling-credential expiry fault.
func IsTokenExpired(err error) bool {
	var de *DeviceError
	return errors.As(err, &de) && de.Code == CodeAccessTokenExpired
}

// Credential is a short-lived signaling token minted for a local identity.
type Credential struct {
	Token     string
	Identity  string
	ExpiresAt time.Time
}

// TokenProvider exchanges an identity for a signaling credential.
type TokenProvider interface {
	FetchCredential(ctx context.Context, identity string) (Credential, error)
}

// ConnectParams are the outbound dial parameters handed to the adapter.
type ConnectParams struct {
	To   string
	From string
}

// Device is the vendor signaling endpoint. Exactly one registered device is
// kept alive for the process lifetime by the Supervisor; it deliberately
// outlives any single consumer.
type Device interface {
	Register(ctx context.Context) error
	UpdateToken(credential string) error
	Connect(ctx context.Context, p ConnectParams, events CallEvents) (Call, error)
	Destroy()
}

// Call is the adapter's handle for one active call leg.
type Call interface {
	Disconnect() error
	Mute(muted bool) error
	SendDigits(digits string) error
}

// Invite is an unanswered inbound call offered by the adapter. It must not
// touch the active session until explicitly accepted or rejected.
type Invite interface {
	From() string
	CallerName() string
	Accept(ctx context.Context, events CallEvents) (Call, error)
	Reject() error
}

// DeviceEvents is the sink for device-level adapter events.
type DeviceEvents interface {
	DeviceRegistered()
	DeviceError(err error)
	IncomingCall(inv Invite)
	TokenWillExpire()
}

// CallEvents is the sink for per-call adapter events. Events for one call are
// assumed to arrive in emission order, but terminal events may be duplicated
// (cancel then disconnect); the manager's reset is idempotent for that reason.
type CallEvents interface {
	CallRinging()
	CallAccepted()
	CallDisconnected()
	CallCanceled()
	CallRejected()
	CallError(err error)
	CallMuted(muted bool)
}

// DeviceFactory constructs a device from a fresh credential. The factory is
// injected so tests and the degraded mode can substitute the real SDK.
type DeviceFactory func(credential string, events DeviceEvents) (Device, error)

// CallLogger persists a record of each finished session. Logging is
// best-effort; failures must never affect the state machine.
type CallLogger interface {
	LogCall(ctx context.Context, rec CallRecord)
}
