package voice

// Status is the single authoritative lifecycle state of the call session.
// Every command and every adapter event checks it before applying; in-flight
// async completions must re-check it so a stale result cannot resurrect a
// session the user already ended.
type Status string

const (
	// StatusIdle means no active call and no usable signaling device.
	StatusIdle Status = "idle"
	// StatusInitializing means the signaling device is registering.
	StatusInitializing Status = "initializing"
	// StatusReady means no active call and the device can place one.
	StatusReady Status = "ready"
	// StatusCalling means an outbound connect has been issued.
	StatusCalling Status = "calling"
	// StatusRinging means the far end is being alerted (outbound ringback,
	// or an inbound invite that was just accepted).
	StatusRinging Status = "ringing"
	// StatusConnected means media is up; the duration counter runs.
	StatusConnected Status = "connected"
	// StatusDisconnecting means a local hangup was issued and the adapter
	// has not yet confirmed the disconnect.
	StatusDisconnecting Status = "disconnecting"
)

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusIdle:          {StatusInitializing, StatusReady, StatusCalling, StatusRinging},
	StatusInitializing:  {StatusReady, StatusIdle},
	StatusReady:         {StatusCalling, StatusRinging, StatusInitializing, StatusIdle},
	StatusCalling:       {StatusRinging, StatusConnected, StatusDisconnecting, StatusIdle, StatusReady},
	StatusRinging:       {StatusConnected, StatusDisconnecting, StatusIdle, StatusReady},
	StatusConnected:     {StatusDisconnecting, StatusIdle, StatusReady},
	StatusDisconnecting: {StatusIdle, StatusReady},
}

// CanTransitionTo checks if a transition from the current status is valid.
func (s Status) CanTransitionTo(next Status) bool {
	allowed, ok := validTransitions[s]
	if !ok {
		return false
	}
	for _, st := range allowed {
		if st == next {
			return true
		}
	}
	return false
}

// IsActive reports whether a call session exists in this status.
// Peer is set if and only if the status is active.
func (s Status) IsActive() bool {
	switch s {
	case StatusCalling, StatusRinging, StatusConnected, StatusDisconnecting:
		return true
	default:
		return false
	}
}

func (s Status) String() string { return string(s) }

// Direction records who originated the session.
type Direction string

const (
	DirectionNone     Direction = "none"
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// DeviceState is the signaling device lifecycle, independent from the call
// session. It gates whether a dial gets real audio transport.
type DeviceState string

const (
	DeviceUnregistered DeviceState = "unregistered"
	DeviceRegistering  DeviceState = "registering"
	DeviceRegistered   DeviceState = "registered"
	DeviceFaulted      DeviceState = "faulted"
)
