package voice

import "time"

// Peer identifies the other end of one session. Immutable for the session's
// life: set when the session starts, cleared when it ends.
type Peer struct {
	ToNumber    string `json:"to_number"`
	FromNumber  string `json:"from_number"`
	DisplayName string `json:"display_name,omitempty"`
}

// Incoming is an unanswered inbound invitation surfaced to the UI. The caller
// metadata is provider-reported free text and not guaranteed well-formed.
type Incoming struct {
	From       string `json:"from"`
	CallerName string `json:"caller_name,omitempty"`
}

// CallSession is the sole mutable call aggregate. Exactly one instance exists
// process-wide, owned by the Manager; consumers only ever see Snapshot copies.
type CallSession struct {
	Status          Status
	Direction       Direction
	Peer            Peer
	StartedAt       time.Time
	DurationSeconds int
	IsMuted         bool
	IsRecording     bool
	LastError       string
}

// Snapshot is the read-only view shared by every screen: the full dialer and
// the floating overlay both render this exact shape and never hold call state
// of their own.
type Snapshot struct {
	Status          Status     `json:"status"`
	Direction       Direction  `json:"direction"`
	Peer            *Peer      `json:"peer,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`
	IsMuted         bool       `json:"is_muted"`
	IsRecording     bool       `json:"is_recording"`
	LastError       string     `json:"last_error,omitempty"`
	PendingIncoming *Incoming  `json:"pending_incoming,omitempty"`

	DeviceState       DeviceState `json:"device_state"`
	DeviceReady       bool        `json:"device_ready"`
	VoiceSDKAvailable bool        `json:"voice_sdk_available"`
}

// CallRecord is the entry handed to the call log when a session reaches a
// terminal transition.
type CallRecord struct {
	Direction       Direction
	To              string
	From            string
	DisplayName     string
	StartedAt       time.Time
	EndedAt         time.Time
	DurationSeconds int
	Outcome         string
}

// Session outcomes recorded in the call log.
const (
	OutcomeCompleted = "completed"
	OutcomeCanceled  = "canceled"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)
