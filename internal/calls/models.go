package calls

import "time"

// Call is one finished (or in-flight) phone call in a workspace's history.
//
// Multi-tenant invariant: WorkspaceID is required on every row.
//
// Provider identifiers (Twilio CallSid) live in ProviderCallID so the rest of
// the model stays provider-agnostic.

type Call struct {
	CallID      string `json:"call_id" db:"call_id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`
	UserID      string `json:"user_id" db:"user_id"`
	ContactID   string `json:"contact_id,omitempty" db:"contact_id"`

	Direction Direction `json:"direction" db:"direction"`

	From        string `json:"from" db:"from_number"`
	To          string `json:"to" db:"to_number"`
	DisplayName string `json:"display_name,omitempty" db:"display_name"`

	Outcome Outcome `json:"outcome" db:"outcome"`

	// Duration counts connected time only, in whole seconds.
	DurationSeconds int `json:"duration" db:"duration"`

	ProviderCallID string `json:"provider_call_id,omitempty" db:"provider_call_id"`
	RecordingURL   string `json:"recording_url,omitempty" db:"recording_url"`

	Notes string `json:"notes,omitempty" db:"notes"`

	StartedAt time.Time `json:"started_at" db:"started_at"`
	EndedAt   time.Time `json:"ended_at" db:"ended_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// Outcome is the terminal disposition of a call.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCanceled  Outcome = "canceled"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

func (o Outcome) Valid() bool {
	switch o {
	case OutcomeCompleted, OutcomeCanceled, OutcomeRejected, OutcomeFailed:
		return true
	}
	return false
}

// Filter narrows a call history listing. Zero values mean "no constraint".
type Filter struct {
	ContactID string
	UserID    string
	Outcome   Outcome
	Since     time.Time
	Limit     int
}
