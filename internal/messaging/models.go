package messaging

import "time"

// Message is an outbound SMS or email in the workspace outbox.
//
// Multi-tenant invariant: WorkspaceID is required on every row.

type Message struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id"`
	ContactID   string `json:"contact_id,omitempty"`

	Channel Channel `json:"channel"`
	To      string  `json:"to"`

	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`

	Status Status `json:"status"`

	// ProviderMessageID is the carrier-side identifier once sent.
	ProviderMessageID string `json:"provider_message_id,omitempty"`
	// FailureReason is set when Status is failed.
	FailureReason string `json:"failure_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	SentAt    time.Time `json:"sent_at,omitempty"`
}

type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

func (c Channel) Valid() bool {
	return c == ChannelSMS || c == ChannelEmail
}

// Status is the outbox lifecycle: draft -> queued -> sent | failed.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusQueued Status = "queued"
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)
