package templates

import "time"

// Template is a reusable message body with {{variable}} placeholders.
//
// Multi-tenant invariant: WorkspaceID is required on every row.

type Template struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`

	Name    string  `json:"name" db:"name"`
	Channel Channel `json:"channel" db:"channel"`

	// Subject applies to email templates only.
	Subject string `json:"subject,omitempty" db:"subject"`
	Body    string `json:"body" db:"body"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

func (c Channel) Valid() bool {
	return c == ChannelSMS || c == ChannelEmail
}
