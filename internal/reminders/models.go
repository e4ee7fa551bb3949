package reminders

import "time"

// Reminder is a scheduled follow-up (call back, send proposal, chase a
// signature) tied to a contact.
//
// Multi-tenant invariant: WorkspaceID is required on every row.

type Reminder struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id"`
	ContactID   string `json:"contact_id,omitempty"`

	Note string `json:"note"`

	DueAt       time.Time `json:"due_at"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

func (r Reminder) Completed() bool { return !r.CompletedAt.IsZero() }
