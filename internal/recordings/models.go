package recordings

import "time"

// Recording is a stored call recording awaiting (or past) manager review.
//
// Multi-tenant invariant: WorkspaceID is required on every row.

type Recording struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	CallID      string `json:"call_id"`

	URL             string `json:"url"`
	DurationSeconds int    `json:"duration"`

	Reviewed   bool      `json:"reviewed"`
	ReviewedBy string    `json:"reviewed_by,omitempty"`
	ReviewedAt time.Time `json:"reviewed_at,omitempty"`

	Notes string `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
