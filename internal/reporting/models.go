package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r TimeRange) valid() bool {
	return !r.From.IsZero() && !r.To.IsZero() && r.To.After(r.From)
}

// CallsSummaryRequest requests aggregated call metrics.
// Workspace isolation: WorkspaceID is required.

type CallsSummaryRequest struct {
	WorkspaceID string    `json:"workspace_id"`
	Range       TimeRange `json:"range"`
	UserID      string    `json:"user_id,omitempty"`
}

type CallsSummary struct {
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id,omitempty"`

	TotalCalls    int `json:"total_calls"`
	Completed     int `json:"completed"`
	Canceled      int `json:"canceled"`
	Rejected      int `json:"rejected"`
	Failed        int `json:"failed"`
	OutboundCalls int `json:"outbound_calls"`
	InboundCalls  int `json:"inbound_calls"`

	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`

	RecordedCalls int `json:"recorded_calls"`
}

// ActivitySummaryRequest requests aggregated rep activity (messages and
// reminders) alongside calls.

type ActivitySummaryRequest struct {
	WorkspaceID string    `json:"workspace_id"`
	Range       TimeRange `json:"range"`
	UserID      string    `json:"user_id,omitempty"`
}

type ActivitySummary struct {
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id,omitempty"`

	CallsMade    int `json:"calls_made"`
	MessagesSent int `json:"messages_sent"`
	SMSSent      int `json:"sms_sent"`
	EmailsSent   int `json:"emails_sent"`

	RemindersCreated   int `json:"reminders_created"`
	RemindersCompleted int `json:"reminders_completed"`
	RemindersOverdue   int `json:"reminders_overdue"`
}
