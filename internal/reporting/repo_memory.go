package reporting

import (
	"context"
	"time"

	"sales-crm/internal/calls"
	"sales-crm/internal/messaging"
	"sales-crm/internal/reminders"
)

// SourceRepo aggregates the domain repositories into the reporting contract.
// The underlying stores already scope by workspace; this layer only applies
// the time window and user filter.
type SourceRepo struct {
	Calls     calls.Repository
	Messages  messaging.Repository
	Reminders reminders.Store
}

func (r *SourceRepo) ListCalls(ctx context.Context, workspaceID string, from, to time.Time, userID string) ([]calls.Call, error) {
	rows, err := r.Calls.List(ctx, workspaceID, calls.Filter{UserID: userID, Since: from, Limit: 500})
	if err != nil {
		return nil, err
	}
	var out []calls.Call
	for _, c := range rows {
		if c.StartedAt.Before(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *SourceRepo) ListMessages(ctx context.Context, workspaceID string, from, to time.Time, userID string) ([]messaging.Message, error) {
	rows, err := r.Messages.List(ctx, workspaceID, "")
	if err != nil {
		return nil, err
	}
	var out []messaging.Message
	for _, m := range rows {
		if userID != "" && m.UserID != userID {
			continue
		}
		if m.CreatedAt.Before(from) || !m.CreatedAt.Before(to) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *SourceRepo) ListReminders(ctx context.Context, workspaceID string, from, to time.Time, userID string) ([]reminders.Reminder, error) {
	rows, err := r.Reminders.List(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	var out []reminders.Reminder
	for _, rem := range rows {
		if userID != "" && rem.UserID != userID {
			continue
		}
		if rem.CreatedAt.Before(from) || !rem.CreatedAt.Before(to) {
			continue
		}
		out = append(out, rem)
	}
	return out, nil
}
