package reporting

import (
	"context"
	"errors"
	"time"

	"sales-crm/internal/calls"
	"sales-crm/internal/messaging"
	"sales-crm/internal/reminders"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// Implementations must enforce workspace filtering and should query
// immutable sources (call history, sent outbox rows).

type Repository interface {
	ListCalls(ctx context.Context, workspaceID string, from, to time.Time, userID string) ([]calls.Call, error)
	ListMessages(ctx context.Context, workspaceID string, from, to time.Time, userID string) ([]messaging.Message, error)
	ListReminders(ctx context.Context, workspaceID string, from, to time.Time, userID string) ([]reminders.Reminder, error)
}

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) CallsSummary(ctx context.Context, req CallsSummaryRequest) (CallsSummary, error) {
	if req.WorkspaceID == "" || !req.Range.valid() {
		return CallsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return CallsSummary{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListCalls(ctx, req.WorkspaceID, req.Range.From, req.Range.To, req.UserID)
	if err != nil {
		return CallsSummary{}, err
	}

	out := CallsSummary{WorkspaceID: req.WorkspaceID, UserID: req.UserID}
	for _, c := range rows {
		out.TotalCalls++
		out.TotalDurationSeconds += c.DurationSeconds
		if c.RecordingURL != "" {
			out.RecordedCalls++
		}
		switch c.Direction {
		case calls.DirectionOutbound:
			out.OutboundCalls++
		case calls.DirectionInbound:
			out.InboundCalls++
		}
		switch c.Outcome {
		case calls.OutcomeCompleted:
			out.Completed++
		case calls.OutcomeCanceled:
			out.Canceled++
		case calls.OutcomeRejected:
			out.Rejected++
		case calls.OutcomeFailed:
			out.Failed++
		}
	}
	if out.TotalCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TotalCalls
	}
	return out, nil
}

func (s *Service) ActivitySummary(ctx context.Context, req ActivitySummaryRequest) (ActivitySummary, error) {
	if req.WorkspaceID == "" || !req.Range.valid() {
		return ActivitySummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return ActivitySummary{}, errors.New("reporting: repository not configured")
	}

	out := ActivitySummary{WorkspaceID: req.WorkspaceID, UserID: req.UserID}

	callRows, err := s.repo.ListCalls(ctx, req.WorkspaceID, req.Range.From, req.Range.To, req.UserID)
	if err != nil {
		return ActivitySummary{}, err
	}
	out.CallsMade = len(callRows)

	msgs, err := s.repo.ListMessages(ctx, req.WorkspaceID, req.Range.From, req.Range.To, req.UserID)
	if err != nil {
		return ActivitySummary{}, err
	}
	for _, m := range msgs {
		if m.Status != messaging.StatusSent {
			continue
		}
		out.MessagesSent++
		switch m.Channel {
		case messaging.ChannelSMS:
			out.SMSSent++
		case messaging.ChannelEmail:
			out.EmailsSent++
		}
	}

	rems, err := s.repo.ListReminders(ctx, req.WorkspaceID, req.Range.From, req.Range.To, req.UserID)
	if err != nil {
		return ActivitySummary{}, err
	}
	now := s.clock()
	for _, r := range rems {
		out.RemindersCreated++
		switch {
		case r.Completed():
			out.RemindersCompleted++
		case r.DueAt.Before(now):
			out.RemindersOverdue++
		}
	}
	return out, nil
}
