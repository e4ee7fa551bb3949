package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"sales-crm/internal/calls"
	"sales-crm/internal/messaging"
	"sales-crm/internal/reminders"
)

type fakeRepo struct {
	calls     []calls.Call
	messages  []messaging.Message
	reminders []reminders.Reminder
}

func (f *fakeRepo) ListCalls(ctx context.Context, workspaceID string, from, to time.Time, userID string) ([]calls.Call, error) {
	return f.calls, nil
}

func (f *fakeRepo) ListMessages(ctx context.Context, workspaceID string, from, to time.Time, userID string) ([]messaging.Message, error) {
	return f.messages, nil
}

func (f *fakeRepo) ListReminders(ctx context.Context, workspaceID string, from, to time.Time, userID string) ([]reminders.Reminder, error) {
	return f.reminders, nil
}

func validRange() TimeRange {
	return TimeRange{
		From: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestCallsSummaryValidates(t *testing.T) {
	svc := NewService(&fakeRepo{})
	ctx := context.Background()

	if _, err := svc.CallsSummary(ctx, CallsSummaryRequest{Range: validRange()}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("missing workspace: err = %v", err)
	}
	bad := validRange()
	bad.To = bad.From
	if _, err := svc.CallsSummary(ctx, CallsSummaryRequest{WorkspaceID: "ws-1", Range: bad}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("empty range: err = %v", err)
	}
}

func TestCallsSummaryBuckets(t *testing.T) {
	repo := &fakeRepo{calls: []calls.Call{
		{Direction: calls.DirectionOutbound, Outcome: calls.OutcomeCompleted, DurationSeconds: 60, RecordingURL: "https://x/RE1"},
		{Direction: calls.DirectionOutbound, Outcome: calls.OutcomeCompleted, DurationSeconds: 30},
		{Direction: calls.DirectionInbound, Outcome: calls.OutcomeRejected},
		{Direction: calls.DirectionOutbound, Outcome: calls.OutcomeCanceled},
		{Direction: calls.DirectionOutbound, Outcome: calls.OutcomeFailed},
	}}
	svc := NewService(repo)

	got, err := svc.CallsSummary(context.Background(), CallsSummaryRequest{WorkspaceID: "ws-1", Range: validRange()})
	if err != nil {
		t.Fatalf("CallsSummary: %v", err)
	}
	if got.TotalCalls != 5 || got.Completed != 2 || got.Rejected != 1 || got.Canceled != 1 || got.Failed != 1 {
		t.Fatalf("buckets: %+v", got)
	}
	if got.OutboundCalls != 4 || got.InboundCalls != 1 {
		t.Fatalf("directions: %+v", got)
	}
	if got.TotalDurationSeconds != 90 || got.AverageDurationSeconds != 18 {
		t.Fatalf("durations: %+v", got)
	}
	if got.RecordedCalls != 1 {
		t.Fatalf("recorded: %+v", got)
	}
}

func TestActivitySummary(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		calls: []calls.Call{{Outcome: calls.OutcomeCompleted}},
		messages: []messaging.Message{
			{Status: messaging.StatusSent, Channel: messaging.ChannelSMS},
			{Status: messaging.StatusSent, Channel: messaging.ChannelEmail},
			{Status: messaging.StatusDraft, Channel: messaging.ChannelSMS}, // drafts don't count
		},
		reminders: []reminders.Reminder{
			{DueAt: now.Add(-time.Hour)},                                       // overdue
			{DueAt: now.Add(time.Hour)},                                        // pending
			{DueAt: now.Add(-2 * time.Hour), CompletedAt: now.Add(-time.Hour)}, // done
		},
	}
	svc := NewService(repo)
	svc.clock = func() time.Time { return now }

	got, err := svc.ActivitySummary(context.Background(), ActivitySummaryRequest{WorkspaceID: "ws-1", Range: validRange()})
	if err != nil {
		t.Fatalf("ActivitySummary: %v", err)
	}
	if got.CallsMade != 1 {
		t.Fatalf("calls: %+v", got)
	}
	if got.MessagesSent != 2 || got.SMSSent != 1 || got.EmailsSent != 1 {
		t.Fatalf("messages: %+v", got)
	}
	if got.RemindersCreated != 3 || got.RemindersCompleted != 1 || got.RemindersOverdue != 1 {
		t.Fatalf("reminders: %+v", got)
	}
}

func TestSourceRepoWindow(t *testing.T) {
	callRepo := calls.NewMemoryRepo()
	msgRepo := messaging.NewMemoryRepo()
	remStore := reminders.NewMemoryStore()
	ctx := context.Background()

	in := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	out := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	if err := callRepo.Insert(ctx, calls.Call{CallID: "c1", WorkspaceID: "ws-1", StartedAt: in}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := callRepo.Insert(ctx, calls.Call{CallID: "c2", WorkspaceID: "ws-1", StartedAt: out}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := msgRepo.Insert(ctx, messaging.Message{ID: "m1", WorkspaceID: "ws-1", UserID: "u-1", CreatedAt: in}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := remStore.Put(ctx, reminders.Reminder{ID: "r1", WorkspaceID: "ws-1", UserID: "u-2", CreatedAt: in, DueAt: in}); err != nil {
		t.Fatalf("put: %v", err)
	}

	src := &SourceRepo{Calls: callRepo, Messages: msgRepo, Reminders: remStore}
	r := validRange()

	cs, err := src.ListCalls(ctx, "ws-1", r.From, r.To, "")
	if err != nil {
		t.Fatalf("ListCalls: %v", err)
	}
	if len(cs) != 1 || cs[0].CallID != "c1" {
		t.Fatalf("calls window: %+v", cs)
	}

	ms, err := src.ListMessages(ctx, "ws-1", r.From, r.To, "u-1")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(ms) != 1 {
		t.Fatalf("messages window: %+v", ms)
	}
	ms, _ = src.ListMessages(ctx, "ws-1", r.From, r.To, "u-other")
	if len(ms) != 0 {
		t.Fatalf("user filter leaked: %+v", ms)
	}

	rs, err := src.ListReminders(ctx, "ws-1", r.From, r.To, "")
	if err != nil {
		t.Fatalf("ListReminders: %v", err)
	}
	if len(rs) != 1 {
		t.Fatalf("reminders window: %+v", rs)
	}
}
