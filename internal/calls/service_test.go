package calls

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"sales-crm/internal/voice"
)

type fakeResolver struct {
	byPhone map[string][2]string // phone -> id, name
}

func (f *fakeResolver) ContactByPhone(ctx context.Context, workspaceID, phone string) (string, string, error) {
	v, ok := f.byPhone[phone]
	if !ok {
		return "", "", ErrNotFound
	}
	return v[0], v[1], nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecordFillsDefaultsAndResolvesContact(t *testing.T) {
	repo := NewMemoryRepo()
	resolver := &fakeResolver{byPhone: map[string][2]string{
		"+15550002222": {"ct-1", "Dana Ortiz"},
	}}
	svc := NewService(repo, resolver, quietLogger())

	c, err := svc.Record(context.Background(), Call{
		WorkspaceID:     "ws-1",
		UserID:          "u-1",
		Direction:       DirectionOutbound,
		From:            "+15550001111",
		To:              "+15550002222",
		Outcome:         OutcomeCompleted,
		DurationSeconds: 30,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if c.CallID == "" || c.CreatedAt.IsZero() {
		t.Fatalf("defaults not filled: %+v", c)
	}
	if c.ContactID != "ct-1" || c.DisplayName != "Dana Ortiz" {
		t.Fatalf("contact not resolved: %+v", c)
	}

	got, err := svc.Get(context.Background(), "ws-1", c.CallID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.To != "+15550002222" {
		t.Fatalf("stored call = %+v", got)
	}
}

func TestRecordValidates(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil, quietLogger())

	cases := []Call{
		{Direction: DirectionOutbound, Outcome: OutcomeCompleted},              // no workspace
		{WorkspaceID: "ws-1", Outcome: OutcomeCompleted},                       // no direction
		{WorkspaceID: "ws-1", Direction: DirectionInbound, Outcome: "unknown"}, // bad outcome
	}
	for i, c := range cases {
		if _, err := svc.Record(context.Background(), c); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestRecordInboundResolvesCallerNumber(t *testing.T) {
	resolver := &fakeResolver{byPhone: map[string][2]string{
		"+15550003333": {"ct-2", "Lee Chen"},
	}}
	svc := NewService(NewMemoryRepo(), resolver, quietLogger())

	c, err := svc.Record(context.Background(), Call{
		WorkspaceID: "ws-1",
		Direction:   DirectionInbound,
		From:        "+15550003333",
		To:          "+15550001111",
		Outcome:     OutcomeRejected,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if c.ContactID != "ct-2" {
		t.Fatalf("inbound contact not resolved from caller: %+v", c)
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, nil, quietLogger())
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, o := range []Outcome{OutcomeCompleted, OutcomeFailed, OutcomeCompleted} {
		_, err := svc.Record(context.Background(), Call{
			WorkspaceID: "ws-1",
			UserID:      "u-1",
			Direction:   DirectionOutbound,
			To:          "+15550002222",
			Outcome:     o,
			StartedAt:   base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}
	// Different workspace must stay invisible.
	if _, err := svc.Record(context.Background(), Call{
		WorkspaceID: "ws-2", Direction: DirectionOutbound, Outcome: OutcomeCompleted,
	}); err != nil {
		t.Fatalf("Record ws-2: %v", err)
	}

	got, err := svc.List(context.Background(), "ws-1", Filter{Outcome: OutcomeCompleted})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if !got[0].StartedAt.After(got[1].StartedAt) {
		t.Fatalf("not newest-first: %v then %v", got[0].StartedAt, got[1].StartedAt)
	}

	got, err = svc.List(context.Background(), "ws-1", Filter{Since: base.Add(90 * time.Minute)})
	if err != nil {
		t.Fatalf("List since: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("since filter len = %d, want 1", len(got))
	}
}

func TestLoggerPersistsTerminalRecords(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo, nil, quietLogger())
	lg := NewLogger(svc, "ws-1", "u-1")

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	lg.LogCall(context.Background(), voice.CallRecord{
		Direction:       voice.DirectionOutbound,
		To:              "+15550002222",
		From:            "+15550001111",
		StartedAt:       start,
		EndedAt:         start.Add(45 * time.Second),
		DurationSeconds: 45,
		Outcome:         voice.OutcomeCompleted,
	})

	got, err := svc.List(context.Background(), "ws-1", Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	c := got[0]
	if c.UserID != "u-1" || c.Direction != DirectionOutbound || c.DurationSeconds != 45 || c.Outcome != OutcomeCompleted {
		t.Fatalf("logged call = %+v", c)
	}
}

func TestLoggerSwallowsRepoErrors(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil, quietLogger())
	lg := NewLogger(svc, "", "u-1") // empty workspace fails validation

	// Must not panic; history is best-effort.
	lg.LogCall(context.Background(), voice.CallRecord{
		Direction: voice.DirectionOutbound,
		Outcome:   voice.OutcomeFailed,
	})
}
