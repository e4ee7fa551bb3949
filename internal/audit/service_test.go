package audit

import (
	"context"
	"errors"
	"testing"
)

func TestAppendFillsDefaults(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	err := svc.LogContactChange(context.Background(), "ws-1", "u-1", "rep", "10.0.0.1", "ct-1", "lead status changed", "")
	if err != nil {
		t.Fatalf("LogContactChange: %v", err)
	}

	events := repo.Events()
	if len(events) != 1 {
		t.Fatalf("len = %d, want 1", len(events))
	}
	e := events[0]
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("defaults not filled: %+v", e)
	}
	if e.Type != EventTypeContactChange || e.ContactID != "ct-1" {
		t.Fatalf("event = %+v", e)
	}
}

func TestAppendValidates(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	if err := svc.Append(ctx, Event{Type: EventTypeDNCChange}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("missing workspace: err = %v", err)
	}
	if err := svc.Append(ctx, Event{WorkspaceID: "ws-1"}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("missing type: err = %v", err)
	}
}

func TestDNCAndOverrideHelpers(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	if err := svc.LogDNCChange(ctx, "ws-1", "u-1", "manager", "", "+15550002222", "added"); err != nil {
		t.Fatalf("LogDNCChange: %v", err)
	}
	if err := svc.LogDialOverride(ctx, "ws-1", "u-2", "owner", "", "+15550003333", "outside calling hours"); err != nil {
		t.Fatalf("LogDialOverride: %v", err)
	}

	events := repo.Events()
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Type != EventTypeDNCChange || events[0].PhoneNumber != "+15550002222" {
		t.Fatalf("dnc event = %+v", events[0])
	}
	if events[1].Type != EventTypeDialOverride || events[1].ActorRole != "owner" {
		t.Fatalf("override event = %+v", events[1])
	}
}
