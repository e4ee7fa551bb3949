package dialpolicy

import (
	"context"
	"testing"
	"time"

	"sales-crm/internal/dnc"
	"sales-crm/internal/rbac"
)

func atHour(h int) func() time.Time {
	return func() time.Time {
		return time.Date(2025, 6, 2, h, 30, 0, 0, time.UTC)
	}
}

func TestEvaluateOutbound_DNCBlocksEveryone(t *testing.T) {
	list := dnc.NewService(dnc.NewMemoryStore())
	_ = list.Add(context.Background(), "ws-1", "+15551230000")

	e := NewEngine(list)
	e.Now = atHour(10)

	for _, role := range []string{rbac.RoleRep, rbac.RoleManager, rbac.RoleOwner, rbac.RoleSuperAdmin} {
		dec, err := e.EvaluateOutbound(context.Background(), OutboundInput{
			WorkspaceID: "ws-1", ActorRole: role, To: "+1 555 123 0000",
		})
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if dec.Allow {
			t.Fatalf("role %s should not bypass DNC", role)
		}
	}
}

func TestEvaluateOutbound_CallingHours(t *testing.T) {
	e := NewEngine(dnc.NewService(dnc.NewMemoryStore()))

	cases := []struct {
		hour  int
		role  string
		allow bool
		warn  bool
	}{
		{10, rbac.RoleRep, true, false},
		{23, rbac.RoleRep, false, false},
		{23, rbac.RoleManager, true, true},
		{23, rbac.RoleOwner, true, true},
		{7, rbac.RoleRep, false, false},
	}
	for _, tc := range cases {
		e.Now = atHour(tc.hour)
		dec, err := e.EvaluateOutbound(context.Background(), OutboundInput{
			WorkspaceID: "ws-1", ActorRole: tc.role, To: "+15551230000",
		})
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if dec.Allow != tc.allow {
			t.Errorf("hour=%d role=%s: allow=%v, want %v", tc.hour, tc.role, dec.Allow, tc.allow)
		}
		if (dec.Warning != "") != tc.warn {
			t.Errorf("hour=%d role=%s: warning=%q, want warn=%v", tc.hour, tc.role, dec.Warning, tc.warn)
		}
	}
}

func TestEvaluateOutbound_RequiresWorkspaceAndTarget(t *testing.T) {
	e := NewEngine(nil)
	if _, err := e.EvaluateOutbound(context.Background(), OutboundInput{To: "+15551230000"}); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := e.EvaluateOutbound(context.Background(), OutboundInput{WorkspaceID: "ws-1"}); err != ErrInvalidInput {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
