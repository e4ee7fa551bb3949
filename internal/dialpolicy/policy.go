package dialpolicy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sales-crm/internal/rbac"
)

// Engine evaluates whether an outbound dial may proceed.
//
// Priority:
//  1) DNC list (absolute block, no role override)
//  2) Calling-hours window (managers may dial outside it; reps get a warning)
//
// Return a decision only. No side effects: no store writes, no provider
// calls, no session mutation.

var ErrInvalidInput = errors.New("dialpolicy: invalid input")

// DNCChecker is the minimal abstraction the engine needs from the DNC list.
type DNCChecker interface {
	IsBlocked(ctx context.Context, workspaceID, number string) (bool, error)
}

// CallingHours is the local-time window in which cold outbound calls are
// considered acceptable.
type CallingHours struct {
	StartHour int
	EndHour   int
}

func DefaultCallingHours() CallingHours {
	return CallingHours{StartHour: 8, EndHour: 21}
}

func (h CallingHours) contains(t time.Time) bool {
	hr := t.Hour()
	return hr >= h.StartHour && hr < h.EndHour
}

type OutboundInput struct {
	WorkspaceID string
	ActorRole   string
	To          string
}

type Decision struct {
	Allow   bool   `json:"allow"`
	Reason  string `json:"reason,omitempty"`
	Warning string `json:"warning,omitempty"`
}

type Engine struct {
	DNC   DNCChecker
	Hours CallingHours
	Now   func() time.Time
}

func NewEngine(dnc DNCChecker) *Engine {
	return &Engine{DNC: dnc, Hours: DefaultCallingHours(), Now: time.Now}
}

func (e *Engine) EvaluateOutbound(ctx context.Context, in OutboundInput) (Decision, error) {
	if in.WorkspaceID == "" || in.To == "" {
		return Decision{}, ErrInvalidInput
	}

	if e.DNC != nil {
		blocked, err := e.DNC.IsBlocked(ctx, in.WorkspaceID, in.To)
		if err != nil {
			return Decision{}, fmt.Errorf("dialpolicy: dnc check: %w", err)
		}
		if blocked {
			return Decision{Allow: false, Reason: "number is on the do-not-call list"}, nil
		}
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	if !e.Hours.contains(now()) {
		switch in.ActorRole {
		case rbac.RoleOwner, rbac.RoleManager, rbac.RoleSuperAdmin:
			return Decision{Allow: true, Warning: "outside calling hours"}, nil
		default:
			return Decision{Allow: false, Reason: "outside calling hours"}, nil
		}
	}

	return Decision{Allow: true}, nil
}
