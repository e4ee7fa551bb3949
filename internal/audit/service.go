package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only. No Update/Delete methods are provided.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// Audit is internal-only; do not expose these records to tenant users by
// default. Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.WorkspaceID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogContactChange records a create/update/delete on a contact.
func (s *Service) LogContactChange(ctx context.Context, workspaceID, actorUserID, actorRole, ip, contactID, message, metadata string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeContactChange,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		ContactID:   contactID,
		Message:     message,
		Metadata:    metadata,
	})
}

// LogDNCChange records an add/remove on the do-not-call list.
func (s *Service) LogDNCChange(ctx context.Context, workspaceID, actorUserID, actorRole, ip, phoneNumber, message string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeDNCChange,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		PhoneNumber: phoneNumber,
		Message:     message,
	})
}

// LogDialOverride records a privileged dial outside calling hours.
func (s *Service) LogDialOverride(ctx context.Context, workspaceID, actorUserID, actorRole, ip, phoneNumber, reason string) error {
	return s.Append(ctx, Event{
		WorkspaceID: workspaceID,
		Type:        EventTypeDialOverride,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		PhoneNumber: phoneNumber,
		Message:     reason,
	})
}
