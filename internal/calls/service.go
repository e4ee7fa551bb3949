package calls

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sales-crm/internal/voice"

	"github.com/google/uuid"
)

var ErrInvalidCall = errors.New("calls: invalid call")

// ContactResolver matches a phone number to a known contact so history rows
// link back to the CRM record. Resolution is best-effort.
type ContactResolver interface {
	ContactByPhone(ctx context.Context, workspaceID, phone string) (contactID, displayName string, err error)
}

// Service owns the workspace call history.
type Service struct {
	repo     Repository
	contacts ContactResolver
	log      *slog.Logger
	clock    func() time.Time
}

func NewService(repo Repository, contacts ContactResolver, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, contacts: contacts, log: log, clock: time.Now}
}

// Record persists one call. Missing ID and CreatedAt are filled in.
func (s *Service) Record(ctx context.Context, c Call) (Call, error) {
	if c.WorkspaceID == "" {
		return Call{}, ErrInvalidCall
	}
	if c.Direction != DirectionOutbound && c.Direction != DirectionInbound {
		return Call{}, ErrInvalidCall
	}
	if !c.Outcome.Valid() {
		return Call{}, ErrInvalidCall
	}

	if c.CallID == "" {
		c.CallID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.clock().UTC()
	}
	if c.ContactID == "" && s.contacts != nil {
		peer := c.To
		if c.Direction == DirectionInbound {
			peer = c.From
		}
		if id, name, err := s.contacts.ContactByPhone(ctx, c.WorkspaceID, peer); err == nil && id != "" {
			c.ContactID = id
			if c.DisplayName == "" {
				c.DisplayName = name
			}
		}
	}

	if err := s.repo.Insert(ctx, c); err != nil {
		return Call{}, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, workspaceID, callID string) (Call, error) {
	return s.repo.Get(ctx, workspaceID, callID)
}

func (s *Service) List(ctx context.Context, workspaceID string, f Filter) ([]Call, error) {
	return s.repo.List(ctx, workspaceID, f)
}

func (s *Service) AttachNote(ctx context.Context, workspaceID, callID, notes string) error {
	return s.repo.SetNotes(ctx, workspaceID, callID, notes)
}

// Logger adapts the service to the session manager's best-effort call sink.
// The manager runs one agent's session, so tenant attribution is fixed at
// construction.
type Logger struct {
	svc         *Service
	workspaceID string
	userID      string
}

func NewLogger(svc *Service, workspaceID, userID string) *Logger {
	return &Logger{svc: svc, workspaceID: workspaceID, userID: userID}
}

func (l *Logger) LogCall(ctx context.Context, rec voice.CallRecord) {
	c := Call{
		WorkspaceID:     l.workspaceID,
		UserID:          l.userID,
		Direction:       Direction(rec.Direction),
		From:            rec.From,
		To:              rec.To,
		DisplayName:     rec.DisplayName,
		Outcome:         Outcome(rec.Outcome),
		DurationSeconds: rec.DurationSeconds,
		StartedAt:       rec.StartedAt,
		EndedAt:         rec.EndedAt,
	}
	if _, err := l.svc.Record(ctx, c); err != nil {
		// History is best-effort; a failed write must never touch the session.
		l.svc.log.Error("call record write failed", "error", err, "to", rec.To)
	}
}
