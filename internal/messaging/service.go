package messaging

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidMessage = errors.New("messaging: invalid message")
	ErrAlreadySent    = errors.New("messaging: message already sent")
	ErrNoSender       = errors.New("messaging: no sender for channel")
)

// Service owns the outbox: drafts are composed, then sent through the
// channel's Sender.
type Service struct {
	repo    Repository
	senders map[Channel]Sender
	drafter *Drafter
	log     *slog.Logger
	clock   func() time.Time
}

func NewService(repo Repository, senders map[Channel]Sender, drafter *Drafter, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, senders: senders, drafter: drafter, log: log, clock: time.Now}
}

// Compose stores a draft in the outbox.
func (s *Service) Compose(ctx context.Context, m Message) (Message, error) {
	m.Body = strings.TrimSpace(m.Body)
	if m.WorkspaceID == "" || m.UserID == "" || m.To == "" || m.Body == "" {
		return Message{}, ErrInvalidMessage
	}
	if !m.Channel.Valid() {
		return Message{}, ErrInvalidMessage
	}

	m.ID = uuid.NewString()
	m.Status = StatusDraft
	m.CreatedAt = s.clock().UTC()
	m.SentAt = time.Time{}
	m.ProviderMessageID = ""
	m.FailureReason = ""
	if err := s.repo.Insert(ctx, m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Draft generates a suggested body. The result is a suggestion only; it is
// not stored until the caller composes it.
func (s *Service) Draft(ctx context.Context, req DraftRequest) (string, error) {
	if s.drafter == nil {
		return "", ErrDrafterUnavailable
	}
	return s.drafter.Draft(ctx, req)
}

// Send delivers a drafted message. A failed delivery is recorded on the
// message and the error returned; an already-sent message is never re-sent.
func (s *Service) Send(ctx context.Context, workspaceID, id string) (Message, error) {
	m, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return Message{}, err
	}
	if m.Status == StatusSent {
		return Message{}, ErrAlreadySent
	}
	sender, ok := s.senders[m.Channel]
	if !ok {
		return Message{}, ErrNoSender
	}

	providerID, err := sender.Send(ctx, m)
	if err != nil {
		m.Status = StatusFailed
		m.FailureReason = err.Error()
		if uerr := s.repo.Update(ctx, m); uerr != nil {
			s.log.Error("outbox failure update lost", "message_id", m.ID, "error", uerr)
		}
		return m, err
	}

	m.Status = StatusSent
	m.ProviderMessageID = providerID
	m.SentAt = s.clock().UTC()
	m.FailureReason = ""
	if err := s.repo.Update(ctx, m); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (s *Service) Get(ctx context.Context, workspaceID, id string) (Message, error) {
	return s.repo.Get(ctx, workspaceID, id)
}

func (s *Service) List(ctx context.Context, workspaceID, contactID string) ([]Message, error) {
	return s.repo.List(ctx, workspaceID, contactID)
}
