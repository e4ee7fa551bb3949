package reminders

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidReminder = errors.New("reminders: invalid reminder")

// Service owns reminder scheduling.
type Service struct {
	store Store
	log   *slog.Logger
	clock func() time.Time
}

func NewService(store Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, log: log, clock: time.Now}
}

func (s *Service) Create(ctx context.Context, r Reminder) (Reminder, error) {
	r.Note = strings.TrimSpace(r.Note)
	if r.WorkspaceID == "" || r.UserID == "" || r.Note == "" {
		return Reminder{}, ErrInvalidReminder
	}
	if r.DueAt.IsZero() {
		return Reminder{}, ErrInvalidReminder
	}

	r.ID = uuid.NewString()
	r.CreatedAt = s.clock().UTC()
	r.CompletedAt = time.Time{}
	if err := s.store.Put(ctx, r); err != nil {
		return Reminder{}, err
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, workspaceID, id string) (Reminder, error) {
	return s.store.Get(ctx, workspaceID, id)
}

// List returns a workspace's reminders, soonest due first.
func (s *Service) List(ctx context.Context, workspaceID string) ([]Reminder, error) {
	return s.store.List(ctx, workspaceID)
}

// Complete marks a reminder done and drops it from the due-index. Completing
// twice is a no-op.
func (s *Service) Complete(ctx context.Context, workspaceID, id string) (Reminder, error) {
	r, err := s.store.Get(ctx, workspaceID, id)
	if err != nil {
		return Reminder{}, err
	}
	if r.Completed() {
		return r, nil
	}
	r.CompletedAt = s.clock().UTC()
	if err := s.store.Put(ctx, r); err != nil {
		return Reminder{}, err
	}
	return r, nil
}

// Handler receives reminders whose deadline has passed.
type Handler func(ctx context.Context, r Reminder)

// Poller fires due reminders in the background. Claimed entries leave the
// due-index, so a handler failure means a dropped notification rather than a
// repeated one; the reminder itself stays listed until completed.
type Poller struct {
	svc      *Service
	handler  Handler
	interval time.Duration
	batch    int
}

func NewPoller(svc *Service, handler Handler, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{svc: svc, handler: handler, interval: interval, batch: 50}
}

// Run blocks until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	due, err := p.svc.store.PopDue(ctx, p.svc.clock(), p.batch)
	if err != nil {
		p.svc.log.Error("reminder poll failed", "error", err)
		return
	}
	for _, r := range due {
		p.svc.log.Info("reminder due", "reminder_id", r.ID, "workspace_id", r.WorkspaceID, "user_id", r.UserID)
		if p.handler != nil {
			p.handler(ctx, r)
		}
	}
}
