package recordings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sales-crm/internal/calls"

	"github.com/google/uuid"
)

// Service owns recording intake and review.
type Service struct {
	repo  Repository
	calls calls.Repository
	log   *slog.Logger
	clock func() time.Time
}

func NewService(repo Repository, callRepo calls.Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, calls: callRepo, log: log, clock: time.Now}
}

// Attach links a finished provider recording to its call. The call is
// resolved by the provider's call identifier because that is all the
// callback carries.
func (s *Service) Attach(ctx context.Context, providerCallID, url string, durationSeconds int) (Recording, error) {
	if providerCallID == "" || url == "" {
		return Recording{}, fmt.Errorf("recordings: provider call id and url required")
	}

	call, err := s.calls.GetByProviderID(ctx, providerCallID)
	if err != nil {
		return Recording{}, fmt.Errorf("recordings: resolve call %s: %w", providerCallID, err)
	}

	rec := Recording{
		ID:              uuid.NewString(),
		WorkspaceID:     call.WorkspaceID,
		CallID:          call.CallID,
		URL:             url,
		DurationSeconds: durationSeconds,
		CreatedAt:       s.clock().UTC(),
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return Recording{}, err
	}
	if err := s.calls.SetRecordingURL(ctx, call.WorkspaceID, call.CallID, url); err != nil {
		// The recording row exists either way; the back-link is best-effort.
		s.log.Error("recording back-link failed", "call_id", call.CallID, "error", err)
	}
	return rec, nil
}

func (s *Service) Get(ctx context.Context, workspaceID, id string) (Recording, error) {
	return s.repo.Get(ctx, workspaceID, id)
}

func (s *Service) List(ctx context.Context, workspaceID string, onlyUnreviewed bool) ([]Recording, error) {
	return s.repo.List(ctx, workspaceID, onlyUnreviewed)
}

// MarkReviewed records who reviewed a recording. Re-reviewing keeps the
// first reviewer's timestamp.
func (s *Service) MarkReviewed(ctx context.Context, workspaceID, id, reviewerUserID string) (Recording, error) {
	if reviewerUserID == "" {
		return Recording{}, errors.New("recordings: reviewer required")
	}
	rec, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return Recording{}, err
	}
	if rec.Reviewed {
		return rec, nil
	}
	rec.Reviewed = true
	rec.ReviewedBy = reviewerUserID
	rec.ReviewedAt = s.clock().UTC()
	if err := s.repo.Update(ctx, rec); err != nil {
		return Recording{}, err
	}
	return rec, nil
}

func (s *Service) AttachNote(ctx context.Context, workspaceID, id, note string) (Recording, error) {
	rec, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return Recording{}, err
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return Recording{}, errors.New("recordings: empty note")
	}
	if rec.Notes == "" {
		rec.Notes = note
	} else {
		rec.Notes += "\n" + note
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return Recording{}, err
	}
	return rec, nil
}
