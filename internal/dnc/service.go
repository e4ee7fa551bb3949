package dnc

import (
	"context"
	"errors"
	"sort"
	"strings"
)

var ErrInvalidArgument = errors.New("dnc: invalid argument")

// Service owns do-not-call list checks and maintenance.
//
// Numbers are normalized before any store access so that "+1 555-123-0000"
// and "+15551230000" hit the same entry.
type Service struct {
	store Store
}

func NewService(store Store) *Service { return &Service{store: store} }

// Normalize strips separators from a dialable number. It does not attempt
// full E.164 validation; caller-provided metadata is not guaranteed
// well-formed and must not make checks crash.
func Normalize(number string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(number) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsBlocked reports whether the number is on the workspace's list.
func (s *Service) IsBlocked(ctx context.Context, workspaceID, number string) (bool, error) {
	n := Normalize(number)
	if workspaceID == "" || n == "" {
		return false, ErrInvalidArgument
	}
	return s.store.Contains(ctx, workspaceID, n)
}

// Add puts a number on the list.
func (s *Service) Add(ctx context.Context, workspaceID, number string) error {
	n := Normalize(number)
	if workspaceID == "" || n == "" {
		return ErrInvalidArgument
	}
	return s.store.Add(ctx, workspaceID, n)
}

// Remove takes a number off the list.
func (s *Service) Remove(ctx context.Context, workspaceID, number string) error {
	n := Normalize(number)
	if workspaceID == "" || n == "" {
		return ErrInvalidArgument
	}
	return s.store.Remove(ctx, workspaceID, n)
}

// List returns the workspace's list, sorted for stable output.
func (s *Service) List(ctx context.Context, workspaceID string) ([]string, error) {
	if workspaceID == "" {
		return nil, ErrInvalidArgument
	}
	out, err := s.store.List(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
