package messaging

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("messaging: not found")

// Repository is the persistence contract for the outbox.
type Repository interface {
	Insert(ctx context.Context, m Message) error
	Update(ctx context.Context, m Message) error
	Get(ctx context.Context, workspaceID, id string) (Message, error)
	List(ctx context.Context, workspaceID, contactID string) ([]Message, error)
}

// MemoryRepo is an in-memory Repository for tests and local runs.

type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]Message
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[string]Message)}
}

func (r *MemoryRepo) Insert(ctx context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[m.ID] = m
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.rows[m.ID]
	if !ok || cur.WorkspaceID != m.WorkspaceID {
		return ErrNotFound
	}
	r.rows[m.ID] = m
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, workspaceID, id string) (Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok || m.WorkspaceID != workspaceID {
		return Message{}, ErrNotFound
	}
	return m, nil
}

func (r *MemoryRepo) List(ctx context.Context, workspaceID, contactID string) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.rows {
		if m.WorkspaceID != workspaceID {
			continue
		}
		if contactID != "" && m.ContactID != contactID {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
