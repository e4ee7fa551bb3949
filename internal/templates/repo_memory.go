package templates

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("templates: not found")

// Repository is the persistence contract for templates.
type Repository interface {
	Insert(ctx context.Context, t Template) error
	Update(ctx context.Context, t Template) error
	Delete(ctx context.Context, workspaceID, id string) error
	Get(ctx context.Context, workspaceID, id string) (Template, error)
	List(ctx context.Context, workspaceID string) ([]Template, error)
}

// MemoryRepo is an in-memory Repository for tests and local runs.

type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]Template
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[string]Template)}
}

func (r *MemoryRepo) Insert(ctx context.Context, t Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[t.ID] = t
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, t Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.rows[t.ID]
	if !ok || cur.WorkspaceID != t.WorkspaceID {
		return ErrNotFound
	}
	r.rows[t.ID] = t
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, workspaceID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok || t.WorkspaceID != workspaceID {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, workspaceID, id string) (Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok || t.WorkspaceID != workspaceID {
		return Template{}, ErrNotFound
	}
	return t, nil
}

func (r *MemoryRepo) List(ctx context.Context, workspaceID string) ([]Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Template
	for _, t := range r.rows {
		if t.WorkspaceID == workspaceID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
