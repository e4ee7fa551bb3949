package recordings

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("recordings: not found")

// Repository is the persistence contract for recordings.
type Repository interface {
	Insert(ctx context.Context, r Recording) error
	Update(ctx context.Context, r Recording) error
	Get(ctx context.Context, workspaceID, id string) (Recording, error)
	List(ctx context.Context, workspaceID string, onlyUnreviewed bool) ([]Recording, error)
}

// MemoryRepo is an in-memory Repository for tests and local runs.

type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]Recording
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[string]Recording)}
}

func (r *MemoryRepo) Insert(ctx context.Context, rec Recording) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[rec.ID] = rec
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, rec Recording) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.rows[rec.ID]
	if !ok || cur.WorkspaceID != rec.WorkspaceID {
		return ErrNotFound
	}
	r.rows[rec.ID] = rec
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, workspaceID, id string) (Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[id]
	if !ok || rec.WorkspaceID != workspaceID {
		return Recording{}, ErrNotFound
	}
	return rec, nil
}

func (r *MemoryRepo) List(ctx context.Context, workspaceID string, onlyUnreviewed bool) ([]Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Recording
	for _, rec := range r.rows {
		if rec.WorkspaceID != workspaceID {
			continue
		}
		if onlyUnreviewed && rec.Reviewed {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
