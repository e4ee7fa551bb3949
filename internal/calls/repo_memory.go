package calls

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests and local runs.

type MemoryRepo struct {
	mu    sync.Mutex
	rows  map[string]Call // key: callID
	order []string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[string]Call)}
}

func (r *MemoryRepo) Insert(ctx context.Context, c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[c.CallID]; !ok {
		r.order = append(r.order, c.CallID)
	}
	r.rows[c.CallID] = c
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, workspaceID, callID string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[callID]
	if !ok || c.WorkspaceID != workspaceID {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) GetByProviderID(ctx context.Context, providerCallID string) (Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.ProviderCallID != "" && c.ProviderCallID == providerCallID {
			return c, nil
		}
	}
	return Call{}, ErrNotFound
}

func (r *MemoryRepo) List(ctx context.Context, workspaceID string, f Filter) ([]Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Call
	for _, id := range r.order {
		c := r.rows[id]
		if c.WorkspaceID != workspaceID {
			continue
		}
		if f.ContactID != "" && c.ContactID != f.ContactID {
			continue
		}
		if f.UserID != "" && c.UserID != f.UserID {
			continue
		}
		if f.Outcome != "" && c.Outcome != f.Outcome {
			continue
		}
		if !f.Since.IsZero() && c.StartedAt.Before(f.Since) {
			continue
		}
		out = append(out, c)
	}
	// Newest first, matching the SQL repo.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepo) SetRecordingURL(ctx context.Context, workspaceID, callID, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[callID]
	if !ok || c.WorkspaceID != workspaceID {
		return ErrNotFound
	}
	c.RecordingURL = url
	r.rows[callID] = c
	return nil
}

func (r *MemoryRepo) SetNotes(ctx context.Context, workspaceID, callID, notes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[callID]
	if !ok || c.WorkspaceID != workspaceID {
		return ErrNotFound
	}
	c.Notes = notes
	r.rows[callID] = c
	return nil
}
