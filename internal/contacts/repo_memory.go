package contacts

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests and local runs.

type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]Contact // key: contact ID
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[string]Contact)}
}

func (r *MemoryRepo) Insert(ctx context.Context, c Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.rows {
		if e.WorkspaceID == c.WorkspaceID && e.Phone == c.Phone {
			return ErrDuplicate
		}
	}
	r.rows[c.ID] = c
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, c Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.rows[c.ID]
	if !ok || cur.WorkspaceID != c.WorkspaceID {
		return ErrNotFound
	}
	for id, e := range r.rows {
		if id != c.ID && e.WorkspaceID == c.WorkspaceID && e.Phone == c.Phone {
			return ErrDuplicate
		}
	}
	r.rows[c.ID] = c
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, workspaceID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok || c.WorkspaceID != workspaceID {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, workspaceID, id string) (Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok || c.WorkspaceID != workspaceID {
		return Contact{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) GetByPhone(ctx context.Context, workspaceID, phone string) (Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.WorkspaceID == workspaceID && c.Phone == phone {
			return c, nil
		}
	}
	return Contact{}, ErrNotFound
}

func (r *MemoryRepo) List(ctx context.Context, workspaceID string, q Query) ([]Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(q.Search))
	var out []Contact
	for _, c := range r.rows {
		if c.WorkspaceID != workspaceID {
			continue
		}
		if q.OwnerUserID != "" && c.OwnerUserID != q.OwnerUserID {
			continue
		}
		if q.LeadStatus != "" && c.LeadStatus != q.LeadStatus {
			continue
		}
		if needle != "" && !matches(c, needle) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func matches(c Contact, needle string) bool {
	for _, field := range []string{c.FirstName, c.LastName, c.Company, c.Phone, c.Email} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
