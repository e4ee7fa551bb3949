package reminders

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var ErrNotFound = errors.New("reminders: not found")

// Store is the persistence contract for reminders.
//
// Pending reminders live in a due-index ordered by DueAt; PopDue atomically
// claims entries whose deadline has passed, so concurrent pollers never fire
// the same reminder twice.
type Store interface {
	Put(ctx context.Context, r Reminder) error
	Get(ctx context.Context, workspaceID, id string) (Reminder, error)
	List(ctx context.Context, workspaceID string) ([]Reminder, error)
	// RemoveDue drops a reminder from the due-index without deleting it.
	RemoveDue(ctx context.Context, workspaceID, id string) error
	// PopDue atomically removes and returns up to limit reminders due at or
	// before now, across all workspaces.
	PopDue(ctx context.Context, now time.Time, limit int) ([]Reminder, error)
}

// dueMember encodes a due-index entry; both stores share the format.
func dueMember(workspaceID, id string) string { return workspaceID + "|" + id }

func splitDueMember(m string) (workspaceID, id string, ok bool) {
	i := strings.IndexByte(m, '|')
	if i <= 0 || i == len(m)-1 {
		return "", "", false
	}
	return m[:i], m[i+1:], true
}

// MemoryStore is an in-memory Store for tests and local runs.

type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]Reminder // key: dueMember
	due  map[string]int64    // key: dueMember, value: due unix
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[string]Reminder),
		due:  make(map[string]int64),
	}
}

func (s *MemoryStore) Put(ctx context.Context, r Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dueMember(r.WorkspaceID, r.ID)
	s.rows[key] = r
	if r.Completed() {
		delete(s.due, key)
	} else {
		s.due[key] = r.DueAt.Unix()
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, workspaceID, id string) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[dueMember(workspaceID, id)]
	if !ok {
		return Reminder{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) List(ctx context.Context, workspaceID string) ([]Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Reminder
	for _, r := range s.rows {
		if r.WorkspaceID == workspaceID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

func (s *MemoryStore) RemoveDue(ctx context.Context, workspaceID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.due, dueMember(workspaceID, id))
	return nil
}

func (s *MemoryStore) PopDue(ctx context.Context, now time.Time, limit int) ([]Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type cand struct {
		key   string
		score int64
	}
	var cands []cand
	for k, score := range s.due {
		if score <= now.Unix() {
			cands = append(cands, cand{k, score})
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].score < cands[j].score })
	if limit > 0 && len(cands) > limit {
		cands = cands[:limit]
	}

	var out []Reminder
	for _, c := range cands {
		delete(s.due, c.key)
		if r, ok := s.rows[c.key]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}
