package dnc

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Store abstracts the do-not-call list backend.
//
// Workspace isolation is enforced by keying every operation on workspace_id.
type Store interface {
	Contains(ctx context.Context, workspaceID, number string) (bool, error)
	Add(ctx context.Context, workspaceID, number string) error
	Remove(ctx context.Context, workspaceID, number string) error
	List(ctx context.Context, workspaceID string) ([]string, error)
}

// RedisStore keeps one set per workspace. Membership checks sit on the dial
// path, so the backend must answer in constant time.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func dncKey(workspaceID string) string { return fmt.Sprintf("dnc:%s", workspaceID) }

func (s *RedisStore) Contains(ctx context.Context, workspaceID, number string) (bool, error) {
	return s.rdb.SIsMember(ctx, dncKey(workspaceID), number).Result()
}

func (s *RedisStore) Add(ctx context.Context, workspaceID, number string) error {
	return s.rdb.SAdd(ctx, dncKey(workspaceID), number).Err()
}

func (s *RedisStore) Remove(ctx context.Context, workspaceID, number string) error {
	return s.rdb.SRem(ctx, dncKey(workspaceID), number).Err()
}

func (s *RedisStore) List(ctx context.Context, workspaceID string) ([]string, error) {
	return s.rdb.SMembers(ctx, dncKey(workspaceID)).Result()
}

// MemoryStore is the in-memory Store for tests and early development.
type MemoryStore struct {
	mu   sync.Mutex
	sets map[string]map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sets: map[string]map[string]struct{}{}}
}

func (s *MemoryStore) Contains(ctx context.Context, workspaceID, number string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sets[workspaceID][number]
	return ok, nil
}

func (s *MemoryStore) Add(ctx context.Context, workspaceID, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sets[workspaceID] == nil {
		s.sets[workspaceID] = map[string]struct{}{}
	}
	s.sets[workspaceID][number] = struct{}{}
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, workspaceID, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets[workspaceID], number)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, workspaceID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sets[workspaceID]))
	for n := range s.sets[workspaceID] {
		out = append(out, n)
	}
	return out, nil
}
