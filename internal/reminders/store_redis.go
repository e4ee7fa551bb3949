package reminders

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps reminder bodies as JSON strings and the due-index as a
// single sorted set scored by the due timestamp.
//
// Keys:
//   reminder:{workspace}:{id}  -> JSON body
//   reminders:index:{workspace} -> SET of ids
//   reminders:due              -> ZSET, member "{workspace}|{id}", score dueAt unix

type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

const dueKey = "reminders:due"

func bodyKey(workspaceID, id string) string {
	return fmt.Sprintf("reminder:%s:%s", workspaceID, id)
}

func indexKey(workspaceID string) string {
	return fmt.Sprintf("reminders:index:%s", workspaceID)
}

// popDueScript claims due entries atomically: a member is removed from the
// sorted set in the same script that returns it, so two pollers cannot both
// fire the same reminder.
var popDueScript = redis.NewScript(`
-- KEYS[1] = due zset
-- ARGV[1] = now (unix seconds)
-- ARGV[2] = limit
local members = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
if #members > 0 then
  redis.call('ZREM', KEYS[1], unpack(members))
end
return members
`)

func (s *RedisStore) Put(ctx context.Context, r Reminder) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, bodyKey(r.WorkspaceID, r.ID), body, 0)
	pipe.SAdd(ctx, indexKey(r.WorkspaceID), r.ID)
	if r.Completed() {
		pipe.ZRem(ctx, dueKey, dueMember(r.WorkspaceID, r.ID))
	} else {
		pipe.ZAdd(ctx, dueKey, redis.Z{
			Score:  float64(r.DueAt.Unix()),
			Member: dueMember(r.WorkspaceID, r.ID),
		})
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Get(ctx context.Context, workspaceID, id string) (Reminder, error) {
	body, err := s.rdb.Get(ctx, bodyKey(workspaceID, id)).Bytes()
	if err == redis.Nil {
		return Reminder{}, ErrNotFound
	}
	if err != nil {
		return Reminder{}, err
	}
	var r Reminder
	if err := json.Unmarshal(body, &r); err != nil {
		return Reminder{}, err
	}
	return r, nil
}

func (s *RedisStore) List(ctx context.Context, workspaceID string) ([]Reminder, error) {
	ids, err := s.rdb.SMembers(ctx, indexKey(workspaceID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Reminder, 0, len(ids))
	for _, id := range ids {
		r, err := s.Get(ctx, workspaceID, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

func (s *RedisStore) RemoveDue(ctx context.Context, workspaceID, id string) error {
	return s.rdb.ZRem(ctx, dueKey, dueMember(workspaceID, id)).Err()
}

func (s *RedisStore) PopDue(ctx context.Context, now time.Time, limit int) ([]Reminder, error) {
	if limit <= 0 {
		limit = 50
	}
	members, err := popDueScript.Run(ctx, s.rdb, []string{dueKey}, now.Unix(), limit).StringSlice()
	if err != nil {
		return nil, err
	}
	var out []Reminder
	for _, m := range members {
		ws, id, ok := splitDueMember(m)
		if !ok {
			continue
		}
		r, err := s.Get(ctx, ws, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
