package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"enrollment/internal/enrollment/models"
	"enrollment/pkg/platform/sentinel"
)

const (
	courseKeyPrefix = "ledger:course:"
	holdersPrefix   = "ledger:holders:"
	courseIndexKey  = "ledger:courses"

	fieldCapacity = "capacity"
	fieldOccupied = "occupied"
	fieldMeta     = "meta"
)

// Scripts return -1 for a missing course, 0 when the guard fails, 1 otherwise.
var (
	seedScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then return 0 end
redis.call('HSET', KEYS[1], 'capacity', ARGV[1], 'occupied', ARGV[2], 'meta', ARGV[3])
redis.call('SADD', KEYS[2], ARGV[4])
return 1
`)

	reserveScript = redis.NewScript(`
local cap = redis.call('HGET', KEYS[1], 'capacity')
if not cap then return -1 end
if redis.call('SISMEMBER', KEYS[2], ARGV[1]) == 1 then return 1 end
local occ = tonumber(redis.call('HGET', KEYS[1], 'occupied') or '0')
if occ >= tonumber(cap) then return 0 end
redis.call('HINCRBY', KEYS[1], 'occupied', 1)
redis.call('SADD', KEYS[2], ARGV[1])
return 1
`)

	releaseScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
if redis.call('SREM', KEYS[2], ARGV[1]) == 0 then return 0 end
local occ = tonumber(redis.call('HGET', KEYS[1], 'occupied') or '0')
if occ > 0 then redis.call('HINCRBY', KEYS[1], 'occupied', -1) end
return 1
`)

	holdsScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
return redis.call('SISMEMBER', KEYS[2], ARGV[1])
`)
)

// RedisStore keeps seat counts in Redis hashes and each course's holders in a
// set beside it. Every check-and-mutate runs as one Lua script, which Redis
// executes atomically.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed seat ledger.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Seed(ctx context.Context, course *models.Course) error {
	if course == nil {
		return fmt.Errorf("course is required")
	}
	if err := course.Validate(); err != nil {
		return fmt.Errorf("seed course: %w", err)
	}
	meta, err := json.Marshal(course)
	if err != nil {
		return fmt.Errorf("encode course: %w", err)
	}
	keys := []string{courseKeyPrefix + course.Key, courseIndexKey}
	if err := seedScript.Run(ctx, s.client, keys, course.Capacity, course.Occupied, meta, course.Key).Err(); err != nil {
		return fmt.Errorf("seed course: %w", err)
	}
	return nil
}

func (s *RedisStore) TryReserve(ctx context.Context, courseKey, holder string) (bool, error) {
	return s.runGuarded(ctx, reserveScript, courseKey, holder, "reserve seat")
}

func (s *RedisStore) Release(ctx context.Context, courseKey, holder string) (bool, error) {
	return s.runGuarded(ctx, releaseScript, courseKey, holder, "release seat")
}

func (s *RedisStore) Holds(ctx context.Context, courseKey, holder string) (bool, error) {
	return s.runGuarded(ctx, holdsScript, courseKey, holder, "check seat hold")
}

func (s *RedisStore) Get(ctx context.Context, courseKey string) (*models.Course, error) {
	fields, err := s.client.HGetAll(ctx, courseKeyPrefix+courseKey).Result()
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("course %s: %w", courseKey, sentinel.ErrNotFound)
	}
	return decodeCourse(fields)
}

func (s *RedisStore) List(ctx context.Context) ([]*models.Course, error) {
	keys, err := s.client.SMembers(ctx, courseIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, courseKeyPrefix+key)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	courses := make([]*models.Course, 0, len(keys))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		course, err := decodeCourse(fields)
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Key < courses[j].Key })
	return courses, nil
}

func (s *RedisStore) runGuarded(ctx context.Context, script *redis.Script, courseKey, holder, op string) (bool, error) {
	keys := []string{courseKeyPrefix + courseKey, holdersPrefix + courseKey}
	res, err := script.Run(ctx, s.client, keys, holder).Int()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	switch res {
	case -1:
		return false, fmt.Errorf("course %s: %w", courseKey, sentinel.ErrNotFound)
	case 0:
		return false, nil
	default:
		return true, nil
	}
}

func decodeCourse(fields map[string]string) (*models.Course, error) {
	var course models.Course
	if err := json.Unmarshal([]byte(fields[fieldMeta]), &course); err != nil {
		return nil, fmt.Errorf("decode course: %w", err)
	}
	capacity, err := strconv.Atoi(fields[fieldCapacity])
	if err != nil {
		return nil, fmt.Errorf("decode capacity: %w", err)
	}
	occupied, err := strconv.Atoi(fields[fieldOccupied])
	if err != nil {
		return nil, fmt.Errorf("decode occupied: %w", err)
	}
	course.Capacity = capacity
	course.Occupied = occupied
	return &course, nil
}
