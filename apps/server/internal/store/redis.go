package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisTableKeyPrefix = "holdem:table:"
	redisTableIndexKey  = "holdem:tables"
)

// RedisStore keeps each table as a hash {version, body, updated_at_ms} plus an index set.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// TTL expires idle documents; zero keeps them.
	TTL time.Duration
}

func OpenRedis(ctx context.Context, opt RedisOptions) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opt.Addr,
		Password: opt.Password,
		DB:       opt.DB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opt.Addr, err)
	}
	return NewRedisStore(rdb, opt.TTL), nil
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// saveScript writes the hash only when the incoming version is not older.
var saveScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'version')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1], 'version', ARGV[1], 'body', ARGV[2], 'updated_at_ms', ARGV[3])
redis.call('SADD', KEYS[2], ARGV[4])
if tonumber(ARGV[5]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[5])
end
return 1
`)

func (s *RedisStore) SaveTable(ctx context.Context, doc Document) error {
	keys := []string{redisTableKeyPrefix + doc.ID, redisTableIndexKey}
	err := saveScript.Run(ctx, s.rdb, keys,
		doc.Version, doc.Body, doc.UpdatedAt.UTC().UnixMilli(), doc.ID, s.ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("save table %s: %w", doc.ID, err)
	}
	return nil
}

func (s *RedisStore) LoadTable(ctx context.Context, id string) (Document, error) {
	vals, err := s.rdb.HMGet(ctx, redisTableKeyPrefix+id, "version", "body", "updated_at_ms").Result()
	if errors.Is(err, redis.Nil) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("load table %s: %w", id, err)
	}
	if len(vals) != 3 || vals[0] == nil || vals[1] == nil {
		return Document{}, ErrNotFound
	}
	version, _ := strconv.ParseUint(fmt.Sprint(vals[0]), 10, 64)
	ms, _ := strconv.ParseInt(fmt.Sprint(vals[2]), 10, 64)
	return Document{
		ID:        id,
		Version:   version,
		UpdatedAt: time.UnixMilli(ms).UTC(),
		Body:      []byte(fmt.Sprint(vals[1])),
	}, nil
}

func (s *RedisStore) DeleteTable(ctx context.Context, id string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisTableKeyPrefix+id)
		pipe.SRem(ctx, redisTableIndexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete table %s: %w", id, err)
	}
	return nil
}

// IDs drops index entries whose hash has expired.
func (s *RedisStore) IDs(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, redisTableIndexKey).Result()
	if err != nil {
		return nil, err
	}
	out := ids[:0]
	for _, id := range ids {
		n, err := s.rdb.Exists(ctx, redisTableKeyPrefix+id).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			s.rdb.SRem(ctx, redisTableIndexKey, id)
			continue
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *RedisStore) Close() error { return s.rdb.Close() }
