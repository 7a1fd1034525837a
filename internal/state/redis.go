package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces record keys.
const DefaultRedisPrefix = "jiramirror:record:"

// maxTxRetries bounds optimistic-lock retries in Update.
const maxTxRetries = 16

// RedisStore keeps one JSON value per record. Expiry is delegated to the
// Redis key TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	opts   options
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL, prefix string, opts ...Option) (*RedisStore, error) {
	ropts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(ropts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, prefix, opts...), nil
}

// NewRedisStoreWithClient creates a store from an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string, opts ...Option) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, opts: newOptions(opts)}
}

func (s *RedisStore) key(issueKey string) string {
	return s.prefix + issueKey
}

// Get loads the record for key.
func (s *RedisStore) Get(ctx context.Context, key string) (Record, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get sync record: %w", err)
	}
	return s.decode(data)
}

// CreateIfAbsent uses SETNX so exactly one concurrent writer wins.
func (s *RedisStore) CreateIfAbsent(ctx context.Context, rec Record) error {
	rec = rec.Clone()
	s.opts.stamp(&rec, s.opts.now())

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal sync record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(rec.JiraIssueKey), data, s.opts.ttl).Result()
	if err != nil {
		return fmt.Errorf("create sync record: %w", err)
	}
	if !ok {
		return ErrExists
	}
	return nil
}

// Update runs fn inside WATCH/MULTI and retries when another writer touched
// the key in between.
func (s *RedisStore) Update(ctx context.Context, key string, fn Mutator) (Record, error) {
	rkey := s.key(key)
	var out Record

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, rkey).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get sync record: %w", err)
		}

		cur, err := s.decode(data)
		if err != nil {
			return err
		}

		next, err := applyMutator(cur, fn)
		if err != nil {
			return err
		}
		s.opts.stamp(&next, s.opts.now())

		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal sync record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rkey, encoded, s.opts.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		out = next
		return nil
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, rkey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return Record{}, err
		}
		return out, nil
	}
	return Record{}, fmt.Errorf("update sync record %q: too many concurrent writers", key)
}

// Purge is a no-op: Redis expires keys itself.
func (s *RedisStore) Purge(context.Context) (int, error) {
	return 0, nil
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) decode(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshal sync record: %w", err)
	}
	if rec.Comments == nil {
		rec.Comments = map[string]int64{}
	}
	return rec, nil
}
