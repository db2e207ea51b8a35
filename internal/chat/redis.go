package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "invoicechat:session:"

// RedisStore keeps transcripts in Redis lists. Every access refreshes the
// idle TTL, so key expiry is the session teardown.
type RedisStore struct {
	client *redis.Client
	idle   time.Duration
}

// RedisOptions configures the connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions, idle time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStore{client: client, idle: idle}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func metaKey(id string) string       { return redisKeyPrefix + id }
func transcriptKey(id string) string { return redisKeyPrefix + id + ":transcript" }

func (s *RedisStore) Create(ctx context.Context, id string) error {
	if err := s.client.Set(ctx, metaKey(id), time.Now().UTC().Format(time.RFC3339), s.idle).Err(); err != nil {
		return fmt.Errorf("could not create session: %w", err)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := s.client.Expire(ctx, metaKey(id), s.idle).Result()
	if err != nil {
		return false, fmt.Errorf("could not look up session: %w", err)
	}
	if ok {
		s.client.Expire(ctx, transcriptKey(id), s.idle)
	}
	return ok, nil
}

func (s *RedisStore) Append(ctx context.Context, id string, entries ...Entry) error {
	ok, err := s.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}

	values := make([]interface{}, len(entries))
	for i, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		values[i] = data
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, transcriptKey(id), values...)
		pipe.Expire(ctx, transcriptKey(id), s.idle)
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not append to transcript: %w", err)
	}
	return nil
}

func (s *RedisStore) Transcript(ctx context.Context, id string) ([]Entry, error) {
	ok, err := s.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionNotFound
	}

	raw, err := s.client.LRange(ctx, transcriptKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("could not read transcript: %w", err)
	}
	out := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("corrupt transcript entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, metaKey(id), transcriptKey(id)).Err(); err != nil {
		return fmt.Errorf("could not delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if !strings.HasSuffix(iter.Val(), ":transcript") {
			n++
		}
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("could not count sessions: %w", err)
	}
	return n, nil
}
