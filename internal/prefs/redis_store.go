// Package prefs persists each viewer's ignore list.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one ignore list per viewer. Writes replace the whole
// set in a single SET, so concurrent updates for the same viewer race
// under last-write-wins.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed preference store.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: "ignore:",
	}, nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "ignore:",
	}
}

func (s *RedisStore) key(viewerID string) string {
	return s.prefix + viewerID
}

// GetIgnored returns the viewer's ignored author labels, or an empty
// list when the viewer never set one.
func (s *RedisStore) GetIgnored(ctx context.Context, viewerID string) ([]string, error) {
	raw, err := s.client.Get(ctx, s.key(viewerID)).Result()
	if err == redis.Nil {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ignore list: %w", err)
	}

	var labels []string
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		return nil, fmt.Errorf("unmarshal ignore list: %w", err)
	}
	if labels == nil {
		labels = []string{}
	}
	return labels, nil
}

// SetIgnored replaces the viewer's entire ignore list. Labels are
// trimmed and deduplicated case-insensitively, first occurrence wins.
// Labels are never checked against real authors; stale entries simply
// never match.
func (s *RedisStore) SetIgnored(ctx context.Context, viewerID string, labels []string) error {
	deduped := normalizeLabels(labels)

	raw, err := json.Marshal(deduped)
	if err != nil {
		return fmt.Errorf("marshal ignore list: %w", err)
	}
	if err := s.client.Set(ctx, s.key(viewerID), raw, 0).Err(); err != nil {
		return fmt.Errorf("set ignore list: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func normalizeLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	deduped := make([]string, 0, len(labels))
	for _, label := range labels {
		trimmed := strings.TrimSpace(label)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, trimmed)
	}
	return deduped
}
