// Package redis caches resolved admin sessions in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
)

const DefaultKeyPrefix = "envadmin:session"

type SessionCache struct {
	client    goredis.Cmdable
	keyPrefix string
}

type Option func(*SessionCache)

func WithKeyPrefix(prefix string) Option {
	return func(c *SessionCache) {
		c.keyPrefix = prefix
	}
}

func NewSessionCache(client goredis.Cmdable, opts ...Option) *SessionCache {
	c := &SessionCache{client: client, keyPrefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromURL parses a redis:// URL and returns a connected client.
func NewClientFromURL(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

type cachedSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (c *SessionCache) key(tokenHash string) string {
	if c.keyPrefix == "" {
		return tokenHash
	}
	return c.keyPrefix + ":" + tokenHash
}

func (c *SessionCache) Get(ctx context.Context, tokenHash string) (domain.Session, bool, error) {
	raw, err := c.client.Get(ctx, c.key(tokenHash)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("get session: %w", err)
	}

	var rec cachedSession
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Session{}, false, fmt.Errorf("decode cached session: %w", err)
	}
	return domain.Session{
		ID:        rec.ID,
		TokenHash: tokenHash,
		UserID:    rec.UserID,
		Email:     rec.Email,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, true, nil
}

// Set stores s for ttl. A non-positive ttl is a no-op since the session is
// already expired.
func (c *SessionCache) Set(ctx context.Context, s domain.Session, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(cachedSession{
		ID:        s.ID,
		UserID:    s.UserID,
		Email:     s.Email,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := c.client.Set(ctx, c.key(s.TokenHash), raw, ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (c *SessionCache) Delete(ctx context.Context, tokenHash string) error {
	if err := c.client.Del(ctx, c.key(tokenHash)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
