// Package cache is a fail-safe Redis layer: when Redis is absent or
// unreachable every operation degrades to a cache miss, never an error. It
// also owns the key namespaces the module stores under.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key namespaces. Refresh tokens are keyed by token id (JTI), subscription
// status snapshots by username.
func RefreshTokenKey(tokenID string) string { return "refresh_token:" + tokenID }

func SubscriptionStatusKey(username string) string { return "subscription:" + username }

// Client wraps redis.Client with fail-safe JSON accessors. A nil *Client is
// valid and behaves as an always-missing cache.
type Client struct {
	rdb *redis.Client
}

// New creates a new Redis-backed cache client.
func New(addr, password string, db int) *Client {
	return &Client{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// GetJSON loads the value stored at key into out and reports a hit. Misses,
// connectivity errors, and undecodable values all read as misses.
func (c *Client) GetJSON(ctx context.Context, key string, out interface{}) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

// SetJSON stores value at key with a TTL. Marshal and connectivity errors are
// swallowed; the next read is simply a miss.
func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, key, data, ttl)
}

// Delete removes a key, ignoring connectivity errors.
func (c *Client) Delete(ctx context.Context, key string) {
	if c == nil || c.rdb == nil {
		return
	}
	c.rdb.Del(ctx, key)
}
