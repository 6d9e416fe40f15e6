package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mentoria/mentoria-go/internal/model"
)

const (
	sessionCacheKeyPrefix      = "mentoria:session:"
	userSessionsCacheKeyPrefix = "mentoria:user-sessions:"
)

// SessionCache keeps validated sessions in Redis with a TTL bounded by the
// session's own expiry. Keys hold a hash of the token, never the token itself.
type SessionCache struct {
	client *redis.Client
	maxTTL time.Duration
}

// NewSessionCache creates a cache whose entries live at most maxTTL.
func NewSessionCache(client *redis.Client, maxTTL time.Duration) *SessionCache {
	return &SessionCache{client: client, maxTTL: maxTTL}
}

func sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return sessionCacheKeyPrefix + hex.EncodeToString(sum[:])
}

func userSessionsKey(userID int64) string {
	return userSessionsCacheKeyPrefix + strconv.FormatInt(userID, 10)
}

// Get returns the cached session, or (nil, nil) if not found.
func (c *SessionCache) Get(ctx context.Context, token string) (*model.SessionInfo, error) {
	data, err := c.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var info model.SessionInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Set caches info until it expires or maxTTL elapses, whichever comes first.
func (c *SessionCache) Set(ctx context.Context, token string, info model.SessionInfo) error {
	ttl := time.Until(info.ExpiresAt)
	if ttl > c.maxTTL {
		ttl = c.maxTTL
	}
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(info)
	if err != nil {
		return err
	}

	key := sessionKey(token)
	userKey := userSessionsKey(info.UserID)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, ttl)
		pipe.SAdd(ctx, userKey, key)
		pipe.Expire(ctx, userKey, c.maxTTL)
		return nil
	})
	return err
}

// Delete evicts one token.
func (c *SessionCache) Delete(ctx context.Context, token string) error {
	return c.client.Del(ctx, sessionKey(token)).Err()
}

// DeleteUser evicts every cached session of a user.
func (c *SessionCache) DeleteUser(ctx context.Context, userID int64) error {
	userKey := userSessionsKey(userID)
	keys, err := c.client.SMembers(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return c.client.Del(ctx, append(keys, userKey)...).Err()
}

// Ping checks the Redis connection.
func (c *SessionCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
