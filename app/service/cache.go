package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vibast-solutions/ms-go-identity/app/entity"
)

const (
	identityKeyPrefix   = "identity:"
	identityCacheSchema = 1
)

// CachedIdentity is the versioned cache payload: only the fields needed for
// request-time authorization, never the full user record.
type CachedIdentity struct {
	Version   int    `json:"v"`
	ID        uint64 `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Confirmed bool   `json:"confirmed"`
}

// IdentityCache is a best-effort, TTL-bounded accelerator in front of the
// credential store. It is never authoritative: callers treat every error and
// every miss as a fall-through to the store.
type IdentityCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdentityCache(rdb *redis.Client, ttl time.Duration) *IdentityCache {
	return &IdentityCache{rdb: rdb, ttl: ttl}
}

func (c *IdentityCache) key(email string) string {
	return identityKeyPrefix + email
}

// Get returns the cached identity for email, or nil on a miss. Payloads with
// an unknown schema version are treated as misses.
func (c *IdentityCache) Get(ctx context.Context, email string) (*CachedIdentity, error) {
	raw, err := c.rdb.Get(ctx, c.key(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cached CachedIdentity
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, nil
	}
	if cached.Version != identityCacheSchema {
		return nil, nil
	}
	return &cached, nil
}

// Set writes the authorization view of user and then sets the TTL explicitly;
// the store itself never evicts on its own.
func (c *IdentityCache) Set(ctx context.Context, user *entity.User) error {
	payload, err := json.Marshal(CachedIdentity{
		Version:   identityCacheSchema,
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		Confirmed: user.Confirmed,
	})
	if err != nil {
		return err
	}

	key := c.key(user.Email)
	if err := c.rdb.Set(ctx, key, payload, 0).Err(); err != nil {
		return err
	}
	return c.rdb.Expire(ctx, key, c.ttl).Err()
}

func (c *IdentityCache) Invalidate(ctx context.Context, email string) error {
	return c.rdb.Del(ctx, c.key(email)).Err()
}
