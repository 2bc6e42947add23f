package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/khoahotran/profile-card/internal/application/service"
	"github.com/khoahotran/profile-card/internal/domain/profile"
)

const (
	ownerKeyPrefix  = "profiles:owner:"
	publicKeyPrefix = "profiles:public:"
)

type redisViewCache struct {
	rdb       redis.Cmdable
	ttl       time.Duration
	publicTTL time.Duration
}

// NewRedisViewCache keeps owner lists for ttl and public views for
// publicTTL. Public reads are unauthenticated and racy against updates, so
// their lifetime is kept short.
func NewRedisViewCache(rdb redis.Cmdable, ttl, publicTTL time.Duration) service.ViewCache {
	if publicTTL <= 0 || publicTTL > ttl {
		publicTTL = ttl
	}
	return &redisViewCache{rdb: rdb, ttl: ttl, publicTTL: publicTTL}
}

func ownerKey(ownerID uuid.UUID) string {
	return ownerKeyPrefix + ownerID.String()
}

func publicKey(key string) string {
	return publicKeyPrefix + key
}

func (c *redisViewCache) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *redisViewCache) setJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *redisViewCache) GetOwnerProfiles(ctx context.Context, ownerID uuid.UUID) ([]*profile.Profile, error) {
	var out []*profile.Profile
	ok, err := c.getJSON(ctx, ownerKey(ownerID), &out)
	if err != nil || !ok {
		return nil, err
	}
	return out, nil
}

func (c *redisViewCache) SetOwnerProfiles(ctx context.Context, ownerID uuid.UUID, profiles []*profile.Profile) error {
	return c.setJSON(ctx, ownerKey(ownerID), profiles, c.ttl)
}

func (c *redisViewCache) GetPublicProfile(ctx context.Context, key string) (*profile.PublicProfile, error) {
	var out profile.PublicProfile
	ok, err := c.getJSON(ctx, publicKey(key), &out)
	if err != nil || !ok {
		return nil, err
	}
	return &out, nil
}

func (c *redisViewCache) SetPublicProfile(ctx context.Context, key string, p *profile.PublicProfile) error {
	return c.setJSON(ctx, publicKey(key), p, c.publicTTL)
}

func (c *redisViewCache) Invalidate(ctx context.Context, ownerID uuid.UUID, publicKeys ...string) error {
	keys := make([]string, 0, len(publicKeys)+1)
	if ownerID != uuid.Nil {
		keys = append(keys, ownerKey(ownerID))
	}
	for _, k := range publicKeys {
		keys = append(keys, publicKey(k))
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
