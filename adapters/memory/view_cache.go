package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/khoahotran/profile-card/internal/application/service"
	"github.com/khoahotran/profile-card/internal/domain/profile"
)

// ViewCache stores JSON like the Redis cache does, so callers never share
// pointers with cached values.
type ViewCache struct {
	mu      sync.Mutex
	owners  map[uuid.UUID][]byte
	publics map[string][]byte
}

var _ service.ViewCache = (*ViewCache)(nil)

func NewViewCache() *ViewCache {
	return &ViewCache{
		owners:  make(map[uuid.UUID][]byte),
		publics: make(map[string][]byte),
	}
}

func (c *ViewCache) GetOwnerProfiles(ctx context.Context, ownerID uuid.UUID) ([]*profile.Profile, error) {
	c.mu.Lock()
	raw, ok := c.owners[ownerID]
	c.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var out []*profile.Profile
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ViewCache) SetOwnerProfiles(ctx context.Context, ownerID uuid.UUID, profiles []*profile.Profile) error {
	raw, err := json.Marshal(profiles)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.owners[ownerID] = raw
	c.mu.Unlock()
	return nil
}

func (c *ViewCache) GetPublicProfile(ctx context.Context, key string) (*profile.PublicProfile, error) {
	c.mu.Lock()
	raw, ok := c.publics[key]
	c.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var out profile.PublicProfile
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ViewCache) SetPublicProfile(ctx context.Context, key string, p *profile.PublicProfile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.publics[key] = raw
	c.mu.Unlock()
	return nil
}

func (c *ViewCache) Invalidate(ctx context.Context, ownerID uuid.UUID, publicKeys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.owners, ownerID)
	for _, k := range publicKeys {
		delete(c.publics, k)
	}
	return nil
}

func (c *ViewCache) HasOwner(ownerID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.owners[ownerID]
	return ok
}

func (c *ViewCache) HasPublic(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.publics[key]
	return ok
}
