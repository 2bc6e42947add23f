package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/khoahotran/profile-card/internal/domain/profile"
)

// ViewCache holds rendered read models. A miss is (nil, nil).
type ViewCache interface {
	GetOwnerProfiles(ctx context.Context, ownerID uuid.UUID) ([]*profile.Profile, error)
	SetOwnerProfiles(ctx context.Context, ownerID uuid.UUID, profiles []*profile.Profile) error
	GetPublicProfile(ctx context.Context, key string) (*profile.PublicProfile, error)
	SetPublicProfile(ctx context.Context, key string, p *profile.PublicProfile) error
	// Invalidate drops the owner's list view and the public views of one profile.
	Invalidate(ctx context.Context, ownerID uuid.UUID, publicKeys ...string) error
}
