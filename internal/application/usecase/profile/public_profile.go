package profile

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-card/internal/domain/profile"
	"github.com/khoahotran/profile-card/pkg/apperror"
)

// GetPublicProfile serves the visitor view of a profile by id. Errors carry
// apperror.ErrNotFound when nothing matches.
func (uc *ProfileUseCase) GetPublicProfile(ctx context.Context, profileID uuid.UUID) (*profile.PublicProfile, error) {
	ctx, span := tracer.Start(ctx, "GetPublicProfile")
	defer span.End()
	span.SetAttributes(attribute.String("profile_id", profileID.String()))

	return uc.cachedPublic(ctx, "id:"+profileID.String(), func() (*profile.Profile, error) {
		return uc.profileRepo.FindByID(ctx, profileID)
	})
}

// GetPublicProfileByToken resolves the token of a share link.
func (uc *ProfileUseCase) GetPublicProfileByToken(ctx context.Context, token string) (*profile.PublicProfile, error) {
	ctx, span := tracer.Start(ctx, "GetPublicProfileByToken")
	defer span.End()
	span.SetAttributes(attribute.String("share_token", token))

	if !ValidShareToken(token) {
		return nil, apperror.NewNotFound("profile", token)
	}
	link := ShareLinkFor(uc.provisioner.BaseURL(), token)

	return uc.cachedPublic(ctx, "token:"+token, func() (*profile.Profile, error) {
		return uc.profileRepo.FindByShareLink(ctx, link)
	})
}

// cachedPublic is cache-aside. A load that started before an update can
// store its view after the update's invalidation; the cache's public TTL
// bounds how long that stale view is served.
func (uc *ProfileUseCase) cachedPublic(ctx context.Context, key string, load func() (*profile.Profile, error)) (*profile.PublicProfile, error) {
	if uc.cache != nil {
		cached, err := uc.cache.GetPublicProfile(ctx, key)
		if err != nil {
			uc.logger.Warn("Public profile cache read failed", zap.String("key", key), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	p, err := load()
	if err != nil {
		return nil, err
	}
	view := p.Public()

	if uc.cache != nil {
		if err := uc.cache.SetPublicProfile(ctx, key, view); err != nil {
			uc.logger.Warn("Public profile cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return view, nil
}
