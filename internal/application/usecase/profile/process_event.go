package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-card/internal/application/service"
	"github.com/khoahotran/profile-card/internal/domain/profile"
	"github.com/khoahotran/profile-card/pkg/apperror"
	"github.com/khoahotran/profile-card/pkg/logger"
)

// ProcessProfileEventUseCase runs in the worker. It cleans up after deleted
// profiles; other events only need acknowledging.
type ProcessProfileEventUseCase struct {
	profileRepo profile.Repository
	blobs       service.BlobStore
	cache       service.ViewCache
	logger      logger.Logger
	newBackOff  func() backoff.BackOff
}

func NewProcessProfileEventUseCase(repo profile.Repository, blobs service.BlobStore, cache service.ViewCache, log logger.Logger) *ProcessProfileEventUseCase {
	return &ProcessProfileEventUseCase{
		profileRepo: repo,
		blobs:       blobs,
		cache:       cache,
		logger:      log,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			return b
		},
	}
}

// ExecuteWithRetry keeps retrying one event until it succeeds or ctx ends.
// The consumer commits offsets in order, so skipping a failed event would
// lose it for good.
func (uc *ProcessProfileEventUseCase) ExecuteWithRetry(ctx context.Context, payload service.ProfileEventPayload) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, uc.Execute(ctx, payload)
	},
		backoff.WithBackOff(uc.newBackOff()),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			uc.logger.Warn("Profile event failed, retrying",
				zap.String("profile_id", payload.ProfileID.String()), zap.Duration("retry_in", next), zap.Error(err))
		}),
	)
	return err
}

func (uc *ProcessProfileEventUseCase) Execute(ctx context.Context, payload service.ProfileEventPayload) error {
	ctx, span := tracer.Start(ctx, "ProcessProfileEvent")
	defer span.End()

	log := uc.logger.With(
		zap.String("event_type", string(payload.EventType)),
		zap.String("profile_id", payload.ProfileID.String()),
	)
	log.Info("Processing profile event")

	if payload.EventType != service.ProfileEventDeleted {
		return nil
	}

	// A redelivered event must not remove the image of a profile that exists.
	if _, err := uc.profileRepo.FindByID(ctx, payload.ProfileID); err == nil {
		log.Warn("Profile still exists, skip cleanup")
		return nil
	} else if !errors.Is(err, apperror.ErrNotFound) {
		span.RecordError(err)
		return fmt.Errorf("check profile %s failed: %w", payload.ProfileID, err)
	}

	if uc.cache != nil {
		if err := uc.cache.Invalidate(ctx, payload.OwnerID, PublicCacheKeys(payload.ProfileID, payload.ShareToken)...); err != nil {
			log.Warn("Cache eviction failed", zap.Error(err))
		}
	}

	if payload.ShareToken == "" {
		log.Info("Profile had no share identity, nothing to remove")
		return nil
	}

	key := QRCodeKey(payload.ShareToken)
	if err := uc.blobs.Delete(ctx, key); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete QR code %s failed: %w", key, err)
	}
	log.Info("Removed QR code of deleted profile", zap.String("key", key))
	return nil
}
