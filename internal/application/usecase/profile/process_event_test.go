package profile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/profile-card/adapters/memory"
	"github.com/khoahotran/profile-card/adapters/qr"
	"github.com/khoahotran/profile-card/internal/application/service"
	"github.com/khoahotran/profile-card/pkg/logger"
)

func TestProcessProfileEvent(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNopLogger()
	repo := memory.NewProfileRepo()
	blobs := memory.NewBlobStore("https://blobs.test")
	cache := memory.NewViewCache()
	events := memory.NewEventRecorder()
	prov := NewProvisioner(testBaseURL, repo, qr.NewPNGRenderer(qr.DefaultSize), blobs, nil, log)
	uc := NewProfileUseCase(repo, prov, cache, events, log)
	worker := NewProcessProfileEventUseCase(repo, blobs, cache, log)

	owner := uuid.New()
	created := uc.CreateProfile(ctx, owner, ProfileForm{Name: "Ada"})
	require.True(t, created.Success)
	token, _ := TokenFromShareLink(*created.Data.ShareLink)

	t.Run("created event is acknowledged", func(t *testing.T) {
		require.NoError(t, worker.Execute(ctx, events.Events()[0]))
		assert.Equal(t, 1, blobs.Len())
	})

	t.Run("stale delete keeps the image of a live profile", func(t *testing.T) {
		err := worker.Execute(ctx, service.ProfileEventPayload{
			EventType:  service.ProfileEventDeleted,
			ProfileID:  created.Data.ID,
			OwnerID:    owner,
			ShareToken: token,
		})
		require.NoError(t, err)
		_, ok := blobs.Get(QRCodeKey(token))
		assert.True(t, ok)
	})

	t.Run("delete removes QR code and cached views", func(t *testing.T) {
		_, err := uc.GetPublicProfileByToken(ctx, token)
		require.NoError(t, err)
		require.True(t, uc.DeleteProfile(ctx, owner, created.Data.ID).Success)

		all := events.Events()
		deleted := all[len(all)-1]
		require.Equal(t, service.ProfileEventDeleted, deleted.EventType)

		require.NoError(t, worker.Execute(ctx, deleted))
		_, ok := blobs.Get(QRCodeKey(token))
		assert.False(t, ok)
		assert.False(t, cache.HasPublic("token:"+token))
	})
}

// flakyBlobs fails the first n deletes.
type flakyBlobs struct {
	*memory.BlobStore
	failures int
	calls    int
}

func (b *flakyBlobs) Delete(ctx context.Context, key string) error {
	b.calls++
	if b.calls <= b.failures {
		return errors.New("blob store unavailable")
	}
	return b.BlobStore.Delete(ctx, key)
}

func TestProcessProfileEvent_RetriesUntilCleanupSucceeds(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNopLogger()
	repo := memory.NewProfileRepo()
	blobs := &flakyBlobs{BlobStore: memory.NewBlobStore("https://blobs.test"), failures: 2}
	_, err := blobs.Put(ctx, QRCodeKey("aaaaaaaaaa"), strings.NewReader("png"), service.PutOptions{Public: true})
	require.NoError(t, err)

	worker := NewProcessProfileEventUseCase(repo, blobs, nil, log)
	worker.newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }

	deleted := service.ProfileEventPayload{EventType: service.ProfileEventDeleted, ProfileID: uuid.New(), ShareToken: "aaaaaaaaaa"}
	require.Error(t, worker.Execute(ctx, deleted))
	require.NoError(t, worker.ExecuteWithRetry(ctx, deleted))

	assert.Equal(t, 3, blobs.calls)
	assert.Equal(t, 0, blobs.Len())
}

func TestProcessProfileEvent_RetryStopsWithContext(t *testing.T) {
	log := logger.NewNopLogger()
	blobs := &flakyBlobs{BlobStore: memory.NewBlobStore("https://blobs.test"), failures: 1 << 30}
	worker := NewProcessProfileEventUseCase(memory.NewProfileRepo(), blobs, nil, log)
	worker.newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := worker.ExecuteWithRetry(ctx, service.ProfileEventPayload{
		EventType: service.ProfileEventDeleted, ProfileID: uuid.New(), ShareToken: "aaaaaaaaaa",
	})
	assert.Error(t, err)
	assert.Greater(t, blobs.calls, 1)
}
