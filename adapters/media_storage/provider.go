package media_storage

import (
	"context"
	"fmt"
	"net/http"

	"github.com/khoahotran/profile-card/adapters/memory"
	"github.com/khoahotran/profile-card/internal/application/service"
	"github.com/khoahotran/profile-card/internal/config"
	"github.com/khoahotran/profile-card/pkg/logger"
)

const (
	ProviderCloudinary = "cloudinary"
	ProviderMinio      = "minio"
	ProviderMemory     = "memory"

	// LocalBlobPath is where the API serves memory-provider objects.
	LocalBlobPath = "/blobs"
)

// NewBlobStore builds the provider named by storage.provider. The handler is
// non-nil only for the memory provider, whose objects the API serves itself.
func NewBlobStore(ctx context.Context, cfg config.Config, log logger.Logger) (service.BlobStore, http.Handler, error) {
	switch cfg.Storage.Provider {
	case ProviderCloudinary:
		store, err := NewCloudinaryAdapter(cfg, log)
		return store, nil, err
	case ProviderMinio:
		store, err := NewMinioAdapter(ctx, cfg, log)
		return store, nil, err
	case ProviderMemory:
		log.Warn("Using in-memory blob store; uploads are lost on restart")
		store := memory.NewBlobStore(cfg.App.BaseURL + LocalBlobPath)
		return store, store, nil
	}
	return nil, nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
}
