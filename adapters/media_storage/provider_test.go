package media_storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/profile-card/internal/application/service"
	"github.com/khoahotran/profile-card/internal/config"
	"github.com/khoahotran/profile-card/pkg/logger"
)

func TestNewBlobStore_Memory(t *testing.T) {
	var cfg config.Config
	cfg.App.BaseURL = "http://localhost:8080"
	cfg.Storage.Provider = ProviderMemory
	ctx := context.Background()

	store, handler, err := NewBlobStore(ctx, cfg, logger.NewNopLogger())
	require.NoError(t, err)
	require.NotNil(t, handler)

	url, err := store.Put(ctx, "qr-codes/abc.png", strings.NewReader("png"), service.PutOptions{ContentType: "image/png", Public: true})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/blobs/qr-codes/abc.png", url)

	rr := httptest.NewRecorder()
	http.StripPrefix(LocalBlobPath, handler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/blobs/qr-codes/abc.png", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, "png", rr.Body.String())
}

func TestNewBlobStore_UnknownProvider(t *testing.T) {
	var cfg config.Config
	cfg.Storage.Provider = "ftp"

	_, _, err := NewBlobStore(context.Background(), cfg, logger.NewNopLogger())
	assert.Error(t, err)
}

func TestNewBlobStore_CloudinaryNeedsCloudName(t *testing.T) {
	var cfg config.Config
	cfg.Storage.Provider = ProviderCloudinary

	_, _, err := NewBlobStore(context.Background(), cfg, logger.NewNopLogger())
	assert.Error(t, err)
}
