package media_storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/khoahotran/profile-card/internal/application/service"
	"github.com/khoahotran/profile-card/internal/config"
	"github.com/khoahotran/profile-card/pkg/logger"
)

type cloudinaryAdapter struct {
	cld    *cloudinary.Cloudinary
	logger logger.Logger
}

func NewCloudinaryAdapter(cfg config.Config, log logger.Logger) (service.BlobStore, error) {
	if cfg.Cloudinary.CloudName == "" {
		return nil, fmt.Errorf("cloudinary cloud_name has not config")
	}

	cld, err := cloudinary.NewFromParams(
		cfg.Cloudinary.CloudName,
		cfg.Cloudinary.ApiKey,
		cfg.Cloudinary.ApiSecret,
	)
	if err != nil {
		return nil, fmt.Errorf("cannot init cloudinary: %w", err)
	}

	log.Info("Connect Cloudinary successfully.")
	return &cloudinaryAdapter{cld: cld, logger: log}, nil
}

// splitKey maps "qr-codes/abc.png" to folder "qr-codes" and public id "abc".
// Cloudinary appends the format itself.
func splitKey(key string) (folder, publicID string) {
	folder, file := path.Split(key)
	return strings.TrimSuffix(folder, "/"), strings.TrimSuffix(file, path.Ext(file))
}

func resourceType(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	case contentType == "":
		return "auto"
	}
	return "raw"
}

func (a *cloudinaryAdapter) Put(ctx context.Context, key string, body io.Reader, opts service.PutOptions) (string, error) {
	folder, publicID := splitKey(key)

	var deliveryType api.DeliveryType = api.Authenticated
	if opts.Public {
		deliveryType = api.Upload
	}

	uploadParams := uploader.UploadParams{
		PublicID:     publicID,
		Folder:       folder,
		ResourceType: resourceType(opts.ContentType),
		Type:         deliveryType,
	}
	result, err := a.cld.Upload.Upload(ctx, body, uploadParams)
	if err != nil {
		return "", fmt.Errorf("failed to upload cloudinary: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload cloudinary: %s", result.Error.Message)
	}
	return result.SecureURL, nil
}

func (a *cloudinaryAdapter) Delete(ctx context.Context, key string) error {
	folder, publicID := splitKey(key)
	if folder != "" {
		publicID = folder + "/" + publicID
	}
	_, err := a.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID: publicID,
	})
	if err != nil {
		return fmt.Errorf("failed to delete cloudinary: %w", err)
	}
	return nil
}
