package asset

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-card/internal/application/service"
	"github.com/khoahotran/profile-card/pkg/apperror"
	"github.com/khoahotran/profile-card/pkg/logger"
)

const (
	AssetFolder  = "assets"
	MaxAssetSize = 10 << 20
)

var (
	ErrAssetTooLarge = errors.New("asset exceeds size limit")
	tracer           = otel.Tracer("asset_usecase")
)

// UploadAssetUseCase stores avatar and attachment binaries so profiles can
// reference them by URL.
type UploadAssetUseCase struct {
	blobs  service.BlobStore
	logger logger.Logger
}

func NewUploadAssetUseCase(blobs service.BlobStore, log logger.Logger) *UploadAssetUseCase {
	return &UploadAssetUseCase{blobs: blobs, logger: log}
}

type UploadAssetInput struct {
	OwnerID     uuid.UUID
	Filename    string
	ContentType string
	File        io.Reader
}

// UploadAssetOutput matches the attachment fields of a profile form.
type UploadAssetOutput struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

func (uc *UploadAssetUseCase) Execute(ctx context.Context, input UploadAssetInput) (*UploadAssetOutput, error) {
	ctx, span := tracer.Start(ctx, "Execute")
	defer span.End()

	if input.OwnerID == uuid.Nil {
		err := apperror.NewUnauthorized("no authenticated caller", nil)
		span.RecordError(err)
		return nil, err
	}
	if input.File == nil {
		return nil, apperror.NewInvalidInput("file is required", nil)
	}

	br := bufio.NewReaderSize(input.File, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, apperror.NewInvalidInput("unreadable file", err)
	}
	if len(head) == 0 {
		return nil, apperror.NewInvalidInput("file is empty", nil)
	}

	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(head)
	}

	name := path.Base(strings.ReplaceAll(input.Filename, "\\", "/"))
	if name == "." || name == "/" {
		name = "file"
	}
	key := fmt.Sprintf("%s/%s/%s%s", AssetFolder, input.OwnerID, uuid.New(), strings.ToLower(path.Ext(name)))

	body := &limitedReader{r: br, remaining: MaxAssetSize}
	url, err := uc.blobs.Put(ctx, key, body, service.PutOptions{ContentType: contentType, Public: true})
	if body.exceeded {
		err = apperror.NewInvalidInput(fmt.Sprintf("file larger than %d bytes", MaxAssetSize), ErrAssetTooLarge)
		span.RecordError(err)
		if url != "" {
			_ = uc.blobs.Delete(ctx, key)
		}
		return nil, err
	}
	if err != nil {
		uc.logger.Error("Failed to upload asset", err, zap.String("owner_id", input.OwnerID.String()), zap.String("key", key))
		err = apperror.NewUpstream("blob store", "upload asset", err)
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("asset_key", key))
	uc.logger.Info("Asset uploaded", zap.String("owner_id", input.OwnerID.String()), zap.String("url", url))
	return &UploadAssetOutput{Name: name, Type: contentType, URL: url}, nil
}

// limitedReader fails the upload instead of silently truncating it.
type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		var extra [1]byte
		if n, _ := l.r.Read(extra[:]); n > 0 {
			l.exceeded = true
			return 0, ErrAssetTooLarge
		}
		return 0, io.EOF
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}
