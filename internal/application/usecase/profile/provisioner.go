package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/vincent-petithory/dataurl"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-card/internal/application/service"
	"github.com/khoahotran/profile-card/internal/domain/profile"
	"github.com/khoahotran/profile-card/pkg/apperror"
	"github.com/khoahotran/profile-card/pkg/logger"
)

const (
	ShareTokenLength = 10
	SharePathPrefix  = "/p/"
	QRCodeFolder     = "qr-codes"

	maxTokenAttempts = 5
)

var (
	ErrTokenSpaceExhausted = errors.New("could not find a free share token")
	shareTokenRegex        = regexp.MustCompile(`^[A-Za-z0-9_-]{10}$`)
)

// TokenGenerator returns a fresh URL-safe share token.
type TokenGenerator func() (string, error)

func NanoIDTokens() (string, error) {
	return gonanoid.New(ShareTokenLength)
}

func ShareLinkFor(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + SharePathPrefix + token
}

func QRCodeKey(token string) string {
	return QRCodeFolder + "/" + token + ".png"
}

func ValidShareToken(token string) bool {
	return shareTokenRegex.MatchString(token)
}

// TokenFromShareLink extracts the token of a link built by ShareLinkFor.
func TokenFromShareLink(shareLink string) (string, bool) {
	i := strings.LastIndex(shareLink, SharePathPrefix)
	if i < 0 {
		return "", false
	}
	token := shareLink[i+len(SharePathPrefix):]
	return token, ValidShareToken(token)
}

// Identity is a provisioned share identity. QRCodeKey is kept so a failed
// persist can remove the orphaned image.
type Identity struct {
	Token     string
	ShareLink string
	QRCodeURL string
	QRCodeKey string
}

type Provisioner struct {
	baseURL  string
	repo     profile.Repository
	renderer service.QRRenderer
	blobs    service.BlobStore
	newToken TokenGenerator
	logger   logger.Logger
}

func NewProvisioner(
	baseURL string,
	repo profile.Repository,
	renderer service.QRRenderer,
	blobs service.BlobStore,
	newToken TokenGenerator,
	log logger.Logger,
) *Provisioner {
	if newToken == nil {
		newToken = NanoIDTokens
	}
	return &Provisioner{
		baseURL:  strings.TrimRight(baseURL, "/"),
		repo:     repo,
		renderer: renderer,
		blobs:    blobs,
		newToken: newToken,
		logger:   log,
	}
}

func (p *Provisioner) BaseURL() string {
	return p.baseURL
}

// Provision mints a token, renders the QR code of its share link and uploads
// the PNG. Any failure aborts; nothing is uploaded unless rendering succeeded.
func (p *Provisioner) Provision(ctx context.Context) (*Identity, error) {
	ctx, span := tracer.Start(ctx, "Provisioner.Provision")
	defer span.End()

	token, shareLink, err := p.freeShareLink(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	uri, err := p.renderer.Render(shareLink)
	if err != nil {
		err = apperror.NewUpstream("qr renderer", "render share link", err)
		span.RecordError(err)
		return nil, err
	}
	img, err := dataurl.DecodeString(uri)
	if err != nil {
		err = apperror.NewUpstream("qr renderer", "decode data uri", err)
		span.RecordError(err)
		return nil, err
	}

	key := QRCodeKey(token)
	url, err := p.blobs.Put(ctx, key, bytes.NewReader(img.Data), service.PutOptions{
		ContentType: "image/png",
		Public:      true,
	})
	if err != nil {
		err = apperror.NewUpstream("blob store", fmt.Sprintf("upload %s", key), err)
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("share_token", token))
	p.logger.Info("Provisioned share identity", zap.String("share_link", shareLink), zap.String("qr_code_url", url))
	return &Identity{Token: token, ShareLink: shareLink, QRCodeURL: url, QRCodeKey: key}, nil
}

// freeShareLink retries on the rare token already present in the store. The
// share_link unique index stays the final guard against races.
func (p *Provisioner) freeShareLink(ctx context.Context) (string, string, error) {
	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		token, err := p.newToken()
		if err != nil {
			return "", "", apperror.NewInternal("generate share token", err)
		}
		link := ShareLinkFor(p.baseURL, token)

		taken, err := p.repo.ShareLinkExists(ctx, link)
		if err != nil {
			return "", "", err
		}
		if !taken {
			return token, link, nil
		}
		p.logger.Warn("Share token collision, retrying", zap.String("token", token), zap.Int("attempt", attempt))
	}
	return "", "", apperror.NewInternal("generate share token", ErrTokenSpaceExhausted)
}

// Discard removes an uploaded QR image whose profile was never persisted.
func (p *Provisioner) Discard(ctx context.Context, id *Identity) {
	if id == nil {
		return
	}
	if err := p.blobs.Delete(ctx, id.QRCodeKey); err != nil {
		p.logger.Warn("Failed to remove orphaned QR code", zap.String("key", id.QRCodeKey), zap.Error(err))
	}
}
