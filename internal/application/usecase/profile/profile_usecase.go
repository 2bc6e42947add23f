package profile

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/vincent-petithory/dataurl"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-card/internal/application/service"
	"github.com/khoahotran/profile-card/internal/domain/profile"
	"github.com/khoahotran/profile-card/pkg/apperror"
	"github.com/khoahotran/profile-card/pkg/logger"
	"github.com/khoahotran/profile-card/pkg/result"
)

const (
	MsgCreateFailed = "Failed to create profile"
	MsgUpdateFailed = "Failed to update profile"
	MsgFetchFailed  = "Failed to fetch profile"
	MsgDeleteFailed = "Failed to delete profile"
	MsgListFailed   = "Failed to fetch profiles"
)

var (
	tracer   = otel.Tracer("profile_usecase")
	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("link", isLink); err != nil {
		panic(err)
	}
	return v
}

// isLink accepts absolute http(s) URLs and data: URIs. Anything else could
// run as script when rendered as a link.
func isLink(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if strings.HasPrefix(strings.ToLower(raw), "data:") {
		_, err := dataurl.DecodeString(raw)
		return err == nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

type SocialLinkInput struct {
	Platform string `json:"platform" validate:"required,max=64"`
	URL      string `json:"url" validate:"required,link"`
}

type AttachmentInput struct {
	Name string `json:"name" validate:"required,max=255"`
	Type string `json:"type" validate:"required,max=255"`
	URL  string `json:"url" validate:"required,link"`
}

// ProfileForm is the editable part of a profile. Children are replaced as a
// whole on every write.
type ProfileForm struct {
	Name        string            `validate:"max=200"`
	Profession  string            `validate:"max=200"`
	Company     string            `validate:"max=200"`
	Bio         string            `validate:"max=4000"`
	Email       string            `validate:"omitempty,email"`
	Phone       string            `validate:"max=64"`
	Website     string            `validate:"omitempty,link"`
	Avatar      string            `validate:"omitempty,link"`
	SocialLinks []SocialLinkInput `validate:"dive"`
	Attachments []AttachmentInput `validate:"dive"`
	// Malformed carries a body that could not be decoded. It is reported
	// only after the caller has been authorized.
	Malformed error `validate:"-"`
}

func (f ProfileForm) check() error {
	if f.Malformed != nil {
		return apperror.NewInvalidInput("malformed profile body", f.Malformed)
	}
	if err := validate.Struct(f); err != nil {
		return apperror.NewInvalidInput(err.Error(), err)
	}
	return nil
}

func (f ProfileForm) children() ([]profile.SocialLink, []profile.Attachment) {
	links := make([]profile.SocialLink, len(f.SocialLinks))
	for i, l := range f.SocialLinks {
		links[i] = profile.SocialLink{Platform: l.Platform, URL: l.URL}
	}
	attachments := make([]profile.Attachment, len(f.Attachments))
	for i, a := range f.Attachments {
		attachments[i] = profile.Attachment{Name: a.Name, Type: a.Type, URL: a.URL}
	}
	return links, attachments
}

func (f ProfileForm) applyTo(p *profile.Profile) {
	p.Name = f.Name
	p.Profession = f.Profession
	p.Company = f.Company
	p.Bio = f.Bio
	p.Email = f.Email
	p.Phone = f.Phone
	p.Website = f.Website
	p.Avatar = f.Avatar
	p.ReplaceChildren(f.children())
}

type ProfileUseCase struct {
	profileRepo profile.Repository
	provisioner *Provisioner
	cache       service.ViewCache
	events      service.EventPublisher
	logger      logger.Logger
	now         func() time.Time
}

// NewProfileUseCase wires the profile actions. cache and events may be nil.
func NewProfileUseCase(
	repo profile.Repository,
	provisioner *Provisioner,
	cache service.ViewCache,
	events service.EventPublisher,
	log logger.Logger,
) *ProfileUseCase {
	return &ProfileUseCase{
		profileRepo: repo,
		provisioner: provisioner,
		cache:       cache,
		events:      events,
		logger:      log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (uc *ProfileUseCase) CreateProfile(ctx context.Context, ownerID uuid.UUID, form ProfileForm) result.Result[*profile.Profile] {
	ctx, span := tracer.Start(ctx, "CreateProfile", trace.WithAttributes(attribute.String("owner_id", ownerID.String())))
	defer span.End()

	if ownerID == uuid.Nil {
		return fail[*profile.Profile](ctx, uc.logger, "create", MsgCreateFailed, errNoCaller)
	}
	if err := form.check(); err != nil {
		return fail[*profile.Profile](ctx, uc.logger, "create", MsgCreateFailed, err, zap.String("owner_id", ownerID.String()))
	}

	identity, err := uc.provisioner.Provision(ctx)
	if err != nil {
		return fail[*profile.Profile](ctx, uc.logger, "create", MsgCreateFailed, err, zap.String("owner_id", ownerID.String()))
	}

	now := uc.now()
	p := &profile.Profile{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.AssignShareIdentity(identity.ShareLink, identity.QRCodeURL)
	form.applyTo(p)

	if err := uc.profileRepo.Create(ctx, p); err != nil {
		uc.provisioner.Discard(ctx, identity)
		return fail[*profile.Profile](ctx, uc.logger, "create", MsgCreateFailed, err,
			zap.String("owner_id", ownerID.String()), zap.String("profile_id", p.ID.String()))
	}

	uc.afterWrite(ctx, service.ProfileEventCreated, p)
	uc.logger.Info("Profile created", zap.String("profile_id", p.ID.String()), zap.String("owner_id", ownerID.String()))
	return result.Ok(p)
}

func (uc *ProfileUseCase) UpdateProfile(ctx context.Context, ownerID, profileID uuid.UUID, form ProfileForm) result.Result[*profile.Profile] {
	ctx, span := tracer.Start(ctx, "UpdateProfile", trace.WithAttributes(attribute.String("profile_id", profileID.String())))
	defer span.End()

	fields := []zap.Field{zap.String("owner_id", ownerID.String()), zap.String("profile_id", profileID.String())}
	if ownerID == uuid.Nil {
		return fail[*profile.Profile](ctx, uc.logger, "update", MsgUpdateFailed, errNoCaller, fields...)
	}

	existing, err := uc.ownedProfile(ctx, ownerID, profileID)
	if err != nil {
		// Missing and foreign profiles are both reported as unauthorized.
		if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, apperror.ErrPermission) {
			err = apperror.NewUnauthorized("profile missing or not owned by caller", err)
		}
		return fail[*profile.Profile](ctx, uc.logger, "update", MsgUpdateFailed, err, fields...)
	}
	if err := form.check(); err != nil {
		return fail[*profile.Profile](ctx, uc.logger, "update", MsgUpdateFailed, err, fields...)
	}

	var identity *Identity
	if !existing.HasShareIdentity() {
		identity, err = uc.provisioner.Provision(ctx)
		if err != nil {
			return fail[*profile.Profile](ctx, uc.logger, "update", MsgUpdateFailed, err, fields...)
		}
		existing.AssignShareIdentity(identity.ShareLink, identity.QRCodeURL)
	}

	form.applyTo(existing)
	existing.UpdatedAt = uc.now()

	if err := uc.profileRepo.Update(ctx, existing); err != nil {
		uc.provisioner.Discard(ctx, identity)
		return fail[*profile.Profile](ctx, uc.logger, "update", MsgUpdateFailed, err, fields...)
	}
	if identity != nil && (existing.ShareLink == nil || *existing.ShareLink != identity.ShareLink) {
		// A concurrent update backfilled first and its identity was kept.
		uc.logger.Info("Share identity assigned concurrently, discarding ours", fields...)
		uc.provisioner.Discard(ctx, identity)
	}

	uc.afterWrite(ctx, service.ProfileEventUpdated, existing)
	uc.logger.Info("Profile updated", fields...)
	return result.Ok(existing)
}

func (uc *ProfileUseCase) GetProfile(ctx context.Context, ownerID, profileID uuid.UUID) result.Result[*profile.Profile] {
	ctx, span := tracer.Start(ctx, "GetProfile", trace.WithAttributes(attribute.String("profile_id", profileID.String())))
	defer span.End()

	fields := []zap.Field{zap.String("owner_id", ownerID.String()), zap.String("profile_id", profileID.String())}
	if ownerID == uuid.Nil {
		return fail[*profile.Profile](ctx, uc.logger, "get", MsgFetchFailed, errNoCaller, fields...)
	}

	p, err := uc.ownedProfile(ctx, ownerID, profileID)
	if err != nil {
		if errors.Is(err, apperror.ErrPermission) {
			err = apperror.NewNotFound("profile", profileID.String())
		}
		return fail[*profile.Profile](ctx, uc.logger, "get", MsgFetchFailed, err, fields...)
	}
	return result.Ok(p)
}

func (uc *ProfileUseCase) DeleteProfile(ctx context.Context, ownerID, profileID uuid.UUID) result.Result[struct{}] {
	ctx, span := tracer.Start(ctx, "DeleteProfile", trace.WithAttributes(attribute.String("profile_id", profileID.String())))
	defer span.End()

	fields := []zap.Field{zap.String("owner_id", ownerID.String()), zap.String("profile_id", profileID.String())}
	if ownerID == uuid.Nil {
		return fail[struct{}](ctx, uc.logger, "delete", MsgDeleteFailed, errNoCaller, fields...)
	}

	existing, err := uc.ownedProfile(ctx, ownerID, profileID)
	if err != nil {
		if errors.Is(err, apperror.ErrPermission) {
			err = apperror.NewNotFound("profile", profileID.String())
		}
		return fail[struct{}](ctx, uc.logger, "delete", MsgDeleteFailed, err, fields...)
	}

	if err := uc.profileRepo.Delete(ctx, profileID, ownerID); err != nil {
		return fail[struct{}](ctx, uc.logger, "delete", MsgDeleteFailed, err, fields...)
	}

	uc.afterWrite(ctx, service.ProfileEventDeleted, existing)
	uc.logger.Info("Profile deleted", fields...)
	return result.Ok(struct{}{})
}

// GetUserProfiles lists the caller's profiles, newest first.
func (uc *ProfileUseCase) GetUserProfiles(ctx context.Context, ownerID uuid.UUID) result.Result[[]*profile.Profile] {
	ctx, span := tracer.Start(ctx, "GetUserProfiles", trace.WithAttributes(attribute.String("owner_id", ownerID.String())))
	defer span.End()

	if ownerID == uuid.Nil {
		return fail[[]*profile.Profile](ctx, uc.logger, "list", MsgListFailed, errNoCaller)
	}

	if uc.cache != nil {
		cached, err := uc.cache.GetOwnerProfiles(ctx, ownerID)
		if err != nil {
			uc.logger.Warn("Owner profile cache read failed", zap.String("owner_id", ownerID.String()), zap.Error(err))
		} else if cached != nil {
			return result.Ok(cached)
		}
	}

	profiles, err := uc.profileRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return fail[[]*profile.Profile](ctx, uc.logger, "list", MsgListFailed, err, zap.String("owner_id", ownerID.String()))
	}
	if profiles == nil {
		profiles = []*profile.Profile{}
	}

	if uc.cache != nil {
		if err := uc.cache.SetOwnerProfiles(ctx, ownerID, profiles); err != nil {
			uc.logger.Warn("Owner profile cache write failed", zap.String("owner_id", ownerID.String()), zap.Error(err))
		}
	}
	return result.Ok(profiles)
}

// ownedProfile loads a profile and checks the caller owns it. A foreign
// profile yields ErrPermission so each action can pick how to report it.
func (uc *ProfileUseCase) ownedProfile(ctx context.Context, ownerID, profileID uuid.UUID) (*profile.Profile, error) {
	p, err := uc.profileRepo.FindByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != ownerID {
		return nil, apperror.NewPermissionDenied("profile belongs to another owner")
	}
	return p, nil
}

// afterWrite drops stale views and announces the change. Neither step can
// fail the action.
func (uc *ProfileUseCase) afterWrite(ctx context.Context, eventType service.ProfileEventType, p *profile.Profile) {
	token := shareToken(p)

	if uc.cache != nil {
		if err := uc.cache.Invalidate(ctx, p.OwnerID, PublicCacheKeys(p.ID, token)...); err != nil {
			uc.logger.Warn("Cache invalidation failed", zap.String("profile_id", p.ID.String()), zap.Error(err))
		}
	}

	if uc.events != nil {
		payload := service.ProfileEventPayload{
			EventType:  eventType,
			ProfileID:  p.ID,
			OwnerID:    p.OwnerID,
			ShareToken: token,
		}
		if err := uc.events.PublishProfileEvent(ctx, payload); err != nil {
			uc.logger.Warn("Failed to publish profile event",
				zap.String("event_type", string(eventType)), zap.String("profile_id", p.ID.String()), zap.Error(err))
		}
	}
}

func shareToken(p *profile.Profile) string {
	if !p.HasShareIdentity() {
		return ""
	}
	token, _ := TokenFromShareLink(*p.ShareLink)
	return token
}

// PublicCacheKeys names the public view entries of one profile.
func PublicCacheKeys(profileID uuid.UUID, token string) []string {
	keys := []string{"id:" + profileID.String()}
	if token != "" {
		keys = append(keys, "token:"+token)
	}
	return keys
}

var errNoCaller = apperror.NewUnauthorized("no authenticated caller", nil)

// fail logs the cause and returns the generic failure for one action.
func fail[T any](ctx context.Context, log logger.Logger, op, message string, err error, fields ...zap.Field) result.Result[T] {
	kind := kindOf(err)
	trace.SpanFromContext(ctx).RecordError(err)
	log.Error("Profile action failed", err, append(fields, zap.String("op", op), zap.String("kind", kind.String()))...)
	return result.Fail[T](kind, message)
}

func kindOf(err error) result.Kind {
	switch {
	case errors.Is(err, apperror.ErrUnauthorized), errors.Is(err, apperror.ErrPermission):
		return result.KindUnauthorized
	case errors.Is(err, apperror.ErrNotFound):
		return result.KindNotFound
	case errors.Is(err, apperror.ErrInvalidInput):
		return result.KindInvalid
	}
	return result.KindUpstream
}
