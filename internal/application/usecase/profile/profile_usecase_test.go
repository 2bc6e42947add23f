package profile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/khoahotran/profile-card/adapters/memory"
	"github.com/khoahotran/profile-card/adapters/qr"
	"github.com/khoahotran/profile-card/internal/application/service"
	"github.com/khoahotran/profile-card/internal/domain/profile"
	"github.com/khoahotran/profile-card/pkg/apperror"
	"github.com/khoahotran/profile-card/pkg/logger"
	"github.com/khoahotran/profile-card/pkg/result"
)

const testBaseURL = "http://localhost:8080"

type ProfileUseCaseSuite struct {
	suite.Suite
	ctx    context.Context
	repo   *memory.ProfileRepo
	blobs  *memory.BlobStore
	cache  *memory.ViewCache
	events *memory.EventRecorder
	uc     *ProfileUseCase
	ada    uuid.UUID
	bob    uuid.UUID
}

func TestProfileUseCaseSuite(t *testing.T) {
	suite.Run(t, new(ProfileUseCaseSuite))
}

func (s *ProfileUseCaseSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = memory.NewProfileRepo()
	s.blobs = memory.NewBlobStore("https://blobs.test")
	s.cache = memory.NewViewCache()
	s.events = memory.NewEventRecorder()
	s.uc = s.newUseCase(nil)
	s.ada = uuid.New()
	s.bob = uuid.New()
}

func (s *ProfileUseCaseSuite) newUseCase(tokens TokenGenerator) *ProfileUseCase {
	log := logger.NewNopLogger()
	prov := NewProvisioner(testBaseURL, s.repo, qr.NewPNGRenderer(qr.DefaultSize), s.blobs, tokens, log)
	return NewProfileUseCase(s.repo, prov, s.cache, s.events, log)
}

func adaForm() ProfileForm {
	return ProfileForm{
		Name:       "Ada Lovelace",
		Profession: "Mathematician",
		Email:      "ada@example.com",
		SocialLinks: []SocialLinkInput{
			{Platform: "github", URL: "https://github.com/ada"},
		},
	}
}

func sequence(tokens ...string) TokenGenerator {
	i := 0
	return func() (string, error) {
		t := tokens[i%len(tokens)]
		i++
		return t, nil
	}
}

func (s *ProfileUseCaseSuite) create(owner uuid.UUID, form ProfileForm) *profile.Profile {
	res := s.uc.CreateProfile(s.ctx, owner, form)
	s.Require().True(res.Success, res.Error)
	return res.Data
}

func (s *ProfileUseCaseSuite) TestCreate_ProvisionsShareIdentity() {
	p := s.create(s.ada, adaForm())

	s.Equal(s.ada, p.OwnerID)
	s.Equal("Ada Lovelace", p.Name)
	s.Require().NotNil(p.ShareLink)
	s.Require().NotNil(p.QRCodeURL)
	s.Regexp(`^http://localhost:8080/p/[A-Za-z0-9_-]{10}$`, *p.ShareLink)

	token, ok := TokenFromShareLink(*p.ShareLink)
	s.Require().True(ok)
	obj, found := s.blobs.Get(QRCodeKey(token))
	s.Require().True(found)
	s.Equal("image/png", obj.ContentType)
	s.True(obj.Public)
	s.Equal(s.blobs.URLFor(QRCodeKey(token)), *p.QRCodeURL)

	text, err := qr.Decode(obj.Data)
	s.Require().NoError(err)
	s.Equal(*p.ShareLink, text)

	s.Require().Len(p.SocialLinks, 1)
	s.Equal(p.ID, p.SocialLinks[0].ProfileID)
	s.NotEqual(uuid.Nil, p.SocialLinks[0].ID)
	s.Empty(p.Attachments)

	stored, err := s.repo.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(*p.ShareLink, *stored.ShareLink)

	events := s.events.Events()
	s.Require().Len(events, 1)
	s.Equal(service.ProfileEventCreated, events[0].EventType)
	s.Equal(token, events[0].ShareToken)
}

func (s *ProfileUseCaseSuite) TestCreate_Unauthenticated() {
	res := s.uc.CreateProfile(s.ctx, uuid.Nil, adaForm())

	s.False(res.Success)
	s.Equal(MsgCreateFailed, res.Error)
	s.Equal(result.KindUnauthorized, res.Kind)
	s.Nil(res.Data)
	s.Equal(0, s.repo.Count())
	s.Equal(0, s.blobs.Len())
}

func (s *ProfileUseCaseSuite) TestCreate_UploadFailureAborts() {
	s.blobs.FailPut = errors.New("bucket unavailable")

	res := s.uc.CreateProfile(s.ctx, s.ada, adaForm())

	s.False(res.Success)
	s.Equal(MsgCreateFailed, res.Error)
	s.Equal(result.KindUpstream, res.Kind)
	s.Equal(0, s.repo.Count())
}

func (s *ProfileUseCaseSuite) TestCreate_PersistFailureRemovesQRCode() {
	s.repo.FailWrites = errors.New("connection reset")

	res := s.uc.CreateProfile(s.ctx, s.ada, adaForm())

	s.False(res.Success)
	s.Equal(MsgCreateFailed, res.Error)
	s.Equal(0, s.blobs.Len())
	s.Empty(s.events.Events())
}

func (s *ProfileUseCaseSuite) TestCreate_RejectsInvalidForm() {
	cases := map[string]ProfileForm{
		"bad email":      {Name: "Ada", Email: "not-an-email"},
		"bad website":    {Name: "Ada", Website: "example dot com"},
		"empty platform": {Name: "Ada", SocialLinks: []SocialLinkInput{{URL: "https://x.com/ada"}}},
		"attachment url": {Name: "Ada", Attachments: []AttachmentInput{{Name: "cv", Type: "application/pdf", URL: "cv.pdf"}}},
		"script website": {Name: "Ada", Website: "javascript:alert(1)"},
		"ftp avatar":     {Name: "Ada", Avatar: "ftp://files.example.com/a.png"},
		"mailto link":    {Name: "Ada", SocialLinks: []SocialLinkInput{{Platform: "mail", URL: "mailto:a@b.c"}}},
		"broken data":    {Name: "Ada", Avatar: "data:image/png;base64,!!!!"},
		"malformed body": {Malformed: errors.New("unexpected EOF")},
	}
	for name, form := range cases {
		res := s.uc.CreateProfile(s.ctx, s.ada, form)
		s.False(res.Success, name)
		s.Equal(result.KindInvalid, res.Kind, name)
		s.Equal(MsgCreateFailed, res.Error, name)
	}
	s.Equal(0, s.repo.Count())
}

func (s *ProfileUseCaseSuite) TestCreate_AcceptsDataURIAvatar() {
	form := adaForm()
	form.Avatar = "data:image/png;base64,iVBORw0KGgo="

	p := s.create(s.ada, form)
	s.Equal(form.Avatar, p.Avatar)
}

func (s *ProfileUseCaseSuite) TestCreate_RetriesTakenToken() {
	first := s.newUseCase(sequence("aaaaaaaaaa")).CreateProfile(s.ctx, s.ada, adaForm())
	s.Require().True(first.Success)

	uc := s.newUseCase(sequence("aaaaaaaaaa", "bbbbbbbbbb"))
	second := uc.CreateProfile(s.ctx, s.bob, adaForm())

	s.Require().True(second.Success, second.Error)
	s.Equal(ShareLinkFor(testBaseURL, "bbbbbbbbbb"), *second.Data.ShareLink)
}

func (s *ProfileUseCaseSuite) TestCreate_GivesUpWhenTokensKeepColliding() {
	s.Require().True(s.newUseCase(sequence("aaaaaaaaaa")).CreateProfile(s.ctx, s.ada, adaForm()).Success)

	res := s.newUseCase(sequence("aaaaaaaaaa")).CreateProfile(s.ctx, s.bob, adaForm())

	s.False(res.Success)
	s.Equal(MsgCreateFailed, res.Error)
	s.Equal(1, s.repo.Count())
}

func (s *ProfileUseCaseSuite) TestUpdate_KeepsShareIdentityAndReplacesChildren() {
	p := s.create(s.ada, ProfileForm{
		Name:        "Ada",
		SocialLinks: []SocialLinkInput{{Platform: "github", URL: "https://github.com/ada"}},
		Attachments: []AttachmentInput{{Name: "cv.pdf", Type: "application/pdf", URL: "https://blobs.test/cv.pdf"}},
	})
	blobsBefore := s.blobs.Len()

	res := s.uc.UpdateProfile(s.ctx, s.ada, p.ID, ProfileForm{
		Name: "Ada Lovelace",
		Bio:  "First programmer",
		SocialLinks: []SocialLinkInput{
			{Platform: "twitter", URL: "https://twitter.com/ada"},
			{Platform: "twitter", URL: "https://twitter.com/ada_alt"},
		},
	})

	s.Require().True(res.Success, res.Error)
	s.Equal(*p.ShareLink, *res.Data.ShareLink)
	s.Equal(*p.QRCodeURL, *res.Data.QRCodeURL)
	s.Equal(blobsBefore, s.blobs.Len())

	stored, err := s.repo.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("Ada Lovelace", stored.Name)
	s.Equal("First programmer", stored.Bio)
	s.Require().Len(stored.SocialLinks, 2)
	s.Equal("twitter", stored.SocialLinks[0].Platform)
	s.Equal("https://twitter.com/ada_alt", stored.SocialLinks[1].URL)
	s.Empty(stored.Attachments)
	s.Equal(p.CreatedAt, stored.CreatedAt)
}

func (s *ProfileUseCaseSuite) TestUpdate_BackfillsMissingShareIdentity() {
	legacy := &profile.Profile{ID: uuid.New(), OwnerID: s.ada, Name: "Ada", CreatedAt: time.Now().UTC()}
	s.Require().NoError(s.repo.Create(s.ctx, legacy))

	res := s.uc.UpdateProfile(s.ctx, s.ada, legacy.ID, ProfileForm{Name: "Ada"})

	s.Require().True(res.Success, res.Error)
	s.Require().NotNil(res.Data.ShareLink)
	s.Require().NotNil(res.Data.QRCodeURL)
	s.Equal(1, s.blobs.Len())
}

func (s *ProfileUseCaseSuite) TestUpdate_ForeignOrMissingIsUnauthorized() {
	p := s.create(s.ada, adaForm())

	foreign := s.uc.UpdateProfile(s.ctx, s.bob, p.ID, ProfileForm{Name: "Mallory"})
	s.False(foreign.Success)
	s.Equal(MsgUpdateFailed, foreign.Error)
	s.Equal(result.KindUnauthorized, foreign.Kind)

	missing := s.uc.UpdateProfile(s.ctx, s.ada, uuid.New(), ProfileForm{Name: "Ada"})
	s.False(missing.Success)
	s.Equal(result.KindUnauthorized, missing.Kind)

	stored, err := s.repo.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("Ada Lovelace", stored.Name)
}

func (s *ProfileUseCaseSuite) TestUpdate_ForeignWithInvalidFormIsUnauthorized() {
	p := s.create(s.ada, adaForm())

	invalid := s.uc.UpdateProfile(s.ctx, s.bob, p.ID, ProfileForm{Email: "not-an-email"})
	s.False(invalid.Success)
	s.Equal(result.KindUnauthorized, invalid.Kind)

	malformed := s.uc.UpdateProfile(s.ctx, s.bob, p.ID, ProfileForm{Malformed: errors.New("unexpected EOF")})
	s.Equal(result.KindUnauthorized, malformed.Kind)

	own := s.uc.UpdateProfile(s.ctx, s.ada, p.ID, ProfileForm{Email: "not-an-email"})
	s.Equal(result.KindInvalid, own.Kind)
}

// staleRepo serves a snapshot taken before another writer assigned the
// share identity.
type staleRepo struct {
	*memory.ProfileRepo
	snapshot *profile.Profile
}

func (r staleRepo) FindByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	c := *r.snapshot
	return &c, nil
}

func (s *ProfileUseCaseSuite) TestUpdate_ConcurrentBackfillKeepsStoredIdentity() {
	legacy := &profile.Profile{ID: uuid.New(), OwnerID: s.ada, Name: "Ada", CreatedAt: time.Now().UTC()}
	s.Require().NoError(s.repo.Create(s.ctx, legacy))
	snapshot := *legacy

	winner := s.newUseCase(sequence("aaaaaaaaaa")).UpdateProfile(s.ctx, s.ada, legacy.ID, ProfileForm{Name: "Ada"})
	s.Require().True(winner.Success, winner.Error)

	log := logger.NewNopLogger()
	repo := staleRepo{ProfileRepo: s.repo, snapshot: &snapshot}
	prov := NewProvisioner(testBaseURL, repo, qr.NewPNGRenderer(qr.DefaultSize), s.blobs, sequence("bbbbbbbbbb"), log)
	late := NewProfileUseCase(repo, prov, s.cache, s.events, log).UpdateProfile(s.ctx, s.ada, legacy.ID, ProfileForm{Name: "Ada King"})

	s.Require().True(late.Success, late.Error)
	s.Equal(ShareLinkFor(testBaseURL, "aaaaaaaaaa"), *late.Data.ShareLink)
	s.Equal(*winner.Data.QRCodeURL, *late.Data.QRCodeURL)
	_, ok := s.blobs.Get(QRCodeKey("bbbbbbbbbb"))
	s.False(ok, "the losing QR code must be removed")
	s.Equal(1, s.blobs.Len())
}

func (s *ProfileUseCaseSuite) TestGet_NotOwnerLooksLikeNotFound() {
	p := s.create(s.ada, adaForm())

	own := s.uc.GetProfile(s.ctx, s.ada, p.ID)
	s.Require().True(own.Success)
	s.Equal(p.ID, own.Data.ID)

	other := s.uc.GetProfile(s.ctx, s.bob, p.ID)
	missing := s.uc.GetProfile(s.ctx, s.ada, uuid.New())

	for _, res := range []result.Result[*profile.Profile]{other, missing} {
		s.False(res.Success)
		s.Equal(MsgFetchFailed, res.Error)
		s.Equal(result.KindNotFound, res.Kind)
		raw, err := json.Marshal(res)
		s.Require().NoError(err)
		s.JSONEq(`{"success":false,"error":"Failed to fetch profile"}`, string(raw))
	}
}

func (s *ProfileUseCaseSuite) TestDelete_RemovesProfileAndAnnouncesToken() {
	p := s.create(s.ada, adaForm())
	token, _ := TokenFromShareLink(*p.ShareLink)

	denied := s.uc.DeleteProfile(s.ctx, s.bob, p.ID)
	s.False(denied.Success)
	s.Equal(MsgDeleteFailed, denied.Error)
	s.Equal(1, s.repo.Count())

	res := s.uc.DeleteProfile(s.ctx, s.ada, p.ID)
	s.Require().True(res.Success)
	s.Equal(0, s.repo.Count())

	gone := s.uc.GetProfile(s.ctx, s.ada, p.ID)
	s.False(gone.Success)

	events := s.events.Events()
	last := events[len(events)-1]
	s.Equal(service.ProfileEventDeleted, last.EventType)
	s.Equal(token, last.ShareToken)
	s.Equal(s.ada, last.OwnerID)
}

func (s *ProfileUseCaseSuite) TestList_NewestFirstAndCached() {
	empty := s.uc.GetUserProfiles(s.ctx, s.ada)
	s.Require().True(empty.Success)
	s.NotNil(empty.Data)
	s.Empty(empty.Data)

	older := s.create(s.ada, ProfileForm{Name: "Work"})
	newer := s.create(s.ada, ProfileForm{Name: "Personal"})
	s.create(s.bob, ProfileForm{Name: "Bob"})
	s.repo.Touch(older.ID, time.Now().Add(-time.Hour))
	s.False(s.cache.HasOwner(s.ada), "create must drop the owner's list view")

	res := s.uc.GetUserProfiles(s.ctx, s.ada)
	s.Require().True(res.Success)
	s.Require().Len(res.Data, 2)
	s.Equal(newer.ID, res.Data[0].ID)
	s.Equal(older.ID, res.Data[1].ID)
	s.True(s.cache.HasOwner(s.ada))

	s.Require().True(s.uc.DeleteProfile(s.ctx, s.ada, newer.ID).Success)
	s.False(s.cache.HasOwner(s.ada))

	after := s.uc.GetUserProfiles(s.ctx, s.ada)
	s.Require().Len(after.Data, 1)
}

func (s *ProfileUseCaseSuite) TestList_Unauthenticated() {
	res := s.uc.GetUserProfiles(s.ctx, uuid.Nil)
	s.False(res.Success)
	s.Equal(MsgListFailed, res.Error)
	s.Equal(result.KindUnauthorized, res.Kind)
}

func (s *ProfileUseCaseSuite) TestPublic_StripsOwner() {
	p := s.create(s.ada, adaForm())
	token, _ := TokenFromShareLink(*p.ShareLink)

	byID, err := s.uc.GetPublicProfile(s.ctx, p.ID)
	s.Require().NoError(err)
	byToken, err := s.uc.GetPublicProfileByToken(s.ctx, token)
	s.Require().NoError(err)

	s.Equal(byID, byToken)
	s.Equal("Ada Lovelace", byID.Name)
	s.Equal(*p.ShareLink, *byID.ShareLink)

	raw, err := json.Marshal(byID)
	s.Require().NoError(err)
	var fields map[string]any
	s.Require().NoError(json.Unmarshal(raw, &fields))
	s.NotContains(fields, "userId")
	s.NotContains(fields, "ownerId")
}

func (s *ProfileUseCaseSuite) TestPublic_NotFound() {
	_, err := s.uc.GetPublicProfile(s.ctx, uuid.New())
	s.ErrorIs(err, apperror.ErrNotFound)

	_, err = s.uc.GetPublicProfileByToken(s.ctx, "zzzzzzzzzz")
	s.ErrorIs(err, apperror.ErrNotFound)

	_, err = s.uc.GetPublicProfileByToken(s.ctx, "../etc")
	s.ErrorIs(err, apperror.ErrNotFound)
}

func (s *ProfileUseCaseSuite) TestPublic_UpdateRefreshesCachedView() {
	p := s.create(s.ada, adaForm())
	_, err := s.uc.GetPublicProfile(s.ctx, p.ID)
	s.Require().NoError(err)
	s.True(s.cache.HasPublic("id:" + p.ID.String()))

	s.Require().True(s.uc.UpdateProfile(s.ctx, s.ada, p.ID, ProfileForm{Name: "Augusta Ada King"}).Success)

	view, err := s.uc.GetPublicProfile(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("Augusta Ada King", view.Name)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, result.KindUnauthorized, kindOf(apperror.NewUnauthorized("x", nil)))
	assert.Equal(t, result.KindUnauthorized, kindOf(apperror.NewPermissionDenied("x")))
	assert.Equal(t, result.KindNotFound, kindOf(apperror.NewNotFound("profile", "1")))
	assert.Equal(t, result.KindInvalid, kindOf(apperror.NewInvalidInput("x", nil)))
	assert.Equal(t, result.KindUpstream, kindOf(errors.New("boom")))
}

func TestTokenFromShareLink(t *testing.T) {
	token, ok := TokenFromShareLink("https://cards.example.com/p/V1StGXR8_Z")
	require.True(t, ok)
	assert.Equal(t, "V1StGXR8_Z", token)

	_, ok = TokenFromShareLink("https://cards.example.com/profile/V1StGXR8_Z")
	assert.False(t, ok)
}
