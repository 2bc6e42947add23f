package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/khoahotran/profile-card/adapters/memory"
	"github.com/khoahotran/profile-card/adapters/qr"
	assetUC "github.com/khoahotran/profile-card/internal/application/usecase/asset"
	authUC "github.com/khoahotran/profile-card/internal/application/usecase/auth"
	profileUC "github.com/khoahotran/profile-card/internal/application/usecase/profile"
	"github.com/khoahotran/profile-card/internal/domain/user"
	"github.com/khoahotran/profile-card/pkg/auth"
	"github.com/khoahotran/profile-card/pkg/logger"
)

type RouterTestSuite struct {
	suite.Suite
	router   *gin.Engine
	blobs    *memory.BlobStore
	jwtSvc   *auth.JWTService
	adaToken string
	bobToken string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	log := logger.NewNopLogger()

	profiles := memory.NewProfileRepo()
	users := memory.NewUserRepo()
	s.blobs = memory.NewBlobStore("https://blobs.test")
	s.jwtSvc = auth.NewJWTService("router-test-secret", 0)

	hash, err := auth.HashPassword("correct horse")
	s.Require().NoError(err)
	s.Require().NoError(users.Upsert(context.Background(), &user.User{Email: "ada@example.com", PasswordHash: hash}))

	prov := profileUC.NewProvisioner("http://localhost:8080", profiles, qr.NewPNGRenderer(qr.DefaultSize), s.blobs, nil, log)
	profileUseCase := profileUC.NewProfileUseCase(profiles, prov, memory.NewViewCache(), memory.NewEventRecorder(), log)

	s.router = NewRouter(Handlers{
		Auth:    NewAuthHandler(authUC.NewLoginUseCase(users, s.jwtSvc, log), log),
		Profile: NewProfileHandler(profileUseCase, log),
		Public:  NewPublicHandler(profileUseCase, log),
		Asset:   NewAssetHandler(assetUC.NewUploadAssetUseCase(s.blobs, log), log),
	}, s.jwtSvc, log)

	s.adaToken = s.login("ada@example.com", "correct horse")
	s.bobToken, err = s.jwtSvc.GenerateToken(uuid.New())
	s.Require().NoError(err)
}

func (s *RouterTestSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *RouterTestSuite) login(email, password string) string {
	rr := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": password})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	var out map[string]string
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &out))
	return out["access_token"]
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (s *RouterTestSuite) decode(rr *httptest.ResponseRecorder) envelope {
	var env envelope
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env
}

func (s *RouterTestSuite) createAda() map[string]any {
	rr := s.do(http.MethodPost, "/api/me/profiles", s.adaToken, gin.H{
		"name":        "Ada Lovelace",
		"profession":  "Mathematician",
		"email":       "ada@example.com",
		"socialLinks": []gin.H{{"platform": "github", "url": "https://github.com/ada"}},
	})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	env := s.decode(rr)
	s.Require().True(env.Success)
	var p map[string]any
	s.Require().NoError(json.Unmarshal(env.Data, &p))
	return p
}

func (s *RouterTestSuite) TestLogin_WrongPassword() {
	rr := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "nope"})
	s.Equal(http.StatusUnauthorized, rr.Code)

	rr = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "not-an-email"})
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *RouterTestSuite) TestCreate_WithoutToken() {
	rr := s.do(http.MethodPost, "/api/me/profiles", "", gin.H{"name": "Ada"})

	s.Equal(http.StatusUnauthorized, rr.Code)
	s.JSONEq(`{"success":false,"error":"Failed to create profile"}`, rr.Body.String())
}

func (s *RouterTestSuite) TestCreate_ReturnsShareIdentity() {
	p := s.createAda()

	s.Equal("Ada Lovelace", p["name"])
	s.Regexp(`^http://localhost:8080/p/[A-Za-z0-9_-]{10}$`, p["shareLink"])
	s.NotEmpty(p["qrCodeUrl"])
	s.Len(p["socialLinks"], 1)
}

func (s *RouterTestSuite) TestCreate_InvalidBody() {
	rr := s.do(http.MethodPost, "/api/me/profiles", s.adaToken, gin.H{"name": "Ada", "email": "nope"})
	s.Equal(http.StatusBadRequest, rr.Code)
	s.JSONEq(`{"success":false,"error":"Failed to create profile"}`, rr.Body.String())
}

func (s *RouterTestSuite) rawJSON(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *RouterTestSuite) TestMalformedBody_CallerCheckedFirst() {
	p := s.createAda()
	path := "/api/me/profiles/" + p["id"].(string)

	foreign := s.rawJSON(http.MethodPut, path, s.bobToken, `{"name":`)
	s.Equal(http.StatusUnauthorized, foreign.Code)
	s.JSONEq(`{"success":false,"error":"Failed to update profile"}`, foreign.Body.String())

	own := s.rawJSON(http.MethodPut, path, s.adaToken, `{"name":`)
	s.Equal(http.StatusBadRequest, own.Code)

	anonymous := s.rawJSON(http.MethodPost, "/api/me/profiles", "", `{"name":`)
	s.Equal(http.StatusUnauthorized, anonymous.Code)
}

func (s *RouterTestSuite) TestOwnerRoutes() {
	p := s.createAda()
	path := "/api/me/profiles/" + p["id"].(string)

	list := s.decode(s.do(http.MethodGet, "/api/me/profiles", s.adaToken, nil))
	s.True(list.Success)
	var items []map[string]any
	s.Require().NoError(json.Unmarshal(list.Data, &items))
	s.Len(items, 1)

	foreign := s.do(http.MethodGet, path, s.bobToken, nil)
	s.Equal(http.StatusNotFound, foreign.Code)
	s.JSONEq(`{"success":false,"error":"Failed to fetch profile"}`, foreign.Body.String())

	hijack := s.do(http.MethodPut, path, s.bobToken, gin.H{"name": "Mallory"})
	s.Equal(http.StatusUnauthorized, hijack.Code)
	s.JSONEq(`{"success":false,"error":"Failed to update profile"}`, hijack.Body.String())

	updated := s.do(http.MethodPut, path, s.adaToken, gin.H{"name": "Augusta Ada King"})
	s.Equal(http.StatusOK, updated.Code)
	var after map[string]any
	s.Require().NoError(json.Unmarshal(s.decode(updated).Data, &after))
	s.Equal("Augusta Ada King", after["name"])
	s.Equal(p["shareLink"], after["shareLink"])
	s.Empty(after["socialLinks"])

	s.Equal(http.StatusOK, s.do(http.MethodDelete, path, s.adaToken, nil).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, path, s.adaToken, nil).Code)

	empty := s.do(http.MethodGet, "/api/me/profiles", s.adaToken, nil)
	s.JSONEq(`{"success":true,"data":[]}`, empty.Body.String())
}

func (s *RouterTestSuite) TestGetProfile_MalformedID() {
	rr := s.do(http.MethodGet, "/api/me/profiles/not-a-uuid", s.adaToken, nil)
	s.Equal(http.StatusNotFound, rr.Code)
	s.JSONEq(`{"success":false,"error":"Failed to fetch profile"}`, rr.Body.String())
}

func (s *RouterTestSuite) TestPublicProfile_OmitsOwner() {
	p := s.createAda()

	rr := s.do(http.MethodGet, "/api/profiles/"+p["id"].(string), "", nil)
	s.Equal(http.StatusOK, rr.Code)
	var public map[string]any
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &public))
	s.Equal("Ada Lovelace", public["name"])
	s.NotContains(public, "userId")

	token := strings.TrimPrefix(p["shareLink"].(string), "http://localhost:8080/p/")
	byToken := s.do(http.MethodGet, "/p/"+token, "", nil)
	s.Equal(http.StatusOK, byToken.Code)
	s.NotContains(byToken.Body.String(), "userId")
}

func (s *RouterTestSuite) TestPublicProfile_NotFoundIsPlainText() {
	rr := s.do(http.MethodGet, "/api/profiles/"+uuid.NewString(), "", nil)
	s.Equal(http.StatusNotFound, rr.Code)
	s.Equal("Profile not found", rr.Body.String())

	rr = s.do(http.MethodGet, "/api/profiles/garbage", "", nil)
	s.Equal(http.StatusNotFound, rr.Code)

	rr = s.do(http.MethodGet, "/p/zzzzzzzzzz", "", nil)
	s.Equal(http.StatusNotFound, rr.Code)
	s.Equal("Profile not found", rr.Body.String())
}

func (s *RouterTestSuite) TestVCardDownload() {
	p := s.createAda()
	token := strings.TrimPrefix(p["shareLink"].(string), "http://localhost:8080/p/")

	rr := s.do(http.MethodGet, "/p/"+token+"/vcard", "", nil)

	s.Equal(http.StatusOK, rr.Code)
	s.Equal("text/vcard; charset=utf-8", rr.Header().Get("Content-Type"))
	s.Equal(`attachment; filename="ada-lovelace.vcf"`, rr.Header().Get("Content-Disposition"))
	s.Contains(rr.Body.String(), "FN:Ada Lovelace")
	s.NotContains(rr.Body.String(), "TEL")
}

func (s *RouterTestSuite) TestUploadAsset() {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "avatar.png")
	s.Require().NoError(err)
	_, err = fw.Write([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/me/assets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.adaToken)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	s.Equal(http.StatusCreated, rr.Code, rr.Body.String())
	var out map[string]string
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &out))
	s.Equal("avatar.png", out["name"])
	s.Equal("image/png", out["type"])
	_, ok := s.blobs.GetByURL(out["url"])
	s.True(ok)

	noAuth := httptest.NewRequest(http.MethodPost, "/api/me/assets", nil)
	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, noAuth)
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *RouterTestSuite) TestHealth() {
	rr := s.do(http.MethodGet, "/api/health", "", nil)
	s.Equal(http.StatusOK, rr.Code)
}
