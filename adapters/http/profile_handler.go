package http

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	profileUC "github.com/khoahotran/profile-card/internal/application/usecase/profile"
	"github.com/khoahotran/profile-card/internal/domain/profile"
	"github.com/khoahotran/profile-card/pkg/logger"
	"github.com/khoahotran/profile-card/pkg/result"
)

// ProfileHandler serves the owner's profile actions. Every response is a
// result envelope; the status code follows the failure kind.
type ProfileHandler struct {
	profileUC *profileUC.ProfileUseCase
	logger    logger.Logger
}

func NewProfileHandler(uc *profileUC.ProfileUseCase, log logger.Logger) *ProfileHandler {
	return &ProfileHandler{profileUC: uc, logger: log}
}

func respond[T any](c *gin.Context, res result.Result[T]) {
	c.JSON(res.HTTPStatus(), res)
}

// callerID is uuid.Nil when the request carries no identity; the use case
// turns that into an unauthorized result.
func callerID(c *gin.Context) uuid.UUID {
	ownerID, _ := GetOwnerIDFromGinContext(c)
	return ownerID
}

// bindForm hands decode failures to the use case, which reports them after
// checking who is asking.
func bindForm(c *gin.Context) profileUC.ProfileForm {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return profileUC.ProfileForm{Malformed: err}
	}
	return req.ToForm()
}

func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	respond(c, h.profileUC.GetUserProfiles(c.Request.Context(), callerID(c)))
}

func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	respond(c, h.profileUC.CreateProfile(c.Request.Context(), callerID(c), bindForm(c)))
}

func (h *ProfileHandler) GetProfile(c *gin.Context) {
	profileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond(c, result.Fail[*profile.Profile](result.KindNotFound, profileUC.MsgFetchFailed))
		return
	}
	respond(c, h.profileUC.GetProfile(c.Request.Context(), callerID(c), profileID))
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	profileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond(c, result.Fail[*profile.Profile](result.KindUnauthorized, profileUC.MsgUpdateFailed))
		return
	}
	respond(c, h.profileUC.UpdateProfile(c.Request.Context(), callerID(c), profileID, bindForm(c)))
}

func (h *ProfileHandler) DeleteProfile(c *gin.Context) {
	profileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond(c, result.Fail[struct{}](result.KindNotFound, profileUC.MsgDeleteFailed))
		return
	}
	respond(c, h.profileUC.DeleteProfile(c.Request.Context(), callerID(c), profileID))
}
