package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	profileUC "github.com/khoahotran/profile-card/internal/application/usecase/profile"
	"github.com/khoahotran/profile-card/pkg/apperror"
	"github.com/khoahotran/profile-card/pkg/logger"
)

const (
	msgProfileNotFound = "Profile not found"
	msgInternalError   = "Internal Server Error"
)

// PublicHandler serves profiles to visitors. Failures are plain text.
type PublicHandler struct {
	profileUC *profileUC.ProfileUseCase
	logger    logger.Logger
}

func NewPublicHandler(uc *profileUC.ProfileUseCase, log logger.Logger) *PublicHandler {
	return &PublicHandler{profileUC: uc, logger: log}
}

func (h *PublicHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, apperror.ErrNotFound) {
		c.String(http.StatusNotFound, msgProfileNotFound)
		return
	}
	h.logger.Error("Public profile read failed", err, zap.String("path", c.Request.URL.Path))
	c.String(http.StatusInternalServerError, msgInternalError)
}

func (h *PublicHandler) GetProfileByID(c *gin.Context) {
	profileID, err := uuid.Parse(c.Param("profileId"))
	if err != nil {
		c.String(http.StatusNotFound, msgProfileNotFound)
		return
	}
	p, err := h.profileUC.GetPublicProfile(c.Request.Context(), profileID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PublicHandler) GetProfileByToken(c *gin.Context) {
	p, err := h.profileUC.GetPublicProfileByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PublicHandler) DownloadVCard(c *gin.Context) {
	export, err := h.profileUC.ExportVCard(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename))
	c.Data(http.StatusOK, "text/vcard; charset=utf-8", export.Data)
}
