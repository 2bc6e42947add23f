package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	assetUC "github.com/khoahotran/profile-card/internal/application/usecase/asset"
	"github.com/khoahotran/profile-card/pkg/apperror"
	"github.com/khoahotran/profile-card/pkg/logger"
)

type AssetHandler struct {
	uploadAssetUC *assetUC.UploadAssetUseCase
	logger        logger.Logger
}

func NewAssetHandler(uploadUC *assetUC.UploadAssetUseCase, log logger.Logger) *AssetHandler {
	return &AssetHandler{uploadAssetUC: uploadUC, logger: log}
}

func (h *AssetHandler) UploadAsset(c *gin.Context) {
	ownerID, ok := GetOwnerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewUnauthorized("ownerID not found in context", nil))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.Error(apperror.NewInvalidInput("'file' is required", err))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.Error(apperror.NewInternal("failed to open file", err))
		return
	}
	defer file.Close()

	output, err := h.uploadAssetUC.Execute(c.Request.Context(), assetUC.UploadAssetInput{
		OwnerID:     ownerID,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		File:        file,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, output)
}
