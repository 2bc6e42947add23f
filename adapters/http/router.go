package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/profile-card/pkg/auth"
	"github.com/khoahotran/profile-card/pkg/logger"
)

type Handlers struct {
	Auth    *AuthHandler
	Profile *ProfileHandler
	Public  *PublicHandler
	Asset   *AssetHandler
	// Blobs, when set, serves locally stored objects under /blobs.
	Blobs http.Handler
}

func NewRouter(h Handlers, jwtSvc *auth.JWTService, log logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log), ErrorMiddleware(log))

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })
		api.POST("/auth/login", h.Auth.Login)
		api.GET("/profiles/:profileId", h.Public.GetProfileByID)

		me := api.Group("/me")
		{
			profiles := me.Group("/profiles")
			profiles.Use(IdentifyCaller(jwtSvc, log))
			{
				profiles.GET("", h.Profile.ListProfiles)
				profiles.POST("", h.Profile.CreateProfile)
				profiles.GET("/:id", h.Profile.GetProfile)
				profiles.PUT("/:id", h.Profile.UpdateProfile)
				profiles.DELETE("/:id", h.Profile.DeleteProfile)
			}

			assets := me.Group("/assets")
			assets.Use(AuthMiddleware(jwtSvc, log))
			{
				assets.POST("", h.Asset.UploadAsset)
			}
		}
	}

	share := router.Group("/p")
	{
		share.GET("/:token", h.Public.GetProfileByToken)
		share.GET("/:token/vcard", h.Public.DownloadVCard)
	}

	if h.Blobs != nil {
		router.GET("/blobs/*key", gin.WrapH(http.StripPrefix("/blobs", h.Blobs)))
	}

	return router
}
