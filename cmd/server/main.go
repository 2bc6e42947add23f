package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-card/adapters/cache"
	"github.com/khoahotran/profile-card/adapters/event"
	httpAdapter "github.com/khoahotran/profile-card/adapters/http"
	"github.com/khoahotran/profile-card/adapters/media_storage"
	"github.com/khoahotran/profile-card/adapters/persistence"
	"github.com/khoahotran/profile-card/adapters/qr"
	"github.com/khoahotran/profile-card/internal/application/service"
	assetUC "github.com/khoahotran/profile-card/internal/application/usecase/asset"
	authUC "github.com/khoahotran/profile-card/internal/application/usecase/auth"
	profileUC "github.com/khoahotran/profile-card/internal/application/usecase/profile"
	"github.com/khoahotran/profile-card/internal/config"
	"github.com/khoahotran/profile-card/pkg/auth"
	"github.com/khoahotran/profile-card/pkg/logger"
	"github.com/khoahotran/profile-card/pkg/tracing"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("cannot load config: " + err.Error())
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()
	appLogger.Info("Start Profile Card API Server...", zap.String("env", cfg.App.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tracing
	if cfg.Jaeger.OTLPEndpoint != "" {
		tp, err := tracing.NewTracerProvider(ctx, cfg, appLogger, "profile-card-api")
		if err != nil {
			appLogger.Fatal("Cannot init tracer", err)
		}
		defer tp.Shutdown(context.Background())
	}

	// Initialize dependencies
	dbPool, err := persistence.NewPostgresPool(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Cannot connect Postgres", err)
	}
	defer dbPool.Close()

	var viewCache service.ViewCache
	if cfg.Redis.Addr != "" {
		redisClient, err := persistence.NewRedisClient(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Cannot connect Redis", err)
		}
		defer redisClient.Close()
		viewCache = cache.NewRedisViewCache(redisClient, cfg.Cache.TTL, cfg.Cache.PublicTTL)
	} else {
		appLogger.Warn("REDIS_ADDR not set, view cache disabled")
	}

	var publisher service.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := event.NewKafkaProducerClient(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Cannot init Kafka", err)
		}
		defer kafkaClient.Close()
		publisher = kafkaClient
	} else {
		appLogger.Warn("KAFKA_BROKERS not set, profile events disabled")
	}

	blobs, blobHandler, err := media_storage.NewBlobStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize blob store", err)
	}

	// Repositories
	userRepo := persistence.NewPostgresUserRepo(dbPool)
	profileRepo := persistence.NewPostgresProfileRepo(dbPool, appLogger)

	// Services
	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenLifespan)
	provisioner := profileUC.NewProvisioner(cfg.App.BaseURL, profileRepo, qr.NewPNGRenderer(qr.DefaultSize), blobs, nil, appLogger)

	// Use Cases
	loginUseCase := authUC.NewLoginUseCase(userRepo, jwtSvc, appLogger)
	profileUseCase := profileUC.NewProfileUseCase(profileRepo, provisioner, viewCache, publisher, appLogger)
	uploadAssetUseCase := assetUC.NewUploadAssetUseCase(blobs, appLogger)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpAdapter.NewRouter(httpAdapter.Handlers{
		Auth:    httpAdapter.NewAuthHandler(loginUseCase, appLogger),
		Profile: httpAdapter.NewProfileHandler(profileUseCase, appLogger),
		Public:  httpAdapter.NewPublicHandler(profileUseCase, appLogger),
		Asset:   httpAdapter.NewAssetHandler(uploadAssetUseCase, appLogger),
		Blobs:   blobHandler,
	}, jwtSvc, appLogger)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("API listening", zap.String("addr", srv.Addr), zap.String("base_url", cfg.App.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Cannot run server", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Graceful shutdown failed", err)
	}
}
