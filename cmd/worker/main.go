package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-card/adapters/cache"
	"github.com/khoahotran/profile-card/adapters/event"
	"github.com/khoahotran/profile-card/adapters/media_storage"
	"github.com/khoahotran/profile-card/adapters/persistence"
	"github.com/khoahotran/profile-card/internal/application/service"
	workerUC "github.com/khoahotran/profile-card/internal/application/usecase/profile"
	"github.com/khoahotran/profile-card/internal/config"
	"github.com/khoahotran/profile-card/pkg/logger"
	"github.com/khoahotran/profile-card/pkg/tracing"
)

const consumerGroup = "profile-processor-group"

func main() {
	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("cannot load config: " + err.Error())
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()
	appLogger.Info("Starting Profile Card Worker...")

	if len(cfg.Kafka.Brokers) == 0 {
		appLogger.Fatal("Kafka brokers not configured", errors.New("KAFKA_BROKERS is empty"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Jaeger.OTLPEndpoint != "" {
		tp, err := tracing.NewTracerProvider(ctx, cfg, appLogger, "profile-card-worker")
		if err != nil {
			appLogger.Fatal("Cannot init tracer", err)
		}
		defer tp.Shutdown(context.Background())
	}

	// Database
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
	}

	// Blob store
	blobs, _, err := media_storage.NewBlobStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize blob store", err)
	}

	// Repositories
	profileRepo := persistence.NewPostgresProfileRepo(dbPool, appLogger)

	// Worker Use Case
	processEventUC := workerUC.NewProcessProfileEventUseCase(profileRepo, blobs, viewCache, appLogger)

	// Kafka Consumer
	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Kafka.Brokers,
		Topic:    event.TopicProfileEvents,
		GroupID:  consumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer consumer.Close()

	appLogger.Info("Worker listening", zap.String("topic", event.TopicProfileEvents), zap.String("group", consumerGroup))

	for {
		msg, err := consumer.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				appLogger.Info("Worker stopped")
				return
			}
			appLogger.Error("Failed to read message from Kafka", err)
			continue
		}

		log := appLogger.With(zap.String("key", string(msg.Key)), zap.Int64("offset", msg.Offset))

		var payload service.ProfileEventPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			log.Error("Failed to unmarshal event, skipping", err)
			commitMessage(ctx, consumer, msg, log)
			continue
		}

		if err := processEventUC.ExecuteWithRetry(ctx, payload); err != nil {
			// Only shutdown stops the retries; the offset stays uncommitted.
			log.Error("Stopped processing profile event", err, zap.String("profile_id", payload.ProfileID.String()))
			return
		}

		commitMessage(ctx, consumer, msg, log)
	}
}

func commitMessage(ctx context.Context, consumer *kafka.Reader, msg kafka.Message, log logger.Logger) {
	if err := consumer.CommitMessages(ctx, msg); err != nil {
		log.Error("Failed to commit message", err)
	}
}
