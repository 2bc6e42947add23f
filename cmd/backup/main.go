package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/khoahotran/profile-card/adapters/media_storage"
	backupUC "github.com/khoahotran/profile-card/internal/application/usecase/backup"
	"github.com/khoahotran/profile-card/internal/config"
	"github.com/khoahotran/profile-card/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("cannot load config: " + err.Error())
	}
	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	blobs, _, err := media_storage.NewBlobStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize blob store", err)
	}

	url, err := backupUC.NewBackupUseCase(cfg.DB.DSN, backupUC.PGDump, blobs, appLogger).Execute(ctx)
	if err != nil {
		appLogger.Fatal("Backup failed", err)
	}
	appLogger.Info("Backup stored", zap.String("url", url))
}
