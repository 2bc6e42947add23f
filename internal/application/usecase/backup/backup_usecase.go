package backup

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/khoahotran/profile-card/internal/application/service"
	"github.com/khoahotran/profile-card/pkg/apperror"
	"github.com/khoahotran/profile-card/pkg/logger"
)

const BackupFolder = "backups/database"

// Dumper produces a database dump for the given DSN.
type Dumper func(ctx context.Context, dsn string) ([]byte, error)

// PGDump shells out to pg_dump in custom format.
func PGDump(ctx context.Context, dsn string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "pg_dump", "--dbname="+dsn, "--format=c")

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pg_dump failed: %w (stderr: %s)", err, stderr.String())
	}
	return out.Bytes(), nil
}

// BackupUseCase dumps the profile database into the blob store. Backups are
// never public.
type BackupUseCase struct {
	dsn    string
	dump   Dumper
	blobs  service.BlobStore
	logger logger.Logger
	now    func() time.Time
}

func NewBackupUseCase(dsn string, dump Dumper, blobs service.BlobStore, log logger.Logger) *BackupUseCase {
	if dump == nil {
		dump = PGDump
	}
	return &BackupUseCase{
		dsn:    dsn,
		dump:   dump,
		blobs:  blobs,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Execute returns the URL of the uploaded dump.
func (uc *BackupUseCase) Execute(ctx context.Context) (string, error) {
	uc.logger.Info("Starting database backup...")

	data, err := uc.dump(ctx, uc.dsn)
	if err != nil {
		uc.logger.Error("Database dump failed", err)
		return "", apperror.NewInternal("dump database", err)
	}

	timestamp := uc.now().Format("2006-01-02_15-04-05")
	key := fmt.Sprintf("%s/backup-%s.dump", BackupFolder, timestamp)

	uploadURL, err := uc.blobs.Put(ctx, key, bytes.NewReader(data), service.PutOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		uc.logger.Error("Failed to upload backup", err, zap.String("key", key))
		return "", apperror.NewUpstream("blob store", "upload backup", err)
	}

	uc.logger.Info("Database backup completed and uploaded successfully",
		zap.String("url", uploadURL),
		zap.String("key", key),
		zap.Int("bytes", len(data)),
	)
	return uploadURL, nil
}
