package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"salonbook/internal/config"

	"github.com/rs/zerolog"
)

const backupPrefix = "salonbook_"

// BackupService writes periodic online copies of the database with VACUUM INTO.
type BackupService struct {
	db     *DB
	config config.BackupConfig
	logger *zerolog.Logger
}

func NewBackupService(db *DB, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	return &BackupService{db: db, config: cfg, logger: logger}
}

func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("Backup service is disabled")
		return
	}

	interval, err := time.ParseDuration(s.config.Interval)
	if err != nil || interval <= 0 {
		s.logger.Warn().Str("interval", s.config.Interval).Msg("Invalid backup interval, using 24h")
		interval = 24 * time.Hour
	}
	s.logger.Info().Dur("interval", interval).Msg("Backup service started")

	s.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *BackupService) runOnce(ctx context.Context) {
	if _, err := s.PerformBackup(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Backup failed")
		return
	}
	if removed := s.CleanupOldBackups(); removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("Old backups removed")
	}
}

// PerformBackup writes a consistent snapshot and returns its path.
func (s *BackupService) PerformBackup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.config.StoragePath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := fmt.Sprintf("%s%s.db", backupPrefix, time.Now().Format("20060102_150405.000"))
	path := filepath.Join(s.config.StoragePath, name)

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return "", fmt.Errorf("failed to vacuum into %s: %w", path, err)
	}

	s.logger.Info().Str("path", path).Msg("Backup completed")
	return path, nil
}

// CleanupOldBackups removes backups older than the retention window and reports how many went.
func (s *BackupService) CleanupOldBackups() int {
	if s.config.RetentionDays <= 0 {
		return 0
	}

	entries, err := os.ReadDir(s.config.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backup directory for cleanup")
		return 0
	}

	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), backupPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.config.StoragePath, entry.Name())); err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to delete old backup")
			continue
		}
		removed++
	}
	return removed
}
