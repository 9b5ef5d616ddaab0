package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"salonbook/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService(t *testing.T) {
	tempDir := t.TempDir()
	storagePath := filepath.Join(tempDir, "backups")
	logger := zerolog.Nop()

	db, err := NewDB(filepath.Join(tempDir, "salon.db"), &logger)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.SyncCatalog(context.Background(), testCatalog))

	s := NewBackupService(db, config.BackupConfig{
		Enabled:       true,
		StoragePath:   storagePath,
		RetentionDays: 1,
	}, &logger)

	t.Run("PerformBackup", func(t *testing.T) {
		path, err := s.PerformBackup(context.Background())
		require.NoError(t, err)
		assert.FileExists(t, path)

		restored, err := NewDB(path, &logger)
		require.NoError(t, err)
		defer restored.Close()
		n, err := restored.CountServices(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		oldFile := filepath.Join(storagePath, backupPrefix+"old.db")
		require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
		unrelated := filepath.Join(storagePath, "notes.txt")
		require.NoError(t, os.WriteFile(unrelated, []byte("keep"), 0o644))

		oldTime := time.Now().AddDate(0, 0, -2)
		require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))
		require.NoError(t, os.Chtimes(unrelated, oldTime, oldTime))

		assert.Equal(t, 1, s.CleanupOldBackups())
		assert.NoFileExists(t, oldFile)
		assert.FileExists(t, unrelated)
	})
}

func TestBackupService_Disabled(t *testing.T) {
	logger := zerolog.Nop()
	s := NewBackupService(nil, config.BackupConfig{Enabled: false}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)
}
