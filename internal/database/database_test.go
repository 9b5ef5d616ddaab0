package database

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"salonbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCatalog = models.Catalog{
	Services: []models.Service{
		{ID: 1, Category: "CUTS", Name: "Ladies Cut", Price: 250, Duration: 1},
		{ID: 2, Category: "GEL NAILS", Name: "Gel Overlay", Price: 300, Duration: 1.5},
		{ID: 3, Category: "LASHES", Name: "Lash Lift", Price: 400, Duration: 0.75},
	},
	Staff: []models.Staff{
		{ID: 1, Name: "Sarah"},
		{ID: 2, Name: "Emma"},
	},
	StaffServices: []models.StaffService{
		{StaffID: 1, ServiceID: 1},
		{StaffID: 1, ServiceID: 2},
	},
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.SyncCatalog(context.Background(), testCatalog))
	return db
}

func testDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s, time.Local)
	require.NoError(t, err)
	return d
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "salon.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
	assert.NoError(t, db.PingContext(context.Background()))
}

func TestNewDB_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "salon.db")
	logger := zerolog.Nop()
	ctx := context.Background()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	require.NoError(t, db.SyncCatalog(ctx, testCatalog))
	require.NoError(t, db.Close())

	db, err = NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	n, err := db.CountServices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDB_ErrorPaths(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	db.Close()

	ctx := context.Background()
	day := time.Now()

	_, err = db.BookingsFor(ctx, 1, day)
	assert.Error(t, err)

	err = db.InsertBookingIfFree(ctx, &models.Booking{StaffID: 1, Date: day, Hour: 10, Duration: 1})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSlotTaken)

	_, err = db.ListServices(ctx)
	assert.Error(t, err)

	err = db.SyncCatalog(ctx, testCatalog)
	assert.Error(t, err)

	err = db.CreateSyncTask(ctx, &models.SyncTask{TaskType: models.TaskSMSConfirmation})
	assert.Error(t, err)
}
