package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"salonbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentBooking(t *testing.T) {
	logger := zerolog.Nop()
	dbPath := filepath.Join(t.TempDir(), "concurrency.db")
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SyncCatalog(ctx, testCatalog))

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(hourOffset int) {
			defer wg.Done()
			// 10:00 and 11:00 starts with 1.5h both cover 11:00-11:30, so at most one wins
			b := newBooking(t, 1, 2, "2025-06-10", 10+hourOffset%2, 1.5)
			results <- db.InsertBookingIfFree(ctx, b)
		}(i)
	}

	wg.Wait()
	close(results)

	success, taken := 0, 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrSlotTaken):
			taken++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, success, "only one overlapping booking may succeed")
	assert.Equal(t, numGoroutines-1, taken)

	bookings, err := db.BookingsFor(ctx, 1, testDate(t, "2025-06-10"))
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestConcurrentBooking_DisjointSlotsAllSucceed(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for hour := 9; hour < 19; hour++ {
		wg.Add(1)
		go func(h int) {
			defer wg.Done()
			errs <- db.InsertBookingIfFree(ctx, &models.Booking{
				ClientName: "Client", Phone: "0821234567", ServiceID: 1, StaffID: 1,
				Date: testDate(t, "2025-06-10"), Hour: h, Duration: 1,
			})
		}(hour)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	n, err := db.CountBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}
