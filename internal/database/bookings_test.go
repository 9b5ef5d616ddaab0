package database

import (
	"context"
	"testing"

	"salonbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBooking(t *testing.T, staffID, serviceID int64, date string, hour int, duration float64) *models.Booking {
	return &models.Booking{
		ClientName: "Thandi",
		Phone:      "0821234567",
		ServiceID:  serviceID,
		StaffID:    staffID,
		Date:       testDate(t, date),
		Hour:       hour,
		Duration:   duration,
	}
}

func TestInsertBookingIfFree(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := newBooking(t, 1, 1, "2025-06-10", 10, 1)
	b.Notes = "first visit"
	require.NoError(t, db.InsertBookingIfFree(ctx, b))
	assert.NotZero(t, b.ID)
	assert.False(t, b.CreatedAt.IsZero())

	got, err := db.BookingsFor(ctx, 1, testDate(t, "2025-06-10"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].Hour)
	assert.Equal(t, "first visit", got[0].Notes)
	assert.Equal(t, "2025-06-10", got[0].DateString())
}

func TestInsertBookingIfFree_RejectsOverlap(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertBookingIfFree(ctx, newBooking(t, 1, 2, "2025-06-10", 10, 1.5)))

	before, err := db.CountBookings(ctx)
	require.NoError(t, err)

	// exact duplicate
	err = db.InsertBookingIfFree(ctx, newBooking(t, 1, 2, "2025-06-10", 10, 1.5))
	assert.ErrorIs(t, err, ErrSlotTaken)

	// 11:00-12:00 overlaps 10:00-11:30
	err = db.InsertBookingIfFree(ctx, newBooking(t, 1, 1, "2025-06-10", 11, 1))
	assert.ErrorIs(t, err, ErrSlotTaken)

	after, err := db.CountBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestInsertBookingIfFree_AllowsTouchingAndOtherStaff(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertBookingIfFree(ctx, newBooking(t, 1, 1, "2025-06-10", 10, 1)))
	// back to back
	require.NoError(t, db.InsertBookingIfFree(ctx, newBooking(t, 1, 1, "2025-06-10", 11, 1)))
	// other staff, same hour
	require.NoError(t, db.InsertBookingIfFree(ctx, newBooking(t, 2, 1, "2025-06-10", 10, 1)))
	// same staff, other day
	require.NoError(t, db.InsertBookingIfFree(ctx, newBooking(t, 1, 1, "2025-06-11", 10, 1)))

	n, err := db.CountBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestBookingDetails(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := newBooking(t, 1, 2, "2025-06-10", 14, 1.5)
	require.NoError(t, db.InsertBookingIfFree(ctx, b))
	require.NoError(t, db.InsertBookingIfFree(ctx, newBooking(t, 2, 1, "2025-06-10", 9, 1)))
	require.NoError(t, db.InsertBookingIfFree(ctx, newBooking(t, 2, 1, "2025-06-12", 9, 1)))

	d, err := db.GetBookingDetails(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gel Overlay", d.ServiceName)
	assert.Equal(t, "GEL NAILS", d.Category)
	assert.Equal(t, "Sarah", d.StaffName)
	assert.Equal(t, 300.0, d.Price)

	_, err = db.GetBookingDetails(ctx, 999)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	day, err := db.BookingsForDate(ctx, testDate(t, "2025-06-10"))
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, 9, day[0].Hour)
	assert.Equal(t, 14, day[1].Hour)

	rng, err := db.BookingsByDateRange(ctx, testDate(t, "2025-06-10"), testDate(t, "2025-06-12"))
	require.NoError(t, err)
	assert.Len(t, rng, 3)

	rng, err = db.BookingsByDateRange(ctx, testDate(t, "2025-06-11"), testDate(t, "2025-06-11"))
	require.NoError(t, err)
	assert.Empty(t, rng)
}

// Every pair of bookings a staff member holds on one day must be disjoint,
// whatever sequence of inserts was attempted.
func TestInsertBookingIfFree_PairwiseDisjoint(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	durations := []float64{1, 1.5, 0.75, 2}
	for hour := 9; hour < 19; hour++ {
		for i, d := range durations {
			_ = db.InsertBookingIfFree(ctx, newBooking(t, 1, int64(i%3)+1, "2025-06-10", hour, d))
		}
	}

	bookings, err := db.BookingsFor(ctx, 1, testDate(t, "2025-06-10"))
	require.NoError(t, err)
	require.NotEmpty(t, bookings)
	for i := range bookings {
		for j := i + 1; j < len(bookings); j++ {
			assert.False(t, bookings[i].Interval().Overlaps(bookings[j].Interval()),
				"bookings %d and %d overlap", bookings[i].ID, bookings[j].ID)
		}
	}
}
