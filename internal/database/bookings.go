package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"salonbook/internal/models"
)

const bookingColumns = `id, client_name, phone, service_id, staff_id, date, hour, duration, COALESCE(notes, ''), created_at`

const detailsQuery = `
    SELECT b.id, b.client_name, b.phone, b.service_id, b.staff_id, b.date, b.hour, b.duration,
           COALESCE(b.notes, ''), b.created_at, s.name, s.category, s.price, st.name
    FROM bookings b
    JOIN services s ON s.id = b.service_id
    JOIN staff st ON st.id = b.staff_id`

// BookingsFor returns the bookings of one staff member on one date, ordered by start hour.
func (db *DB) BookingsFor(ctx context.Context, staffID int64, date time.Time) ([]models.Booking, error) {
	bookings, err := db.bookingsFor(ctx, db.DB, staffID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings for staff %d: %w", staffID, err)
	}
	return bookings, nil
}

func (db *DB) bookingsFor(ctx context.Context, q queryer, staffID int64, date time.Time) ([]models.Booking, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE staff_id = ? AND date = ? ORDER BY hour`,
		staffID, date.Format(models.DateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := db.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// InsertBookingIfFree re-reads the staff member's bookings for the day and inserts the
// new one only when its interval overlaps none of them. The read and the insert share
// one IMMEDIATE transaction under writeMu, so concurrent callers are serialized.
func (db *DB) InsertBookingIfFree(ctx context.Context, booking *models.Booking) error {
	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	existing, err := db.bookingsFor(ctx, tx, booking.StaffID, booking.Date)
	if err != nil {
		return fmt.Errorf("failed to check availability in tx: %w", err)
	}

	candidate := booking.Interval()
	for _, b := range existing {
		if b.Interval().Overlaps(candidate) {
			return ErrSlotTaken
		}
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx, `
        INSERT INTO bookings (client_name, phone, service_id, staff_id, date, hour, duration, notes, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ClientName,
		booking.Phone,
		booking.ServiceID,
		booking.StaffID,
		booking.Date.Format(models.DateLayout),
		booking.Hour,
		booking.Duration,
		booking.Notes,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.ID = id
	booking.CreatedAt = now
	return nil
}

func (db *DB) GetBookingDetails(ctx context.Context, id int64) (*models.BookingDetails, error) {
	row := db.QueryRowContext(ctx, detailsQuery+` WHERE b.id = ?`, id)
	d, err := db.scanDetails(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %d: %w", id, ErrBookingNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking %d: %w", id, err)
	}
	return d, nil
}

// BookingsForDate lists every booking on date with service and staff names.
func (db *DB) BookingsForDate(ctx context.Context, date time.Time) ([]models.BookingDetails, error) {
	day := date.Format(models.DateLayout)
	return db.queryDetails(ctx, detailsQuery+` WHERE b.date = ? ORDER BY b.hour, st.name`, day)
}

// BookingsByDateRange lists bookings between from and to inclusive.
func (db *DB) BookingsByDateRange(ctx context.Context, from, to time.Time) ([]models.BookingDetails, error) {
	return db.queryDetails(ctx, detailsQuery+` WHERE b.date BETWEEN ? AND ? ORDER BY b.date, b.hour, st.name`,
		from.Format(models.DateLayout), to.Format(models.DateLayout))
}

func (db *DB) CountBookings(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return n, nil
}

func (db *DB) queryDetails(ctx context.Context, query string, args ...any) ([]models.BookingDetails, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var out []models.BookingDetails
	for rows.Next() {
		d, err := db.scanDetails(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (db *DB) scanBooking(r rowScanner) (*models.Booking, error) {
	var (
		b    models.Booking
		date string
	)
	if err := r.Scan(&b.ID, &b.ClientName, &b.Phone, &b.ServiceID, &b.StaffID, &date, &b.Hour,
		&b.Duration, &b.Notes, &b.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := models.ParseDate(date, db.loc)
	if err != nil {
		return nil, fmt.Errorf("booking %d has malformed date %q: %w", b.ID, date, err)
	}
	b.Date = parsed
	return &b, nil
}

func (db *DB) scanDetails(r rowScanner) (*models.BookingDetails, error) {
	var (
		d    models.BookingDetails
		date string
	)
	if err := r.Scan(&d.ID, &d.ClientName, &d.Phone, &d.ServiceID, &d.StaffID, &date, &d.Hour,
		&d.Duration, &d.Notes, &d.CreatedAt, &d.ServiceName, &d.Category, &d.Price, &d.StaffName); err != nil {
		return nil, err
	}
	parsed, err := models.ParseDate(date, db.loc)
	if err != nil {
		return nil, fmt.Errorf("booking %d has malformed date %q: %w", d.ID, date, err)
	}
	d.Date = parsed
	return &d, nil
}
