package domain

import (
	"context"
	"time"

	"salonbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CatalogProvider is the read-only view of services, staff and eligibility.
type CatalogProvider interface {
	ListServices(ctx context.Context) ([]models.Service, error)
	GetService(ctx context.Context, id int64) (*models.Service, error)
	ListStaff(ctx context.Context, serviceID *int64) ([]models.Staff, error)
	GetStaff(ctx context.Context, id int64) (*models.Staff, error)
	IsEligible(ctx context.Context, staffID, serviceID int64) (bool, error)
}

// BookingStore persists bookings. InsertBookingIfFree must re-check overlap and insert
// atomically with respect to other writers.
type BookingStore interface {
	BookingsFor(ctx context.Context, staffID int64, date time.Time) ([]models.Booking, error)
	InsertBookingIfFree(ctx context.Context, booking *models.Booking) error
}

type BookingReader interface {
	GetBookingDetails(ctx context.Context, id int64) (*models.BookingDetails, error)
	BookingsForDate(ctx context.Context, date time.Time) ([]models.BookingDetails, error)
	BookingsByDateRange(ctx context.Context, from, to time.Time) ([]models.BookingDetails, error)
}

// SlotCache stores computed slot lists. A miss or an error means compute again.
type SlotCache interface {
	GetSlots(ctx context.Context, date time.Time, staffID, serviceID int64) ([]string, bool, error)
	SetSlots(ctx context.Context, date time.Time, staffID, serviceID int64, slots []string) error
	InvalidateDay(ctx context.Context, date time.Time, staffID int64) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TaskQueue interface {
	EnqueueTask(ctx context.Context, taskType string, bookingID int64, payload interface{}) error
}

// SMSSender delivers a text message to an E.164 number.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
	ProviderID() string
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ManagerAlerter tells the salon managers about a new booking.
type ManagerAlerter interface {
	NotifyNewBooking(b models.BookingDetails) error
}

type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.BookingDetails) error
}
