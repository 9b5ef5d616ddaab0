package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"salonbook/internal/availability"
	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/events"
	"salonbook/internal/logging"
	"salonbook/internal/metrics"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
)

var phoneSeparators = strings.NewReplacer(" ", "", "-", "")

type BookingService struct {
	engine   *availability.Engine
	store    domain.BookingStore
	eventBus domain.EventPublisher
	phone    *regexp.Regexp
	logger   *zerolog.Logger
}

func NewBookingService(
	engine *availability.Engine,
	store domain.BookingStore,
	eventBus domain.EventPublisher,
	phonePattern string,
	logger *zerolog.Logger,
) (*BookingService, error) {
	phone, err := regexp.Compile(phonePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid phone pattern: %w", err)
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BookingService{
		engine:   engine,
		store:    store,
		eventBus: eventBus,
		phone:    phone,
		logger:   logger,
	}, nil
}

// NormalizePhone strips spaces and dashes and checks the result against the
// configured pattern.
func (s *BookingService) NormalizePhone(raw string) (string, error) {
	phone := phoneSeparators.Replace(strings.TrimSpace(raw))
	if !s.phone.MatchString(phone) {
		return "", domain.Validation("invalid phone number format")
	}
	return phone, nil
}

// CreateBooking validates the request and commits it when the interval is still free.
// Nothing is written unless every check passes.
func (s *BookingService) CreateBooking(ctx context.Context, req models.BookingRequest) (*models.BookingDetails, error) {
	details, err := s.createBooking(ctx, req)
	if err != nil {
		metrics.IncBookingRejected(domain.CodeOf(err))
		return nil, err
	}
	metrics.IncBookingCreated()
	return details, nil
}

func (s *BookingService) createBooking(ctx context.Context, req models.BookingRequest) (*models.BookingDetails, error) {
	if err := validateRequired(req); err != nil {
		return nil, err
	}
	phone, err := s.NormalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}
	date, err := s.engine.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	hour := *req.Hour
	if hour < 0 || hour > 23 {
		return nil, domain.Validation("hour must be between 0 and 23")
	}

	service, staff, err := s.engine.Resolve(ctx, req.StaffID, req.ServiceID)
	if err != nil {
		return nil, err
	}

	if err := s.engine.CheckDate(date); err != nil {
		return nil, err
	}

	window, open := s.engine.Window(date)
	if !open {
		return nil, domain.Validation("the salon is closed on %s", date.Weekday())
	}
	interval := models.Interval{Start: hour * 60, End: hour*60 + service.Minutes()}
	if !window.Contains(interval) {
		return nil, domain.Validation("%s at %s does not fit opening hours %s-%s",
			service.Name, models.FormatMinutes(interval.Start),
			models.FormatMinutes(window.Start), models.FormatMinutes(window.End))
	}
	if err := s.engine.CheckStart(date, interval.Start); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		ClientName: strings.TrimSpace(req.ClientName),
		Phone:      phone,
		ServiceID:  service.ID,
		StaffID:    staff.ID,
		Date:       date,
		Hour:       hour,
		Duration:   service.Duration,
		Notes:      strings.TrimSpace(req.Notes),
	}

	if err := s.store.InsertBookingIfFree(ctx, booking); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			return nil, domain.SlotUnavailable("this time slot is no longer available, please choose another time")
		}
		return nil, fmt.Errorf("save booking: %w", err)
	}

	details := &models.BookingDetails{
		Booking:     *booking,
		ServiceName: service.Name,
		Category:    service.Category,
		Price:       service.Price,
		StaffName:   staff.Name,
	}

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("staff_id", staff.ID).
		Int64("service_id", service.ID).
		Str("date", booking.DateString()).
		Int("hour", hour).
		Str("phone", logging.MaskPhone(phone)).
		Msg("booking created")

	s.afterCommit(ctx, details)
	return details, nil
}

// afterCommit runs side effects. Failures are logged only; the booking stands.
func (s *BookingService) afterCommit(ctx context.Context, details *models.BookingDetails) {
	if err := s.engine.InvalidateDay(ctx, details.Date, details.StaffID); err != nil {
		s.logger.Warn().Err(err).Int64("booking_id", details.ID).Msg("slot cache invalidation failed")
	}

	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		Booking:   *details,
		RequestID: logging.RequestIDFrom(ctx),
	}
	if err := s.eventBus.PublishJSON(events.EventBookingCreated, payload); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", details.ID).Msg("publish event error")
	}
}

// CheckSlot is an advisory check that [hour, hour+duration) is free for the staff
// member on date. It writes nothing and reserves nothing.
func (s *BookingService) CheckSlot(ctx context.Context, staffID int64, date string, hour int, durationHours float64) (bool, error) {
	if staffID <= 0 {
		return false, domain.Validation("missing required field: staff_id")
	}
	if _, err := s.engine.Staff(ctx, staffID); err != nil {
		return false, err
	}
	day, err := s.engine.ParseDate(date)
	if err != nil {
		return false, err
	}
	if hour < 0 || hour > 23 {
		return false, domain.Validation("hour must be between 0 and 23")
	}
	if durationHours <= 0 {
		return false, domain.Validation("duration must be positive")
	}
	return s.engine.IsFree(ctx, staffID, day, hour, durationHours)
}

func validateRequired(req models.BookingRequest) error {
	switch {
	case strings.TrimSpace(req.ClientName) == "":
		return missing("client_name")
	case strings.TrimSpace(req.Phone) == "":
		return missing("phone")
	case req.ServiceID <= 0:
		return missing("service_id")
	case req.StaffID <= 0:
		return missing("staff_id")
	case strings.TrimSpace(req.Date) == "":
		return missing("date")
	case req.Hour == nil:
		return missing("hour")
	}
	return nil
}

func missing(field string) error {
	return domain.Validation("missing required field: %s", field)
}
