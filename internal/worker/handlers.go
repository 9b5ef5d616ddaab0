package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/logging"
	"salonbook/internal/models"
	"salonbook/internal/notify"

	"github.com/rs/zerolog"
)

// bookingPayload resolves the booking a task refers to. The payload snapshot is
// used when present, otherwise the booking is loaded by id.
func bookingPayload(ctx context.Context, reader domain.BookingReader, task *models.SyncTask) (*models.BookingDetails, error) {
	if task.Payload != "" {
		var details models.BookingDetails
		if err := json.Unmarshal([]byte(task.Payload), &details); err != nil {
			return nil, fmt.Errorf("%w: decode payload: %v", ErrPermanent, err)
		}
		if details.ID != 0 {
			return &details, nil
		}
	}
	if reader == nil {
		return nil, fmt.Errorf("%w: booking %d has no payload", ErrPermanent, task.BookingID)
	}
	details, err := reader.GetBookingDetails(ctx, task.BookingID)
	if errors.Is(err, database.ErrBookingNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrPermanent, err)
	}
	if err != nil {
		return nil, fmt.Errorf("load booking %d: %w", task.BookingID, err)
	}
	return details, nil
}

// NewConfirmationHandler sends the booking confirmation SMS.
func NewConfirmationHandler(sender domain.SMSSender, reader domain.BookingReader, business, countryCode string, logger *zerolog.Logger) TaskHandler {
	return func(ctx context.Context, task *models.SyncTask) error {
		details, err := bookingPayload(ctx, reader, task)
		if err != nil {
			return err
		}
		to := notify.FormatE164(details.Phone, countryCode)
		if err := sender.Send(ctx, to, notify.ConfirmationMessage(business, *details)); err != nil {
			return fmt.Errorf("%s: %w", sender.ProviderID(), err)
		}
		logger.Info().
			Int64("booking_id", details.ID).
			Str("phone", logging.MaskPhone(to)).
			Str("provider", sender.ProviderID()).
			Msg("confirmation sms sent")
		return nil
	}
}

// NewSheetsHandler mirrors the booking into the bookings spreadsheet.
func NewSheetsHandler(sheets domain.SheetsWriter, reader domain.BookingReader) TaskHandler {
	return func(ctx context.Context, task *models.SyncTask) error {
		details, err := bookingPayload(ctx, reader, task)
		if err != nil {
			return err
		}
		return sheets.UpsertBooking(ctx, details)
	}
}

// NewManagerAlertHandler sends the new-booking alert to the managers' chats.
func NewManagerAlertHandler(alerter domain.ManagerAlerter, reader domain.BookingReader) TaskHandler {
	return func(ctx context.Context, task *models.SyncTask) error {
		details, err := bookingPayload(ctx, reader, task)
		if err != nil {
			return err
		}
		return alerter.NotifyNewBooking(*details)
	}
}
