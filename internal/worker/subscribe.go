package worker

import (
	"context"
	"errors"

	"salonbook/internal/events"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
)

// bookingTaskTypes are the follow-ups queued for every new booking, when registered.
var bookingTaskTypes = []string{
	models.TaskSMSConfirmation,
	models.TaskSheetsUpsert,
	models.TaskTelegramNotify,
}

// SubscribeBookingEvents turns booking_created into durable sync tasks. The
// handler only persists tasks, so no delivery runs on the publisher's goroutine.
func SubscribeBookingEvents(ctx context.Context, bus *events.EventBus, w *SyncWorker, logger *zerolog.Logger) {
	bus.Subscribe(events.EventBookingCreated, func(ev *events.Event) error {
		var payload events.BookingEventPayload
		if err := ev.Decode(&payload); err != nil {
			logger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}

		booking := payload.Booking
		var errs []error
		for _, taskType := range bookingTaskTypes {
			if !w.Handles(taskType) {
				continue
			}
			if err := w.EnqueueTask(ctx, taskType, booking.ID, booking); err != nil {
				logger.Error().Err(err).
					Str("task_type", taskType).
					Int64("booking_id", booking.ID).
					Str("request_id", payload.RequestID).
					Msg("event bus: enqueue task")
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
