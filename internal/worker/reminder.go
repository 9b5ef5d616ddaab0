package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/logging"
	"salonbook/internal/metrics"
	"salonbook/internal/models"
	"salonbook/internal/notify"

	"github.com/rs/zerolog"
)

// ReminderResult summarises one reminder run.
type ReminderResult struct {
	Date   time.Time
	Total  int
	Sent   int
	Failed int
}

// ReminderScheduler sends a reminder SMS for every booking on the next day.
type ReminderScheduler struct {
	bookings    domain.BookingReader
	sender      domain.SMSSender
	business    string
	countryCode string
	hour        int
	minute      int
	loc         *time.Location
	now         func() time.Time
	logger      *zerolog.Logger

	mu      sync.Mutex
	lastRun string
}

func NewReminderScheduler(bookings domain.BookingReader, sender domain.SMSSender, business, countryCode string, hour, minute int, loc *time.Location, logger *zerolog.Logger) *ReminderScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderScheduler{
		bookings:    bookings,
		sender:      sender,
		business:    business,
		countryCode: countryCode,
		hour:        hour,
		minute:      minute,
		loc:         loc,
		now:         time.Now,
		logger:      logger,
	}
}

// RunOnce sends reminders for tomorrow's bookings. Individual send failures are
// counted, not returned.
func (s *ReminderScheduler) RunOnce(ctx context.Context) (ReminderResult, error) {
	tomorrow := models.DateOf(s.now(), s.loc).AddDate(0, 0, 1)
	res := ReminderResult{Date: tomorrow}

	bookings, err := s.bookings.BookingsForDate(ctx, tomorrow)
	if err != nil {
		return res, fmt.Errorf("load bookings for %s: %w", tomorrow.Format(models.DateLayout), err)
	}
	res.Total = len(bookings)

	for i := range bookings {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		b := bookings[i]
		to := notify.FormatE164(b.Phone, s.countryCode)
		if err := s.sender.Send(ctx, to, notify.ReminderMessage(s.business, b)); err != nil {
			res.Failed++
			metrics.IncReminder("failed")
			s.logger.Error().Err(err).
				Int64("booking_id", b.ID).
				Str("phone", logging.MaskPhone(to)).
				Msg("reminder send failed")
			continue
		}
		res.Sent++
		metrics.IncReminder("sent")
	}

	s.logger.Info().
		Str("date", tomorrow.Format(models.DateLayout)).
		Int("total", res.Total).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Msg("reminders processed")
	return res, nil
}

// Start runs RunOnce every day at the configured time until ctx is done.
func (s *ReminderScheduler) Start(ctx context.Context) {
	timer := time.NewTimer(s.untilNext())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.runDaily(ctx)
			timer.Reset(s.untilNext())
		}
	}
}

// runDaily guards against a second run on the same day after clock drift.
func (s *ReminderScheduler) runDaily(ctx context.Context) {
	today := models.DateOf(s.now(), s.loc).Format(models.DateLayout)
	s.mu.Lock()
	if s.lastRun == today {
		s.mu.Unlock()
		return
	}
	s.lastRun = today
	s.mu.Unlock()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("reminder run failed")
	}
}

func (s *ReminderScheduler) untilNext() time.Duration {
	now := s.now().In(s.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
