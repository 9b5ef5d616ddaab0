package availability

import (
	"context"
	"fmt"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/metrics"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
)

type Options struct {
	Location       *time.Location
	MaxBookingDays int
	// SkipElapsed drops today's starts that are not after the current time.
	SkipElapsed bool
	Now         func() time.Time
}

// Engine computes open start times for a staff member, service and date.
type Engine struct {
	catalog  domain.CatalogProvider
	store    domain.BookingStore
	cache    domain.SlotCache
	schedule Schedule
	opts     Options
	logger   *zerolog.Logger
	gens     generations
}

func NewEngine(catalog domain.CatalogProvider, store domain.BookingStore, schedule Schedule, opts Options, logger *zerolog.Logger) *Engine {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if schedule == nil {
		schedule = DefaultSchedule()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Engine{
		catalog:  catalog,
		store:    store,
		schedule: schedule,
		opts:     opts,
		logger:   logger,
	}
}

// SetCache enables the slot cache. A nil cache disables it.
func (e *Engine) SetCache(cache domain.SlotCache) {
	e.cache = cache
}

func (e *Engine) Location() *time.Location {
	return e.opts.Location
}

// Today is midnight of the current day in the business location.
func (e *Engine) Today() time.Time {
	return models.DateOf(e.opts.Now(), e.opts.Location)
}

// ParseDate parses YYYY-MM-DD in the business location.
func (e *Engine) ParseDate(s string) (time.Time, error) {
	d, err := models.ParseDate(s, e.opts.Location)
	if err != nil {
		return time.Time{}, domain.Validation("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// CheckDate rejects past dates and dates beyond the booking horizon.
func (e *Engine) CheckDate(date time.Time) error {
	today := e.Today()
	day := models.DateOf(date, e.opts.Location)
	if day.Before(today) {
		return domain.Validation("cannot book appointments in the past")
	}
	if e.opts.MaxBookingDays > 0 && day.After(today.AddDate(0, 0, e.opts.MaxBookingDays)) {
		return domain.Validation("bookings can be made at most %d days ahead", e.opts.MaxBookingDays)
	}
	return nil
}

// Window returns the opening window for date; false means closed.
func (e *Engine) Window(date time.Time) (models.Interval, bool) {
	return e.schedule.WindowFor(date)
}

func (e *Engine) Staff(ctx context.Context, id int64) (*models.Staff, error) {
	return e.catalog.GetStaff(ctx, id)
}

// Resolve loads the service and staff member and checks eligibility.
func (e *Engine) Resolve(ctx context.Context, staffID, serviceID int64) (*models.Service, *models.Staff, error) {
	service, err := e.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, nil, err
	}
	staff, err := e.catalog.GetStaff(ctx, staffID)
	if err != nil {
		return nil, nil, err
	}
	ok, err := e.catalog.IsEligible(ctx, staffID, serviceID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, domain.Ineligible("%s does not perform %s", staff.Name, service.Name)
	}
	return service, staff, nil
}

// ComputeSlots returns the open start times, formatted HH:MM and ascending.
// A closed day yields an empty list. The result is advisory: nothing is reserved.
func (e *Engine) ComputeSlots(ctx context.Context, date time.Time, staffID, serviceID int64) ([]string, error) {
	service, _, err := e.Resolve(ctx, staffID, serviceID)
	if err != nil {
		return nil, err
	}

	date = models.DateOf(date, e.opts.Location)
	if err := e.CheckDate(date); err != nil {
		return nil, err
	}

	window, open := e.Window(date)
	if !open {
		return []string{}, nil
	}

	notBefore := e.notBefore(date)
	// today's list changes with the clock when elapsed starts are skipped
	cacheable := e.cache != nil && notBefore < 0

	var day *dayGeneration
	var gen uint64
	if cacheable {
		day = e.gens.day(date, staffID, e.Today())
		gen = day.current()
		slots, ok, err := e.cache.GetSlots(ctx, date, staffID, serviceID)
		if err != nil {
			e.logger.Warn().Err(err).Msg("slot cache read failed")
		} else if ok {
			metrics.IncSlotComputation(true)
			return slots, nil
		}
	}

	bookings, err := e.store.BookingsFor(ctx, staffID, date)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	slots := formatStarts(FreeStarts(window, service.Minutes(), busyIntervals(bookings), notBefore))
	metrics.IncSlotComputation(false)

	if cacheable {
		e.storeSlots(ctx, day, gen, date, staffID, serviceID, slots)
	}

	e.logger.Debug().
		Str("date", date.Format(models.DateLayout)).
		Int64("staff_id", staffID).
		Int64("service_id", serviceID).
		Int("bookings", len(bookings)).
		Int("slots", len(slots)).
		Msg("slots computed")

	return slots, nil
}

// notBefore is the current minute of day when date is today and elapsed starts are
// skipped, otherwise -1.
func (e *Engine) notBefore(date time.Time) int {
	if !e.opts.SkipElapsed || !models.DateOf(date, e.opts.Location).Equal(e.Today()) {
		return -1
	}
	now := e.opts.Now().In(e.opts.Location)
	return now.Hour()*60 + now.Minute()
}

// CheckStart rejects a start minute that ComputeSlots hides as already elapsed.
func (e *Engine) CheckStart(date time.Time, start int) error {
	if nb := e.notBefore(date); nb >= 0 && start <= nb {
		return domain.Validation("%s has already passed today", models.FormatMinutes(start))
	}
	return nil
}

// storeSlots caches slots unless the day was invalidated after gen was read.
func (e *Engine) storeSlots(ctx context.Context, day *dayGeneration, gen uint64, date time.Time, staffID, serviceID int64, slots []string) {
	day.mu.Lock()
	defer day.mu.Unlock()
	if day.gen != gen {
		e.logger.Debug().
			Str("date", date.Format(models.DateLayout)).
			Int64("staff_id", staffID).
			Msg("slot list outdated by a booking, not cached")
		return
	}
	if err := e.cache.SetSlots(ctx, date, staffID, serviceID, slots); err != nil {
		e.logger.Warn().Err(err).Msg("slot cache write failed")
	}
}

// InvalidateDay drops the cached slot lists of staffID on date. Call it after every
// committed booking.
func (e *Engine) InvalidateDay(ctx context.Context, date time.Time, staffID int64) error {
	date = models.DateOf(date, e.opts.Location)
	day := e.gens.day(date, staffID, e.Today())

	day.mu.Lock()
	defer day.mu.Unlock()
	day.gen++
	if e.cache == nil {
		return nil
	}
	return e.cache.InvalidateDay(ctx, date, staffID)
}

// IsFree reports whether [hour, hour+durationHours) on date clashes with none of the
// staff member's bookings. Like ComputeSlots it is advisory.
func (e *Engine) IsFree(ctx context.Context, staffID int64, date time.Time, hour int, durationHours float64) (bool, error) {
	bookings, err := e.store.BookingsFor(ctx, staffID, models.DateOf(date, e.opts.Location))
	if err != nil {
		return false, fmt.Errorf("load bookings: %w", err)
	}
	candidate := models.Interval{Start: hour * 60, End: hour*60 + models.HoursToMinutes(durationHours)}
	return !overlapsAny(candidate, busyIntervals(bookings)), nil
}
