package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"salonbook/internal/models"

	"github.com/rs/zerolog"
)

// Cache is what both the redis and the in-memory backends provide.
type Cache interface {
	GetSlots(ctx context.Context, date time.Time, staffID, serviceID int64) ([]string, bool, error)
	SetSlots(ctx context.Context, date time.Time, staffID, serviceID int64, slots []string) error
	InvalidateDay(ctx context.Context, date time.Time, staffID int64) error
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

const recoveryInterval = time.Minute

// FailoverCache uses primary until it errors, then serves from fallback and retries
// primary once per recoveryInterval. Days invalidated while primary is down are
// replayed on primary before it serves again.
type FailoverCache struct {
	primary   Cache
	fallback  Cache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64 // unix nanos
	now       func() time.Time

	pendingMu sync.Mutex
	pending   map[string]pendingDay
}

type pendingDay struct {
	date    time.Time
	staffID int64
}

func NewFailoverCache(primary, fallback Cache, logger *zerolog.Logger) *FailoverCache {
	return &FailoverCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
		pending:  make(map[string]pendingDay),
	}
}

// usePrimary reports whether the next call should go to primary. A recovery attempt
// first replays the pending invalidations; if that fails primary stays down.
func (r *FailoverCache) usePrimary(ctx context.Context) bool {
	if !r.isDown.Load() {
		return true
	}
	if r.now().Sub(time.Unix(0, r.lastCheck.Load())) <= recoveryInterval {
		return false
	}
	if err := r.replayPending(ctx); err != nil {
		r.observe(err)
		return false
	}
	return true
}

func (r *FailoverCache) addPending(date time.Time, staffID int64) {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	key := fmt.Sprintf("%s:%d", date.Format(models.DateLayout), staffID)
	r.pending[key] = pendingDay{date: date, staffID: staffID}
}

func (r *FailoverCache) replayPending(ctx context.Context) error {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	for key, day := range r.pending {
		if err := r.primary.InvalidateDay(ctx, day.date, day.staffID); err != nil {
			return err
		}
		delete(r.pending, key)
	}
	return nil
}

func (r *FailoverCache) observe(err error) {
	if err == nil {
		if r.isDown.Swap(false) {
			r.logger.Info().Msg("Primary cache recovered")
		}
		return
	}
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary cache failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

func (r *FailoverCache) GetSlots(ctx context.Context, date time.Time, staffID, serviceID int64) ([]string, bool, error) {
	if r.usePrimary(ctx) {
		slots, ok, err := r.primary.GetSlots(ctx, date, staffID, serviceID)
		r.observe(err)
		if err == nil {
			return slots, ok, nil
		}
	}
	return r.fallback.GetSlots(ctx, date, staffID, serviceID)
}

func (r *FailoverCache) SetSlots(ctx context.Context, date time.Time, staffID, serviceID int64, slots []string) error {
	if r.usePrimary(ctx) {
		err := r.primary.SetSlots(ctx, date, staffID, serviceID, slots)
		r.observe(err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.SetSlots(ctx, date, staffID, serviceID, slots)
}

// InvalidateDay always clears the fallback too, so entries written during an outage
// never outlive a booking made after recovery. While primary is down the day is
// remembered and cleared on primary at recovery.
func (r *FailoverCache) InvalidateDay(ctx context.Context, date time.Time, staffID int64) error {
	fallbackErr := r.fallback.InvalidateDay(ctx, date, staffID)
	if r.usePrimary(ctx) {
		err := r.primary.InvalidateDay(ctx, date, staffID)
		r.observe(err)
		if err == nil {
			return fallbackErr
		}
	}
	r.addPending(date, staffID)
	return fallbackErr
}

func (r *FailoverCache) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary(ctx) {
		allowed, err := r.primary.Allow(ctx, key, limit, window)
		r.observe(err)
		if err == nil {
			return allowed, nil
		}
	}
	return r.fallback.Allow(ctx, key, limit, window)
}
