package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"salonbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, sender *fakeSMS, now time.Time) (*ReminderScheduler, func(date time.Time, hour int, phone string)) {
	t.Helper()
	db := newTestDB(t)
	s := NewReminderScheduler(db, sender, "Salon", "27", 10, 0, time.UTC, nopLogger())
	s.now = func() time.Time { return now }

	add := func(date time.Time, hour int, phone string) {
		b := &models.Booking{
			ClientName: "Client",
			Phone:      phone,
			ServiceID:  1,
			StaffID:    1,
			Date:       date,
			Hour:       hour,
			Duration:   1,
		}
		require.NoError(t, db.InsertBookingIfFree(context.Background(), b))
	}
	return s, add
}

func TestReminderRunOnce(t *testing.T) {
	now := time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)
	sender := &fakeSMS{}
	s, add := newTestScheduler(t, sender, now)

	tomorrow := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	add(tomorrow, 9, "0821111111")
	add(tomorrow, 14, "0822222222")
	add(now.AddDate(0, 0, 2), 9, "0823333333")
	add(time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), 15, "0824444444")

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, tomorrow.Equal(res.Date))
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 0, res.Failed)

	sent := sender.messages()
	require.Len(t, sent, 2)
	assert.Equal(t, "+27821111111", sent[0].to)
	assert.Equal(t, "+27822222222", sent[1].to)
	assert.Contains(t, sent[0].body, "tomorrow")
	assert.Contains(t, sent[1].body, "14:00")
}

func TestReminderRunOnce_CountsFailures(t *testing.T) {
	now := time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)
	sender := &fakeSMS{failFor: "+27822222222"}
	s, add := newTestScheduler(t, sender, now)

	tomorrow := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	add(tomorrow, 9, "0821111111")
	add(tomorrow, 11, "0822222222")

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Failed)
}

func TestReminderRunOnce_NoBookings(t *testing.T) {
	sender := &fakeSMS{err: errors.New("should not be called")}
	s, _ := newTestScheduler(t, sender, time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC))

	res, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.Zero(t, res.Failed)
}

func TestReminderRunDaily_OncePerDay(t *testing.T) {
	now := time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)
	sender := &fakeSMS{}
	s, add := newTestScheduler(t, sender, now)
	add(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC), 9, "0821111111")

	s.runDaily(context.Background())
	s.runDaily(context.Background())
	assert.Len(t, sender.messages(), 1)
}

func TestReminderUntilNext(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Duration
	}{
		{"before", time.Date(2025, 6, 9, 8, 30, 0, 0, time.UTC), 90 * time.Minute},
		{"exactly", time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC), 24 * time.Hour},
		{"after", time.Date(2025, 6, 9, 22, 0, 0, 0, time.UTC), 12 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewReminderScheduler(nil, nil, "", "27", 10, 0, time.UTC, nopLogger())
			s.now = func() time.Time { return tt.now }
			assert.Equal(t, tt.want, s.untilNext())
		})
	}
}
