package service

import (
	"context"
	"io"
	"testing"
	"time"

	"salonbook/internal/availability"
	"salonbook/internal/database"
	"salonbook/internal/domain"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testCatalog = models.Catalog{
	Services: []models.Service{
		{ID: 1, Category: "CUTS", Name: "Ladies Cut", Price: 250, Duration: 1},
		{ID: 2, Category: "GEL NAILS", Name: "Gel Overlay", Price: 300, Duration: 1.5},
		{ID: 3, Category: "LASHES", Name: "Lash Lift", Price: 400, Duration: 0.75},
		{ID: 4, Category: "CUTS", Name: "Kids Cut", Price: 120, Duration: 0.5},
	},
	Staff: []models.Staff{
		{ID: 1, Name: "Sarah"},
		{ID: 2, Name: "Emma"},
	},
	// Emma has no rows, so the eligibility policy decides for her.
	StaffServices: []models.StaffService{
		{StaffID: 1, ServiceID: 1},
		{StaffID: 1, ServiceID: 2},
	},
}

// Monday 2025-06-09, 08:00 UTC
var testNow = time.Date(2025, 6, 9, 8, 0, 0, 0, time.UTC)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

func setupDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetLocation(time.UTC)
	require.NoError(t, db.SyncCatalog(context.Background(), testCatalog))
	return db
}

func setupCatalog(t *testing.T, db *database.DB, policy string) *CatalogService {
	t.Helper()
	c := NewCatalogService(db, policy, nil)
	require.NoError(t, c.Refresh(context.Background()))
	return c
}

func setupBookingService(t *testing.T) (*BookingService, *database.DB, *mockPublisher) {
	t.Helper()
	db := setupDB(t)
	svc, pub := newBookingService(t, db, db, availability.Options{
		Location:       time.UTC,
		MaxBookingDays: 90,
		Now:            func() time.Time { return testNow },
	}, nil)
	return svc, db, pub
}

// newBookingService wires a BookingService whose engine reads bookings from slotStore.
func newBookingService(
	t *testing.T,
	db *database.DB,
	slotStore domain.BookingStore,
	opts availability.Options,
	cache domain.SlotCache,
) (*BookingService, *mockPublisher) {
	t.Helper()
	catalog := setupCatalog(t, db, models.EligibilityPermissive)

	schedule := availability.Schedule{}
	for d := time.Monday; d <= time.Saturday; d++ {
		schedule[d] = models.Hours{Open: 9, Close: 19}
	}
	engine := availability.NewEngine(catalog, slotStore, schedule, opts, nil)
	if cache != nil {
		engine.SetCache(cache)
	}

	pub := &mockPublisher{}
	svc, err := NewBookingService(engine, db, pub, `^(?:\+?27|0)?[0-9]{9,10}$`, nil)
	require.NoError(t, err)
	return svc, pub
}

func intPtr(v int) *int { return &v }

func validRequest() models.BookingRequest {
	return models.BookingRequest{
		ClientName: "Thandi Mokoena",
		Phone:      "0821234567",
		ServiceID:  1,
		StaffID:    1,
		Date:       "2025-06-10",
		Hour:       intPtr(10),
	}
}
