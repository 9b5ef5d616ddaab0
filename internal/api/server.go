package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/domain"
	"salonbook/internal/models"

	"github.com/rs/zerolog"
)

// Catalog is the read side of the service menu used by the public routes.
type Catalog interface {
	ListServices(ctx context.Context) ([]models.Service, error)
	GetService(ctx context.Context, id int64) (*models.Service, error)
	ListStaff(ctx context.Context, serviceID *int64) ([]models.Staff, error)
	Categories(ctx context.Context) []string
	ServicesByCategory(ctx context.Context, category string) []models.Service
}

type SlotFinder interface {
	ParseDate(s string) (time.Time, error)
	ComputeSlots(ctx context.Context, date time.Time, staffID, serviceID int64) ([]string, error)
}

type Booker interface {
	CreateBooking(ctx context.Context, req models.BookingRequest) (*models.BookingDetails, error)
	CheckSlot(ctx context.Context, staffID int64, date string, hour int, durationHours float64) (bool, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators behind the HTTP routes. Limiter is optional.
type Deps struct {
	Catalog  Catalog
	Slots    SlotFinder
	Bookings Booker
	Reader   domain.BookingReader
	Limiter  domain.RateLimiter
	DB       Pinger
}

// Server exposes the booking JSON API.
type Server struct {
	cfg      config.APIConfig
	business config.BusinessConfig
	deps     Deps
	auth     *HTTPAuth
	limiter  *clientLimiter
	logger   *zerolog.Logger
	handler  http.Handler
	server   *http.Server
}

func NewServer(cfg config.APIConfig, business config.BusinessConfig, deps Deps, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &Server{
		cfg:      cfg,
		business: business,
		deps:     deps,
		auth:     NewHTTPAuth(cfg.Auth),
		limiter:  newClientLimiter(cfg.RateLimit),
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/config", s.handleConfig)
	mux.HandleFunc("GET /api/services", s.handleServices)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/staff", s.handleStaff)
	mux.HandleFunc("GET /api/slots", s.handleSlots)
	mux.HandleFunc("POST /api/book", s.handleBook)
	mux.HandleFunc("POST /api/bookings/check", s.handleCheck)
	mux.Handle("GET /api/admin/bookings", s.auth.Require(permReadBookings, http.HandlerFunc(s.handleAdminBookings)))
	mux.Handle("GET /api/admin/export", s.auth.Require(permExportBookings, http.HandlerFunc(s.handleAdminExport)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	s.handler = chain(mux,
		recoverMiddleware(logger),
		requestIDMiddleware,
		accessLogMiddleware(logger),
		corsMiddleware(cfg.AllowedOrigin),
		s.limiter.middleware,
	)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
