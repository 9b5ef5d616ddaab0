package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/logging"
	"salonbook/internal/models"
)

const maxBodyBytes = 64 << 10

var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	type day struct {
		Day   string `json:"day"`
		Open  int    `json:"open"`
		Close int    `json:"close"`
	}
	weekly := s.business.WeeklyHours()
	hours := make([]day, 0, len(weekly))
	for _, wd := range weekdayOrder {
		if h, ok := weekly[wd]; ok {
			hours = append(hours, day{Day: strings.ToLower(wd.String()), Open: h.Open, Close: h.Close})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"business_name":    s.business.Name,
		"currency":         s.business.Currency,
		"opening_hours":    hours,
		"max_booking_days": s.business.MaxBookingDays,
	})
}

func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		writeJSON(w, http.StatusOK, s.deps.Catalog.ServicesByCategory(r.Context(), category))
		return
	}

	services, err := s.deps.Catalog.ListServices(r.Context())
	if err != nil {
		writeDomainError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, services)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories := s.deps.Catalog.Categories(r.Context())
	sort.Strings(categories)
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleStaff(w http.ResponseWriter, r *http.Request) {
	var serviceID *int64
	if raw := strings.TrimSpace(r.URL.Query().Get("service_id")); raw != "" {
		id, err := parseID(raw, "service_id")
		if err != nil {
			writeDomainError(w, r, s.logger, err)
			return
		}
		serviceID = &id
	}

	staff, err := s.deps.Catalog.ListStaff(r.Context(), serviceID)
	if err != nil {
		writeDomainError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, staff)
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dateStr := strings.TrimSpace(q.Get("date"))
	if dateStr == "" || q.Get("staff_id") == "" || q.Get("service_id") == "" {
		writeDomainError(w, r, s.logger, domain.Validation("missing required parameters: date, staff_id, service_id"))
		return
	}
	staffID, err := parseID(q.Get("staff_id"), "staff_id")
	if err != nil {
		writeDomainError(w, r, s.logger, err)
		return
	}
	serviceID, err := parseID(q.Get("service_id"), "service_id")
	if err != nil {
		writeDomainError(w, r, s.logger, err)
		return
	}
	date, err := s.deps.Slots.ParseDate(dateStr)
	if err != nil {
		writeDomainError(w, r, s.logger, err)
		return
	}

	slots, err := s.deps.Slots.ComputeSlots(r.Context(), date, staffID, serviceID)
	if err != nil {
		writeDomainError(w, r, s.logger, err)
		return
	}

	resp := map[string]any{
		"date":       dateStr,
		"staff_id":   staffID,
		"service_id": serviceID,
		"slots":      slots,
	}
	if svc, err := s.deps.Catalog.GetService(r.Context(), serviceID); err == nil {
		resp["service_duration"] = svc.Duration
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	if !s.allowBooking(w, r) {
		return
	}

	var req models.BookingRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDomainError(w, r, s.logger, err)
		return
	}

	details, err := s.deps.Bookings.CreateBooking(r.Context(), req)
	if err != nil {
		writeDomainError(w, r, s.logger, err)
		return
	}

	s.logger.Info().
		Int64("booking_id", details.ID).
		Str("date", details.DateString()).
		Str("time", details.StartTime()).
		Int64("staff_id", details.StaffID).
		Str("phone", logging.MaskPhone(details.Phone)).
		Str("request_id", logging.RequestIDFrom(r.Context())).
		Msg("booking created")

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Booking confirmed successfully!",
		"booking": map[string]any{
			"id":           details.ID,
			"client_name":  details.ClientName,
			"service_name": details.ServiceName,
			"date":         details.DateString(),
			"hour":         details.StartTime(),
			"staff_name":   details.StaffName,
			"price":        details.Price,
		},
	})
}

// allowBooking applies the shared fixed-window limit for booking submissions.
// Limiter failures let the request through.
func (s *Server) allowBooking(w http.ResponseWriter, r *http.Request) bool {
	limit := s.cfg.BookingLimit
	if s.deps.Limiter == nil || limit.Requests <= 0 || limit.WindowSeconds <= 0 {
		return true
	}

	ok, err := s.deps.Limiter.Allow(r.Context(), "book:"+clientKey(r), limit.Requests, secondsDuration(limit.WindowSeconds))
	if err != nil {
		s.logger.Warn().Err(err).Msg("booking rate limiter unavailable")
		return true
	}
	if !ok {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many booking attempts, please try again later")
		return false
	}
	return true
}

type checkRequest struct {
	StaffID  int64    `json:"staff_id"`
	Date     string   `json:"date"`
	Hour     *int     `json:"hour"`
	Duration *float64 `json:"duration"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeDomainError(w, r, s.logger, err)
		return
	}
	if req.Hour == nil {
		writeDomainError(w, r, s.logger, domain.Validation("missing required field: hour"))
		return
	}
	duration := 1.0
	if req.Duration != nil {
		duration = *req.Duration
	}

	available, err := s.deps.Bookings.CheckSlot(r.Context(), req.StaffID, req.Date, *req.Hour, duration)
	if err != nil {
		writeDomainError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB != nil {
		if err := s.deps.DB.PingContext(r.Context()); err != nil {
			s.logger.Error().Err(err).Msg("readiness check failed")
			writeError(w, http.StatusServiceUnavailable, "unavailable", "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return domain.Validation("invalid JSON body")
	}
	return nil
}

func parseID(raw, field string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validation("invalid %s", field)
	}
	return id, nil
}
