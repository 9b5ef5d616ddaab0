package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/export"
	"salonbook/internal/models"
)

const maxExportDays = 366

func secondsDuration(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (s *Server) handleAdminBookings(w http.ResponseWriter, r *http.Request) {
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeDomainError(w, r, s.logger, domain.Validation("missing required parameter: date"))
		return
	}
	date, err := s.deps.Slots.ParseDate(dateStr)
	if err != nil {
		writeDomainError(w, r, s.logger, err)
		return
	}

	bookings, err := s.deps.Reader.BookingsForDate(r.Context(), date)
	if err != nil {
		writeDomainError(w, r, s.logger, err)
		return
	}
	if bookings == nil {
		bookings = []models.BookingDetails{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":     dateStr,
		"count":    len(bookings),
		"bookings": bookings,
	})
}

func (s *Server) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fromStr, toStr := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if fromStr == "" || toStr == "" {
		writeDomainError(w, r, s.logger, domain.Validation("missing required parameters: from, to"))
		return
	}
	from, err := s.deps.Slots.ParseDate(fromStr)
	if err != nil {
		writeDomainError(w, r, s.logger, err)
		return
	}
	to, err := s.deps.Slots.ParseDate(toStr)
	if err != nil {
		writeDomainError(w, r, s.logger, err)
		return
	}
	if to.Before(from) {
		writeDomainError(w, r, s.logger, domain.Validation("to must not be before from"))
		return
	}
	if to.Sub(from) > maxExportDays*24*time.Hour {
		writeDomainError(w, r, s.logger, domain.Validation("export period is limited to %d days", maxExportDays))
		return
	}

	bookings, err := s.deps.Reader.BookingsByDateRange(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, r, s.logger, err)
		return
	}

	report := export.Report{From: from, To: to, Currency: s.business.Currency, Bookings: bookings}
	var buf bytes.Buffer
	if err := report.Write(&buf); err != nil {
		writeDomainError(w, r, s.logger, fmt.Errorf("render export: %w", err))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.FileName()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
