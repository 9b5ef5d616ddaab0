package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"salonbook/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	bookingsSheet = "Bookings"
	lastColumn    = "L"
)

var bookingHeaders = []interface{}{
	"ID", "Date", "Time", "Client", "Phone", "Service", "Category", "Staff", "Price", "Duration (h)", "Notes", "Created At",
}

// ErrRowNotFound is returned by FindBookingRow when the booking has no row yet.
var ErrRowNotFound = errors.New("booking row not found")

// SheetsService mirrors bookings into a spreadsheet, one row per booking keyed by ID in column A.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	logger        *zerolog.Logger

	rowCache map[int64]int
	cacheMu  sync.RWMutex
}

// NewSheetsService authenticates with a service account key file.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID string, logger *zerolog.Logger) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return newSheetsService(srv, spreadsheetID, logger), nil
}

func newSheetsService(srv *sheets.Service, spreadsheetID string, logger *zerolog.Logger) *SheetsService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		logger:        logger,
		rowCache:      make(map[int64]int),
	}
}

// TestConnection reads the header cell of the bookings sheet.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsSheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// ServiceAccountEmail returns the client_email of a service account key file,
// the address the spreadsheet has to be shared with.
func ServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// RunCacheRefresh rebuilds the row index now and then every interval until ctx is done.
func (s *SheetsService) RunCacheRefresh(ctx context.Context, interval time.Duration) {
	refresh := func() {
		rctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := s.WarmUpCache(rctx); err != nil && ctx.Err() == nil {
			s.logger.Warn().Err(err).Msg("sheets row cache refresh failed")
		}
	}

	refresh()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// WarmUpCache populates the row index cache by reading the entire ID column.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	cache := make(map[int64]int, len(resp.Values))
	for i, row := range resp.Values {
		if id, ok := cellID(row); ok {
			cache[id] = i + 1
		}
	}

	s.cacheMu.Lock()
	s.rowCache = cache
	s.cacheMu.Unlock()
	return nil
}

// EnsureHeader writes the header row.
func (s *SheetsService) EnsureHeader(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, bookingsSheet+"!A1:"+lastColumn+"1", &sheets.ValueRange{
		Values: [][]interface{}{bookingHeaders},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// AppendBooking adds a row for booking and remembers where it landed.
func (s *SheetsService) AppendBooking(ctx context.Context, booking *models.BookingDetails) error {
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{bookingRowValues(booking)},
	}

	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, bookingsSheet+"!A:A", valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return err
	}

	if resp.Updates != nil {
		if row, ok := rowFromRange(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(booking.ID, row)
		}
	}
	return nil
}

// UpsertBooking updates an existing booking row or appends a new one if not found.
func (s *SheetsService) UpsertBooking(ctx context.Context, booking *models.BookingDetails) error {
	if booking == nil {
		return fmt.Errorf("booking is nil")
	}

	rowIdx, err := s.FindBookingRow(ctx, booking.ID)
	if errors.Is(err, ErrRowNotFound) {
		return s.AppendBooking(ctx, booking)
	}
	if err != nil {
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:%s%d", bookingsSheet, rowIdx, lastColumn, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{bookingRowValues(booking)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// FindBookingRow locates the 1-based row for bookingID in column A, cache first.
func (s *SheetsService) FindBookingRow(ctx context.Context, bookingID int64) (int, error) {
	if bookingID == 0 {
		return 0, fmt.Errorf("booking id is required")
	}

	if row, ok := s.getCachedRow(bookingID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for i, row := range resp.Values {
		if id, ok := cellID(row); ok && id == bookingID {
			rowIdx := i + 1
			s.setCachedRow(bookingID, rowIdx)
			return rowIdx, nil
		}
	}
	return 0, ErrRowNotFound
}

func (s *SheetsService) getCachedRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

// ClearCache clears the row index cache.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)
}

func bookingRowValues(b *models.BookingDetails) []interface{} {
	return []interface{}{
		b.ID,
		b.DateString(),
		b.StartTime(),
		b.ClientName,
		b.Phone,
		b.ServiceName,
		b.Category,
		b.StaffName,
		b.Price,
		b.Duration,
		b.Notes,
		b.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// cellID reads a booking id from the first cell; the API returns numbers as
// float64 or string depending on the value render option.
func cellID(row []interface{}) (int64, bool) {
	if len(row) == 0 {
		return 0, false
	}
	switch v := row[0].(type) {
	case float64:
		return int64(v), v > 0
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return id, err == nil && id > 0
	}
	return 0, false
}

// rowFromRange extracts the row from an A1 range such as "Bookings!A10:L10".
func rowFromRange(a1 string) (int, bool) {
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		a1 = a1[i+1:]
	}
	if i := strings.Index(a1, ":"); i >= 0 {
		a1 = a1[:i]
	}
	digits := strings.TrimLeft(a1, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	row, err := strconv.Atoi(digits)
	if err != nil || row <= 0 {
		return 0, false
	}
	return row, true
}
