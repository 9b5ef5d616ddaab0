package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"salonbook/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Bookings"
	scheduleSheet = "Schedule"
	summarySheet  = "Summary"
)

var bookingHeaders = []string{"ID", "Date", "Time", "Client", "Phone", "Service", "Category", "Staff", "Duration (h)", "Price", "Notes"}

// Report is a bookings export for the inclusive period From..To.
type Report struct {
	From     time.Time
	To       time.Time
	Currency string
	Bookings []models.BookingDetails
}

// FileName is the default file name for the period.
func (r Report) FileName() string {
	return fmt.Sprintf("bookings_%s_to_%s.xlsx", r.From.Format(models.DateLayout), r.To.Format(models.DateLayout))
}

// Write renders the workbook to w.
func (r Report) Write(w io.Writer) error {
	f, err := r.build()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// Save writes the workbook into dir and returns its path.
func (r Report) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := r.build()
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(dir, r.FileName())
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

func (r Report) build() (*excelize.File, error) {
	if r.To.Before(r.From) {
		return nil, fmt.Errorf("invalid period: %s is after %s", r.From.Format(models.DateLayout), r.To.Format(models.DateLayout))
	}

	f := excelize.NewFile()
	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	styles, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	for _, step := range []func(*excelize.File, styleSet) error{
		r.writeBookings,
		r.writeSchedule,
		r.writeSummary,
	} {
		if err := step(f, styles); err != nil {
			f.Close()
			return nil, err
		}
	}

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

type styleSet struct {
	title  int
	header int
	staff  int
	money  int
}

func newStyles(f *excelize.File) (styleSet, error) {
	var s styleSet
	var err error
	if s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return s, err
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return s, err
	}
	if s.staff, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	}); err != nil {
		return s, err
	}
	numFmt := "#,##0.00"
	s.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	return s, err
}

func (r Report) period() string {
	return fmt.Sprintf("Period: %s - %s", r.From.Format("02.01.2006"), r.To.Format("02.01.2006"))
}

func (r Report) writeBookings(f *excelize.File, st styleSet) error {
	sheet := bookingsSheet
	lastCol, _ := excelize.ColumnNumberToName(len(bookingHeaders))

	_ = f.SetCellValue(sheet, "A1", r.period())
	_ = f.MergeCell(sheet, "A1", lastCol+"1")
	_ = f.SetCellStyle(sheet, "A1", "A1", st.title)

	header := make([]interface{}, len(bookingHeaders))
	for i, h := range bookingHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A2", &header); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}
	_ = f.SetCellStyle(sheet, "A2", lastCol+"2", st.header)

	row := 3
	var total float64
	for _, b := range r.Bookings {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []interface{}{
			b.ID, b.DateString(), b.StartTime(), b.ClientName, b.Phone,
			b.ServiceName, b.Category, b.StaffName, b.Duration, b.Price, b.Notes,
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("error writing booking %d: %w", b.ID, err)
		}
		total += b.Price
		row++
	}

	priceCol, _ := excelize.ColumnNumberToName(10)
	_ = f.SetCellValue(sheet, fmt.Sprintf("I%d", row), "Total")
	_ = f.SetCellValue(sheet, fmt.Sprintf("%s%d", priceCol, row), total)
	_ = f.SetCellStyle(sheet, priceCol+"3", fmt.Sprintf("%s%d", priceCol, row), st.money)

	_ = f.SetColWidth(sheet, "A", "C", 12)
	_ = f.SetColWidth(sheet, "D", "H", 20)
	_ = f.SetColWidth(sheet, "K", "K", 30)
	return nil
}

// writeSchedule lays bookings out as staff rows by date columns.
func (r Report) writeSchedule(f *excelize.File, st styleSet) error {
	sheet := scheduleSheet
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	dateCols := make(map[string]int)
	col := 2
	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, 1) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheet, cell, d.Format("Mon 02.01"))
		_ = f.SetCellStyle(sheet, cell, cell, st.header)
		dateCols[d.Format(models.DateLayout)] = col
		col++
	}
	lastCol, _ := excelize.ColumnNumberToName(col - 1)
	_ = f.SetCellValue(sheet, "A1", r.period())
	_ = f.MergeCell(sheet, "A1", lastCol+"1")
	_ = f.SetCellStyle(sheet, "A1", "A1", st.title)

	staff := staffNames(r.Bookings)
	staffRows := make(map[string]int, len(staff))
	for i, name := range staff {
		row := i + 3
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheet, cell, name)
		_ = f.SetCellStyle(sheet, cell, cell, st.staff)
		staffRows[name] = row
	}

	cells := make(map[string][]string)
	for _, b := range r.Bookings {
		c, ok := dateCols[b.DateString()]
		if !ok {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(c, staffRows[b.StaffName])
		cells[cell] = append(cells[cell], fmt.Sprintf("%s %s (%s)", b.StartTime(), b.ServiceName, b.ClientName))
	}
	wrap, _ := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	for cell, lines := range cells {
		_ = f.SetCellValue(sheet, cell, strings.Join(lines, "\n"))
		_ = f.SetCellStyle(sheet, cell, cell, wrap)
	}

	_ = f.SetColWidth(sheet, "A", "A", 20)
	if col > 2 {
		_ = f.SetColWidth(sheet, "B", lastCol, 28)
	}
	return nil
}

func (r Report) writeSummary(f *excelize.File, st styleSet) error {
	sheet := summarySheet
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	header := []interface{}{"Staff", "Bookings", "Hours", fmt.Sprintf("Revenue (%s)", r.Currency)}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	_ = f.SetCellStyle(sheet, "A1", "D1", st.header)

	type totals struct {
		count   int
		hours   float64
		revenue float64
	}
	byStaff := make(map[string]*totals)
	for _, b := range r.Bookings {
		t := byStaff[b.StaffName]
		if t == nil {
			t = &totals{}
			byStaff[b.StaffName] = t
		}
		t.count++
		t.hours += b.Duration
		t.revenue += b.Price
	}

	row := 2
	for _, name := range staffNames(r.Bookings) {
		t := byStaff[name]
		values := []interface{}{name, t.count, t.hours, t.revenue}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
		row++
	}
	if row > 2 {
		_ = f.SetCellStyle(sheet, "D2", fmt.Sprintf("D%d", row-1), st.money)
	}
	_ = f.SetColWidth(sheet, "A", "D", 18)
	return nil
}

func staffNames(bookings []models.BookingDetails) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, b := range bookings {
		if _, ok := seen[b.StaffName]; ok {
			continue
		}
		seen[b.StaffName] = struct{}{}
		names = append(names, b.StaffName)
	}
	sort.Strings(names)
	return names
}
