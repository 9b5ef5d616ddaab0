package models

import "time"

// Booking is a committed appointment. Date is midnight in the business location,
// Hour is the integer start hour and Duration is copied from the service at write time.
type Booking struct {
	ID         int64     `json:"id"`
	ClientName string    `json:"client_name"`
	Phone      string    `json:"phone"`
	ServiceID  int64     `json:"service_id"`
	StaffID    int64     `json:"staff_id"`
	Date       time.Time `json:"date"`
	Hour       int       `json:"hour"`
	Duration   float64   `json:"duration"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Interval returns the occupied span in minutes from midnight.
func (b Booking) Interval() Interval {
	start := b.Hour * 60
	return Interval{Start: start, End: start + HoursToMinutes(b.Duration)}
}

func (b Booking) DateString() string {
	return b.Date.Format(DateLayout)
}

// StartTime formats the start hour as HH:MM.
func (b Booking) StartTime() string {
	return FormatMinutes(b.Hour * 60)
}

// BookingDetails is a booking joined with the names used in messages and reports.
type BookingDetails struct {
	Booking
	ServiceName string  `json:"service_name"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	StaffName   string  `json:"staff_name"`
}

// BookingRequest is the client submission. Hour is a pointer so a missing value
// can be told apart from midnight.
type BookingRequest struct {
	ClientName string `json:"client_name"`
	Phone      string `json:"phone"`
	ServiceID  int64  `json:"service_id"`
	StaffID    int64  `json:"staff_id"`
	Date       string `json:"date"`
	Hour       *int   `json:"hour"`
	Notes      string `json:"notes"`
}
