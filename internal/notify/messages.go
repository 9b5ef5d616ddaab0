package notify

import (
	"fmt"
	"strings"

	"salonbook/internal/models"
)

const dateFormat = "Monday, 02 January 2006"

func ConfirmationMessage(business string, b models.BookingDetails) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi %s! Your booking at %s is confirmed.\n\n", b.ClientName, business)
	fmt.Fprintf(&sb, "Service: %s\n", b.ServiceName)
	fmt.Fprintf(&sb, "Date: %s\n", b.Date.Format(dateFormat))
	fmt.Fprintf(&sb, "Time: %s", b.StartTime())
	if b.StaffName != "" {
		fmt.Fprintf(&sb, "\nStaff: %s", b.StaffName)
	}
	sb.WriteString("\n\nReply CANCEL to cancel your appointment.")
	return sb.String()
}

func ReminderMessage(business string, b models.BookingDetails) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Reminder: Hi %s, you have an appointment at %s tomorrow!\n\n", b.ClientName, business)
	fmt.Fprintf(&sb, "Service: %s\n", b.ServiceName)
	fmt.Fprintf(&sb, "Time: %s\n\n", b.StartTime())
	sb.WriteString("We look forward to seeing you!")
	return sb.String()
}

// ManagerMessage is the Telegram alert text for a new booking.
func ManagerMessage(currency string, b models.BookingDetails) string {
	var sb strings.Builder
	sb.WriteString("🆕 New booking\n\n")
	fmt.Fprintf(&sb, "#%d %s %s\n", b.ID, b.DateString(), b.StartTime())
	fmt.Fprintf(&sb, "Client: %s (%s)\n", b.ClientName, b.Phone)
	fmt.Fprintf(&sb, "Service: %s, %s%.2f\n", b.ServiceName, currency, b.Price)
	fmt.Fprintf(&sb, "Staff: %s", b.StaffName)
	if b.Notes != "" {
		fmt.Fprintf(&sb, "\nNotes: %s", b.Notes)
	}
	return sb.String()
}
