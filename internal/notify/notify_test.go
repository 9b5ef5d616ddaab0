package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"salonbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleBooking() models.BookingDetails {
	return models.BookingDetails{
		Booking: models.Booking{
			ID:         12,
			ClientName: "Lerato",
			Phone:      "0821234567",
			Date:       time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
			Hour:       14,
			Duration:   1.5,
		},
		ServiceName: "Gel Overlay",
		Price:       300,
		StaffName:   "Sarah",
	}
}

func TestFormatE164(t *testing.T) {
	tests := map[string]string{
		"0821234567":       "+27821234567",
		"082 123 4567":     "+27821234567",
		"+27821234567":     "+27821234567",
		"27821234567":      "+27821234567",
		"821234567":        "+27821234567",
		"(082) 123-4567":   "+27821234567",
		"+44 20 7946 0958": "+442079460958",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatE164(in, "27"), in)
	}
}

func TestConfirmationMessage(t *testing.T) {
	msg := ConfirmationMessage("Belle Madame Salon", sampleBooking())
	assert.Equal(t, "Hi Lerato! Your booking at Belle Madame Salon is confirmed.\n\n"+
		"Service: Gel Overlay\n"+
		"Date: Tuesday, 10 June 2025\n"+
		"Time: 14:00\n"+
		"Staff: Sarah\n\n"+
		"Reply CANCEL to cancel your appointment.", msg)
}

func TestReminderMessage(t *testing.T) {
	msg := ReminderMessage("Belle Madame Salon", sampleBooking())
	assert.Equal(t, "Reminder: Hi Lerato, you have an appointment at Belle Madame Salon tomorrow!\n\n"+
		"Service: Gel Overlay\n"+
		"Time: 14:00\n\n"+
		"We look forward to seeing you!", msg)
}

func TestWebhookSender(t *testing.T) {
	var got map[string]string
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	s := NewWebhookSender(server.URL, " secret ", "BelleMadame")
	require.NoError(t, s.Send(context.Background(), "+27821234567", "hello"))
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "+27821234567", got["to"])
	assert.Equal(t, "hello", got["body"])
	assert.Equal(t, "BelleMadame", got["from"])
	assert.Equal(t, "sms-webhook", s.ProviderID())
}

func TestWebhookSender_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewWebhookSender(server.URL, "", "").Send(context.Background(), "+27821234567", "x")
	assert.ErrorContains(t, err, "502")

	err = NewWebhookSender("", "", "").Send(context.Background(), "+27821234567", "x")
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	logger := zerolog.Nop()
	s := NewLogSender(&logger)
	assert.NoError(t, s.Send(context.Background(), "+27821234567", "hi"))
	assert.Equal(t, "sms-log", s.ProviderID())
}

type mockBot struct {
	mock.Mock
}

func (m *mockBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func TestManagerNotifier(t *testing.T) {
	bot := new(mockBot)
	logger := zerolog.Nop()
	n := NewManagerNotifier(bot, []int64{100, 200}, "R", &logger)

	bot.On("Send", mock.MatchedBy(func(m tgbotapi.MessageConfig) bool {
		return m.ChatID == 100
	})).Return(tgbotapi.Message{}, nil).Once()
	bot.On("Send", mock.MatchedBy(func(m tgbotapi.MessageConfig) bool {
		return m.ChatID == 200
	})).Return(tgbotapi.Message{}, errors.New("chat not found")).Once()

	assert.NoError(t, n.NotifyNewBooking(sampleBooking()), "one delivered chat is enough")
	bot.AssertExpectations(t)
}

func TestManagerNotifier_AllChatsFail(t *testing.T) {
	bot := new(mockBot)
	logger := zerolog.Nop()
	n := NewManagerNotifier(bot, []int64{100, 200}, "R", &logger)

	bot.On("Send", mock.Anything).Return(tgbotapi.Message{}, errors.New("timeout")).Twice()

	err := n.NotifyNewBooking(sampleBooking())
	assert.ErrorContains(t, err, "chat 100")
	assert.ErrorContains(t, err, "chat 200")
	bot.AssertExpectations(t)
}

func TestManagerMessage(t *testing.T) {
	b := sampleBooking()
	b.Notes = "first visit"
	msg := ManagerMessage("R", b)
	assert.Contains(t, msg, "#12 2025-06-10 14:00")
	assert.Contains(t, msg, "Gel Overlay, R300.00")
	assert.Contains(t, msg, "Notes: first visit")
}
