package notify

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"salonbook/internal/domain"
	"salonbook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// ManagerNotifier sends new-booking alerts to the managers' Telegram chats.
type ManagerNotifier struct {
	bot      domain.TelegramSender
	chatIDs  []int64
	currency string
	logger   *zerolog.Logger
}

func NewManagerNotifier(bot domain.TelegramSender, chatIDs []int64, currency string, logger *zerolog.Logger) *ManagerNotifier {
	return &ManagerNotifier{bot: bot, chatIDs: chatIDs, currency: currency, logger: logger}
}

const telegramTimeout = 10 * time.Second

// NewTelegramBot connects to the Bot API with token. Calls time out after telegramTimeout.
func NewTelegramBot(token string, debug bool) (*tgbotapi.BotAPI, error) {
	client := &http.Client{Timeout: telegramTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	bot.Debug = debug
	return bot, nil
}

// NotifyNewBooking messages every manager. It fails only when no chat got the
// alert, so a retry never repeats it to managers who already have it.
func (n *ManagerNotifier) NotifyNewBooking(b models.BookingDetails) error {
	text := ManagerMessage(n.currency, b)
	var errs []error
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.bot.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Int64("booking_id", b.ID).Msg("telegram notify failed")
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	if len(errs) < len(n.chatIDs) {
		return nil
	}
	return errors.Join(errs...)
}
