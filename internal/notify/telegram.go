// Package notify tells administrators about new reservations over Telegram.
package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"rentcars/internal/domain"
	"rentcars/internal/events"
	"rentcars/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type TelegramNotifier struct {
	bot     domain.TelegramSender
	chatIDs []int64
	logger  zerolog.Logger
}

func NewTelegramNotifier(bot domain.TelegramSender, chatIDs []int64, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		bot:     bot,
		chatIDs: chatIDs,
		logger:  logger.With().Str("component", "telegram_notifier").Logger(),
	}
}

// NewBot connects to the Telegram Bot API.
func NewBot(token string, debug bool) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = debug
	return bot, nil
}

// Register subscribes the notifier to reservation events.
func (n *TelegramNotifier) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventReservationCreated, n.HandleReservationCreated)
}

func (n *TelegramNotifier) HandleReservationCreated(event *events.Event) error {
	var payload events.ReservationEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("failed to decode reservation event: %w", err)
	}

	text := FormatReservation(payload)
	var errs []error
	for _, chatID := range n.chatIDs {
		if _, err := n.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Str("reservation_id", payload.ReservationID).
				Msg("failed to send reservation notification")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FormatReservation renders the admin notification text.
func FormatReservation(p events.ReservationEventPayload) string {
	var b strings.Builder
	b.WriteString("🚗 Новая бронь\n\n")
	fmt.Fprintf(&b, "Автомобиль: %s %s\n", p.CarBrand, p.CarModel)
	fmt.Fprintf(&b, "Даты: %s - %s\n", p.StartDate.UTC().Format(models.DateLayout), p.EndDate.UTC().Format(models.DateLayout))
	fmt.Fprintf(&b, "Дней: %d\n", p.Days)
	fmt.Fprintf(&b, "Сумма: %d\n", p.Total)
	fmt.Fprintf(&b, "Клиент: %s\n", p.UserEmail)
	fmt.Fprintf(&b, "ID: %s", p.ReservationID)
	return b.String()
}
