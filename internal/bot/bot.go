// Package bot answers admin commands in Telegram: inventory, customer history
// and xlsx reservation reports.
package bot

import (
	"context"
	"time"

	"rentcars/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const updateTimeout = 30 * time.Second

type Bot struct {
	tg           TelegramAPI
	cars         domain.CarService
	reservations domain.ReservationService
	admins       map[int64]struct{}
	logger       zerolog.Logger
}

func NewBot(
	tg TelegramAPI,
	cars domain.CarService,
	reservations domain.ReservationService,
	adminChatIDs []int64,
	logger *zerolog.Logger,
) *Bot {
	admins := make(map[int64]struct{}, len(adminChatIDs))
	for _, id := range adminChatIDs {
		admins[id] = struct{}{}
	}

	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "telegram_bot").Logger()
	}

	return &Bot{
		tg:           tg,
		cars:         cars,
		reservations: reservations,
		admins:       admins,
		logger:       l,
	}
}

// Start polls updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tg.GetUpdatesChan(u)
	b.logger.Info().Str("username", b.tg.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.tg.StopReceivingUpdates()
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return
	}

	updateCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	l := b.logger.With().
		Str("request_id", uuid.NewString()).
		Int64("chat_id", msg.Chat.ID).
		Str("command", msg.Command()).
		Logger()

	b.withRecovery(&l, func() {
		if !b.isAdmin(msg.Chat.ID) {
			l.Warn().Msg("command from non-admin chat")
			b.reply(&l, msg.Chat.ID, "⛔ Доступ запрещен")
			return
		}
		b.handleCommand(updateCtx, &l, msg)
	})
}

func (b *Bot) isAdmin(chatID int64) bool {
	_, ok := b.admins[chatID]
	return ok
}

func (b *Bot) withRecovery(l *zerolog.Logger, handler func()) {
	defer func() {
		if r := recover(); r != nil {
			l.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

func (b *Bot) reply(l *zerolog.Logger, chatID int64, text string) {
	if _, err := b.tg.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		l.Error().Err(err).Msg("failed to send reply")
	}
}
