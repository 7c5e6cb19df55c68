package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"rentcars/internal/export"
	"rentcars/internal/models"
	"rentcars/internal/rules"
	"rentcars/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// maxMessageLen stays under Telegram's 4096-character message limit.
const maxMessageLen = 4000

const helpText = `Команды:
/cars - все машины
/reservations <email> - брони клиента
/export <YYYY-MM-DD> <YYYY-MM-DD> - отчет в Excel`

func (b *Bot) handleCommand(ctx context.Context, l *zerolog.Logger, msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		b.reply(l, msg.Chat.ID, helpText)
	case "cars":
		b.handleCars(ctx, l, msg.Chat.ID)
	case "reservations":
		if len(args) != 1 {
			b.reply(l, msg.Chat.ID, "Использование: /reservations <email>")
			return
		}
		b.handleReservations(ctx, l, msg.Chat.ID, args[0])
	case "export":
		if len(args) != 2 {
			b.reply(l, msg.Chat.ID, "Использование: /export <YYYY-MM-DD> <YYYY-MM-DD>")
			return
		}
		b.handleExport(ctx, l, msg.Chat.ID, args[0], args[1])
	default:
		b.reply(l, msg.Chat.ID, "Неизвестная команда\n\n"+helpText)
	}
}

func (b *Bot) handleCars(ctx context.Context, l *zerolog.Logger, chatID int64) {
	cars, err := b.cars.ListCars(ctx)
	if err != nil {
		b.replyError(l, chatID, err)
		return
	}
	if len(cars) == 0 {
		b.reply(l, chatID, "Машин нет")
		return
	}

	var sb strings.Builder
	for _, car := range cars {
		fmt.Fprintf(&sb, "%s %s %s (%s) - %d/день\n", statusIcon(car.Status), car.Brand, car.Model, car.ID, car.PricePerDay)
	}
	b.replyLong(l, chatID, sb.String())
}

func (b *Bot) handleReservations(ctx context.Context, l *zerolog.Logger, chatID int64, email string) {
	reservations, err := b.reservations.ListReservationsForUser(ctx, email)
	if err != nil {
		b.replyError(l, chatID, err)
		return
	}
	if len(reservations) == 0 {
		b.reply(l, chatID, "Броней нет")
		return
	}

	var sb strings.Builder
	for _, r := range reservations {
		car := r.CarID
		if r.Car != nil {
			car = r.Car.Brand + " " + r.Car.Model
		}
		fmt.Fprintf(&sb, "%s: %s - %s, %d дн., %d\n", car,
			r.StartDate.Format(models.DateLayout), r.EndDate.Format(models.DateLayout), r.Days, r.Total)
	}
	b.replyLong(l, chatID, sb.String())
}

func (b *Bot) handleExport(ctx context.Context, l *zerolog.Logger, chatID int64, from, to string) {
	reservations, err := b.reservations.ListReservations(ctx, from, to)
	if err != nil {
		b.replyError(l, chatID, err)
		return
	}

	start, end := rules.StartOfDay(from).Time, rules.StartOfDay(to).Time
	var buf bytes.Buffer
	if err := export.WriteReservationsXLSX(&buf, start, end, reservations); err != nil {
		b.replyError(l, chatID, err)
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: export.FileName(start, end), Bytes: buf.Bytes()})
	doc.Caption = fmt.Sprintf("Броней: %d", len(reservations))
	if _, err := b.tg.Send(doc); err != nil {
		l.Error().Err(err).Msg("failed to send export")
		return
	}
	l.Info().Int("count", len(reservations)).Msg("export sent")
}

// replyLong sends text in as many messages as the length limit requires.
func (b *Bot) replyLong(l *zerolog.Logger, chatID int64, text string) {
	for _, part := range splitMessage(text, maxMessageLen) {
		b.reply(l, chatID, part)
	}
}

// splitMessage cuts text into parts of at most limit runes, breaking after a newline
// when one is available.
func splitMessage(text string, limit int) []string {
	var parts []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > 0; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func (b *Bot) replyError(l *zerolog.Logger, chatID int64, err error) {
	l.Error().Err(err).Msg("command failed")
	b.reply(l, chatID, errorMessage(err))
}

func errorMessage(err error) string {
	switch service.KindOf(err) {
	case service.KindInvalidDate:
		return "⚠️ Даты должны быть в формате YYYY-MM-DD"
	case service.KindInvalidRange:
		return "⚠️ Дата окончания раньше даты начала"
	case service.KindInvalidInput:
		return "⚠️ Не хватает данных в команде"
	case service.KindUserNotFound:
		return "⚠️ Клиент не найден"
	default:
		return "❌ Произошла ошибка при обработке запроса. Попробуйте позже."
	}
}

func statusIcon(status string) string {
	if status == models.CarStatusAvailable {
		return "✅"
	}
	return "⛔"
}
