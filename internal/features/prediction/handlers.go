// Package prediction — handlers.go обрабатывает команды тотализатора:
// !прогнозы, !прогноз-ставка и админские !прогноз-создать,
// !прогноз-стоп, !прогноз-итог.
package prediction

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"discord-bot/internal/common"
)

// Handler обрабатывает команды тотализатора.
type Handler struct {
	service *Service
	session *discordgo.Session
}

// NewHandler создаёт новый обработчик команд тотализатора.
func NewHandler(service *Service, session *discordgo.Session) *Handler {
	return &Handler{service: service, session: session}
}

// HandleList обрабатывает команду !прогнозы — открытые прогнозы с пулами.
func (h *Handler) HandleList(ctx context.Context, channelID string) {
	predictions, err := h.service.List(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка получения списка прогнозов")
		h.sendMessage(channelID, "❌ Ошибка получения списка прогнозов")
		return
	}

	if len(predictions) == 0 {
		h.sendMessage(channelID, "🎲 Открытых прогнозов сейчас нет")
		return
	}

	var sb strings.Builder
	sb.WriteString("🎲 **Прогнозы:**\n\n")
	for _, p := range predictions {
		status := "🟢 приём ставок"
		if p.Locked {
			status = "🔒 ставки закрыты"
		}
		sb.WriteString(fmt.Sprintf("**#%d** %s (%s)\n", p.ID, p.Title, status))
		sb.WriteString(fmt.Sprintf("  1️⃣ %s — пул %s (×%s)\n",
			p.Option1, common.FormatCoins(p.SideTotal(Side1)), formatOdds(Odds(p, Side1))))
		sb.WriteString(fmt.Sprintf("  2️⃣ %s — пул %s (×%s)\n",
			p.Option2, common.FormatCoins(p.SideTotal(Side2)), formatOdds(Odds(p, Side2))))
	}
	sb.WriteString("\nСтавка: `!прогноз-ставка <номер> <1|2> <сумма>`")
	h.sendMessage(channelID, sb.String())
}

// HandleStake обрабатывает команду !прогноз-ставка <номер> <1|2> <сумма>.
func (h *Handler) HandleStake(ctx context.Context, channelID, userID string, args []string) {
	if len(args) < 3 {
		h.sendMessage(channelID, "❌ Формат: !прогноз-ставка <номер> <1|2> <сумма>")
		return
	}

	predictionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(channelID, "❌ Номер прогноза должен быть числом")
		return
	}
	side, err := strconv.Atoi(args[1])
	if err != nil {
		h.sendMessage(channelID, "❌ Исход — 1 или 2")
		return
	}
	amount, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		h.sendMessage(channelID, "❌ Сумма должна быть числом")
		return
	}

	err = h.service.Stake(ctx, predictionID, userID, side, amount)
	if err != nil {
		switch err {
		case common.ErrNotFound:
			h.sendMessage(channelID, "❌ Прогноз не найден")
		case common.ErrInvalidSide:
			h.sendMessage(channelID, "❌ Исход — 1 или 2")
		case common.ErrInvalidAmount:
			h.sendMessage(channelID, "❌ Сумма должна быть положительной")
		case common.ErrStakeTooLarge:
			h.sendMessage(channelID, "❌ Ставка превышает максимально допустимую")
		case common.ErrPredictionLocked:
			h.sendMessage(channelID, "❌ Приём ставок на этот прогноз закрыт")
		case common.ErrWrongSide:
			h.sendMessage(channelID, "❌ У тебя уже есть ставка на другой исход")
		case common.ErrInsufficientFunds:
			h.sendMessage(channelID, "❌ Недостаточно монет для ставки")
		default:
			log.WithError(err).Error("Ошибка ставки на прогноз")
			h.sendMessage(channelID, "❌ Ошибка приёма ставки")
		}
		return
	}

	h.sendMessage(channelID, fmt.Sprintf("✅ Принято: %s на исход %d прогноза #%d",
		common.FormatCoins(amount), side, predictionID))
}

// HandleCreate обрабатывает админскую команду
// !прогноз-создать <минуты> <исход1|исход2> <заголовок...>.
// Исходы разделяются вертикальной чертой, чтобы допускать пробелы.
func (h *Handler) HandleCreate(ctx context.Context, channelID string, args []string) {
	if len(args) < 3 {
		h.sendMessage(channelID, "❌ Формат: !прогноз-создать <минуты> <исход1|исход2> <заголовок>")
		return
	}

	minutes, err := strconv.Atoi(args[0])
	if err != nil || minutes <= 0 {
		h.sendMessage(channelID, "❌ Длительность в минутах должна быть положительным числом")
		return
	}

	options := strings.SplitN(args[1], "|", 2)
	if len(options) != 2 || options[0] == "" || options[1] == "" {
		h.sendMessage(channelID, "❌ Исходы задаются как исход1|исход2")
		return
	}
	title := strings.Join(args[2:], " ")

	id, err := h.service.Create(ctx, title, options[0], options[1], minutes)
	if err != nil {
		if err == common.ErrInvalidAmount {
			h.sendMessage(channelID, "❌ Некорректные параметры прогноза")
		} else {
			log.WithError(err).Error("Ошибка создания прогноза")
			h.sendMessage(channelID, "❌ Ошибка создания прогноза")
		}
		return
	}

	h.sendMessage(channelID, fmt.Sprintf("🎲 Прогноз **#%d: %s**\n1️⃣ %s  /  2️⃣ %s\nПриём ставок %d мин.: `!прогноз-ставка %d <1|2> <сумма>`",
		id, title, options[0], options[1], minutes, id))
}

// HandleLock обрабатывает админскую команду !прогноз-стоп <номер>.
func (h *Handler) HandleLock(ctx context.Context, channelID string, args []string) {
	if len(args) < 1 {
		h.sendMessage(channelID, "❌ Формат: !прогноз-стоп <номер>")
		return
	}
	predictionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(channelID, "❌ Номер прогноза должен быть числом")
		return
	}

	locked, err := h.service.Lock(ctx, predictionID)
	if err != nil {
		if err == common.ErrNotFound {
			h.sendMessage(channelID, "❌ Прогноз не найден")
		} else {
			log.WithError(err).Error("Ошибка блокировки прогноза")
			h.sendMessage(channelID, "❌ Ошибка блокировки прогноза")
		}
		return
	}

	if !locked {
		h.sendMessage(channelID, "ℹ️ Ставки уже были закрыты ранее")
		return
	}
	h.sendMessage(channelID, fmt.Sprintf("🔒 Ставки на прогноз #%d закрыты", predictionID))
}

// HandleResolve обрабатывает админскую команду !прогноз-итог <номер> <1|2>.
func (h *Handler) HandleResolve(ctx context.Context, channelID string, args []string) {
	if len(args) < 2 {
		h.sendMessage(channelID, "❌ Формат: !прогноз-итог <номер> <1|2>")
		return
	}
	predictionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(channelID, "❌ Номер прогноза должен быть числом")
		return
	}
	side, err := strconv.Atoi(args[1])
	if err != nil {
		h.sendMessage(channelID, "❌ Победивший исход — 1 или 2")
		return
	}

	res, err := h.service.Resolve(ctx, predictionID, side)
	if err != nil {
		switch err {
		case common.ErrNotFound:
			h.sendMessage(channelID, "❌ Прогноз не найден")
		case common.ErrInvalidSide:
			h.sendMessage(channelID, "❌ Победивший исход — 1 или 2")
		default:
			log.WithError(err).Error("Ошибка расчёта прогноза")
			h.sendMessage(channelID, "❌ Ошибка расчёта прогноза")
		}
		return
	}

	h.sendMessage(channelID, FormatResolveResult(predictionID, side, res))
}

// FormatResolveResult формирует объявление о расчёте прогноза.
func FormatResolveResult(predictionID int64, winningSide int, res *ResolveResult) string {
	if res.WinTotal == 0 {
		return fmt.Sprintf("🎲 Прогноз #%d рассчитан: на исход %d никто не ставил, выплат нет",
			predictionID, winningSide)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏆 Прогноз #%d рассчитан! Победил исход %d\n", predictionID, winningSide))
	sb.WriteString(fmt.Sprintf("Пул победителей: %s, разыграно: %s\n",
		common.FormatCoins(res.WinTotal), common.FormatCoins(res.LosePool)))
	for _, p := range res.Payouts {
		sb.WriteString(fmt.Sprintf("• <@%s> получает %s\n", p.UserID, common.FormatCoins(p.Amount)))
	}
	return sb.String()
}

// formatOdds печатает коэффициент с одним знаком после запятой,
// прочерк — если на исход никто не ставил.
func formatOdds(odds float64) string {
	if odds == 0 {
		return "—"
	}
	return strconv.FormatFloat(odds, 'f', 1, 64)
}

// sendMessage — утилита для отправки сообщений.
func (h *Handler) sendMessage(channelID, text string) {
	if _, err := h.session.ChannelMessageSend(channelID, text); err != nil {
		log.WithError(err).WithField("channel_id", channelID).Error("Ошибка отправки сообщения")
	}
}
