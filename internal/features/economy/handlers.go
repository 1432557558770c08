// Package economy — handlers.go обрабатывает команды:
// !баланс, !перевод (перевод монет), !транзакции (история).
package economy

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"discord-bot/internal/bot/middleware"
	"discord-bot/internal/common"
)

// Handler обрабатывает команды экономики.
type Handler struct {
	service   *Service
	session   *discordgo.Session
	transfers *middleware.DailyCounter // Дневной лимит переводов
}

// NewHandler создаёт новый обработчик экономических команд.
func NewHandler(service *Service, session *discordgo.Session, transfers *middleware.DailyCounter) *Handler {
	return &Handler{
		service:   service,
		session:   session,
		transfers: transfers,
	}
}

// HandleBalance обрабатывает команду !баланс — показывает баланс.
//
// Формат ответа:
//
//	💰 Баланс: 150 монет
func (h *Handler) HandleBalance(ctx context.Context, channelID, userID string) {
	balance, err := h.service.GetBalance(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения баланса")
		h.sendMessage(channelID, "❌ Ошибка получения баланса")
		return
	}

	h.sendMessage(channelID, fmt.Sprintf("💰 Баланс: %s", common.FormatCoins(balance)))
}

// HandleTransfer обрабатывает команду !перевод @упоминание 100.
// Переводит указанную сумму от отправителя к получателю.
//
// Ответ при успехе:
//
//	✅ Переведено 100 монет <@id>
//	Твой баланс: 50 монет
func (h *Handler) HandleTransfer(ctx context.Context, channelID, fromUserID string, args []string) {
	// Проверяем аргументы: нужно упоминание и сумма
	if len(args) < 2 {
		h.sendMessage(channelID, "❌ Формат: !перевод @кому сумма")
		return
	}

	toUserID := ParseMention(args[0])
	if toUserID == "" {
		h.sendMessage(channelID, "❌ Укажите получателя упоминанием (@ник)")
		return
	}

	// Парсим сумму
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || amount <= 0 {
		h.sendMessage(channelID, "❌ Сумма должна быть положительным числом")
		return
	}

	// Дневной лимит переводов
	if !h.transfers.Allow(fromUserID) {
		h.sendMessage(channelID, "❌ Дневной лимит переводов исчерпан, попробуйте завтра")
		return
	}

	// Счёт получателя должен существовать до перевода
	if err := h.service.Ensure(ctx, toUserID); err != nil {
		log.WithError(err).Error("Ошибка создания счёта получателя")
		h.sendMessage(channelID, "❌ Ошибка выполнения перевода")
		return
	}

	// Выполняем перевод
	err = h.service.Transfer(ctx, fromUserID, toUserID, amount)
	if err != nil {
		switch err {
		case common.ErrSelfTransfer:
			h.sendMessage(channelID, "❌ Нельзя переводить монеты самому себе")
		case common.ErrInsufficientFunds:
			h.sendMessage(channelID, "❌ Недостаточно монет на счёте")
		case common.ErrInvalidAmount:
			h.sendMessage(channelID, "❌ Сумма должна быть положительной")
		default:
			log.WithError(err).Error("Ошибка перевода")
			h.sendMessage(channelID, "❌ Ошибка выполнения перевода")
		}
		return
	}

	// Получаем новый баланс отправителя
	newBalance, _ := h.service.GetBalance(ctx, fromUserID)

	h.sendMessage(channelID, fmt.Sprintf("✅ Переведено %s <@%s>\nТвой баланс: %s",
		common.FormatCoins(amount), toUserID, common.FormatCoins(newBalance)))
}

// HandleTransactions обрабатывает команду !транзакции — показывает историю.
func (h *Handler) HandleTransactions(ctx context.Context, channelID, userID string) {
	history, err := h.service.GetTransactionHistory(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения транзакций")
		h.sendMessage(channelID, "❌ Ошибка получения истории транзакций")
		return
	}

	h.sendMessage(channelID, history)
}

// ParseMention извлекает user ID из Discord-упоминания <@id> или <@!id>.
// Голый snowflake тоже принимается.
func ParseMention(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "<@")
	s = strings.TrimPrefix(s, "!")
	s = strings.TrimSuffix(s, ">")
	if s == "" {
		return ""
	}
	// Snowflake — только цифры
	for _, r := range s {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return s
}

// sendMessage — утилита для отправки сообщений.
func (h *Handler) sendMessage(channelID, text string) {
	if _, err := h.session.ChannelMessageSend(channelID, text); err != nil {
		log.WithError(err).WithField("channel_id", channelID).Error("Ошибка отправки сообщения")
	}
}
