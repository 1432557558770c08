// Package admin — handlers.go обрабатывает вход админа в личных
// сообщениях и привилегированные команды: выдача и изъятие монет,
// бан, отчёт по кассе.
package admin

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"discord-bot/internal/common"
	"discord-bot/internal/features/bank"
	"discord-bot/internal/features/economy"
	"discord-bot/internal/features/members"
)

// Handler обрабатывает админские команды.
type Handler struct {
	service *Service
	economy *economy.Service
	bank    *bank.Service
	members *members.Service
	session *discordgo.Session
}

// NewHandler создаёт новый обработчик админских команд.
func NewHandler(service *Service, economySvc *economy.Service, bankSvc *bank.Service, membersSvc *members.Service, session *discordgo.Session) *Handler {
	return &Handler{
		service: service,
		economy: economySvc,
		bank:    bankSvc,
		members: membersSvc,
		session: session,
	}
}

// HandleLogin обрабатывает команду !админ (только в личных сообщениях).
// Переводит диалог в ожидание пароля.
func (h *Handler) HandleLogin(ctx context.Context, channelID, userID string) {
	if !h.service.IsConfiguredAdmin(userID) {
		h.sendMessage(channelID, "❌ У вас нет прав администратора")
		return
	}

	if h.service.HasActiveSession(ctx, userID) {
		h.sendMessage(channelID, "✅ Вы уже авторизованы")
		return
	}

	h.service.SetState(userID, StateAwaitingPassword, nil)
	h.sendMessage(channelID, "🔐 Введите пароль администратора (сообщение будет обработано и забыто)")
}

// HandlePasswordInput обрабатывает ввод пароля в состоянии ожидания.
// Возвращает true, если сообщение было поглощено как пароль.
func (h *Handler) HandlePasswordInput(ctx context.Context, channelID, userID, content string) bool {
	state := h.service.GetState(userID)
	if state == nil || state.State != StateAwaitingPassword {
		return false
	}

	h.service.ClearState(userID)

	err := h.service.VerifyPassword(ctx, userID, content)
	if err != nil {
		switch err {
		case common.ErrNotAdmin:
			h.sendMessage(channelID, "❌ У вас нет прав администратора")
		case common.ErrTooManyAttempts:
			h.sendMessage(channelID, "❌ Слишком много неудачных попыток, подождите час")
		case common.ErrWrongPassword:
			h.sendMessage(channelID, "❌ Неверный пароль. Повторите: !админ")
		default:
			log.WithError(err).Error("Ошибка проверки пароля")
			h.sendMessage(channelID, "❌ Ошибка авторизации, попробуйте позже")
		}
		return true
	}

	log.WithField("user_id", userID).Info("Админ авторизован")
	h.sendMessage(channelID, "✅ Авторизация успешна, сессия действует 24 часа")
	return true
}

// HandleLogout обрабатывает команду !выход.
func (h *Handler) HandleLogout(ctx context.Context, channelID, userID string) {
	if err := h.service.Logout(ctx, userID); err != nil {
		log.WithError(err).Error("Ошибка выхода")
		h.sendMessage(channelID, "❌ Ошибка выхода")
		return
	}
	h.sendMessage(channelID, "👋 Сессия завершена")
}

// HandleGive обрабатывает команду !выдать @пользователь <сумма> —
// эмиссия монет на счёт пользователя.
func (h *Handler) HandleGive(ctx context.Context, channelID string, args []string) {
	userID, amount, ok := h.parseUserAmount(channelID, args, "!выдать @кому сумма")
	if !ok {
		return
	}

	if err := h.economy.Ensure(ctx, userID); err != nil {
		log.WithError(err).Error("Ошибка создания счёта")
		h.sendMessage(channelID, "❌ Ошибка выдачи монет")
		return
	}
	newBalance, err := h.economy.Credit(ctx, userID, amount, economy.TxTypeAdminGive, "выдача администратором")
	if err != nil {
		log.WithError(err).Error("Ошибка выдачи монет")
		h.sendMessage(channelID, "❌ Ошибка выдачи монет")
		return
	}

	h.sendMessage(channelID, fmt.Sprintf("✅ Выдано %s <@%s>, теперь на счёте %s",
		common.FormatCoins(amount), userID, common.FormatCoins(newBalance)))
}

// HandleTake обрабатывает команду !забрать @пользователь <сумма> —
// изъятие монет. Баланс не уходит в минус: при нехватке — отказ.
func (h *Handler) HandleTake(ctx context.Context, channelID string, args []string) {
	userID, amount, ok := h.parseUserAmount(channelID, args, "!забрать @у_кого сумма")
	if !ok {
		return
	}

	err := h.economy.Debit(ctx, userID, amount, economy.TxTypeAdminTake, "изъятие администратором")
	if err != nil {
		if err == common.ErrInsufficientFunds {
			h.sendMessage(channelID, "❌ У пользователя недостаточно монет")
		} else {
			log.WithError(err).Error("Ошибка изъятия монет")
			h.sendMessage(channelID, "❌ Ошибка изъятия монет")
		}
		return
	}

	h.sendMessage(channelID, fmt.Sprintf("✅ Изъято %s у <@%s>", common.FormatCoins(amount), userID))
}

// HandleBan обрабатывает команды !бан и !разбан.
func (h *Handler) HandleBan(ctx context.Context, channelID string, args []string, banned bool) {
	if len(args) < 1 {
		h.sendMessage(channelID, "❌ Укажите пользователя упоминанием")
		return
	}
	userID := economy.ParseMention(args[0])
	if userID == "" {
		h.sendMessage(channelID, "❌ Укажите пользователя упоминанием")
		return
	}

	if err := h.members.SetBanned(ctx, userID, banned); err != nil {
		if err == common.ErrNotFound {
			h.sendMessage(channelID, "❌ Пользователь не найден")
		} else {
			log.WithError(err).Error("Ошибка смены статуса бана")
			h.sendMessage(channelID, "❌ Ошибка выполнения команды")
		}
		return
	}

	if banned {
		h.sendMessage(channelID, fmt.Sprintf("🚫 <@%s> забанен", userID))
	} else {
		h.sendMessage(channelID, fmt.Sprintf("✅ <@%s> разбанен", userID))
	}
}

// HandleBankReport обрабатывает команду !касса — отчёт по кассе магазина.
func (h *Handler) HandleBankReport(ctx context.Context, channelID string) {
	b, err := h.bank.Snapshot(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения кассы")
		h.sendMessage(channelID, "❌ Ошибка получения отчёта по кассе")
		return
	}

	h.sendMessage(channelID, fmt.Sprintf("🏦 **Касса магазина**\nОстаток: %s\nВыручка за всё время: %s",
		common.FormatCoins(b.Balance), common.FormatCoins(b.TotalRevenue)))
}

// parseUserAmount разбирает пару @пользователь <сумма>.
func (h *Handler) parseUserAmount(channelID string, args []string, usage string) (string, int64, bool) {
	if len(args) < 2 {
		h.sendMessage(channelID, "❌ Формат: "+usage)
		return "", 0, false
	}
	userID := economy.ParseMention(args[0])
	if userID == "" {
		h.sendMessage(channelID, "❌ Укажите пользователя упоминанием")
		return "", 0, false
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || amount <= 0 {
		h.sendMessage(channelID, "❌ Сумма должна быть положительным числом")
		return "", 0, false
	}
	return userID, amount, true
}

// sendMessage — утилита для отправки сообщений.
func (h *Handler) sendMessage(channelID, text string) {
	if _, err := h.session.ChannelMessageSend(channelID, text); err != nil {
		log.WithError(err).WithField("channel_id", channelID).Error("Ошибка отправки сообщения")
	}
}
