// Package auction — handlers.go обрабатывает команды аукциона:
// !аукционы, !ставка, !лот (история) и админские !лот-создать, !лот-закрыть.
package auction

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"discord-bot/internal/common"
)

// Handler обрабатывает команды аукциона.
type Handler struct {
	service *Service
	session *discordgo.Session
}

// NewHandler создаёт новый обработчик команд аукциона.
func NewHandler(service *Service, session *discordgo.Session) *Handler {
	return &Handler{service: service, session: session}
}

// HandleList обрабатывает команду !аукционы — список активных лотов.
func (h *Handler) HandleList(ctx context.Context, channelID string) {
	auctions, err := h.service.ListActive(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка получения списка лотов")
		h.sendMessage(channelID, "❌ Ошибка получения списка аукционов")
		return
	}

	if len(auctions) == 0 {
		h.sendMessage(channelID, "🔨 Активных аукционов сейчас нет")
		return
	}

	var sb strings.Builder
	sb.WriteString("🔨 **Активные аукционы:**\n\n")
	for _, a := range auctions {
		leader := "ставок пока нет"
		if a.CurrentBidder != nil {
			leader = fmt.Sprintf("лидирует <@%s>", *a.CurrentBidder)
		}
		left := time.Until(a.EndTime).Round(time.Minute)
		sb.WriteString(fmt.Sprintf("• **#%d** %s — текущая ставка %s, %s, осталось %s\n",
			a.ID, a.ItemName, common.FormatCoins(a.CurrentBid), leader, left))
	}
	sb.WriteString("\nСтавка: `!ставка <номер> <сумма>`")
	h.sendMessage(channelID, sb.String())
}

// HandleBid обрабатывает команду !ставка <номер лота> <сумма>.
// Ставка удерживается со счёта сразу; предыдущему лидеру монеты
// возвращаются тем же действием.
func (h *Handler) HandleBid(ctx context.Context, channelID, userID string, args []string) {
	if len(args) < 2 {
		h.sendMessage(channelID, "❌ Формат: !ставка <номер лота> <сумма>")
		return
	}

	auctionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(channelID, "❌ Номер лота должен быть числом")
		return
	}
	amount, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || amount <= 0 {
		h.sendMessage(channelID, "❌ Сумма ставки должна быть положительным числом")
		return
	}

	err = h.service.PlaceBid(ctx, auctionID, userID, amount)
	if err != nil {
		switch err {
		case common.ErrNotFound:
			h.sendMessage(channelID, "❌ Лот не найден")
		case common.ErrAuctionClosed:
			h.sendMessage(channelID, "❌ Аукцион уже завершён")
		case common.ErrBidTooLow:
			h.sendMessage(channelID, "❌ Ставка должна быть выше текущей")
		case common.ErrBidCooldown:
			days := int(h.service.WinCooldown().Hours() / 24)
			h.sendMessage(channelID, fmt.Sprintf("❌ После победы в аукционе действует пауза %s",
				common.PluralizeDays(days)))
		case common.ErrInsufficientFunds:
			h.sendMessage(channelID, "❌ Недостаточно монет для ставки")
		default:
			log.WithError(err).Error("Ошибка ставки")
			h.sendMessage(channelID, "❌ Ошибка приёма ставки")
		}
		return
	}

	h.sendMessage(channelID, fmt.Sprintf("✅ <@%s> лидирует в лоте #%d со ставкой %s",
		userID, auctionID, common.FormatCoins(amount)))
}

// HandleHistory обрабатывает команду !лот <номер> — карточка лота и ставки.
func (h *Handler) HandleHistory(ctx context.Context, channelID string, args []string) {
	if len(args) < 1 {
		h.sendMessage(channelID, "❌ Формат: !лот <номер>")
		return
	}
	auctionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(channelID, "❌ Номер лота должен быть числом")
		return
	}

	a, err := h.service.GetByID(ctx, auctionID)
	if err != nil {
		if err == common.ErrNotFound {
			h.sendMessage(channelID, "❌ Лот не найден")
		} else {
			log.WithError(err).Error("Ошибка чтения лота")
			h.sendMessage(channelID, "❌ Ошибка получения лота")
		}
		return
	}

	bids, err := h.service.BidHistory(ctx, auctionID, 10)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения истории ставок")
		h.sendMessage(channelID, "❌ Ошибка получения истории ставок")
		return
	}

	var sb strings.Builder
	status := "🟢 активен"
	if !a.Active {
		status = "🔴 завершён"
	}
	sb.WriteString(fmt.Sprintf("🔨 **Лот #%d: %s** (%s)\n", a.ID, a.ItemName, status))
	if a.Description != "" {
		sb.WriteString(a.Description + "\n")
	}
	sb.WriteString(fmt.Sprintf("Текущая ставка: %s\n", common.FormatCoins(a.CurrentBid)))
	if len(bids) > 0 {
		sb.WriteString("\n**Последние ставки:**\n")
		for _, b := range bids {
			sb.WriteString(fmt.Sprintf("• %s — <@%s>: %s\n",
				common.FormatDateTime(b.CreatedAt), b.UserID, common.FormatCoins(b.Amount)))
		}
	}
	h.sendMessage(channelID, sb.String())
}

// HandleCreate обрабатывает админскую команду
// !лот-создать <часы> <стартовая ставка> <название...>.
func (h *Handler) HandleCreate(ctx context.Context, channelID, messageID, creator string, args []string) {
	if len(args) < 3 {
		h.sendMessage(channelID, "❌ Формат: !лот-создать <часы> <стартовая ставка> <название>")
		return
	}

	hours, err := strconv.Atoi(args[0])
	if err != nil || hours <= 0 {
		h.sendMessage(channelID, "❌ Длительность в часах должна быть положительным числом")
		return
	}
	startingBid, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || startingBid <= 0 {
		h.sendMessage(channelID, "❌ Стартовая ставка должна быть положительным числом")
		return
	}
	itemName := strings.Join(args[2:], " ")

	id, err := h.service.Create(ctx, itemName, "", startingBid, hours, creator, channelID, messageID)
	if err != nil {
		if err == common.ErrInvalidAmount {
			h.sendMessage(channelID, "❌ Некорректные параметры лота")
		} else {
			log.WithError(err).Error("Ошибка создания лота")
			h.sendMessage(channelID, "❌ Ошибка создания лота")
		}
		return
	}

	h.sendMessage(channelID, fmt.Sprintf("🔨 Аукцион открыт! Лот **#%d: %s**\nСтартовая ставка %s, завершение через %d ч.\nСтавка: `!ставка %d <сумма>`",
		id, itemName, common.FormatCoins(startingBid), hours, id))
}

// HandleEnd обрабатывает админскую команду !лот-закрыть <номер>.
// Повторное закрытие безопасно и ничего не меняет.
func (h *Handler) HandleEnd(ctx context.Context, channelID string, args []string) {
	if len(args) < 1 {
		h.sendMessage(channelID, "❌ Формат: !лот-закрыть <номер>")
		return
	}
	auctionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.sendMessage(channelID, "❌ Номер лота должен быть числом")
		return
	}

	res, err := h.service.End(ctx, auctionID)
	if err != nil {
		if err == common.ErrNotFound {
			h.sendMessage(channelID, "❌ Лот не найден")
		} else {
			log.WithError(err).Error("Ошибка закрытия лота")
			h.sendMessage(channelID, "❌ Ошибка закрытия лота")
		}
		return
	}

	if !res.Ended {
		h.sendMessage(channelID, "ℹ️ Лот уже был закрыт ранее")
		return
	}
	h.sendMessage(channelID, FormatEndResult(auctionID, res))
}

// FormatEndResult формирует объявление о закрытии лота.
// Используется и обработчиком, и планировщиком.
func FormatEndResult(auctionID int64, res *EndResult) string {
	if res.WinnerID == nil {
		return fmt.Sprintf("🔨 Лот #%d закрыт без ставок", auctionID)
	}
	return fmt.Sprintf("🏆 Лот #%d закрыт! Победитель <@%s> со ставкой %s",
		auctionID, *res.WinnerID, common.FormatCoins(res.WinningBid))
}

// sendMessage — утилита для отправки сообщений.
func (h *Handler) sendMessage(channelID, text string) {
	if _, err := h.session.ChannelMessageSend(channelID, text); err != nil {
		log.WithError(err).WithField("channel_id", channelID).Error("Ошибка отправки сообщения")
	}
}
