// Package shop — handlers.go обрабатывает команды магазина:
// !магазин, !купить, !покупки и админские команды склада.
package shop

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"discord-bot/internal/common"
)

// CatalogItem — позиция витрины: отображаемое имя и цена за штуку.
// Цены живут на уровне команд, склад хранит только остатки.
type CatalogItem struct {
	Name  string
	Price int64
}

// Catalog — витрина магазина. Ключ — item_id на складе.
var Catalog = map[string]CatalogItem{
	"vip":      {Name: "VIP-статус на неделю", Price: 500},
	"color":    {Name: "Цветной ник", Price: 300},
	"pin":      {Name: "Закреп сообщения", Price: 150},
	"lottery":  {Name: "Лотерейный билет", Price: 50},
	"sticker":  {Name: "Именной стикер", Price: 200},
}

// catalogOrder — порядок вывода витрины.
var catalogOrder = []string{"vip", "color", "pin", "lottery", "sticker"}

// Handler обрабатывает команды магазина.
type Handler struct {
	service *Service
	session *discordgo.Session
}

// NewHandler создаёт новый обработчик команд магазина.
func NewHandler(service *Service, session *discordgo.Session) *Handler {
	return &Handler{service: service, session: session}
}

// HandleShop обрабатывает команду !магазин — показывает витрину с остатками.
func (h *Handler) HandleShop(ctx context.Context, channelID string) {
	var sb strings.Builder
	sb.WriteString("🛒 **Магазин**\n\n")

	for _, id := range catalogOrder {
		entry := Catalog[id]
		qty, tracked, err := h.service.GetQuantity(ctx, id)
		if err != nil {
			log.WithError(err).WithField("item", id).Error("Ошибка чтения остатка")
			continue
		}

		stock := "∞"
		if tracked {
			if qty == 0 {
				stock = "нет в наличии"
			} else {
				stock = fmt.Sprintf("осталось %d %s", qty, common.PluralizeItems(qty))
			}
		}
		sb.WriteString(fmt.Sprintf("• `%s` — %s, %s (%s)\n",
			id, entry.Name, common.FormatCoins(entry.Price), stock))
	}

	sb.WriteString("\nПокупка: `!купить <товар> [количество]`")
	h.sendMessage(channelID, sb.String())
}

// HandleBuy обрабатывает команду !купить <товар> [количество].
func (h *Handler) HandleBuy(ctx context.Context, channelID, userID string, args []string) {
	if len(args) < 1 {
		h.sendMessage(channelID, "❌ Формат: !купить <товар> [количество]")
		return
	}

	itemID := strings.ToLower(args[0])
	entry, ok := Catalog[itemID]
	if !ok {
		h.sendMessage(channelID, "❌ Такого товара нет, смотри !магазин")
		return
	}

	qty := int64(1)
	if len(args) >= 2 {
		parsed, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || parsed <= 0 {
			h.sendMessage(channelID, "❌ Количество должно быть положительным числом")
			return
		}
		qty = parsed
	}

	err := h.service.Purchase(ctx, userID, itemID, qty, entry.Price)
	if err != nil {
		switch err {
		case common.ErrOutOfStock:
			h.sendMessage(channelID, fmt.Sprintf("❌ «%s» закончился, загляни позже", entry.Name))
		case common.ErrInsufficientFunds:
			h.sendMessage(channelID, fmt.Sprintf("❌ Не хватает монет: нужно %s", common.FormatCoins(qty*entry.Price)))
		default:
			log.WithError(err).Error("Ошибка покупки")
			h.sendMessage(channelID, "❌ Ошибка покупки, попробуйте позже")
		}
		return
	}

	h.sendMessage(channelID, fmt.Sprintf("✅ Куплено: %s ×%d за %s",
		entry.Name, qty, common.FormatCoins(qty*entry.Price)))
}

// HandlePurchases обрабатывает команду !покупки — журнал покупок пользователя.
func (h *Handler) HandlePurchases(ctx context.Context, channelID, userID string) {
	purchases, err := h.service.PurchaseHistory(ctx, userID, "", 10)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения журнала покупок")
		h.sendMessage(channelID, "❌ Ошибка получения истории покупок")
		return
	}

	if len(purchases) == 0 {
		h.sendMessage(channelID, "📋 Покупок пока нет")
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 **Твои покупки:**\n")
	for _, p := range purchases {
		name := p.ItemID
		if entry, ok := Catalog[p.ItemID]; ok {
			name = entry.Name
		}
		sb.WriteString(fmt.Sprintf("• %s — %s ×%d за %s\n",
			common.FormatDateTime(p.CreatedAt), name, p.Qty, common.FormatCoins(p.PricePaid)))
	}
	h.sendMessage(channelID, sb.String())
}

// HandleInitItem обрабатывает админскую команду
// !товар <id> <остаток> [макс|-] [авто:0/1] [порция].
func (h *Handler) HandleInitItem(ctx context.Context, channelID string, args []string) {
	if len(args) < 2 {
		h.sendMessage(channelID, "❌ Формат: !товар <id> <остаток> [макс|-] [авто:0/1] [порция]")
		return
	}

	itemID := strings.ToLower(args[0])
	qty, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || qty < 0 {
		h.sendMessage(channelID, "❌ Остаток должен быть неотрицательным числом")
		return
	}

	var maxQty *int64
	if len(args) >= 3 && args[2] != "-" {
		parsed, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil || parsed < 0 {
			h.sendMessage(channelID, "❌ Максимум должен быть неотрицательным числом или «-»")
			return
		}
		maxQty = &parsed
	}

	autoRestock := false
	if len(args) >= 4 && args[3] == "1" {
		autoRestock = true
	}

	restockAmount := int64(0)
	if len(args) >= 5 {
		restockAmount, err = strconv.ParseInt(args[4], 10, 64)
		if err != nil || restockAmount < 0 {
			h.sendMessage(channelID, "❌ Порция пополнения должна быть неотрицательным числом")
			return
		}
	}

	err = h.service.Initialize(ctx, itemID, qty, maxQty, autoRestock, restockAmount)
	if err != nil {
		switch err {
		case common.ErrItemExists:
			h.sendMessage(channelID, "❌ Товар уже зарегистрирован на складе")
		case common.ErrInvalidAmount:
			h.sendMessage(channelID, "❌ Некорректные параметры товара")
		default:
			log.WithError(err).Error("Ошибка регистрации товара")
			h.sendMessage(channelID, "❌ Ошибка регистрации товара")
		}
		return
	}

	h.sendMessage(channelID, fmt.Sprintf("✅ Товар `%s` зарегистрирован, остаток %d", itemID, qty))
}

// HandleAddStock обрабатывает админскую команду !пополнить <id> <количество>.
func (h *Handler) HandleAddStock(ctx context.Context, channelID string, args []string) {
	itemID, qty, ok := parseStockArgs(args)
	if !ok {
		h.sendMessage(channelID, "❌ Формат: !пополнить <id> <количество>")
		return
	}

	if err := h.service.AddStock(ctx, itemID, qty); err != nil {
		switch err {
		case common.ErrNotFound:
			h.sendMessage(channelID, "❌ Такого товара нет на складе")
		case common.ErrInvalidAmount:
			h.sendMessage(channelID, "❌ Количество должно быть положительным")
		default:
			log.WithError(err).Error("Ошибка пополнения склада")
			h.sendMessage(channelID, "❌ Ошибка пополнения склада")
		}
		return
	}

	h.sendMessage(channelID, fmt.Sprintf("✅ Склад пополнен: `%s` +%d", itemID, qty))
}

// HandleSetStock обрабатывает админскую команду !остаток <id> <количество>.
func (h *Handler) HandleSetStock(ctx context.Context, channelID string, args []string) {
	itemID, qty, ok := parseStockArgs(args)
	if !ok || qty < 0 {
		h.sendMessage(channelID, "❌ Формат: !остаток <id> <количество>")
		return
	}

	if err := h.service.SetStock(ctx, itemID, qty); err != nil {
		switch err {
		case common.ErrNotFound:
			h.sendMessage(channelID, "❌ Такого товара нет на складе")
		default:
			log.WithError(err).Error("Ошибка установки остатка")
			h.sendMessage(channelID, "❌ Ошибка установки остатка")
		}
		return
	}

	h.sendMessage(channelID, fmt.Sprintf("✅ Остаток `%s` установлен: %d", itemID, qty))
}

// HandleRefund обрабатывает админскую команду !возврат @пользователь —
// возвращает последнюю покупку пользователя за счёт кассы магазина.
func (h *Handler) HandleRefund(ctx context.Context, channelID string, args []string, parseMention func(string) string) {
	if len(args) < 1 {
		h.sendMessage(channelID, "❌ Формат: !возврат @пользователь")
		return
	}

	userID := parseMention(args[0])
	if userID == "" {
		h.sendMessage(channelID, "❌ Укажите пользователя упоминанием")
		return
	}

	purchases, err := h.service.PurchaseHistory(ctx, userID, "", 1)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения журнала покупок")
		h.sendMessage(channelID, "❌ Ошибка поиска покупки")
		return
	}
	if len(purchases) == 0 {
		h.sendMessage(channelID, "❌ У пользователя нет покупок")
		return
	}

	last := purchases[0]
	if err := h.service.Refund(ctx, userID, last); err != nil {
		switch err {
		case common.ErrBankEmpty:
			h.sendMessage(channelID, "❌ В кассе магазина не хватает монет для возврата")
		default:
			log.WithError(err).Error("Ошибка возврата")
			h.sendMessage(channelID, "❌ Ошибка возврата")
		}
		return
	}

	h.sendMessage(channelID, fmt.Sprintf("✅ Возврат выполнен: <@%s> получил %s за `%s`",
		userID, common.FormatCoins(last.PricePaid), last.ItemID))
}

// parseStockArgs разбирает пару <id> <количество> для складских команд.
func parseStockArgs(args []string) (string, int64, bool) {
	if len(args) < 2 {
		return "", 0, false
	}
	qty, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return strings.ToLower(args[0]), qty, true
}

// sendMessage — утилита для отправки сообщений.
func (h *Handler) sendMessage(channelID, text string) {
	if _, err := h.session.ChannelMessageSend(channelID, text); err != nil {
		log.WithError(err).WithField("channel_id", channelID).Error("Ошибка отправки сообщения")
	}
}
