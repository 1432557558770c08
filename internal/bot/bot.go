// Package bot связывает Discord-сессию с обработчиками команд:
// фильтрация, rate-limit, регистрация участников, маршрутизация.
package bot

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"discord-bot/internal/bot/filters"
	"discord-bot/internal/bot/middleware"
	"discord-bot/internal/config"
	"discord-bot/internal/features/admin"
	"discord-bot/internal/features/auction"
	"discord-bot/internal/features/economy"
	"discord-bot/internal/features/members"
	"discord-bot/internal/features/prediction"
	"discord-bot/internal/features/shop"
)

// commandPrefixes — допустимые префиксы команд.
var commandPrefixes = []string{"!", "."}

// Bot — центральный объект: держит сессию, сервисы и обработчики.
type Bot struct {
	session *discordgo.Session
	cfg     *config.Config

	membersService *members.Service
	economyService *economy.Service
	adminService   *admin.Service

	economyHandler    *economy.Handler
	shopHandler       *shop.Handler
	auctionHandler    *auction.Handler
	predictionHandler *prediction.Handler
	adminHandler      *admin.Handler

	filter      *filters.GuildFilter
	rateLimiter *middleware.RateLimiter
}

// New создаёт бота и регистрирует обработчик сообщений.
func New(
	session *discordgo.Session,
	cfg *config.Config,
	membersService *members.Service,
	economyService *economy.Service,
	adminService *admin.Service,
	economyHandler *economy.Handler,
	shopHandler *shop.Handler,
	auctionHandler *auction.Handler,
	predictionHandler *prediction.Handler,
	adminHandler *admin.Handler,
) *Bot {
	b := &Bot{
		session:           session,
		cfg:               cfg,
		membersService:    membersService,
		economyService:    economyService,
		adminService:      adminService,
		economyHandler:    economyHandler,
		shopHandler:       shopHandler,
		auctionHandler:    auctionHandler,
		predictionHandler: predictionHandler,
		adminHandler:      adminHandler,
		filter:            filters.NewGuildFilter(cfg.GuildID, membersService, session),
		rateLimiter:       middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent
	session.AddHandler(b.onMessageCreate)

	return b
}

// Start открывает подключение к Discord Gateway.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return err
	}
	log.Info("Бот подключён к Discord")
	return nil
}

// Stop закрывает подключение и останавливает фоновые горутины.
func (b *Bot) Stop() {
	b.rateLimiter.Close()
	if err := b.session.Close(); err != nil {
		log.WithError(err).Error("Ошибка закрытия сессии Discord")
	}
	log.Info("Бот остановлен")
}

// Announce отправляет объявление в канал объявлений.
// Используется планировщиком (итоги аукционов, блокировки прогнозов).
func (b *Bot) Announce(text string) {
	if _, err := b.session.ChannelMessageSend(b.cfg.AnnounceChannelID, text); err != nil {
		log.WithError(err).Error("Ошибка отправки объявления")
	}
}

// onMessageCreate — точка входа каждого сообщения.
func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	defer middleware.RecoverFromPanic()

	// Свои и чужие боты — мимо
	if m.Author == nil || m.Author.Bot {
		return
	}

	middleware.LogMessage(m)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if !b.filter.CheckAccess(ctx, m) {
		return
	}

	if !b.rateLimiter.Allow(m.Author.ID) {
		log.WithField("user_id", m.Author.ID).Debug("rate limit: сообщение отброшено")
		return
	}

	// Регистрируем участника и его счёт (стартовый грант — ровно один раз)
	displayName := m.Author.GlobalName
	if m.Member != nil && m.Member.Nick != "" {
		displayName = m.Member.Nick
	}
	if err := b.membersService.EnsureMember(ctx, m.Author.ID, m.Author.Username, displayName); err != nil {
		log.WithError(err).Error("Ошибка регистрации участника")
	}
	if err := b.economyService.Ensure(ctx, m.Author.ID); err != nil {
		log.WithError(err).Error("Ошибка создания счёта")
	}

	if b.membersService.IsBanned(ctx, m.Author.ID) {
		return
	}

	isDM := m.GuildID == ""

	cmd, args, ok := ParseCommand(m.Content)
	if !ok {
		// В личке сообщение без префикса может быть вводом пароля
		if isDM {
			b.adminHandler.HandlePasswordInput(ctx, m.ChannelID, m.Author.ID, m.Content)
		}
		return
	}

	b.routeCommand(ctx, m, isDM, cmd, args)
}

// ParseCommand разбирает "!команда арг1 арг2" на имя команды и аргументы.
func ParseCommand(content string) (string, []string, bool) {
	content = strings.TrimSpace(content)

	var body string
	for _, prefix := range commandPrefixes {
		if strings.HasPrefix(content, prefix) {
			body = strings.TrimPrefix(content, prefix)
			break
		}
	}
	if body == "" {
		return "", nil, false
	}

	fields := strings.Fields(body)
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// routeCommand направляет команду в обработчик фичи.
func (b *Bot) routeCommand(ctx context.Context, m *discordgo.MessageCreate, isDM bool, cmd string, args []string) {
	channelID := m.ChannelID
	userID := m.Author.ID

	switch cmd {
	// --- Экономика ---
	case "баланс", "balance":
		b.economyHandler.HandleBalance(ctx, channelID, userID)
	case "перевод", "transfer":
		b.economyHandler.HandleTransfer(ctx, channelID, userID, args)
	case "транзакции", "история":
		b.economyHandler.HandleTransactions(ctx, channelID, userID)

	// --- Магазин ---
	case "магазин", "shop":
		if b.cfg.FeatureShopEnabled {
			b.shopHandler.HandleShop(ctx, channelID)
		}
	case "купить", "buy":
		if b.cfg.FeatureShopEnabled {
			b.shopHandler.HandleBuy(ctx, channelID, userID, args)
		}
	case "покупки":
		if b.cfg.FeatureShopEnabled {
			b.shopHandler.HandlePurchases(ctx, channelID, userID)
		}

	// --- Аукцион ---
	case "аукционы", "auctions":
		if b.cfg.FeatureAuctionsEnabled {
			b.auctionHandler.HandleList(ctx, channelID)
		}
	case "ставка", "bid":
		if b.cfg.FeatureAuctionsEnabled {
			b.auctionHandler.HandleBid(ctx, channelID, userID, args)
		}
	case "лот":
		if b.cfg.FeatureAuctionsEnabled {
			b.auctionHandler.HandleHistory(ctx, channelID, args)
		}

	// --- Прогнозы ---
	case "прогнозы", "predictions":
		if b.cfg.FeaturePredictionsEnabled {
			b.predictionHandler.HandleList(ctx, channelID)
		}
	case "прогноз-ставка":
		if b.cfg.FeaturePredictionsEnabled {
			b.predictionHandler.HandleStake(ctx, channelID, userID, args)
		}

	// --- Админ: вход только в личке ---
	case "админ", "admin":
		if isDM {
			b.adminHandler.HandleLogin(ctx, channelID, userID)
		} else {
			b.sendMessage(channelID, "🔐 Авторизация — только в личных сообщениях боту")
		}
	case "выход", "logout":
		if isDM {
			b.adminHandler.HandleLogout(ctx, channelID, userID)
		}

	// --- Привилегированные команды ---
	case "выдать", "забрать", "бан", "разбан", "касса",
		"товар", "пополнить", "остаток", "возврат",
		"лот-создать", "лот-закрыть",
		"прогноз-создать", "прогноз-стоп", "прогноз-итог":
		b.routeAdminCommand(ctx, m, cmd, args)
	}
}

// routeAdminCommand выполняет привилегированную команду после проверки
// статуса и активной сессии.
func (b *Bot) routeAdminCommand(ctx context.Context, m *discordgo.MessageCreate, cmd string, args []string) {
	channelID := m.ChannelID
	userID := m.Author.ID

	if !b.adminService.IsConfiguredAdmin(userID) || !b.adminService.HasActiveSession(ctx, userID) {
		b.sendMessage(channelID, "❌ Команда доступна только авторизованным администраторам (!админ в личке)")
		return
	}

	switch cmd {
	case "выдать":
		b.adminHandler.HandleGive(ctx, channelID, args)
	case "забрать":
		b.adminHandler.HandleTake(ctx, channelID, args)
	case "бан":
		b.adminHandler.HandleBan(ctx, channelID, args, true)
	case "разбан":
		b.adminHandler.HandleBan(ctx, channelID, args, false)
	case "касса":
		b.adminHandler.HandleBankReport(ctx, channelID)
	case "товар":
		b.shopHandler.HandleInitItem(ctx, channelID, args)
	case "пополнить":
		b.shopHandler.HandleAddStock(ctx, channelID, args)
	case "остаток":
		b.shopHandler.HandleSetStock(ctx, channelID, args)
	case "возврат":
		b.shopHandler.HandleRefund(ctx, channelID, args, economy.ParseMention)
	case "лот-создать":
		b.auctionHandler.HandleCreate(ctx, channelID, m.ID, userID, args)
	case "лот-закрыть":
		b.auctionHandler.HandleEnd(ctx, channelID, args)
	case "прогноз-создать":
		b.predictionHandler.HandleCreate(ctx, channelID, args)
	case "прогноз-стоп":
		b.predictionHandler.HandleLock(ctx, channelID, args)
	case "прогноз-итог":
		b.predictionHandler.HandleResolve(ctx, channelID, args)
	}
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(channelID, text string) {
	if _, err := b.session.ChannelMessageSend(channelID, text); err != nil {
		log.WithError(err).WithField("channel_id", channelID).Error("Ошибка отправки сообщения")
	}
}
