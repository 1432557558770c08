// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики,
// фильтры и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"discord-bot/internal/bot"
	"discord-bot/internal/bot/middleware"
	"discord-bot/internal/config"
	"discord-bot/internal/db/postgres"
	"discord-bot/internal/features/admin"
	"discord-bot/internal/features/auction"
	"discord-bot/internal/features/bank"
	"discord-bot/internal/features/economy"
	"discord-bot/internal/features/members"
	"discord-bot/internal/features/prediction"
	"discord-bot/internal/features/shop"
	"discord-bot/internal/jobs"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	Session   *discordgo.Session
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Запускаем миграции
	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Discord-сессия ===
	session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Discord-сессии: %w", err)
	}
	log.Info("Discord-сессия создана")

	// === 3. Репозитории ===
	memberRepo := members.NewRepository(pool)
	economyRepo := economy.NewRepository(pool)
	bankRepo := bank.NewRepository(pool)
	shopRepo := shop.NewRepository(pool)
	auctionRepo := auction.NewRepository(pool)
	predictionRepo := prediction.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 4. Сервисы ===
	memberService := members.NewService(memberRepo)
	economyService := economy.NewService(economyRepo, cfg)
	bankService := bank.NewService(bankRepo)
	shopService := shop.NewService(shopRepo)
	auctionService := auction.NewService(auctionRepo, cfg)
	predictionService := prediction.NewService(predictionRepo, cfg)
	adminService := admin.NewService(adminRepo, cfg)

	// === 5. Обработчики ===
	transferCounter := middleware.NewDailyCounter(cfg.DailyTransferLimit)
	economyHandler := economy.NewHandler(economyService, session, transferCounter)
	shopHandler := shop.NewHandler(shopService, session)
	auctionHandler := auction.NewHandler(auctionService, session)
	predictionHandler := prediction.NewHandler(predictionService, session)
	adminHandler := admin.NewHandler(adminService, economyService, bankService, memberService, session)

	// === 6. Собираем бота ===
	b := bot.New(
		session, cfg,
		memberService, economyService, adminService,
		economyHandler, shopHandler, auctionHandler, predictionHandler, adminHandler,
	)

	// === 7. Планировщик задач ===
	scheduler := jobs.NewScheduler(cfg, b, auctionService, predictionService, shopService, adminService)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		DB:        pool,
		Session:   session,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	// Инициализируем систему миграций
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return err
	}

	// Выполняем миграции по порядку
	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Members},
		{2, migration002Economy},
		{3, migration003Bank},
		{4, migration004Shop},
		{5, migration005Auctions},
		{6, migration006Predictions},
		{7, migration007Admin},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.
// user_id везде VARCHAR: Discord snowflake — строка.

var migration001Members = `
CREATE TABLE IF NOT EXISTS members (
    id BIGSERIAL PRIMARY KEY,
    user_id VARCHAR(32) UNIQUE NOT NULL,
    username VARCHAR(255),
    display_name VARCHAR(255),
    is_admin BOOLEAN DEFAULT FALSE,
    is_banned BOOLEAN DEFAULT FALSE,
    joined_at TIMESTAMP DEFAULT NOW(),
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_members_user_id ON members(user_id);
`

var migration002Economy = `
CREATE TABLE IF NOT EXISTS balances (
    id BIGSERIAL PRIMARY KEY,
    user_id VARCHAR(32) UNIQUE NOT NULL REFERENCES members(user_id),
    balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    total_earned BIGINT NOT NULL DEFAULT 0,
    total_spent BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    from_user_id VARCHAR(32),
    to_user_id VARCHAR(32),
    amount BIGINT NOT NULL,
    transaction_type VARCHAR(50) NOT NULL,
    description TEXT,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transactions_from_user ON transactions(from_user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_to_user ON transactions(to_user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at DESC);
`

var migration003Bank = `
CREATE TABLE IF NOT EXISTS bank (
    id SMALLINT PRIMARY KEY CHECK (id = 1),
    balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    total_revenue BIGINT NOT NULL DEFAULT 0,
    last_updated TIMESTAMP DEFAULT NOW()
);
INSERT INTO bank (id) VALUES (1) ON CONFLICT (id) DO NOTHING;
`

var migration004Shop = `
CREATE TABLE IF NOT EXISTS shop_inventory (
    item_id VARCHAR(64) PRIMARY KEY,
    quantity BIGINT NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    max_quantity BIGINT,
    auto_restock BOOLEAN NOT NULL DEFAULT FALSE,
    restock_amount BIGINT NOT NULL DEFAULT 0,
    last_restock TIMESTAMP,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS shop_purchases (
    id BIGSERIAL PRIMARY KEY,
    user_id VARCHAR(32) NOT NULL,
    item_id VARCHAR(64) NOT NULL,
    qty BIGINT NOT NULL,
    price_paid BIGINT NOT NULL,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_shop_purchases_user ON shop_purchases(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_shop_purchases_item ON shop_purchases(item_id);
`

var migration005Auctions = `
CREATE TABLE IF NOT EXISTS auctions (
    id BIGSERIAL PRIMARY KEY,
    item_name VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    starting_bid BIGINT NOT NULL,
    current_bid BIGINT NOT NULL,
    current_bidder VARCHAR(32),
    end_time TIMESTAMP NOT NULL,
    active BOOLEAN NOT NULL DEFAULT TRUE,
    creator VARCHAR(32) NOT NULL,
    channel_id VARCHAR(32),
    message_id VARCHAR(32),
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS auction_history (
    id BIGSERIAL PRIMARY KEY,
    auction_id BIGINT NOT NULL REFERENCES auctions(id),
    user_id VARCHAR(32) NOT NULL,
    amount BIGINT NOT NULL,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS auction_winners (
    id BIGSERIAL PRIMARY KEY,
    user_id VARCHAR(32) NOT NULL,
    auction_id BIGINT NOT NULL REFERENCES auctions(id),
    amount BIGINT NOT NULL,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_auctions_active ON auctions(active, end_time);
CREATE INDEX IF NOT EXISTS idx_auction_history_auction ON auction_history(auction_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_auction_winners_user ON auction_winners(user_id, created_at DESC);
`

var migration006Predictions = `
CREATE TABLE IF NOT EXISTS predictions (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    option1 VARCHAR(100) NOT NULL,
    option2 VARCHAR(100) NOT NULL,
    bets JSONB NOT NULL DEFAULT '{"1": {}, "2": {}}',
    locked BOOLEAN NOT NULL DEFAULT FALSE,
    end_ts TIMESTAMP NOT NULL,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_predictions_locked ON predictions(locked, end_ts);
`

var migration007Admin = `
CREATE TABLE IF NOT EXISTS admin_sessions (
    id BIGSERIAL PRIMARY KEY,
    user_id VARCHAR(32) NOT NULL,
    session_token VARCHAR(255) NOT NULL,
    authenticated_at TIMESTAMP DEFAULT NOW(),
    expires_at TIMESTAMP NOT NULL,
    last_activity TIMESTAMP DEFAULT NOW(),
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id VARCHAR(32) NOT NULL,
    success BOOLEAN NOT NULL,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_user ON admin_sessions(user_id, is_active);
CREATE INDEX IF NOT EXISTS idx_admin_attempts_user ON admin_login_attempts(user_id, created_at DESC);
`
