// Package config загружает конфигурацию бота из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Discord ---
	AdminIDsRaw     string   `envconfig:"ADMIN_IDS" required:"true"`
	AdminIDs        []string `envconfig:"-"` // заполним вручную
	DiscordBotToken string   `envconfig:"DISCORD_BOT_TOKEN" required:"true"`
	// ID сервера, на котором бот работает (единственный разрешённый сервер)
	GuildID string `envconfig:"GUILD_ID" required:"true"`
	// Канал для объявлений планировщика (итоги аукционов, блокировка прогнозов)
	AnnounceChannelID string `envconfig:"ANNOUNCE_CHANNEL_ID" required:"true"`

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"discord_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Admin ---
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH" required:"true"`

	// --- Economy ---
	// Стартовый баланс выдаётся один раз при первом обращении к боту
	EconomyStartingBalance int64  `envconfig:"ECONOMY_STARTING_BALANCE" default:"250"`
	EconomyCurrencyName    string `envconfig:"ECONOMY_CURRENCY_NAME" default:"монеты"`

	// --- Auction ---
	// Кулдаун после победы: победитель не может делать ставки
	AuctionWinCooldown time.Duration `envconfig:"AUCTION_WIN_COOLDOWN" default:"168h"`
	// Как часто планировщик закрывает просроченные аукционы (секунды)
	AuctionSweepSeconds int `envconfig:"AUCTION_SWEEP_SECONDS" default:"60"`

	// --- Prediction ---
	// Максимальный размер одной ставки на прогноз
	PredictionMaxStake int64 `envconfig:"PREDICTION_MAX_STAKE" default:"100000"`
	// Как часто планировщик блокирует просроченные прогнозы (секунды)
	PredictionSweepSeconds int `envconfig:"PREDICTION_SWEEP_SECONDS" default:"30"`

	// --- Shop ---
	// Cron-выражение ежедневного пополнения магазина (с секундами)
	ShopRestockCron string `envconfig:"SHOP_RESTOCK_CRON" default:"0 0 0 * * *"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
	// Дневной лимит переводов на пользователя (сбрасывается в полночь по Москве)
	DailyTransferLimit int `envconfig:"DAILY_TRANSFER_LIMIT" default:"20"`

	// --- Feature Flags ---
	FeatureAuctionsEnabled    bool `envconfig:"FEATURE_AUCTIONS_ENABLED" default:"true"`
	FeaturePredictionsEnabled bool `envconfig:"FEATURE_PREDICTIONS_ENABLED" default:"true"`
	FeatureShopEnabled        bool `envconfig:"FEATURE_SHOP_ENABLED" default:"true"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	if c.GuildID == "" {
		return fmt.Errorf("GUILD_ID не задан")
	}
	if c.EconomyStartingBalance < 0 {
		return fmt.Errorf("ECONOMY_STARTING_BALANCE не может быть отрицательным")
	}
	if c.PredictionMaxStake <= 0 {
		return fmt.Errorf("PREDICTION_MAX_STAKE должен быть > 0")
	}
	if c.AuctionSweepSeconds <= 0 || c.PredictionSweepSeconds <= 0 {
		return fmt.Errorf("интервалы планировщика должны быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	cfg.AdminIDs = parseCSV(cfg.AdminIDsRaw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseCSV разбивает список Discord snowflake-ID через запятую.
// ID храним строками — так их отдаёт Discord API.
func parseCSV(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
