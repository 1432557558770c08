// Package jobs содержит планировщик фоновых задач: закрытие просроченных
// аукционов, блокировка просроченных прогнозов, автопополнение склада,
// чистка истёкших админ-сессий.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"discord-bot/internal/config"
	"discord-bot/internal/features/admin"
	"discord-bot/internal/features/auction"
	"discord-bot/internal/features/prediction"
	"discord-bot/internal/features/shop"
)

// Announcer публикует объявления в канал сообщества.
type Announcer interface {
	Announce(text string)
}

// Scheduler управляет фоновыми задачами по расписанию.
// Все свипы обёрнуты в SkipIfStillRunning: затянувшийся прогон не
// наслаивается на следующий.
type Scheduler struct {
	cron      *cron.Cron
	cfg       *config.Config
	announcer Announcer

	auctionService    *auction.Service
	predictionService *prediction.Service
	shopService       *shop.Service
	adminService      *admin.Service
}

// cronLogAdapter адаптирует logrus под интерфейс cron.Logger.
type cronLogAdapter struct {
	entry *log.Entry
}

func (l cronLogAdapter) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithField("kv", keysAndValues).Debug(msg)
}

func (l cronLogAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithError(err).WithField("kv", keysAndValues).Error(msg)
}

// NewScheduler создаёт планировщик фоновых задач.
func NewScheduler(
	cfg *config.Config,
	announcer Announcer,
	auctionService *auction.Service,
	predictionService *prediction.Service,
	shopService *shop.Service,
	adminService *admin.Service,
) *Scheduler {
	logger := cronLogAdapter{entry: log.WithField("component", "scheduler")}

	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(logger)),
		),
		cfg:               cfg,
		announcer:         announcer,
		auctionService:    auctionService,
		predictionService: predictionService,
		shopService:       shopService,
		adminService:      adminService,
	}
}

// Start регистрирует задачи и запускает планировщик.
func (s *Scheduler) Start() error {
	// Свип аукционов: закрывает просроченные лоты
	if s.cfg.FeatureAuctionsEnabled {
		spec := fmt.Sprintf("@every %ds", s.cfg.AuctionSweepSeconds)
		if _, err := s.cron.AddFunc(spec, s.sweepAuctions); err != nil {
			return fmt.Errorf("регистрация свипа аукционов: %w", err)
		}
	}

	// Свип прогнозов: блокирует ставки по дедлайну
	if s.cfg.FeaturePredictionsEnabled {
		spec := fmt.Sprintf("@every %ds", s.cfg.PredictionSweepSeconds)
		if _, err := s.cron.AddFunc(spec, s.sweepPredictions); err != nil {
			return fmt.Errorf("регистрация свипа прогнозов: %w", err)
		}
	}

	// Автопополнение склада (по умолчанию — каждую полночь)
	if s.cfg.FeatureShopEnabled {
		if _, err := s.cron.AddFunc(s.cfg.ShopRestockCron, s.restockShop); err != nil {
			return fmt.Errorf("регистрация автопополнения склада: %w", err)
		}
	}

	// Чистка истёкших админ-сессий раз в час
	if _, err := s.cron.AddFunc("0 0 * * * *", s.cleanupSessions); err != nil {
		return fmt.Errorf("регистрация чистки сессий: %w", err)
	}

	s.cron.Start()
	log.Info("Планировщик запущен")
	return nil
}

// Stop останавливает планировщик и дожидается завершения текущих задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(30 * time.Second):
		log.Warn("Планировщик: задачи не завершились за 30 секунд")
	}
	log.Info("Планировщик остановлен")
}

// sweepAuctions закрывает просроченные лоты. Ошибка по одному лоту
// логируется и не мешает остальным.
func (s *Scheduler) sweepAuctions() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	expired, err := s.auctionService.GetExpired(ctx)
	if err != nil {
		log.WithError(err).Error("Свип аукционов: ошибка выборки просроченных лотов")
		return
	}

	for _, a := range expired {
		res, err := s.auctionService.End(ctx, a.ID)
		if err != nil {
			log.WithError(err).WithField("auction_id", a.ID).Error("Свип аукционов: ошибка закрытия лота")
			continue
		}
		// Второй участник гонки (ручное закрытие) мог успеть раньше
		if !res.Ended {
			continue
		}
		s.announcer.Announce(auction.FormatEndResult(a.ID, res))
	}
}

// sweepPredictions блокирует прогнозы с истёкшим дедлайном ставок.
func (s *Scheduler) sweepPredictions() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	locked, err := s.predictionService.LockExpired(ctx)
	if err != nil {
		log.WithError(err).Error("Свип прогнозов: ошибка блокировки")
		return
	}

	for _, id := range locked {
		s.announcer.Announce(fmt.Sprintf("🔒 Приём ставок на прогноз #%d закрыт, ждём итога", id))
	}
}

// restockShop заливает отслеживаемые товары до потолка.
func (s *Scheduler) restockShop() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	restocked, err := s.shopService.AutoRestockSweep(ctx)
	if err != nil {
		log.WithError(err).Error("Автопополнение склада: ошибка")
		return
	}
	if len(restocked) > 0 {
		s.announcer.Announce(fmt.Sprintf("🛒 Магазин пополнен: %d товар(ов) снова в наличии", len(restocked)))
	}
}

// cleanupSessions гасит истёкшие админ-сессии.
func (s *Scheduler) cleanupSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.adminService.CleanupExpiredSessions(ctx)
	if err != nil {
		log.WithError(err).Error("Чистка админ-сессий: ошибка")
		return
	}
	if n > 0 {
		log.WithField("count", n).Info("Истёкшие админ-сессии деактивированы")
	}
}
