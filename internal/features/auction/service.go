// Package auction — service.go содержит бизнес-логику аукциона:
// порядок проверок ставки, кулдаун победителя, закрытие лотов.
package auction

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"discord-bot/internal/common"
	"discord-bot/internal/config"
)

// Store — интерфейс хранилища аукциона. Реализуется Repository (PostgreSQL).
// PlaceBid и End атомарны целиком; PlaceBid перепроверяет все условия
// под блокировкой лота.
type Store interface {
	Create(ctx context.Context, a *Auction) (int64, error)
	GetByID(ctx context.Context, id int64) (*Auction, error)
	ListActive(ctx context.Context) ([]*Auction, error)
	GetExpired(ctx context.Context) ([]*Auction, error)
	PlaceBid(ctx context.Context, auctionID int64, bidder string, amount int64, winSince time.Time) error
	End(ctx context.Context, auctionID int64) (*EndResult, error)
	HasRecentWin(ctx context.Context, userID string, since time.Time) (bool, error)
	BidHistory(ctx context.Context, auctionID int64, limit int) ([]*Bid, error)
}

// Service управляет аукционом.
type Service struct {
	store Store
	cfg   *config.Config
}

// NewService создаёт сервис аукциона.
func NewService(store Store, cfg *config.Config) *Service {
	return &Service{store: store, cfg: cfg}
}

// Create выставляет лот. Доступ ограничивается на уровне обработчика
// (только админ); здесь валидируются длины и диапазоны.
func (s *Service) Create(ctx context.Context, itemName, description string, startingBid int64, durationHours int, creator, channelID, messageID string) (int64, error) {
	if itemName == "" || len(itemName) > 255 || len(description) > 2000 {
		return 0, common.ErrInvalidAmount
	}
	if startingBid <= 0 || durationHours <= 0 {
		return 0, common.ErrInvalidAmount
	}

	id, err := s.store.Create(ctx, &Auction{
		ItemName:    itemName,
		Description: description,
		StartingBid: startingBid,
		EndTime:     time.Now().Add(time.Duration(durationHours) * time.Hour),
		Creator:     creator,
		ChannelID:   channelID,
		MessageID:   messageID,
	})
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"auction_id": id,
		"item":       itemName,
		"start_bid":  startingBid,
		"hours":      durationHours,
	}).Info("Лот выставлен")
	return id, nil
}

// PlaceBid принимает ставку. Проверки идут строго по порядку, отказ —
// первая сработавшая: лот существует → лот активен → время не вышло →
// ставка выше текущей → участник не на кулдауне → хватает монет.
// Дедлайн проверяется и здесь, и планировщиком — запоздавший свип
// не открывает окно для ставок в прошлое.
func (s *Service) PlaceBid(ctx context.Context, auctionID int64, bidder string, amount int64) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}

	a, err := s.store.GetByID(ctx, auctionID)
	if err != nil {
		return err // ErrNotFound или ошибка хранилища
	}
	if !a.Active || !time.Now().Before(a.EndTime) {
		return common.ErrAuctionClosed
	}
	if amount <= a.CurrentBid {
		return common.ErrBidTooLow
	}

	// Кулдаун после победы
	since := time.Now().Add(-s.cfg.AuctionWinCooldown)
	onCooldown, err := s.store.HasRecentWin(ctx, bidder, since)
	if err != nil {
		return err
	}
	if onCooldown {
		return common.ErrBidCooldown
	}

	// Авторитетная атомарная часть: хранилище перепроверит условия
	// (включая кулдаун) под блокировкой и вернёт точную причину отказа
	if err := s.store.PlaceBid(ctx, auctionID, bidder, amount, since); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"auction_id": auctionID,
		"bidder":     bidder,
		"amount":     amount,
	}).Info("Ставка принята")
	return nil
}

// End закрывает лот (вручную админом или планировщиком).
// Повторное закрытие — Ended=false без побочных эффектов.
func (s *Service) End(ctx context.Context, auctionID int64) (*EndResult, error) {
	res, err := s.store.End(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if res.Ended {
		fields := log.Fields{"auction_id": auctionID}
		if res.WinnerID != nil {
			fields["winner"] = *res.WinnerID
			fields["amount"] = res.WinningBid
		}
		log.WithFields(fields).Info("Лот закрыт")
	}
	return res, nil
}

// WinCooldown возвращает длительность паузы после победы.
func (s *Service) WinCooldown() time.Duration {
	return s.cfg.AuctionWinCooldown
}

// GetExpired возвращает просроченные активные лоты для планировщика.
func (s *Service) GetExpired(ctx context.Context) ([]*Auction, error) {
	return s.store.GetExpired(ctx)
}

// ListActive возвращает активные лоты для витрины.
func (s *Service) ListActive(ctx context.Context) ([]*Auction, error) {
	return s.store.ListActive(ctx)
}

// GetByID возвращает лот по ID.
func (s *Service) GetByID(ctx context.Context, id int64) (*Auction, error) {
	return s.store.GetByID(ctx, id)
}

// BidHistory возвращает историю ставок лота.
func (s *Service) BidHistory(ctx context.Context, auctionID int64, limit int) ([]*Bid, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.store.BidHistory(ctx, auctionID, limit)
}
