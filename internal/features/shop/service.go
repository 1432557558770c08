// Package shop — service.go содержит бизнес-логику магазина:
// валидация, покупка, возврат, админские операции со складом.
package shop

import (
	"context"

	log "github.com/sirupsen/logrus"

	"discord-bot/internal/common"
)

// Store — интерфейс хранилища магазина. Реализуется Repository (PostgreSQL).
// Purchase и Refund атомарны целиком: остаток, балансы и касса меняются
// одним коммитом или не меняются вовсе.
type Store interface {
	Initialize(ctx context.Context, item string, qty int64, maxQty *int64, autoRestock bool, restockAmount int64) error
	GetQuantity(ctx context.Context, item string) (int64, bool, error)
	GetItem(ctx context.Context, item string) (*InventoryItem, error)
	ListItems(ctx context.Context) ([]*InventoryItem, error)
	Consume(ctx context.Context, item string, qty int64) error
	AddStock(ctx context.Context, item string, qty int64) error
	SetStock(ctx context.Context, item string, qty int64) error
	AutoRestockSweep(ctx context.Context) ([]string, error)
	RecordPurchase(ctx context.Context, userID, item string, qty, pricePaid int64) error
	Purchase(ctx context.Context, userID, item string, qty, unitPrice int64) error
	Refund(ctx context.Context, userID, item string, qty, amount int64) error
	PurchaseHistory(ctx context.Context, userID, item string, limit int) ([]*Purchase, error)
}

// Service управляет магазином.
type Service struct {
	store Store
}

// NewService создаёт сервис магазина.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Initialize регистрирует товар на складе (админская операция).
func (s *Service) Initialize(ctx context.Context, item string, qty int64, maxQty *int64, autoRestock bool, restockAmount int64) error {
	if item == "" || qty < 0 || restockAmount < 0 {
		return common.ErrInvalidAmount
	}
	if maxQty != nil && (*maxQty < 0 || qty > *maxQty) {
		return common.ErrInvalidAmount
	}
	return s.store.Initialize(ctx, item, qty, maxQty, autoRestock, restockAmount)
}

// GetQuantity возвращает остаток товара и признак отслеживаемости.
func (s *Service) GetQuantity(ctx context.Context, item string) (int64, bool, error) {
	return s.store.GetQuantity(ctx, item)
}

// ListItems возвращает витрину магазина.
func (s *Service) ListItems(ctx context.Context) ([]*InventoryItem, error) {
	return s.store.ListItems(ctx)
}

// Purchase выполняет покупку: qty штук по unitPrice за штуку.
// Возможные отказы: ErrOutOfStock, ErrInsufficientFunds — в обоих случаях
// ни остаток, ни балансы не меняются.
func (s *Service) Purchase(ctx context.Context, userID, item string, qty, unitPrice int64) error {
	if qty <= 0 || unitPrice <= 0 {
		return common.ErrInvalidAmount
	}
	// qty приходит от пользователя: произведение обязано помещаться
	// в int64, иначе списание завернётся
	total := qty * unitPrice
	if total/qty != unitPrice {
		return common.ErrInvalidAmount
	}

	if err := s.store.Purchase(ctx, userID, item, qty, unitPrice); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"item":    item,
		"qty":     qty,
		"total":   total,
	}).Info("Покупка совершена")
	return nil
}

// Refund возвращает покупку за счёт кассы магазина.
func (s *Service) Refund(ctx context.Context, userID string, p *Purchase) error {
	if p == nil || p.PricePaid <= 0 {
		return common.ErrInvalidAmount
	}
	if err := s.store.Refund(ctx, userID, p.ItemID, p.Qty, p.PricePaid); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"user_id": userID,
		"item":    p.ItemID,
		"amount":  p.PricePaid,
	}).Info("Возврат выполнен")
	return nil
}

// AddStock добавляет остаток (не выше потолка), SetStock выставляет напрямую.
func (s *Service) AddStock(ctx context.Context, item string, qty int64) error {
	if qty <= 0 {
		return common.ErrInvalidAmount
	}
	return s.store.AddStock(ctx, item, qty)
}

// SetStock выставляет остаток напрямую (админская операция).
func (s *Service) SetStock(ctx context.Context, item string, qty int64) error {
	if qty < 0 {
		return common.ErrInvalidAmount
	}
	return s.store.SetStock(ctx, item, qty)
}

// AutoRestockSweep заливает товары с потолком до максимума.
// Вызывается планировщиком раз в сутки.
func (s *Service) AutoRestockSweep(ctx context.Context) ([]string, error) {
	restocked, err := s.store.AutoRestockSweep(ctx)
	if err != nil {
		return nil, err
	}
	if len(restocked) > 0 {
		log.WithField("items", restocked).Info("Склад пополнен")
	}
	return restocked, nil
}

// PurchaseHistory возвращает журнал покупок; пустые фильтры игнорируются.
func (s *Service) PurchaseHistory(ctx context.Context, userID, item string, limit int) ([]*Purchase, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.PurchaseHistory(ctx, userID, item, limit)
}
