// Package bank — service.go: тонкая бизнес-логика над кассой.
package bank

import (
	"context"

	log "github.com/sirupsen/logrus"

	"discord-bot/internal/common"
)

// Store — интерфейс хранилища кассы. Реализуется Repository (PostgreSQL).
type Store interface {
	Deposit(ctx context.Context, amount int64) error
	Withdraw(ctx context.Context, amount int64) (bool, error)
	Snapshot(ctx context.Context) (*Bank, error)
}

// Service управляет кассой магазина.
type Service struct {
	store Store
}

// NewService создаёт сервис кассы.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Deposit зачисляет выручку в кассу.
func (s *Service) Deposit(ctx context.Context, amount int64, memo string) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	if err := s.store.Deposit(ctx, amount); err != nil {
		return err
	}
	log.WithFields(log.Fields{"amount": amount, "memo": memo}).Debug("Касса пополнена")
	return nil
}

// Withdraw снимает из кассы (финансирование возвратов).
// Возвращает ErrBankEmpty, если средств не хватает — касса не меняется.
func (s *Service) Withdraw(ctx context.Context, amount int64, memo string) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	ok, err := s.store.Withdraw(ctx, amount)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrBankEmpty
	}
	log.WithFields(log.Fields{"amount": amount, "memo": memo}).Info("Снятие из кассы")
	return nil
}

// Snapshot возвращает состояние кассы для админ-отчёта.
func (s *Service) Snapshot(ctx context.Context) (*Bank, error) {
	return s.store.Snapshot(ctx)
}
