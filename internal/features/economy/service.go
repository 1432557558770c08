// Package economy — service.go содержит бизнес-логику экономики.
// Валидация сумм, переводы, получение баланса и истории транзакций.
package economy

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"discord-bot/internal/common"
	"discord-bot/internal/config"
)

// Store — интерфейс хранилища балансов. Реализуется Repository (PostgreSQL);
// сервис не знает, где лежат данные. Каждый метод атомарен сам по себе:
// условия проверяются внутри хранилища, а не чтением с последующей записью.
type Store interface {
	EnsureBalance(ctx context.Context, userID string, startingBalance int64) error
	GetBalance(ctx context.Context, userID string) (int64, error)
	Credit(ctx context.Context, userID string, amount int64, txType, description string) (int64, error)
	Debit(ctx context.Context, userID string, amount int64, txType, description string) (bool, error)
	Transfer(ctx context.Context, fromUserID, toUserID string, amount int64) (bool, error)
	GetTransactions(ctx context.Context, userID string, limit int) ([]*Transaction, error)
}

// Service управляет экономикой бота (монеты).
type Service struct {
	store Store
	cfg   *config.Config
}

// NewService создаёт новый сервис экономики.
func NewService(store Store, cfg *config.Config) *Service {
	return &Service{store: store, cfg: cfg}
}

// Ensure гарантирует наличие счёта у пользователя.
// Новый счёт получает стартовый баланс из конфига. Идемпотентна.
func (s *Service) Ensure(ctx context.Context, userID string) error {
	if userID == "" {
		return common.ErrNotFound
	}
	return s.store.EnsureBalance(ctx, userID, s.cfg.EconomyStartingBalance)
}

// GetBalance возвращает текущий баланс пользователя.
func (s *Service) GetBalance(ctx context.Context, userID string) (int64, error) {
	return s.store.GetBalance(ctx, userID)
}

// Credit начисляет монеты пользователю и возвращает новый баланс.
// Используется для выплат прогнозов, возвратов и выдачи админом.
func (s *Service) Credit(ctx context.Context, userID string, amount int64, txType, description string) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}
	return s.store.Credit(ctx, userID, amount, txType, description)
}

// Debit списывает монеты.
// Возвращает ErrInsufficientFunds, если на счёте не хватает — баланс
// при этом остаётся нетронутым.
func (s *Service) Debit(ctx context.Context, userID string, amount int64, txType, description string) error {
	if amount <= 0 {
		return common.ErrInvalidAmount
	}
	ok, err := s.store.Debit(ctx, userID, amount, txType, description)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrInsufficientFunds
	}
	return nil
}

// Transfer переводит монеты от одного пользователя к другому.
// Выполняет все необходимые проверки:
//   - Нельзя переводить себе
//   - Сумма должна быть положительной
//   - У отправителя должно быть достаточно монет
func (s *Service) Transfer(ctx context.Context, fromUserID, toUserID string, amount int64) error {
	// Проверка: нельзя отправить себе
	if fromUserID == toUserID {
		return common.ErrSelfTransfer
	}

	// Проверка: сумма должна быть положительной
	if amount <= 0 {
		return common.ErrInvalidAmount
	}

	// Выполняем перевод (проверка баланса внутри хранилища)
	ok, err := s.store.Transfer(ctx, fromUserID, toUserID, amount)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrInsufficientFunds
	}

	log.WithFields(log.Fields{
		"from":   fromUserID,
		"to":     toUserID,
		"amount": amount,
	}).Info("Перевод выполнен")

	return nil
}

// GetTransactionHistory возвращает форматированную историю транзакций.
// Последние 10 транзакций. Если больше 5 — оборачивает хвост в спойлер.
func (s *Service) GetTransactionHistory(ctx context.Context, userID string) (string, error) {
	transactions, err := s.store.GetTransactions(ctx, userID, 10)
	if err != nil {
		return "", err
	}

	if len(transactions) == 0 {
		return "📋 У вас пока нет транзакций", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 Последние %d транзакций:\n\n", len(transactions)))

	// Формируем строки транзакций
	var lines []string
	for i, tx := range transactions {
		// Определяем знак: + если получили, - если отправили
		sign := "+"
		if tx.FromUserID != nil && *tx.FromUserID == userID {
			sign = "-"
		}

		line := fmt.Sprintf("%d. %s | %s%d %s | %s",
			i+1,
			common.FormatDateTime(tx.CreatedAt),
			sign,
			tx.Amount,
			common.PluralizeCoins(tx.Amount),
			tx.Description,
		)
		lines = append(lines, line)
	}

	// Если больше 5 — оборачиваем хвост в спойлер (||текст||)
	if len(lines) > 5 {
		for _, line := range lines[:5] {
			sb.WriteString(line + "\n")
		}
		sb.WriteString("\n||")
		for _, line := range lines[5:] {
			sb.WriteString(line + "\n")
		}
		sb.WriteString("||")
	} else {
		for _, line := range lines {
			sb.WriteString(line + "\n")
		}
	}

	return sb.String(), nil
}
