// Package bank — repository.go выполняет операции с таблицей bank.
// Касса хранится одной строкой; пополнение и снятие — одиночные UPDATE,
// снятие условное (не даёт уйти в минус).
package bank

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицей bank.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий кассы.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// DepositInTx пополняет кассу внутри открытой транзакции БД.
// Используется магазином: выручка зачисляется тем же коммитом,
// что и списание у покупателя.
func DepositInTx(ctx context.Context, tx pgx.Tx, amount int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE bank
		SET balance = balance + $1, total_revenue = total_revenue + $1, last_updated = NOW()
		WHERE id = 1
	`, amount)
	if err != nil {
		return fmt.Errorf("ошибка пополнения кассы: %w", err)
	}
	return nil
}

// WithdrawInTx снимает из кассы внутри открытой транзакции БД.
// Возвращает false, если в кассе не хватает — строка не меняется.
// total_revenue при снятии не трогаем: это счётчик выручки, а не остатка.
func WithdrawInTx(ctx context.Context, tx pgx.Tx, amount int64) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE bank
		SET balance = balance - $1, last_updated = NOW()
		WHERE id = 1 AND balance >= $1
	`, amount)
	if err != nil {
		return false, fmt.Errorf("ошибка снятия из кассы: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Deposit пополняет кассу отдельной операцией.
func (r *Repository) Deposit(ctx context.Context, amount int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := DepositInTx(ctx, tx, amount); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Withdraw снимает из кассы отдельной операцией.
// Возвращает false без ошибки при нехватке средств.
func (r *Repository) Withdraw(ctx context.Context, amount int64) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	ok, err := WithdrawInTx(ctx, tx, amount)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return true, tx.Commit(ctx)
}

// Snapshot возвращает текущее состояние кассы.
func (r *Repository) Snapshot(ctx context.Context) (*Bank, error) {
	var b Bank
	err := r.db.QueryRow(ctx, `
		SELECT balance, total_revenue, last_updated FROM bank WHERE id = 1
	`).Scan(&b.Balance, &b.TotalRevenue, &b.LastUpdated)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения кассы: %w", err)
	}
	return &b, nil
}
