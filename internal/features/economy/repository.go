// Package economy — repository.go выполняет все операции с таблицами balances и transactions.
// Это ЕДИНСТВЕННОЕ место в проекте, где изменяются балансы: аукцион, прогнозы
// и магазин выполняют движения денег через CreditInTx/DebitInTx внутри своих
// транзакций БД, поэтому путь кода для каждой операции ровно один.
//
// Списание всегда выполняется одним условным UPDATE (balance >= сумма),
// а не чтением с последующей записью — на этом держится вся защита
// от двойной траты при параллельных запросах.
package economy

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"discord-bot/internal/common"
)

// Repository предоставляет методы для работы с балансами и транзакциями.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий экономики.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreditInTx начисляет монеты внутри уже открытой транзакции БД.
// Используется аукционом (возврат перебитой ставки), прогнозами (выплаты)
// и магазином (возвраты), чтобы движение денег фиксировалось атомарно
// вместе с изменением их собственных таблиц.
func CreditInTx(ctx context.Context, tx pgx.Tx, userID string, amount int64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE balances
		SET balance = balance + $2, total_earned = total_earned + $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("ошибка начисления: %w", err)
	}
	// Начисление на несуществующий счёт — ошибка, а не тихая потеря:
	// выплата или возврат без строки balances должны откатить транзакцию
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("начисление пользователю %s: %w", userID, common.ErrNotFound)
	}
	return nil
}

// DebitInTx списывает монеты внутри уже открытой транзакции БД.
// Возвращает false, если на счёте не хватает монет — условие проверяется
// прямо в UPDATE, результат определяется числом затронутых строк.
func DebitInTx(ctx context.Context, tx pgx.Tx, userID string, amount int64) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE balances
		SET balance = balance - $2, total_spent = total_spent + $2, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2
	`, userID, amount)
	if err != nil {
		return false, fmt.Errorf("ошибка списания: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RecordTxInTx записывает строку в историю транзакций внутри открытой транзакции.
func RecordTxInTx(ctx context.Context, tx pgx.Tx, from, to *string, amount int64, txType, description string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transactions (from_user_id, to_user_id, amount, transaction_type, description)
		VALUES ($1, $2, $3, $4, $5)
	`, from, to, amount, txType, description)
	if err != nil {
		return fmt.Errorf("ошибка записи транзакции: %w", err)
	}
	return nil
}

// EnsureBalance гарантирует, что у пользователя есть запись баланса.
// Если нет — создаёт со стартовым балансом. Повторные вызовы ничего не меняют.
func (r *Repository) EnsureBalance(ctx context.Context, userID string, startingBalance int64) error {
	query := `
		INSERT INTO balances (user_id, balance, total_earned, total_spent)
		VALUES ($1, $2, $2, 0)
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, userID, startingBalance)
	if err != nil {
		return fmt.Errorf("ошибка создания баланса: %w", err)
	}
	return nil
}

// GetBalance возвращает текущий баланс пользователя.
func (r *Repository) GetBalance(ctx context.Context, userID string) (int64, error) {
	query := `SELECT balance FROM balances WHERE user_id = $1`
	var balance int64
	err := r.db.QueryRow(ctx, query, userID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return balance, nil
}

// Credit добавляет монеты на счёт пользователя и возвращает новый баланс.
// Используется для начислений: выплаты прогнозов, возвраты, выдача админом.
//
// Параметры:
//   - userID: кому начислить
//   - amount: сколько (положительное число)
//   - txType: тип транзакции (prediction_payout, admin_give, ...)
//   - description: описание для истории транзакций
func (r *Repository) Credit(ctx context.Context, userID string, amount int64, txType, description string) (int64, error) {
	// Начинаем транзакцию БД, чтобы обновление баланса и запись истории
	// были атомарными (либо оба произойдут, либо ни одного)
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := CreditInTx(ctx, tx, userID, amount); err != nil {
		return 0, err
	}
	if err := RecordTxInTx(ctx, tx, nil, &userID, amount, txType, description); err != nil {
		return 0, err
	}

	var newBalance int64
	err = tx.QueryRow(ctx, `SELECT balance FROM balances WHERE user_id = $1`, userID).Scan(&newBalance)
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения нового баланса: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Debit списывает монеты со счёта пользователя.
// Возвращает false (без ошибки), если монет не хватает — баланс при этом
// не меняется и история не пишется.
func (r *Repository) Debit(ctx context.Context, userID string, amount int64, txType, description string) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	ok, err := DebitInTx(ctx, tx, userID, amount)
	if err != nil {
		return false, err
	}
	if !ok {
		// Недостаточно монет — никаких побочных эффектов
		return false, nil
	}

	if err := RecordTxInTx(ctx, tx, &userID, nil, amount, txType, description); err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

// Transfer переводит монеты от одного пользователя к другому.
// Атомарная операция: либо оба баланса обновятся, либо ни одного.
// Возвращает false, если у отправителя не хватает монет.
func (r *Repository) Transfer(ctx context.Context, fromUserID, toUserID string, amount int64) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Условное списание у отправителя; на нехватке откатываемся без изменений
	ok, err := DebitInTx(ctx, tx, fromUserID, amount)
	if err != nil {
		return false, fmt.Errorf("ошибка списания у отправителя: %w", err)
	}
	if !ok {
		return false, nil
	}

	// Начисляем получателю
	if err := CreditInTx(ctx, tx, toUserID, amount); err != nil {
		return false, fmt.Errorf("ошибка начисления получателю: %w", err)
	}

	// Записываем транзакцию
	if err := RecordTxInTx(ctx, tx, &fromUserID, &toUserID, amount, TxTypeTransfer,
		fmt.Sprintf("Перевод %d монет", amount)); err != nil {
		return false, err
	}

	return true, tx.Commit(ctx)
}

// GetTransactions возвращает последние N транзакций пользователя.
// Включает как входящие, так и исходящие операции.
func (r *Repository) GetTransactions(ctx context.Context, userID string, limit int) ([]*Transaction, error) {
	query := `
		SELECT id, from_user_id, to_user_id, amount, transaction_type, description, created_at
		FROM transactions
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения транзакций: %w", err)
	}
	defer rows.Close()

	var transactions []*Transaction
	for rows.Next() {
		var t Transaction
		err := rows.Scan(
			&t.ID, &t.FromUserID, &t.ToUserID,
			&t.Amount, &t.TransactionType, &t.Description, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования транзакции: %w", err)
		}
		transactions = append(transactions, &t)
	}
	return transactions, nil
}

// GetTotalStats возвращает общую статистику счёта пользователя.
func (r *Repository) GetTotalStats(ctx context.Context, userID string) (*Balance, error) {
	query := `
		SELECT id, user_id, balance, total_earned, total_spent, created_at, updated_at
		FROM balances
		WHERE user_id = $1
	`
	var b Balance
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&b.ID, &b.UserID, &b.Balance, &b.TotalEarned, &b.TotalSpent,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения статистики: %w", err)
	}
	return &b, nil
}
