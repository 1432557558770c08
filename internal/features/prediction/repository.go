// Package prediction — repository.go выполняет операции с таблицей predictions.
// Ставка — транзакция БД: строка прогноза блокируется FOR UPDATE, монеты
// списываются условным UPDATE, и только потом ставка попадает в снапшот.
// Если списание не прошло — откат, в снапшоте ничего не остаётся.
package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"discord-bot/internal/common"
	"discord-bot/internal/features/economy"
)

// Repository работает с таблицей predictions.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий прогнозов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create создаёт прогноз с пустыми пулами и возвращает его ID.
func (r *Repository) Create(ctx context.Context, title, option1, option2 string, endTS time.Time) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO predictions (title, option1, option2, bets, locked, end_ts)
		VALUES ($1, $2, $3, '{"1":{},"2":{}}', FALSE, $4)
		RETURNING id
	`, title, option1, option2, endTS).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания прогноза: %w", err)
	}
	return id, nil
}

// GetByID возвращает снапшот прогноза.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Prediction, error) {
	var (
		p   Prediction
		raw []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, title, option1, option2, bets, locked, end_ts, created_at
		FROM predictions WHERE id = $1
	`, id).Scan(&p.ID, &p.Title, &p.Option1, &p.Option2, &raw, &p.Locked, &p.EndTS, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения прогноза: %w", err)
	}
	if err := json.Unmarshal(raw, &p.Bets); err != nil {
		return nil, fmt.Errorf("ошибка разбора ставок: %w", err)
	}
	return &p, nil
}

// List возвращает все нерассчитанные прогнозы (снапшоты перечитываются
// при старте процесса и для витрины).
func (r *Repository) List(ctx context.Context) ([]*Prediction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, title, option1, option2, bets, locked, end_ts, created_at
		FROM predictions ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения прогнозов: %w", err)
	}
	defer rows.Close()

	var predictions []*Prediction
	for rows.Next() {
		var (
			p   Prediction
			raw []byte
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Option1, &p.Option2, &raw, &p.Locked, &p.EndTS, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования прогноза: %w", err)
		}
		if err := json.Unmarshal(raw, &p.Bets); err != nil {
			return nil, fmt.Errorf("ошибка разбора ставок: %w", err)
		}
		predictions = append(predictions, &p)
	}
	return predictions, nil
}

// Stake атомарно принимает ставку: блокировка снапшота, условное списание
// монет, обновление пулов — один коммит.
func (r *Repository) Stake(ctx context.Context, predictionID int64, userID string, side int, amount int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Блокируем снапшот — одновременные ставки на один прогноз
	// выстраиваются в очередь, ставки на разные прогнозы не мешают друг другу
	var (
		locked bool
		endTS  time.Time
		raw    []byte
	)
	err = tx.QueryRow(ctx, `
		SELECT locked, end_ts, bets FROM predictions WHERE id = $1 FOR UPDATE
	`, predictionID).Scan(&locked, &endTS, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("ошибка чтения прогноза: %w", err)
	}

	// Дедлайн проверяем и здесь: свип мог ещё не добраться до прогноза
	if locked || !time.Now().Before(endTS) {
		return common.ErrPredictionLocked
	}

	var bets Bets
	if err := json.Unmarshal(raw, &bets); err != nil {
		return fmt.Errorf("ошибка разбора ставок: %w", err)
	}

	// Эксклюзивность стороны: на другой исход ставить нельзя,
	// на тот же — суммируется
	other := sideKey(Side1 + Side2 - side)
	if _, hasOther := bets[other][userID]; hasOther {
		return common.ErrWrongSide
	}

	// Списываем монеты; на нехватке откатываемся, ставка не записывается
	ok, err := economy.DebitInTx(ctx, tx, userID, amount)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrInsufficientFunds
	}
	if err := economy.RecordTxInTx(ctx, tx, &userID, nil, amount,
		economy.TxTypePredictionStake, fmt.Sprintf("Ставка на прогноз #%d", predictionID)); err != nil {
		return err
	}

	key := sideKey(side)
	if bets[key] == nil {
		bets[key] = make(map[string]int64)
	}
	bets[key][userID] += amount

	updated, err := json.Marshal(bets)
	if err != nil {
		return fmt.Errorf("ошибка сериализации ставок: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE predictions SET bets = $2 WHERE id = $1
	`, predictionID, updated); err != nil {
		return fmt.Errorf("ошибка обновления прогноза: %w", err)
	}

	return tx.Commit(ctx)
}

// Lock блокирует приём ставок. Одноходовая операция: повторный вызов
// возвращает false без изменений.
func (r *Repository) Lock(ctx context.Context, predictionID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE predictions SET locked = TRUE WHERE id = $1 AND NOT locked
	`, predictionID)
	if err != nil {
		return false, fmt.Errorf("ошибка блокировки прогноза: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Либо прогноза нет, либо уже заблокирован
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM predictions WHERE id = $1)`, predictionID,
		).Scan(&exists); err != nil {
			return false, fmt.Errorf("ошибка проверки прогноза: %w", err)
		}
		if !exists {
			return false, common.ErrNotFound
		}
		return false, nil
	}
	return true, nil
}

// LockExpired блокирует все прогнозы с истёкшим дедлайном.
// Возвращает ID заблокированных — по ним планировщик шлёт объявления.
func (r *Repository) LockExpired(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE predictions SET locked = TRUE
		WHERE NOT locked AND end_ts <= NOW()
		RETURNING id
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка блокировки прогнозов: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Resolve рассчитывает прогноз: каждому победителю возвращается его ставка
// плюс floor(ставка * проигравший_пул / пул_победителей), всё одной
// транзакцией. Снапшот после расчёта удаляется, поэтому рассчитать прогноз
// дважды нельзя. Проигравшие ничего не получают — их пул уже списан при
// ставке и уходит победителям.
//
// Если на победившей стороне никого нет, выплаты не начисляются и
// проигравший пул никому не возвращается.
func (r *Repository) Resolve(ctx context.Context, predictionID int64, winningSide int) (*ResolveResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var raw []byte
	err = tx.QueryRow(ctx, `
		SELECT bets FROM predictions WHERE id = $1 FOR UPDATE
	`, predictionID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения прогноза: %w", err)
	}

	var bets Bets
	if err := json.Unmarshal(raw, &bets); err != nil {
		return nil, fmt.Errorf("ошибка разбора ставок: %w", err)
	}

	res := Settle(bets, winningSide)
	for _, p := range res.Payouts {
		userID := p.UserID
		if err := economy.CreditInTx(ctx, tx, userID, p.Amount); err != nil {
			return nil, err
		}
		if err := economy.RecordTxInTx(ctx, tx, nil, &userID, p.Amount,
			economy.TxTypePredictionPayout, fmt.Sprintf("Выплата по прогнозу #%d", predictionID)); err != nil {
			return nil, err
		}
	}

	// Архивируем: снапшот удаляется тем же коммитом, что и выплаты
	if _, err := tx.Exec(ctx, `DELETE FROM predictions WHERE id = $1`, predictionID); err != nil {
		return nil, fmt.Errorf("ошибка архивации прогноза: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return res, nil
}
