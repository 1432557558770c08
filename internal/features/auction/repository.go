// Package auction — repository.go выполняет операции с таблицами auctions,
// auction_history и auction_winners.
//
// Ставка — самое чувствительное место всей экономики: возврат перебитому
// лидеру, удержание у нового, обновление лота и строка истории фиксируются
// ОДНИМ коммитом. Строка лота блокируется FOR UPDATE — это точка
// линеаризации: из двух одновременных ставок вторая увидит уже обновлённый
// current_bid и получит отказ «ставка не выше текущей», а не перезапишет
// чужую.
package auction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"discord-bot/internal/common"
	"discord-bot/internal/features/economy"
)

// Repository работает с таблицами аукциона.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий аукциона.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create выставляет новый лот и возвращает его ID.
func (r *Repository) Create(ctx context.Context, a *Auction) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO auctions (item_name, description, starting_bid, current_bid,
		                      end_time, active, creator, channel_id, message_id)
		VALUES ($1, $2, $3, $3, $4, TRUE, $5, $6, $7)
		RETURNING id
	`, a.ItemName, a.Description, a.StartingBid, a.EndTime, a.Creator, a.ChannelID, a.MessageID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания лота: %w", err)
	}
	return id, nil
}

// GetByID возвращает лот по ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Auction, error) {
	var a Auction
	err := r.db.QueryRow(ctx, `
		SELECT id, item_name, description, starting_bid, current_bid, current_bidder,
		       end_time, active, creator, channel_id, message_id, created_at
		FROM auctions WHERE id = $1
	`, id).Scan(&a.ID, &a.ItemName, &a.Description, &a.StartingBid, &a.CurrentBid,
		&a.CurrentBidder, &a.EndTime, &a.Active, &a.Creator, &a.ChannelID, &a.MessageID, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения лота: %w", err)
	}
	return &a, nil
}

// ListActive возвращает активные лоты (для витрины аукциона).
func (r *Repository) ListActive(ctx context.Context) ([]*Auction, error) {
	return r.list(ctx, `
		SELECT id, item_name, description, starting_bid, current_bid, current_bidder,
		       end_time, active, creator, channel_id, message_id, created_at
		FROM auctions WHERE active ORDER BY end_time
	`)
}

// GetExpired возвращает активные лоты с истёкшим временем.
// По этому списку планировщик закрывает аукционы.
func (r *Repository) GetExpired(ctx context.Context) ([]*Auction, error) {
	return r.list(ctx, `
		SELECT id, item_name, description, starting_bid, current_bid, current_bidder,
		       end_time, active, creator, channel_id, message_id, created_at
		FROM auctions WHERE active AND end_time <= NOW() ORDER BY end_time
	`)
}

func (r *Repository) list(ctx context.Context, query string) ([]*Auction, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения лотов: %w", err)
	}
	defer rows.Close()

	var auctions []*Auction
	for rows.Next() {
		var a Auction
		if err := rows.Scan(&a.ID, &a.ItemName, &a.Description, &a.StartingBid, &a.CurrentBid,
			&a.CurrentBidder, &a.EndTime, &a.Active, &a.Creator, &a.ChannelID, &a.MessageID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования лота: %w", err)
		}
		auctions = append(auctions, &a)
	}
	return auctions, nil
}

// PlaceBid атомарно принимает ставку: возврат прежнему лидеру, удержание
// у нового, обновление лота и строка истории — один коммит.
// Все условия перепроверяются под блокировкой строки лота: проверка
// в сервисе до вызова — только для порядка сообщений об ошибках,
// авторитетна проверка здесь.
func (r *Repository) PlaceBid(ctx context.Context, auctionID int64, bidder string, amount int64, winSince time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Точка линеаризации: строка лота под замком до конца транзакции
	var (
		active     bool
		endTime    time.Time
		currentBid int64
		leader     *string
	)
	err = tx.QueryRow(ctx, `
		SELECT active, end_time, current_bid, current_bidder
		FROM auctions WHERE id = $1
		FOR UPDATE
	`, auctionID).Scan(&active, &endTime, &currentBid, &leader)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("ошибка чтения лота: %w", err)
	}

	if !active || !time.Now().Before(endTime) {
		return common.ErrAuctionClosed
	}
	if amount <= currentBid {
		// Сюда же попадает проигравший одновременную гонку:
		// он видит уже обновлённый current_bid
		return common.ErrBidTooLow
	}

	// Кулдаун перепроверяется здесь же: победа могла записаться
	// между проверкой в сервисе и этой транзакцией
	var onCooldown bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM auction_winners WHERE user_id = $1 AND created_at > $2)
	`, bidder, winSince).Scan(&onCooldown); err != nil {
		return fmt.Errorf("ошибка проверки кулдауна: %w", err)
	}
	if onCooldown {
		return common.ErrBidCooldown
	}

	// Возвращаем монеты перебитому лидеру
	if leader != nil {
		if err := economy.CreditInTx(ctx, tx, *leader, currentBid); err != nil {
			return err
		}
		if err := economy.RecordTxInTx(ctx, tx, nil, leader, currentBid,
			economy.TxTypeAuctionRefund, fmt.Sprintf("Возврат ставки (лот #%d)", auctionID)); err != nil {
			return err
		}
	}

	// Удерживаем монеты у нового лидера (условное списание)
	ok, err := economy.DebitInTx(ctx, tx, bidder, amount)
	if err != nil {
		return err
	}
	if !ok {
		// Откат вернёт и возврат лидеру — лот остаётся как был
		return common.ErrInsufficientFunds
	}
	if err := economy.RecordTxInTx(ctx, tx, &bidder, nil, amount,
		economy.TxTypeAuctionBid, fmt.Sprintf("Ставка на лот #%d", auctionID)); err != nil {
		return err
	}

	// Обновляем лот и пишем историю
	if _, err := tx.Exec(ctx, `
		UPDATE auctions SET current_bid = $2, current_bidder = $3 WHERE id = $1
	`, auctionID, amount, bidder); err != nil {
		return fmt.Errorf("ошибка обновления лота: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO auction_history (auction_id, user_id, amount) VALUES ($1, $2, $3)
	`, auctionID, bidder, amount); err != nil {
		return fmt.Errorf("ошибка записи истории ставок: %w", err)
	}

	return tx.Commit(ctx)
}

// End закрывает лот. Идемпотентна: условный UPDATE ... WHERE active
// гарантирует, что побочные эффекты (запись победителя) случатся ровно
// один раз — повторный вызов вернёт Ended=false без изменений.
func (r *Repository) End(ctx context.Context, auctionID int64) (*EndResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		winner *string
		bid    int64
	)
	err = tx.QueryRow(ctx, `
		UPDATE auctions SET active = FALSE
		WHERE id = $1 AND active
		RETURNING current_bidder, current_bid
	`, auctionID).Scan(&winner, &bid)
	if errors.Is(err, pgx.ErrNoRows) {
		// Либо лота нет, либо он уже закрыт
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM auctions WHERE id = $1)`, auctionID,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("ошибка проверки лота: %w", err)
		}
		if !exists {
			return nil, common.ErrNotFound
		}
		return &EndResult{Ended: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка закрытия лота: %w", err)
	}

	// Запись победителя — от неё считается кулдаун
	if winner != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO auction_winners (user_id, auction_id, amount) VALUES ($1, $2, $3)
		`, *winner, auctionID, bid); err != nil {
			return nil, fmt.Errorf("ошибка записи победителя: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	res := &EndResult{Ended: true, WinnerID: winner}
	if winner != nil {
		res.WinningBid = bid
	}
	return res, nil
}

// HasRecentWin проверяет, побеждал ли пользователь после указанного времени.
func (r *Repository) HasRecentWin(ctx context.Context, userID string, since time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM auction_winners WHERE user_id = $1 AND created_at > $2)
	`, userID, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки кулдауна: %w", err)
	}
	return exists, nil
}

// BidHistory возвращает историю ставок лота (свежие сверху).
func (r *Repository) BidHistory(ctx context.Context, auctionID int64, limit int) ([]*Bid, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, auction_id, user_id, amount, created_at
		FROM auction_history
		WHERE auction_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, auctionID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения истории ставок: %w", err)
	}
	defer rows.Close()

	var bids []*Bid
	for rows.Next() {
		var b Bid
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.UserID, &b.Amount, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования ставки: %w", err)
		}
		bids = append(bids, &b)
	}
	return bids, nil
}
