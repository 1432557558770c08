// Package shop — repository.go выполняет операции с таблицами shop_inventory
// и shop_purchases. Списание остатка — условный UPDATE (quantity >= qty);
// покупка целиком (остаток + деньги покупателя + касса + журнал) идёт
// одной транзакцией БД.
package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"discord-bot/internal/common"
	"discord-bot/internal/features/bank"
	"discord-bot/internal/features/economy"
)

// Repository работает с таблицами магазина.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий магазина.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Initialize регистрирует товар на складе. Повторная регистрация — ошибка.
func (r *Repository) Initialize(ctx context.Context, item string, qty int64, maxQty *int64, autoRestock bool, restockAmount int64) error {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO shop_inventory (item_id, quantity, max_quantity, auto_restock, restock_amount)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (item_id) DO NOTHING
	`, item, qty, maxQty, autoRestock, restockAmount)
	if err != nil {
		return fmt.Errorf("ошибка регистрации товара: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrItemExists
	}
	return nil
}

// GetQuantity возвращает остаток товара.
// tracked == false означает, что товара нет на складе — по соглашению
// такой товар безлимитный.
func (r *Repository) GetQuantity(ctx context.Context, item string) (int64, bool, error) {
	var qty int64
	err := r.db.QueryRow(ctx, `SELECT quantity FROM shop_inventory WHERE item_id = $1`, item).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("ошибка чтения остатка: %w", err)
	}
	return qty, true, nil
}

// GetItem возвращает складскую запись целиком.
func (r *Repository) GetItem(ctx context.Context, item string) (*InventoryItem, error) {
	var it InventoryItem
	err := r.db.QueryRow(ctx, `
		SELECT item_id, quantity, max_quantity, auto_restock, restock_amount, last_restock, created_at
		FROM shop_inventory WHERE item_id = $1
	`, item).Scan(&it.ItemID, &it.Quantity, &it.MaxQuantity, &it.AutoRestock,
		&it.RestockAmount, &it.LastRestock, &it.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения товара: %w", err)
	}
	return &it, nil
}

// ListItems возвращает все товары склада для витрины.
func (r *Repository) ListItems(ctx context.Context) ([]*InventoryItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT item_id, quantity, max_quantity, auto_restock, restock_amount, last_restock, created_at
		FROM shop_inventory ORDER BY item_id
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения склада: %w", err)
	}
	defer rows.Close()

	var items []*InventoryItem
	for rows.Next() {
		var it InventoryItem
		if err := rows.Scan(&it.ItemID, &it.Quantity, &it.MaxQuantity, &it.AutoRestock,
			&it.RestockAmount, &it.LastRestock, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования товара: %w", err)
		}
		items = append(items, &it)
	}
	return items, nil
}

// consumeInTx списывает qty штук внутри открытой транзакции.
// Возврат false = товар отслеживается, но остатка не хватает.
// Неотслеживаемый товар (нет записи) всегда списывается успешно.
func consumeInTx(ctx context.Context, tx pgx.Tx, item string, qty int64) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE shop_inventory
		SET quantity = quantity - $2
		WHERE item_id = $1 AND quantity >= $2
	`, item, qty)
	if err != nil {
		return false, fmt.Errorf("ошибка списания остатка: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// UPDATE никого не задел: либо товара нет на складе (безлимит),
	// либо остатка не хватает
	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM shop_inventory WHERE item_id = $1)`, item,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки товара: %w", err)
	}
	return !exists, nil
}

// Consume списывает qty штук отдельной операцией (вне покупки).
// Возвращает common.ErrOutOfStock при нехватке, остаток не меняется.
func (r *Repository) Consume(ctx context.Context, item string, qty int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	ok, err := consumeInTx(ctx, tx, item, qty)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrOutOfStock
	}
	return tx.Commit(ctx)
}

// AddStock добавляет qty штук, не превышая max_quantity (если задан).
func (r *Repository) AddStock(ctx context.Context, item string, qty int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE shop_inventory
		SET quantity = LEAST(quantity + $2, COALESCE(max_quantity, quantity + $2))
		WHERE item_id = $1
	`, item, qty)
	if err != nil {
		return fmt.Errorf("ошибка пополнения: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// SetStock выставляет остаток напрямую (админская операция).
func (r *Repository) SetStock(ctx context.Context, item string, qty int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE shop_inventory SET quantity = $2 WHERE item_id = $1
	`, item, qty)
	if err != nil {
		return fmt.Errorf("ошибка установки остатка: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

// AutoRestockSweep заливает каждый товар с потолком до max_quantity.
// Товары без потолка и товары на максимуме не трогаются.
// Возвращает список пополненных товаров.
func (r *Repository) AutoRestockSweep(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE shop_inventory
		SET quantity = max_quantity, last_restock = NOW()
		WHERE max_quantity IS NOT NULL AND quantity < max_quantity
		RETURNING item_id
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка пополнения склада: %w", err)
	}
	defer rows.Close()

	var restocked []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования: %w", err)
		}
		restocked = append(restocked, id)
	}
	return restocked, nil
}

// RecordPurchase пишет строку в журнал покупок (вне транзакции покупки —
// для начислений товара админом и прочих ручных случаев).
func (r *Repository) RecordPurchase(ctx context.Context, userID, item string, qty, pricePaid int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO shop_purchases (user_id, item_id, qty, price_paid)
		VALUES ($1, $2, $3, $4)
	`, userID, item, qty, pricePaid)
	if err != nil {
		return fmt.Errorf("ошибка записи покупки: %w", err)
	}
	return nil
}

// Purchase выполняет покупку одной транзакцией БД:
// списание остатка → списание монет у покупателя → выручка в кассу →
// запись в журналы. Любой сбой откатывает всё.
func (r *Repository) Purchase(ctx context.Context, userID, item string, qty, unitPrice int64) error {
	total := qty * unitPrice

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Остаток
	ok, err := consumeInTx(ctx, tx, item, qty)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrOutOfStock
	}

	// 2. Деньги покупателя (условное списание)
	ok, err = economy.DebitInTx(ctx, tx, userID, total)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrInsufficientFunds
	}

	// 3. Выручка в кассу
	if err := bank.DepositInTx(ctx, tx, total); err != nil {
		return err
	}

	// 4. Журналы
	if err := economy.RecordTxInTx(ctx, tx, &userID, nil, total,
		economy.TxTypeShopPurchase, fmt.Sprintf("Покупка %s x%d", item, qty)); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO shop_purchases (user_id, item_id, qty, price_paid)
		VALUES ($1, $2, $3, $4)
	`, userID, item, qty, total); err != nil {
		return fmt.Errorf("ошибка записи покупки: %w", err)
	}

	return tx.Commit(ctx)
}

// Refund возвращает покупку: деньги из кассы обратно покупателю,
// товар — на склад (не выше потолка). Одна транзакция БД.
// Возвращает common.ErrBankEmpty, если в кассе не хватает.
func (r *Repository) Refund(ctx context.Context, userID, item string, qty, amount int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Возврат финансируется кассой; пустая касса — отказ без изменений
	ok, err := bank.WithdrawInTx(ctx, tx, amount)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrBankEmpty
	}

	if err := economy.CreditInTx(ctx, tx, userID, amount); err != nil {
		return err
	}
	if err := economy.RecordTxInTx(ctx, tx, nil, &userID, amount,
		economy.TxTypeShopRefund, fmt.Sprintf("Возврат за %s x%d", item, qty)); err != nil {
		return err
	}

	// Товар обратно на склад (если он отслеживается)
	if _, err := tx.Exec(ctx, `
		UPDATE shop_inventory
		SET quantity = LEAST(quantity + $2, COALESCE(max_quantity, quantity + $2))
		WHERE item_id = $1
	`, item, qty); err != nil {
		return fmt.Errorf("ошибка возврата на склад: %w", err)
	}

	return tx.Commit(ctx)
}

// PurchaseHistory возвращает журнал покупок с необязательными фильтрами
// по покупателю и товару.
func (r *Repository) PurchaseHistory(ctx context.Context, userID, item string, limit int) ([]*Purchase, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, item_id, qty, price_paid, created_at
		FROM shop_purchases
		WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR item_id = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, userID, item, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала покупок: %w", err)
	}
	defer rows.Close()

	var purchases []*Purchase
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.ItemID, &p.Qty, &p.PricePaid, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования покупки: %w", err)
		}
		purchases = append(purchases, &p)
	}
	return purchases, nil
}
