// Package shop управляет магазином: складские остатки, покупки, возвраты.
// models.go описывает структуры товаров и журнала покупок.
package shop

import "time"

// InventoryItem — складская запись товара.
// Товар без записи считается неотслеживаемым (безлимитным) — это соглашение,
// на которое опирается Consume.
type InventoryItem struct {
	ItemID      string     `db:"item_id"`      // Идентификатор товара (из каталога команд)
	Quantity    int64      `db:"quantity"`     // Остаток, не уходит в минус
	MaxQuantity *int64     `db:"max_quantity"` // Потолок склада (nil = без потолка)
	AutoRestock bool       `db:"auto_restock"` // Участвует ли в ежедневном пополнении
	// Размер пополнения — справочное поле: ежедневный свип всегда
	// заливает до max_quantity, а не добавляет restock_amount.
	RestockAmount int64      `db:"restock_amount"`
	LastRestock   *time.Time `db:"last_restock"` // Когда пополняли в последний раз
	CreatedAt     time.Time  `db:"created_at"`
}

// Purchase — одна запись журнала покупок (append-only).
type Purchase struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`    // Покупатель
	ItemID    string    `db:"item_id"`    // Что купил
	Qty       int64     `db:"qty"`        // Сколько штук
	PricePaid int64     `db:"price_paid"` // Сумма целиком (за все штуки)
	CreatedAt time.Time `db:"created_at"`
}
