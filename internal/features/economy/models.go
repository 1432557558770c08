// Package economy управляет виртуальной валютой бота (монеты).
// models.go описывает структуры для балансов и транзакций.
package economy

import "time"

// Balance представляет счёт пользователя.
// Каждый участник имеет ровно одну запись в таблице balances.
// Запись создаётся лениво при первом обращении со стартовым балансом.
type Balance struct {
	ID          int64     `db:"id"`           // ID записи
	UserID      string    `db:"user_id"`      // Discord user ID (snowflake)
	Balance     int64     `db:"balance"`      // Текущий баланс, никогда не уходит в минус
	TotalEarned int64     `db:"total_earned"` // Сколько всего заработано
	TotalSpent  int64     `db:"total_spent"`  // Сколько всего потрачено
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Transaction представляет одну операцию с монетами.
// Все движения монет (переводы, ставки, покупки, выплаты) записываются сюда.
type Transaction struct {
	ID              int64     `db:"id"`               // ID транзакции
	FromUserID      *string   `db:"from_user_id"`     // Отправитель (nil для системных начислений)
	ToUserID        *string   `db:"to_user_id"`       // Получатель (nil для системных списаний)
	Amount          int64     `db:"amount"`           // Сумма (всегда положительная)
	TransactionType string    `db:"transaction_type"` // Тип: 'transfer', 'auction_bid', и т.д.
	Description     string    `db:"description"`      // Описание для отображения
	CreatedAt       time.Time `db:"created_at"`       // Время транзакции
}

// TransactionTypes — допустимые типы транзакций
const (
	TxTypeTransfer         = "transfer"          // Перевод между пользователями
	TxTypeStartingGrant    = "starting_grant"    // Стартовый баланс нового участника
	TxTypeShopPurchase     = "shop_purchase"     // Покупка в магазине
	TxTypeShopRefund       = "shop_refund"       // Возврат за покупку
	TxTypeAuctionBid       = "auction_bid"       // Ставка на аукционе (эскроу)
	TxTypeAuctionRefund    = "auction_refund"    // Возврат перебитой ставки
	TxTypePredictionStake  = "prediction_stake"  // Ставка на прогноз
	TxTypePredictionPayout = "prediction_payout" // Выплата победителю прогноза
	TxTypeAdminGive        = "admin_give"        // Выдача админом
	TxTypeAdminTake        = "admin_take"        // Изъятие админом
)
