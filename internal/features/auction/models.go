// Package auction — английский аукцион поверх экономики.
// models.go описывает лоты, историю ставок и победителей.
package auction

import "time"

// Auction — один лот. Живёт по схеме Active → Ended, обратного пути нет.
// Пока лот активен, current_bid только растёт, и деньги текущего лидера
// удержаны с его счёта (эскроу): новая ставка сначала возвращает монеты
// перебитому лидеру, затем удерживает у нового.
type Auction struct {
	ID            int64     `db:"id"`
	ItemName      string    `db:"item_name"`      // Название лота
	Description   string    `db:"description"`    // Описание (свободный текст)
	StartingBid   int64     `db:"starting_bid"`   // Начальная цена
	CurrentBid    int64     `db:"current_bid"`    // Текущая максимальная ставка
	CurrentBidder *string   `db:"current_bidder"` // Текущий лидер (nil — ставок не было)
	EndTime       time.Time `db:"end_time"`       // Когда лот закрывается
	Active        bool      `db:"active"`
	Creator       string    `db:"creator"`    // Кто выставил лот (админ)
	ChannelID     string    `db:"channel_id"` // Канал с карточкой лота
	MessageID     string    `db:"message_id"` // Сообщение с карточкой лота
	CreatedAt     time.Time `db:"created_at"`
}

// Bid — строка истории ставок (append-only, по времени).
type Bid struct {
	ID        int64     `db:"id"`
	AuctionID int64     `db:"auction_id"`
	UserID    string    `db:"user_id"`
	Amount    int64     `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
}

// Winner — запись о победе. Именно по этой таблице считается кулдаун:
// победитель не может делать ставки 7 дней с момента записи.
type Winner struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"user_id"`
	AuctionID int64     `db:"auction_id"`
	Amount    int64     `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
}

// EndResult — итог закрытия лота.
type EndResult struct {
	Ended      bool    // false = лот уже был закрыт раньше (повторный вызов)
	WinnerID   *string // nil = ставок не было
	WinningBid int64
}
