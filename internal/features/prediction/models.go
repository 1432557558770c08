// Package prediction — тотализатор (пари-мутюэль): два исхода, ставки
// каждого исхода складываются в пулы, проигравший пул делится между
// победителями пропорционально их ставкам.
// models.go описывает снапшот прогноза и итоги расчёта.
package prediction

import "time"

// Стороны прогноза. В снапшоте ключи — строки "1" и "2".
const (
	Side1 = 1
	Side2 = 2
)

// Bets — ставки по сторонам: сторона → (пользователь → сумма).
// Инвариант: пользователь встречается не более чем в одной стороне;
// повторные ставки на ту же сторону суммируются.
type Bets map[string]map[string]int64

// Prediction — снапшот прогноза, целиком хранится строкой таблицы
// predictions (ставки — JSONB) и перечитывается при старте процесса.
type Prediction struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`   // Вопрос прогноза
	Option1   string    `db:"option1"` // Подпись исхода 1
	Option2   string    `db:"option2"` // Подпись исхода 2
	Bets      Bets      `db:"bets"`
	Locked    bool      `db:"locked"` // Одноходовый флаг: false → true
	EndTS     time.Time `db:"end_ts"` // Дедлайн приёма ставок
	CreatedAt time.Time `db:"created_at"`
}

// SideTotal возвращает сумму пула стороны.
func (p *Prediction) SideTotal(side int) int64 {
	var total int64
	for _, amount := range p.Bets[sideKey(side)] {
		total += amount
	}
	return total
}

// Payout — выплата одному победителю: его ставка плюс доля
// проигравшего пула.
type Payout struct {
	UserID string
	Stake  int64
	Amount int64
}

// ResolveResult — итог расчёта прогноза.
type ResolveResult struct {
	WinningSide int
	WinTotal    int64 // Пул победившей стороны
	LosePool    int64 // Пул проигравшей стороны, распределён между победителями
	Payouts     []Payout
}

// Settle рассчитывает выплаты победившей стороне: каждому — его ставка
// плюс floor(ставка × проигравший_пул / пул_победителей). Если на
// победившей стороне пусто, выплат нет и проигравший пул не трогается.
func Settle(bets Bets, winningSide int) *ResolveResult {
	winners := bets[sideKey(winningSide)]
	losers := bets[sideKey(Side1+Side2-winningSide)]

	var winTotal, losePool int64
	for _, s := range winners {
		winTotal += s
	}
	for _, s := range losers {
		losePool += s
	}

	res := &ResolveResult{WinningSide: winningSide, WinTotal: winTotal, LosePool: losePool}
	if winTotal == 0 {
		return res
	}

	for userID, stake := range winners {
		// Целочисленное деление положительных чисел и есть floor
		payout := stake + stake*losePool/winTotal
		res.Payouts = append(res.Payouts, Payout{UserID: userID, Stake: stake, Amount: payout})
	}
	return res
}

func sideKey(side int) string {
	if side == Side1 {
		return "1"
	}
	return "2"
}
