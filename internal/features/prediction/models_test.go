package prediction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSideTotal(t *testing.T) {
	p := &Prediction{Bets: Bets{
		"1": {"alice": 100, "bob": 50},
		"2": {"carol": 300},
	}}

	assert.Equal(t, int64(150), p.SideTotal(Side1))
	assert.Equal(t, int64(300), p.SideTotal(Side2))
}

func TestSettle_SingleWinnerTakesLosingPool(t *testing.T) {
	// Алиса ставит 100 на исход 1, Кэрол 300 на исход 2.
	// Побеждает исход 1: Алиса получает 100 + 100*300/100 = 400.
	bets := Bets{
		"1": {"alice": 100},
		"2": {"carol": 300},
	}

	res := Settle(bets, Side1)

	assert.Equal(t, int64(100), res.WinTotal)
	assert.Equal(t, int64(300), res.LosePool)
	require.Len(t, res.Payouts, 1)
	assert.Equal(t, "alice", res.Payouts[0].UserID)
	assert.Equal(t, int64(400), res.Payouts[0].Amount)
}

func TestSettle_ProportionalSplit(t *testing.T) {
	// Пул победителей 300 (100+200), проигравший пул 600.
	// alice: 100 + 100*600/300 = 300; bob: 200 + 200*600/300 = 600.
	bets := Bets{
		"1": {"alice": 100, "bob": 200},
		"2": {"carol": 600},
	}

	res := Settle(bets, Side1)

	payouts := map[string]int64{}
	for _, p := range res.Payouts {
		payouts[p.UserID] = p.Amount
	}
	assert.Equal(t, int64(300), payouts["alice"])
	assert.Equal(t, int64(600), payouts["bob"])
}

func TestSettle_FloorDivision(t *testing.T) {
	// Проигравший пул 100 делится между тремя равными ставками:
	// каждому floor(100/3) = 33 сверху, остаток 1 сгорает.
	bets := Bets{
		"1": {"a": 1, "b": 1, "c": 1},
		"2": {"d": 100},
	}

	res := Settle(bets, Side1)

	require.Len(t, res.Payouts, 3)
	var total int64
	for _, p := range res.Payouts {
		assert.Equal(t, int64(34), p.Amount) // 1 + 1*100/3
		total += p.Amount
	}
	// Выплачено не больше, чем разыграно
	assert.LessOrEqual(t, total, res.WinTotal+res.LosePool)
}

func TestSettle_NoWinners(t *testing.T) {
	// На победившую сторону никто не ставил: выплат нет,
	// проигравший пул никому не возвращается.
	bets := Bets{
		"1": {},
		"2": {"carol": 500},
	}

	res := Settle(bets, Side1)

	assert.Equal(t, int64(0), res.WinTotal)
	assert.Equal(t, int64(500), res.LosePool)
	assert.Empty(t, res.Payouts)
}

func TestSettle_NoLosers(t *testing.T) {
	// Проигравший пул пуст: победители получают ровно свои ставки.
	bets := Bets{
		"1": {"alice": 250},
		"2": {},
	}

	res := Settle(bets, Side1)

	require.Len(t, res.Payouts, 1)
	assert.Equal(t, int64(250), res.Payouts[0].Amount)
}

func TestOdds(t *testing.T) {
	p := &Prediction{Bets: Bets{
		"1": {"alice": 100},
		"2": {"carol": 300},
	}}

	assert.InDelta(t, 4.0, Odds(p, Side1), 1e-9) // 400/100
	assert.InDelta(t, 4.0/3.0, Odds(p, Side2), 1e-9)

	empty := &Prediction{Bets: Bets{"1": {}, "2": {"x": 10}}}
	assert.Equal(t, 0.0, Odds(empty, Side1))
}
