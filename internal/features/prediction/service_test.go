package prediction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discord-bot/internal/common"
	"discord-bot/internal/config"
)

// fakeStore — хранилище прогнозов в памяти для тестов сервиса.
// Stake повторяет контракт PostgreSQL-репозитория: блокировка и дедлайн,
// эксклюзивность стороны, условное списание — отказ ничего не записывает.
type fakeStore struct {
	predictions map[int64]*Prediction
	balances    map[string]int64
	stakeErr    error
	stakes      []fakeStake
	lockCalls   []int64
	resolved    []int64
}

type fakeStake struct {
	predictionID int64
	userID       string
	side         int
	amount       int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		predictions: make(map[int64]*Prediction),
		balances:    make(map[string]int64),
	}
}

func (f *fakeStore) Create(_ context.Context, title, option1, option2 string, endTS time.Time) (int64, error) {
	id := int64(len(f.predictions) + 1)
	f.predictions[id] = &Prediction{
		ID: id, Title: title, Option1: option1, Option2: option2,
		Bets: Bets{"1": {}, "2": {}}, EndTS: endTS,
	}
	return id, nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*Prediction, error) {
	p, ok := f.predictions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) List(_ context.Context) ([]*Prediction, error) {
	var out []*Prediction
	for _, p := range f.predictions {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) Stake(_ context.Context, predictionID int64, userID string, side int, amount int64) error {
	if f.stakeErr != nil {
		return f.stakeErr
	}
	p, ok := f.predictions[predictionID]
	if !ok {
		return common.ErrNotFound
	}
	if p.Locked || !time.Now().Before(p.EndTS) {
		return common.ErrPredictionLocked
	}
	// Эксклюзивность стороны: на другой исход ставить нельзя
	other := sideKey(Side1 + Side2 - side)
	if _, hasOther := p.Bets[other][userID]; hasOther {
		return common.ErrWrongSide
	}
	// Условное списание: на нехватке ставка не записывается
	if f.balances[userID] < amount {
		return common.ErrInsufficientFunds
	}
	f.balances[userID] -= amount
	key := sideKey(side)
	if p.Bets[key] == nil {
		p.Bets[key] = make(map[string]int64)
	}
	p.Bets[key][userID] += amount
	f.stakes = append(f.stakes, fakeStake{predictionID, userID, side, amount})
	return nil
}

func (f *fakeStore) Lock(_ context.Context, predictionID int64) (bool, error) {
	p, ok := f.predictions[predictionID]
	if !ok {
		return false, common.ErrNotFound
	}
	f.lockCalls = append(f.lockCalls, predictionID)
	if p.Locked {
		return false, nil
	}
	p.Locked = true
	return true, nil
}

func (f *fakeStore) LockExpired(_ context.Context) ([]int64, error) {
	var ids []int64
	for id, p := range f.predictions {
		if !p.Locked && time.Now().After(p.EndTS) {
			p.Locked = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeStore) Resolve(_ context.Context, predictionID int64, winningSide int) (*ResolveResult, error) {
	p, ok := f.predictions[predictionID]
	if !ok {
		return nil, common.ErrNotFound
	}
	res := Settle(p.Bets, winningSide)
	delete(f.predictions, predictionID)
	f.resolved = append(f.resolved, predictionID)
	return res, nil
}

func newTestService(store Store) *Service {
	return NewService(store, &config.Config{PredictionMaxStake: 1000})
}

func TestStake_Validation(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Stake(ctx, 1, "u1", 3, 100), common.ErrInvalidSide)
	assert.ErrorIs(t, svc.Stake(ctx, 1, "u1", 0, 100), common.ErrInvalidSide)
	assert.ErrorIs(t, svc.Stake(ctx, 1, "u1", Side1, 0), common.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Stake(ctx, 1, "u1", Side1, -50), common.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Stake(ctx, 1, "u1", Side1, 1001), common.ErrStakeTooLarge)

	// Ни одна из невалидных ставок не дошла до хранилища
	assert.Empty(t, store.stakes)
}

func TestStake_MaxStakeBoundary(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = 1000
	svc := newTestService(store)
	ctx := context.Background()

	id, err := svc.Create(ctx, "Тест", "да", "нет", 60)
	require.NoError(t, err)

	// Ровно на границе — принимается
	require.NoError(t, svc.Stake(ctx, id, "u1", Side2, 1000))
	require.Len(t, store.stakes, 1)
	assert.Equal(t, int64(1000), store.stakes[0].amount)
}

func TestStake_SideExclusivity(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = 500
	svc := newTestService(store)
	ctx := context.Background()

	id, err := svc.Create(ctx, "Тест", "да", "нет", 60)
	require.NoError(t, err)

	require.NoError(t, svc.Stake(ctx, id, "u1", Side1, 100))

	// Ставка на другой исход отклоняется и ничего не меняет
	assert.ErrorIs(t, svc.Stake(ctx, id, "u1", Side2, 100), common.ErrWrongSide)
	assert.Equal(t, int64(400), store.balances["u1"])
	assert.Equal(t, int64(100), store.predictions[id].SideTotal(Side1))
	assert.Zero(t, store.predictions[id].SideTotal(Side2))
}

func TestStake_SameSideAccumulates(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = 500
	svc := newTestService(store)
	ctx := context.Background()

	id, err := svc.Create(ctx, "Тест", "да", "нет", 60)
	require.NoError(t, err)

	require.NoError(t, svc.Stake(ctx, id, "u1", Side1, 100))
	require.NoError(t, svc.Stake(ctx, id, "u1", Side1, 150))

	// Одна запись на пользователя, сумма накапливается
	assert.Equal(t, int64(250), store.predictions[id].Bets["1"]["u1"])
	assert.Equal(t, int64(250), store.balances["u1"])
}

func TestStake_DebitFailureRecordsNothing(t *testing.T) {
	store := newFakeStore()
	store.balances["u1"] = 50
	svc := newTestService(store)
	ctx := context.Background()

	id, err := svc.Create(ctx, "Тест", "да", "нет", 60)
	require.NoError(t, err)

	// Не хватает монет: ни ставки, ни списания
	assert.ErrorIs(t, svc.Stake(ctx, id, "u1", Side1, 100), common.ErrInsufficientFunds)
	assert.Equal(t, int64(50), store.balances["u1"])
	assert.Zero(t, store.predictions[id].SideTotal(Side1))
	assert.Empty(t, store.stakes)
}

func TestStake_StoreErrorPassthrough(t *testing.T) {
	store := newFakeStore()
	store.stakeErr = common.ErrPredictionLocked
	svc := newTestService(store)

	err := svc.Stake(context.Background(), 1, "u1", Side1, 100)
	assert.ErrorIs(t, err, common.ErrPredictionLocked)
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, "", "да", "нет", 60)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.Create(ctx, "Выйдет ли патч", "да", "", 60)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.Create(ctx, "Выйдет ли патч", "да", "нет", 0)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	id, err := svc.Create(ctx, "Выйдет ли патч", "да", "нет", 60)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestLock_OneWay(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	id, err := svc.Create(ctx, "Тест", "да", "нет", 60)
	require.NoError(t, err)

	locked, err := svc.Lock(ctx, id)
	require.NoError(t, err)
	assert.True(t, locked)

	// Повторная блокировка — не ошибка, но и не событие
	locked, err = svc.Lock(ctx, id)
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestResolve_LocksBeforeSettling(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	id, err := svc.Create(ctx, "Тест", "да", "нет", 60)
	require.NoError(t, err)
	store.predictions[id].Bets = Bets{"1": {"alice": 100}, "2": {"bob": 300}}

	res, err := svc.Resolve(ctx, id, Side1)
	require.NoError(t, err)

	// Сначала блокировка, потом расчёт и архивация
	assert.Contains(t, store.lockCalls, id)
	assert.Contains(t, store.resolved, id)
	assert.NotContains(t, store.predictions, id)

	require.Len(t, res.Payouts, 1)
	assert.Equal(t, int64(400), res.Payouts[0].Amount)
}

func TestResolve_InvalidSide(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Resolve(context.Background(), 1, 5)
	assert.ErrorIs(t, err, common.ErrInvalidSide)
}
