package shop

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discord-bot/internal/common"
)

// fakeStore — склад в памяти: повторяет семантику репозитория в части
// остатков (условное списание, потолок, безлимит без записи).
// Денежную часть покупки имитируют balances и bankBalance.
type fakeStore struct {
	items       map[string]*InventoryItem
	balances    map[string]int64
	bankBalance int64
	purchases   []*Purchase
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:    make(map[string]*InventoryItem),
		balances: make(map[string]int64),
	}
}

func (f *fakeStore) Initialize(_ context.Context, item string, qty int64, maxQty *int64, autoRestock bool, restockAmount int64) error {
	if _, ok := f.items[item]; ok {
		return common.ErrItemExists
	}
	f.items[item] = &InventoryItem{
		ItemID: item, Quantity: qty, MaxQuantity: maxQty,
		AutoRestock: autoRestock, RestockAmount: restockAmount,
	}
	return nil
}

func (f *fakeStore) GetQuantity(_ context.Context, item string) (int64, bool, error) {
	it, ok := f.items[item]
	if !ok {
		return 0, false, nil
	}
	return it.Quantity, true, nil
}

func (f *fakeStore) GetItem(_ context.Context, item string) (*InventoryItem, error) {
	it, ok := f.items[item]
	if !ok {
		return nil, common.ErrNotFound
	}
	return it, nil
}

func (f *fakeStore) ListItems(_ context.Context) ([]*InventoryItem, error) {
	var out []*InventoryItem
	for _, it := range f.items {
		out = append(out, it)
	}
	return out, nil
}

// consume повторяет контракт consumeInTx: безлимит без записи,
// условное списание с записью.
func (f *fakeStore) consume(item string, qty int64) bool {
	it, ok := f.items[item]
	if !ok {
		return true // безлимитный товар
	}
	if it.Quantity < qty {
		return false
	}
	it.Quantity -= qty
	return true
}

func (f *fakeStore) Consume(_ context.Context, item string, qty int64) error {
	if !f.consume(item, qty) {
		return common.ErrOutOfStock
	}
	return nil
}

func (f *fakeStore) AddStock(_ context.Context, item string, qty int64) error {
	it, ok := f.items[item]
	if !ok {
		return common.ErrNotFound
	}
	it.Quantity += qty
	if it.MaxQuantity != nil && it.Quantity > *it.MaxQuantity {
		it.Quantity = *it.MaxQuantity
	}
	return nil
}

func (f *fakeStore) SetStock(_ context.Context, item string, qty int64) error {
	it, ok := f.items[item]
	if !ok {
		return common.ErrNotFound
	}
	it.Quantity = qty
	return nil
}

func (f *fakeStore) AutoRestockSweep(_ context.Context) ([]string, error) {
	var restocked []string
	for id, it := range f.items {
		if it.MaxQuantity != nil && it.Quantity < *it.MaxQuantity {
			it.Quantity = *it.MaxQuantity
			restocked = append(restocked, id)
		}
	}
	return restocked, nil
}

func (f *fakeStore) RecordPurchase(_ context.Context, userID, item string, qty, pricePaid int64) error {
	f.purchases = append(f.purchases, &Purchase{UserID: userID, ItemID: item, Qty: qty, PricePaid: pricePaid})
	return nil
}

// Purchase — всё или ничего, как в транзакции репозитория.
func (f *fakeStore) Purchase(_ context.Context, userID, item string, qty, unitPrice int64) error {
	total := qty * unitPrice
	it, tracked := f.items[item]
	if tracked && it.Quantity < qty {
		return common.ErrOutOfStock
	}
	if f.balances[userID] < total {
		return common.ErrInsufficientFunds
	}
	if tracked {
		it.Quantity -= qty
	}
	f.balances[userID] -= total
	f.bankBalance += total
	return f.RecordPurchase(context.Background(), userID, item, qty, total)
}

func (f *fakeStore) Refund(_ context.Context, userID, item string, qty, amount int64) error {
	if f.bankBalance < amount {
		return common.ErrBankEmpty
	}
	f.bankBalance -= amount
	f.balances[userID] += amount
	if it, ok := f.items[item]; ok {
		it.Quantity += qty
		if it.MaxQuantity != nil && it.Quantity > *it.MaxQuantity {
			it.Quantity = *it.MaxQuantity
		}
	}
	return nil
}

func (f *fakeStore) PurchaseHistory(_ context.Context, userID, item string, limit int) ([]*Purchase, error) {
	var out []*Purchase
	for _, p := range f.purchases {
		if userID != "" && p.UserID != userID {
			continue
		}
		if item != "" && p.ItemID != item {
			continue
		}
		out = append(out, p)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func int64Ptr(n int64) *int64 { return &n }

func TestPurchase_AtomicAllOrNothing(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	require.NoError(t, store.Initialize(ctx, "vip", 2, int64Ptr(5), false, 0))
	store.balances["alice"] = 1000

	// Успешная покупка: остаток, баланс и касса меняются вместе
	require.NoError(t, svc.Purchase(ctx, "alice", "vip", 1, 500))
	assert.Equal(t, int64(1), store.items["vip"].Quantity)
	assert.Equal(t, int64(500), store.balances["alice"])
	assert.Equal(t, int64(500), store.bankBalance)

	// Не хватает монет: ничего не изменилось
	err := svc.Purchase(ctx, "alice", "vip", 1, 600)
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)
	assert.Equal(t, int64(1), store.items["vip"].Quantity)
	assert.Equal(t, int64(500), store.balances["alice"])
	assert.Equal(t, int64(500), store.bankBalance)
}

func TestPurchase_OutOfStock(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	require.NoError(t, store.Initialize(ctx, "pin", 1, nil, false, 0))
	store.balances["alice"] = 1000

	require.NoError(t, svc.Purchase(ctx, "alice", "pin", 1, 100))

	err := svc.Purchase(ctx, "alice", "pin", 1, 100)
	assert.ErrorIs(t, err, common.ErrOutOfStock)
	assert.Equal(t, int64(900), store.balances["alice"])
}

func TestPurchase_UntrackedItemIsUnlimited(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	store.balances["alice"] = 1000

	// Товара нет на складе — по соглашению он безлимитный
	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Purchase(ctx, "alice", "lottery", 1, 50))
	}
	assert.Equal(t, int64(750), store.balances["alice"])
}

func TestPurchase_Validation(t *testing.T) {
	svc := NewService(newFakeStore())
	ctx := context.Background()

	assert.ErrorIs(t, svc.Purchase(ctx, "alice", "vip", 0, 100), common.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Purchase(ctx, "alice", "vip", 1, 0), common.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Purchase(ctx, "alice", "vip", -1, 100), common.ErrInvalidAmount)
}

func TestPurchase_OverflowRejected(t *testing.T) {
	store := newFakeStore()
	store.balances["alice"] = 100
	svc := NewService(store)
	ctx := context.Background()

	// 368934881474191033 * 50 = 2^64 + 34 — заворачивается в 34:
	// без проверки безлимитный товар ушёл бы за копейки
	err := svc.Purchase(ctx, "alice", "ghost", 368934881474191033, 50)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	// Отрицательный заворот
	err = svc.Purchase(ctx, "alice", "ghost", math.MaxInt64/2+1, 2)
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	// До хранилища ничего не дошло
	assert.Equal(t, int64(100), store.balances["alice"])
	assert.Zero(t, store.bankBalance)
	assert.Empty(t, store.purchases)
}

func TestRefund_FromBankOnly(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	require.NoError(t, store.Initialize(ctx, "vip", 5, int64Ptr(5), false, 0))
	store.balances["alice"] = 500
	require.NoError(t, svc.Purchase(ctx, "alice", "vip", 1, 500))

	p := store.purchases[0]
	require.NoError(t, svc.Refund(ctx, "alice", p))
	assert.Equal(t, int64(500), store.balances["alice"])
	assert.Equal(t, int64(0), store.bankBalance)
	// Остаток вернулся, но не выше потолка
	assert.Equal(t, int64(5), store.items["vip"].Quantity)

	// Пустая касса — возврат невозможен
	err := svc.Refund(ctx, "alice", p)
	assert.ErrorIs(t, err, common.ErrBankEmpty)
}

func TestAddStock_RespectsCeiling(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	require.NoError(t, store.Initialize(ctx, "vip", 3, int64Ptr(5), false, 0))

	require.NoError(t, svc.AddStock(ctx, "vip", 10))
	assert.Equal(t, int64(5), store.items["vip"].Quantity)

	assert.ErrorIs(t, svc.AddStock(ctx, "нет-такого", 1), common.ErrNotFound)
}

func TestAutoRestockSweep_RefillsToMax(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	require.NoError(t, store.Initialize(ctx, "vip", 1, int64Ptr(10), true, 3))
	require.NoError(t, store.Initialize(ctx, "pin", 7, nil, false, 0))

	restocked, err := svc.AutoRestockSweep(ctx)
	require.NoError(t, err)

	// Пополняется до максимума, независимо от restock_amount
	assert.Equal(t, []string{"vip"}, restocked)
	assert.Equal(t, int64(10), store.items["vip"].Quantity)
	// Товар без потолка не трогается
	assert.Equal(t, int64(7), store.items["pin"].Quantity)
}

func TestInitialize_DuplicateAndValidation(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	require.NoError(t, svc.Initialize(ctx, "vip", 5, int64Ptr(10), false, 0))
	assert.ErrorIs(t, svc.Initialize(ctx, "vip", 5, int64Ptr(10), false, 0), common.ErrItemExists)

	// Старт выше потолка — некорректно
	assert.ErrorIs(t, svc.Initialize(ctx, "x", 11, int64Ptr(10), false, 0), common.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Initialize(ctx, "", 1, nil, false, 0), common.ErrInvalidAmount)
}
