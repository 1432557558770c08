package economy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discord-bot/internal/common"
	"discord-bot/internal/config"
)

// fakeStore — балансы в памяти с той же семантикой условного списания,
// что и у PostgreSQL-репозитория: списание проходит только при
// достаточном балансе, иначе ничего не меняется.
type fakeStore struct {
	balances     map[string]int64
	transactions map[string][]*Transaction
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		balances:     make(map[string]int64),
		transactions: make(map[string][]*Transaction),
	}
}

func (f *fakeStore) EnsureBalance(_ context.Context, userID string, startingBalance int64) error {
	if _, ok := f.balances[userID]; !ok {
		f.balances[userID] = startingBalance
	}
	return nil
}

func (f *fakeStore) GetBalance(_ context.Context, userID string) (int64, error) {
	return f.balances[userID], nil
}

func (f *fakeStore) Credit(_ context.Context, userID string, amount int64, txType, description string) (int64, error) {
	f.balances[userID] += amount
	return f.balances[userID], nil
}

func (f *fakeStore) Debit(_ context.Context, userID string, amount int64, txType, description string) (bool, error) {
	if f.balances[userID] < amount {
		return false, nil
	}
	f.balances[userID] -= amount
	return true, nil
}

func (f *fakeStore) Transfer(_ context.Context, fromUserID, toUserID string, amount int64) (bool, error) {
	if f.balances[fromUserID] < amount {
		return false, nil
	}
	f.balances[fromUserID] -= amount
	f.balances[toUserID] += amount
	return true, nil
}

func (f *fakeStore) GetTransactions(_ context.Context, userID string, limit int) ([]*Transaction, error) {
	txs := f.transactions[userID]
	if len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

func newTestService(store Store) *Service {
	return NewService(store, &config.Config{EconomyStartingBalance: 250})
}

func TestEnsure_StartingGrantOnce(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	require.NoError(t, svc.Ensure(ctx, "alice"))
	balance, err := svc.GetBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(250), balance)

	// Повторный вызов ничего не добавляет
	require.NoError(t, svc.Ensure(ctx, "alice"))
	balance, _ = svc.GetBalance(ctx, "alice")
	assert.Equal(t, int64(250), balance)
}

func TestTransfer_Success(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	require.NoError(t, svc.Ensure(ctx, "alice"))
	require.NoError(t, svc.Ensure(ctx, "bob"))

	require.NoError(t, svc.Transfer(ctx, "alice", "bob", 100))

	aliceBalance, _ := svc.GetBalance(ctx, "alice")
	bobBalance, _ := svc.GetBalance(ctx, "bob")
	assert.Equal(t, int64(150), aliceBalance)
	assert.Equal(t, int64(350), bobBalance)
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	require.NoError(t, svc.Ensure(ctx, "alice"))
	require.NoError(t, svc.Ensure(ctx, "bob"))

	err := svc.Transfer(ctx, "alice", "bob", 1000)
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)

	// Балансы не изменились
	aliceBalance, _ := svc.GetBalance(ctx, "alice")
	bobBalance, _ := svc.GetBalance(ctx, "bob")
	assert.Equal(t, int64(250), aliceBalance)
	assert.Equal(t, int64(250), bobBalance)
}

func TestTransfer_SelfAndInvalidAmount(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := context.Background()

	assert.ErrorIs(t, svc.Transfer(ctx, "alice", "alice", 100), common.ErrSelfTransfer)
	assert.ErrorIs(t, svc.Transfer(ctx, "alice", "bob", 0), common.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Transfer(ctx, "alice", "bob", -10), common.ErrInvalidAmount)
}

func TestDebit_NeverGoesNegative(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	require.NoError(t, svc.Ensure(ctx, "alice"))

	err := svc.Debit(ctx, "alice", 300, TxTypeShopPurchase, "тест")
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)

	balance, _ := svc.GetBalance(ctx, "alice")
	assert.Equal(t, int64(250), balance)

	// Списание ровно на весь баланс допустимо
	require.NoError(t, svc.Debit(ctx, "alice", 250, TxTypeShopPurchase, "тест"))
	balance, _ = svc.GetBalance(ctx, "alice")
	assert.Equal(t, int64(0), balance)
}

func TestCredit_InvalidAmount(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Credit(context.Background(), "alice", 0, TxTypeAdminGive, "тест")
	assert.ErrorIs(t, err, common.ErrInvalidAmount)
}

func TestGetTransactionHistory_SpoilerAfterFive(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	from := "bob"
	for i := 0; i < 7; i++ {
		store.transactions["alice"] = append(store.transactions["alice"], &Transaction{
			FromUserID:  &from,
			Amount:      10,
			Description: "перевод",
			CreatedAt:   time.Now(),
		})
	}

	history, err := svc.GetTransactionHistory(context.Background(), "alice")
	require.NoError(t, err)
	assert.Contains(t, history, "||")
	assert.Contains(t, history, "7 транзакций")
}

func TestParseMention(t *testing.T) {
	assert.Equal(t, "123456789", ParseMention("<@123456789>"))
	assert.Equal(t, "123456789", ParseMention("<@!123456789>"))
	assert.Equal(t, "123456789", ParseMention("123456789"))
	assert.Equal(t, "", ParseMention("не-упоминание"))
	assert.Equal(t, "", ParseMention(""))
	assert.Equal(t, "", ParseMention("<@>"))
}
