package economy

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discord-bot/internal/common"
)

// fakeTx подменяет pgx.Tx для тестов транзакционных хелперов:
// Exec возвращает заданное число затронутых строк, остальные
// методы не вызываются.
type fakeTx struct {
	pgx.Tx
	rowsAffected int64
}

func (f *fakeTx) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", f.rowsAffected)), nil
}

func TestCreditInTx_MissingAccountIsError(t *testing.T) {
	// Счёта нет — начисление не должно тихо пропасть
	err := CreditInTx(context.Background(), &fakeTx{rowsAffected: 0}, "ghost", 100)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreditInTx_ExistingAccount(t *testing.T) {
	require.NoError(t, CreditInTx(context.Background(), &fakeTx{rowsAffected: 1}, "alice", 100))
}

func TestDebitInTx_RowCountDecides(t *testing.T) {
	ctx := context.Background()

	ok, err := DebitInTx(ctx, &fakeTx{rowsAffected: 1}, "alice", 100)
	require.NoError(t, err)
	assert.True(t, ok)

	// Условие balance >= сумма не выполнилось — false без ошибки
	ok, err = DebitInTx(ctx, &fakeTx{rowsAffected: 0}, "alice", 100)
	require.NoError(t, err)
	assert.False(t, ok)
}
