package auction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discord-bot/internal/common"
	"discord-bot/internal/config"
)

// fakeStore — аукционы в памяти. PlaceBid повторяет семантику
// PostgreSQL-репозитория: перепроверка условий, возврат монет
// перебитому лидеру, удержание у нового.
type fakeStore struct {
	auctions map[int64]*Auction
	balances map[string]int64
	winners  map[string]time.Time
	history  []*Bid
	nextID   int64

	// staleWinCheck имитирует гонку: предварительная проверка кулдауна
	// в сервисе не видит свежую победу, авторитетна перепроверка в PlaceBid
	staleWinCheck bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		auctions: make(map[int64]*Auction),
		balances: make(map[string]int64),
		winners:  make(map[string]time.Time),
	}
}

func (f *fakeStore) Create(_ context.Context, a *Auction) (int64, error) {
	f.nextID++
	copied := *a
	copied.ID = f.nextID
	copied.CurrentBid = a.StartingBid
	copied.Active = true
	f.auctions[f.nextID] = &copied
	return f.nextID, nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*Auction, error) {
	a, ok := f.auctions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (f *fakeStore) ListActive(_ context.Context) ([]*Auction, error) {
	var out []*Auction
	for _, a := range f.auctions {
		if a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) GetExpired(_ context.Context) ([]*Auction, error) {
	var out []*Auction
	for _, a := range f.auctions {
		if a.Active && !time.Now().Before(a.EndTime) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) PlaceBid(_ context.Context, auctionID int64, bidder string, amount int64, winSince time.Time) error {
	a, ok := f.auctions[auctionID]
	if !ok {
		return common.ErrNotFound
	}
	if !a.Active || !time.Now().Before(a.EndTime) {
		return common.ErrAuctionClosed
	}
	if amount <= a.CurrentBid {
		return common.ErrBidTooLow
	}
	if wonAt, won := f.winners[bidder]; won && wonAt.After(winSince) {
		return common.ErrBidCooldown
	}
	if f.balances[bidder] < amount {
		return common.ErrInsufficientFunds
	}
	// Возврат перебитому лидеру и удержание у нового — одно действие
	if a.CurrentBidder != nil {
		f.balances[*a.CurrentBidder] += a.CurrentBid
	}
	f.balances[bidder] -= amount
	a.CurrentBid = amount
	a.CurrentBidder = &bidder
	f.history = append(f.history, &Bid{AuctionID: auctionID, UserID: bidder, Amount: amount})
	return nil
}

func (f *fakeStore) End(_ context.Context, auctionID int64) (*EndResult, error) {
	a, ok := f.auctions[auctionID]
	if !ok {
		return nil, common.ErrNotFound
	}
	if !a.Active {
		return &EndResult{Ended: false}, nil
	}
	a.Active = false
	res := &EndResult{Ended: true, WinnerID: a.CurrentBidder}
	if a.CurrentBidder != nil {
		res.WinningBid = a.CurrentBid
		f.winners[*a.CurrentBidder] = time.Now()
	}
	return res, nil
}

func (f *fakeStore) HasRecentWin(_ context.Context, userID string, since time.Time) (bool, error) {
	if f.staleWinCheck {
		return false, nil
	}
	wonAt, ok := f.winners[userID]
	return ok && wonAt.After(since), nil
}

func (f *fakeStore) BidHistory(_ context.Context, auctionID int64, limit int) ([]*Bid, error) {
	var out []*Bid
	for _, b := range f.history {
		if b.AuctionID == auctionID {
			out = append(out, b)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTestService(store Store) *Service {
	return NewService(store, &config.Config{AuctionWinCooldown: 168 * time.Hour})
}

func createAuction(t *testing.T, svc *Service, startingBid int64) int64 {
	t.Helper()
	id, err := svc.Create(context.Background(), "Тестовый лот", "", startingBid, 24, "admin", "chan", "msg")
	require.NoError(t, err)
	return id
}

func TestPlaceBid_EscrowAndRefund(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	store.balances["alice"] = 1000
	store.balances["bob"] = 1000
	id := createAuction(t, svc, 50)

	// Алиса лидирует: её 100 удержаны
	require.NoError(t, svc.PlaceBid(ctx, id, "alice", 100))
	assert.Equal(t, int64(900), store.balances["alice"])

	// Боб перебивает: Алисе вернулись 100, у Боба удержаны 200
	require.NoError(t, svc.PlaceBid(ctx, id, "bob", 200))
	assert.Equal(t, int64(1000), store.balances["alice"])
	assert.Equal(t, int64(800), store.balances["bob"])

	a, err := svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(200), a.CurrentBid)
	require.NotNil(t, a.CurrentBidder)
	assert.Equal(t, "bob", *a.CurrentBidder)
}

func TestPlaceBid_Rejections(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	store.balances["alice"] = 1000
	id := createAuction(t, svc, 100)

	// Лот не найден
	assert.ErrorIs(t, svc.PlaceBid(ctx, 999, "alice", 200), common.ErrNotFound)

	// Не выше текущей ставки (равенство тоже отказ)
	assert.ErrorIs(t, svc.PlaceBid(ctx, id, "alice", 100), common.ErrBidTooLow)
	assert.ErrorIs(t, svc.PlaceBid(ctx, id, "alice", 50), common.ErrBidTooLow)

	// Не хватает монет
	assert.ErrorIs(t, svc.PlaceBid(ctx, id, "alice", 5000), common.ErrInsufficientFunds)

	// Неположительная сумма
	assert.ErrorIs(t, svc.PlaceBid(ctx, id, "alice", 0), common.ErrInvalidAmount)

	// Баланс не тронут ни одним отказом
	assert.Equal(t, int64(1000), store.balances["alice"])
}

func TestPlaceBid_ClosedAuction(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	store.balances["alice"] = 1000
	id := createAuction(t, svc, 50)

	_, err := svc.End(ctx, id)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.PlaceBid(ctx, id, "alice", 100), common.ErrAuctionClosed)
}

func TestPlaceBid_WinnerCooldown(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	store.balances["alice"] = 1000
	first := createAuction(t, svc, 50)

	require.NoError(t, svc.PlaceBid(ctx, first, "alice", 100))
	res, err := svc.End(ctx, first)
	require.NoError(t, err)
	require.True(t, res.Ended)

	// Свежая победа: новая ставка отклоняется
	second := createAuction(t, svc, 50)
	assert.ErrorIs(t, svc.PlaceBid(ctx, second, "alice", 100), common.ErrBidCooldown)

	// Победа старше кулдауна — ставка проходит
	store.winners["alice"] = time.Now().Add(-169 * time.Hour)
	assert.NoError(t, svc.PlaceBid(ctx, second, "alice", 100))
}

func TestPlaceBid_CooldownRecheckedInStore(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	store.balances["alice"] = 1000
	id := createAuction(t, svc, 50)

	// Победа записана после предварительной проверки в сервисе:
	// хранилище перепроверяет кулдаун под замком и отклоняет ставку
	store.winners["alice"] = time.Now()
	store.staleWinCheck = true

	assert.ErrorIs(t, svc.PlaceBid(ctx, id, "alice", 100), common.ErrBidCooldown)
	assert.Equal(t, int64(1000), store.balances["alice"])
	assert.Empty(t, store.history)
}

func TestEnd_Idempotent(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	store.balances["alice"] = 1000
	id := createAuction(t, svc, 50)
	require.NoError(t, svc.PlaceBid(ctx, id, "alice", 100))

	res, err := svc.End(ctx, id)
	require.NoError(t, err)
	assert.True(t, res.Ended)
	require.NotNil(t, res.WinnerID)
	assert.Equal(t, "alice", *res.WinnerID)
	assert.Equal(t, int64(100), res.WinningBid)

	// Повторное закрытие — без побочных эффектов
	res, err = svc.End(ctx, id)
	require.NoError(t, err)
	assert.False(t, res.Ended)
}

func TestEnd_NoBids(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	id := createAuction(t, svc, 50)
	res, err := svc.End(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, res.Ended)
	assert.Nil(t, res.WinnerID)
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, "", "", 100, 24, "admin", "", "")
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.Create(ctx, "Лот", "", 0, 24, "admin", "", "")
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	_, err = svc.Create(ctx, "Лот", "", 100, 0, "admin", "", "")
	assert.ErrorIs(t, err, common.ErrInvalidAmount)
}
