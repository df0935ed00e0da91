package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/lavita-bot/internal/model"
	"github.com/mmeshcher/lavita-bot/internal/validation"
)

func newTestSQLite(t *testing.T, opts ...Option) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "lavita.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func profile(userID int64) model.Profile {
	return model.Profile{
		UserID:      userID,
		DisplayName: fmt.Sprintf("user%d", userID),
		Phone:       "+998901234567",
		Address:     "Amir Temur St 1, 15",
		Language:    model.LanguageEN,
	}
}

func newOrder(accountID int64, qty int) model.NewOrder {
	return model.NewOrder{
		AccountID: accountID,
		Quantity:  qty,
		UnitPrice: decimal.NewFromInt(20000),
		Address:   "Amir Temur St 1, 15",
	}
}

func TestSQLite_UpsertProfileAssignsDistinctCodes(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for id := int64(1); id <= 30; id++ {
		acc, err := repo.UpsertProfile(ctx, profile(id))
		require.NoError(t, err)
		assert.True(t, validation.IsValidCode(acc.Code), "code %q", acc.Code)
		assert.False(t, seen[acc.Code], "duplicate code %q", acc.Code)
		seen[acc.Code] = true
	}
}

func TestSQLite_UpsertProfileKeepsCodeAndBalance(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	first, err := repo.UpsertProfile(ctx, profile(1))
	require.NoError(t, err)
	_, err = repo.Credit(ctx, 1, decimal.NewFromInt(500))
	require.NoError(t, err)

	p := profile(1)
	p.Address = "Navoi St 5, 3"
	second, err := repo.UpsertProfile(ctx, p)
	require.NoError(t, err)

	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, "Navoi St 5, 3", second.Address)
	assert.True(t, second.Balance.Equal(decimal.NewFromInt(500)))
}

func TestSQLite_UpsertProfileRetriesCodeCollision(t *testing.T) {
	codes := []string{"AAAA0000", "AAAA0000", "BBBB1111"}
	var mu sync.Mutex
	gen := func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
	repo := newTestSQLite(t, WithCodeGenerator(gen))
	ctx := context.Background()

	a, err := repo.UpsertProfile(ctx, profile(1))
	require.NoError(t, err)
	b, err := repo.UpsertProfile(ctx, profile(2))
	require.NoError(t, err)

	assert.Equal(t, "AAAA0000", a.Code)
	assert.Equal(t, "BBBB1111", b.Code)
}

func TestSQLite_UpsertProfileGivesUpOnPersistentCollision(t *testing.T) {
	repo := newTestSQLite(t, WithCodeGenerator(func() (string, error) { return "AAAA0000", nil }))
	ctx := context.Background()

	_, err := repo.UpsertProfile(ctx, profile(1))
	require.NoError(t, err)
	_, err = repo.UpsertProfile(ctx, profile(2))
	assert.ErrorIs(t, err, ErrCodeConflict)
}

func TestSQLite_FindAccountByCode(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	acc, err := repo.UpsertProfile(ctx, profile(1))
	require.NoError(t, err)

	found, err := repo.FindAccountByCode(ctx, acc.Code)
	require.NoError(t, err)
	assert.Equal(t, int64(1), found.UserID)

	_, err = repo.FindAccountByCode(ctx, "ZZZZ0000")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = repo.GetAccount(ctx, 99)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestSQLite_SetLanguage(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, repo.SetLanguage(ctx, 1, model.LanguageEN), "missing account is not an error")

	_, err := repo.UpsertProfile(ctx, profile(1))
	require.NoError(t, err)
	require.NoError(t, repo.SetLanguage(ctx, 1, model.LanguageRU))

	acc, err := repo.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.LanguageRU, acc.Language)
}

func TestSQLite_Credit(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	_, err := repo.Credit(ctx, 1, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrAccountNotFound)

	_, err = repo.UpsertProfile(ctx, profile(1))
	require.NoError(t, err)

	balance, err := repo.Credit(ctx, 1, decimal.RequireFromString("100.50"))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("100.50")))

	balance, err = repo.Credit(ctx, 1, decimal.RequireFromString("0.25"))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("100.75")))
}

func TestSQLite_PlaceOrderGated(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	_, err := repo.UpsertProfile(ctx, profile(1))
	require.NoError(t, err)

	_, balance, err := repo.PlaceOrder(ctx, newOrder(1, 2), true)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, balance.IsZero())

	orders, err := repo.ListOrders(ctx, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, orders, "rejected order must not be stored")

	_, err = repo.Credit(ctx, 1, decimal.NewFromInt(50000))
	require.NoError(t, err)

	order, balance, err := repo.PlaceOrder(ctx, newOrder(1, 2), true)
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	assert.Equal(t, model.OrderStatusActive, order.Status)
	assert.Equal(t, 2, order.Quantity)
	assert.True(t, order.TotalCost.Equal(decimal.NewFromInt(40000)))
	assert.True(t, balance.Equal(decimal.NewFromInt(10000)))

	acc, err := repo.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(10000)))
	assert.True(t, acc.TotalSpent.Equal(decimal.NewFromInt(40000)))
}

func TestSQLite_PlaceOrderTotalMatchesStoredUnitPrice(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	_, err := repo.UpsertProfile(ctx, profile(1))
	require.NoError(t, err)

	o := newOrder(1, 3)
	o.UnitPrice = decimal.RequireFromString("0.005")

	order, _, err := repo.PlaceOrder(ctx, o, false)
	require.NoError(t, err)

	assert.True(t, order.UnitPrice.Equal(decimal.RequireFromString("0.01")))
	assert.True(t, order.TotalCost.Equal(order.UnitPrice.Mul(decimal.NewFromInt(3))), "total %s", order.TotalCost)

	acc, err := repo.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.True(t, acc.TotalSpent.Equal(order.TotalCost))
}

func TestSQLite_PlaceOrderUngated(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	_, err := repo.UpsertProfile(ctx, profile(1))
	require.NoError(t, err)

	lat, lon := 41.31, 69.27
	o := newOrder(1, 3)
	o.Latitude, o.Longitude = &lat, &lon

	order, balance, err := repo.PlaceOrder(ctx, o, false)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
	require.NotNil(t, order.Latitude)
	assert.Equal(t, lat, *order.Latitude)

	acc, err := repo.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.True(t, acc.TotalSpent.Equal(decimal.NewFromInt(60000)))

	_, _, err = repo.PlaceOrder(ctx, newOrder(42, 1), false)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestSQLite_ConcurrentOrdersNeverOverdraw(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	_, err := repo.UpsertProfile(ctx, profile(1))
	require.NoError(t, err)
	_, err = repo.Credit(ctx, 1, decimal.NewFromInt(100000))
	require.NoError(t, err)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		placed int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.PlaceOrder(ctx, newOrder(1, 1), true)
			if err == nil {
				mu.Lock()
				placed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, placed)
	acc, err := repo.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.True(t, acc.Balance.IsZero())
}

func TestSQLite_ListOrdersNewestFirst(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time {
		now = now.Add(time.Minute)
		return now
	}

	_, err := repo.UpsertProfile(ctx, profile(1))
	require.NoError(t, err)
	_, err = repo.UpsertProfile(ctx, profile(2))
	require.NoError(t, err)

	var ids []int64
	for qty := 1; qty <= 3; qty++ {
		o, _, err := repo.PlaceOrder(ctx, newOrder(1, qty), false)
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}
	_, _, err = repo.PlaceOrder(ctx, newOrder(2, 1), false)
	require.NoError(t, err)

	_, err = repo.MarkOrderCompleted(ctx, ids[0])
	require.NoError(t, err)

	all, err := repo.ListOrders(ctx, 1, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, []int64{all[0].ID, all[1].ID, all[2].ID})

	active := model.OrderStatusActive
	got, err := repo.ListOrders(ctx, 1, &active)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ids[2], got[0].ID)

	completed := model.OrderStatusCompleted
	got, err = repo.ListOrders(ctx, 1, &completed)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ids[0], got[0].ID)
}

func TestSQLite_MarkOrderCompleted(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	_, err := repo.UpsertProfile(ctx, profile(1))
	require.NoError(t, err)
	o, _, err := repo.PlaceOrder(ctx, newOrder(1, 1), false)
	require.NoError(t, err)

	done, err := repo.MarkOrderCompleted(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	again, err := repo.MarkOrderCompleted(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, done.CompletedAt.Equal(*again.CompletedAt))

	_, err = repo.MarkOrderCompleted(ctx, 999)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
