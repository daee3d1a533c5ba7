package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProduct(t *testing.T, s *Store, id string, qty int) {
	t.Helper()
	require.NoError(t, s.Products().Create(context.Background(), &models.Product{
		ID: id, SKU: "SKU-" + id, Name: id, Category: "general",
		SellingPrice: decimal.NewFromInt(10), Quantity: qty,
	}))
}

func TestDecrementStock_IsConditional(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedProduct(t, s, "p1", 3)

	require.NoError(t, s.Products().DecrementStock(ctx, "p1", 2))
	assert.ErrorIs(t, s.Products().DecrementStock(ctx, "p1", 2), store.ErrInsufficientStock)
	assert.ErrorIs(t, s.Products().DecrementStock(ctx, "missing", 1), store.ErrNotFound)

	p, err := s.Products().FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Quantity)
}

func TestDecrementStock_ConcurrentLastUnit(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedProduct(t, s, "p1", 1)

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Products().DecrementStock(ctx, "p1", 1)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, store.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestTransact_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedProduct(t, s, "p1", 5)
	boom := errors.New("boom")

	err := s.Transact(ctx, func(tx store.Store) error {
		require.NoError(t, tx.Products().DecrementStock(ctx, "p1", 5))
		require.NoError(t, tx.Reports().Create(ctx, &models.Report{ID: "r1", Date: time.Now()}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, err := s.Products().FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Quantity)
	_, err = s.Reports().FindByID(ctx, "r1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTransact_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedProduct(t, s, "p1", 5)

	require.NoError(t, s.Transact(ctx, func(tx store.Store) error {
		return tx.Products().DecrementStock(ctx, "p1", 2)
	}))

	p, err := s.Products().FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Quantity)
}

func TestCarts_OneActivePerUser(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	first := models.NewCart("u1", now)
	require.NoError(t, s.Carts().Save(ctx, first))
	assert.ErrorIs(t, s.Carts().Save(ctx, models.NewCart("u1", now)), store.ErrDuplicate)

	first.Status = models.CartConverted
	require.NoError(t, s.Carts().Save(ctx, first))
	require.NoError(t, s.Carts().Save(ctx, models.NewCart("u1", now)))
}

func TestCarts_ReturnedCopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := New()
	cart := models.NewCart("u1", time.Now())
	cart.Items = append(cart.Items, models.CartItem{ID: "i1", ProductID: "p1", Quantity: 1})
	require.NoError(t, s.Carts().Save(ctx, cart))

	loaded, err := s.Carts().FindActiveByUser(ctx, "u1")
	require.NoError(t, err)
	loaded.Items[0].Quantity = 99

	again, err := s.Carts().FindActiveByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Items[0].Quantity)
}

func TestCarts_ExpireAbandoned(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()

	stale := models.NewCart("u1", now.AddDate(0, 0, -8))
	fresh := models.NewCart("u2", now)
	require.NoError(t, s.Carts().Save(ctx, stale))
	require.NoError(t, s.Carts().Save(ctx, fresh))

	n, err := s.Carts().ExpireAbandoned(ctx, now.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Carts().FindActiveByUser(ctx, "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDebts_UpdateIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	terms := models.SettlePayment(decimal.NewFromInt(100), nil, nil, "")
	require.NoError(t, s.Debts().Create(ctx, models.NewDebt("u1", "r1", terms, now.AddDate(0, 0, 30), now)))

	all, _, err := s.Debts().List(ctx, store.DebtFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)

	a := all[0]
	b := all[0]
	a.Notes = "first"
	require.NoError(t, s.Debts().Update(ctx, &a))
	b.Notes = "second"
	assert.ErrorIs(t, s.Debts().Update(ctx, &b), store.ErrStale)

	got, err := s.Debts().FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Notes)
}

func TestDebts_MarkOverdueSkipsPaidAndFuture(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	past := now.AddDate(0, 0, -40)
	terms := models.SettlePayment(decimal.NewFromInt(100), nil, nil, "")

	due := models.NewDebt("u1", "r1", terms, past.AddDate(0, 0, 30), past)
	notDue := models.NewDebt("u1", "r2", terms, now.AddDate(0, 0, 30), now)
	paid := models.NewDebt("u1", "r3", terms, past.AddDate(0, 0, 30), past)
	paid.RemainingAmount = decimal.Zero
	paid.Status = models.DebtPaid
	for _, d := range []*models.Debt{due, notDue, paid} {
		require.NoError(t, s.Debts().Create(ctx, d))
	}

	flipped, err := s.Debts().MarkOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, flipped, 1)
	assert.Equal(t, due.ID, flipped[0].ID)
	assert.Equal(t, 2, flipped[0].Version)

	again, err := s.Debts().MarkOverdue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestDebts_ListSortsAndPaginates(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	for i, amount := range []int64{30, 10, 20} {
		terms := models.SettlePayment(decimal.NewFromInt(amount), nil, nil, "")
		d := models.NewDebt("u1", "r", terms, now.AddDate(0, 0, i), now)
		require.NoError(t, s.Debts().Create(ctx, d))
	}

	page, total, err := s.Debts().List(ctx, store.DebtFilter{SortBy: "remainingAmount", Desc: true, Page: store.Page{Page: 1, Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.True(t, page[0].RemainingAmount.Equal(decimal.NewFromInt(30)))
	assert.True(t, page[1].RemainingAmount.Equal(decimal.NewFromInt(20)))
}

func TestCarts_ConvertedCartRefusesStaleCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	cart := models.NewCart("u1", time.Now())
	require.NoError(t, s.Carts().Save(ctx, cart))

	stale, err := s.Carts().FindActiveByUser(ctx, "u1")
	require.NoError(t, err)

	cart.Status = models.CartConverted
	require.NoError(t, s.Carts().Save(ctx, cart))

	assert.ErrorIs(t, s.Carts().Save(ctx, stale), store.ErrStale)
	stale.Status = models.CartConverted
	assert.ErrorIs(t, s.Carts().Save(ctx, stale), store.ErrStale)
}

func seedReport(t *testing.T, s *Store, id string, date time.Time) *models.Report {
	t.Helper()
	rep := &models.Report{
		ID: id, Date: date, Type: models.ReportTypeSale,
		TotalRevenue: decimal.NewFromInt(20), TotalProfit: decimal.NewFromInt(8), NetProfit: decimal.NewFromInt(8),
		PaymentStatus: models.PaymentPartial, AmountPaid: decimal.NewFromInt(5), RemainingBalance: decimal.NewFromInt(15),
	}
	require.NoError(t, s.Reports().Create(context.Background(), rep))
	return rep
}

func TestReports_SaveSettlementKeepsTotals(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Now()
	seedReport(t, s, "r1", now)

	settling, err := s.Reports().FindByIDForUpdate(ctx, "r1")
	require.NoError(t, err)

	posted, err := s.Reports().FindByID(ctx, "r1")
	require.NoError(t, err)
	posted.PostExpenditure(models.Expenditure{ID: "e1", Amount: decimal.NewFromInt(3), Category: models.CategorySupplies}, now)
	require.NoError(t, s.Reports().Save(ctx, posted))

	settling.ApplyDebtSettlement(&models.Debt{AmountPaid: decimal.NewFromInt(20), Status: models.DebtPaid}, now)
	require.NoError(t, s.Reports().SaveSettlement(ctx, settling))

	got, err := s.Reports().FindByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
	assert.True(t, got.AmountPaid.Equal(decimal.NewFromInt(20)))
	assert.True(t, got.TotalExpenditures.Equal(decimal.NewFromInt(3)))
	assert.True(t, got.NetProfit.Equal(decimal.NewFromInt(5)))
	assert.Len(t, got.Expenditures, 1)

	assert.ErrorIs(t, s.Reports().SaveSettlement(ctx, &models.Report{ID: "missing"}), store.ErrNotFound)
}

func TestReports_DeleteAndDeleteRange(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedReport(t, s, "r1", base)
	seedReport(t, s, "r2", base.AddDate(0, 0, 1))
	seedReport(t, s, "r3", base.AddDate(0, 0, 10))

	require.NoError(t, s.Reports().Delete(ctx, "r1"))
	assert.ErrorIs(t, s.Reports().Delete(ctx, "r1"), store.ErrNotFound)

	n, err := s.Reports().DeleteRange(ctx, base, base.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := s.Reports().List(ctx, store.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "r3", left[0].ID)
}
