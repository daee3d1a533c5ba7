package inventory

import (
	"context"
	"testing"

	"go-pos-backoffice/internal/apperrors"
	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"
	"go-pos-backoffice/internal/store/memstore"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProduct(sku string) *models.Product {
	return &models.Product{
		SKU: sku, Name: "Tea " + sku, Category: "drinks",
		BuyingPrice: decimal.NewFromInt(1), SellingPrice: decimal.NewFromInt(3),
		Quantity: 5, ReorderLevel: 5,
	}
}

func TestCreateAndLookup(t *testing.T) {
	svc := NewService(memstore.New(), zap.NewNop())
	ctx := context.Background()

	p, err := svc.Create(ctx, newProduct("T1"))
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "pcs", p.Unit)

	bySKU, err := svc.GetBySKU(ctx, " T1 ")
	require.NoError(t, err)
	assert.Equal(t, p.ID, bySKU.ID)

	_, err = svc.Create(ctx, newProduct("T1"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = svc.Get(ctx, "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(memstore.New(), zap.NewNop())
	p := newProduct("T1")
	p.Quantity = -1
	_, err := svc.Create(context.Background(), p)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestUpdate_PartialFields(t *testing.T) {
	svc := NewService(memstore.New(), zap.NewNop())
	ctx := context.Background()
	p, err := svc.Create(ctx, newProduct("T1"))
	require.NoError(t, err)

	price := decimal.NewFromInt(4)
	updated, err := svc.Update(ctx, p.ID, ProductUpdate{SellingPrice: &price})
	require.NoError(t, err)
	assert.True(t, updated.SellingPrice.Equal(price))
	assert.Equal(t, "Tea T1", updated.Name)
}

func TestRestockAndLowStock(t *testing.T) {
	svc := NewService(memstore.New(), zap.NewNop())
	ctx := context.Background()
	p, err := svc.Create(ctx, newProduct("T1"))
	require.NoError(t, err)

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	assert.Len(t, low, 1)

	restocked, err := svc.Restock(ctx, p.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 15, restocked.Quantity)

	low, err = svc.LowStock(ctx)
	require.NoError(t, err)
	assert.Empty(t, low)

	_, err = svc.Restock(ctx, "missing", 1)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestDelete(t *testing.T) {
	svc := NewService(memstore.New(), zap.NewNop())
	ctx := context.Background()
	p, err := svc.Create(ctx, newProduct("T1"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.True(t, apperrors.HasCode(svc.Delete(ctx, p.ID), apperrors.CodeNotFound))

	all, err := svc.List(ctx, store.ProductFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStatistics(t *testing.T) {
	svc := NewService(memstore.New(), zap.NewNop())
	ctx := context.Background()

	stats, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalProducts)
	assert.True(t, stats.InventoryValue.IsZero())
	assert.Empty(t, stats.ProductsByCategory)

	_, err = svc.Create(ctx, newProduct("T1"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, newProduct("T2"))
	require.NoError(t, err)
	snack := newProduct("S1")
	snack.Category = "snacks"
	snack.Quantity = 20
	_, err = svc.Create(ctx, snack)
	require.NoError(t, err)

	stats, err = svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalProducts)
	assert.Equal(t, 2, stats.LowStockCount)
	assert.True(t, stats.InventoryValue.Equal(decimal.NewFromInt(30)), stats.InventoryValue.String())
	assert.True(t, stats.RetailValue.Equal(decimal.NewFromInt(90)), stats.RetailValue.String())
	assert.Equal(t, []CategoryCount{{Category: "drinks", Count: 2}, {Category: "snacks", Count: 1}}, stats.ProductsByCategory)
}
