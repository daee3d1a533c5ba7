package ai

import (
	"context"
	"time"

	"go-pos-backoffice/internal/inventory"
	"go-pos-backoffice/internal/ledger"
	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/reporting"
	"go-pos-backoffice/internal/store"
)

// Services is the Toolbox backed by the back-office services.
type Services struct {
	Products *inventory.Service
	Reports  *reporting.Service
	Debts    *ledger.Service
}

func (s Services) Inventory(ctx context.Context) ([]models.Product, error) {
	return s.Products.List(ctx, store.ProductFilter{})
}

func (s Services) SalesSummary(ctx context.Context, start, end time.Time) (*store.SalesSummary, error) {
	return s.Reports.Summary(ctx, start, end)
}

func (s Services) DebtStatistics(ctx context.Context) (*ledger.Statistics, error) {
	return s.Debts.Statistics(ctx)
}
