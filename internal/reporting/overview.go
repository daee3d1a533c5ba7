package reporting

import (
	"context"
	"sort"
	"time"

	"go-pos-backoffice/internal/apperrors"
	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"

	"github.com/shopspring/decimal"
)

const recentSalesCount = 10

// Overview is the dashboard payload: all-time revenue and orders, best sellers
// and the latest settlements.
type Overview struct {
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	TotalOrders  int64           `json:"totalOrders"`
	TopSelling   []ProductStats  `json:"topSelling"`
	RecentSales  []models.Report `json:"recentSales"`
}

func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	// 1. Revenue and order count over all time
	sum, err := s.store.Reports().Summarize(ctx, time.Time{}, time.Now().AddDate(100, 0, 0))
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	// 2. Best sellers
	products, err := s.Products(ctx, Query{})
	if err != nil {
		return nil, err
	}

	// 3. Latest sales, newest first
	all, err := s.store.Reports().List(ctx, store.ReportFilter{})
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	sales := make([]models.Report, 0, len(all))
	for _, r := range all {
		if r.Type != models.ReportTypeExpenditure {
			sales = append(sales, r)
		}
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].Date.After(sales[j].Date) })
	if len(sales) > recentSalesCount {
		sales = sales[:recentSalesCount]
	}

	return &Overview{
		TotalRevenue: sum.TotalRevenue,
		TotalOrders:  sum.TotalCount,
		TopSelling:   products.TopSellers,
		RecentSales:  sales,
	}, nil
}

// ValuationItem is one product row of the stock valuation.
type ValuationItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	CostPrice decimal.Decimal `json:"costPrice"`
	TotalCost decimal.Decimal `json:"totalCost"`
}

// CategoryGroup is one category table of the valuation.
type CategoryGroup struct {
	CategoryName string          `json:"categoryName"`
	Items        []ValuationItem `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type Valuation struct {
	Categories []CategoryGroup `json:"categories"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// Valuation values the stock on hand at buying price, grouped by category.
func (s *Service) Valuation(ctx context.Context) (*Valuation, error) {
	products, err := s.store.Products().List(ctx, store.ProductFilter{})
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	grouped := make(map[string]*CategoryGroup)
	v := &Valuation{Categories: []CategoryGroup{}}
	for _, p := range products {
		name := p.Category
		if name == "" {
			name = "Uncategorized"
		}
		group, ok := grouped[name]
		if !ok {
			group = &CategoryGroup{CategoryName: name, Items: []ValuationItem{}}
			grouped[name] = group
		}

		total := p.StockValue()
		group.Items = append(group.Items, ValuationItem{
			ProductID: p.ID,
			Name:      p.Name,
			SKU:       p.SKU,
			Quantity:  p.Quantity,
			CostPrice: p.BuyingPrice,
			TotalCost: total,
		})
		group.Subtotal = group.Subtotal.Add(total)
		v.GrandTotal = v.GrandTotal.Add(total)
	}

	for _, group := range grouped {
		v.Categories = append(v.Categories, *group)
	}
	sort.Slice(v.Categories, func(i, j int) bool { return v.Categories[i].CategoryName < v.Categories[j].CategoryName })
	return v, nil
}
