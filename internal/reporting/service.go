// Package reporting aggregates settlement reports into sales, product, category
// and profit figures. All aggregation happens here over report rows.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go-pos-backoffice/internal/apperrors"
	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Period groups reports into buckets.
type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

func (p Period) Valid() bool {
	switch p {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// Key labels the bucket t falls into, e.g. 2026-03-10, 2026-W11, 2026-03, 2026.
func (p Period) Key(t time.Time) string {
	switch p {
	case Weekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case Monthly:
		return t.Format("2006-01")
	case Yearly:
		return t.Format("2006")
	}
	return t.Format("2006-01-02")
}

// Query narrows the reports a figure is computed over.
type Query struct {
	Period   Period
	Start    *time.Time
	End      *time.Time
	Category string
}

func (q Query) filter() store.ReportFilter {
	return store.ReportFilter{Start: q.Start, End: q.End, Category: q.Category}
}

type Service struct {
	store store.Store
	log   *zap.Logger
}

func NewService(st store.Store, log *zap.Logger) *Service {
	return &Service{store: st, log: log}
}

func (s *Service) reports(ctx context.Context, q Query) ([]models.Report, error) {
	reports, err := s.store.Reports().List(ctx, q.filter())
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return reports, nil
}

// figures are the sale numbers of one report, restricted to a category when one
// is given.
type figures struct {
	revenue decimal.Decimal
	cost    decimal.Decimal
	profit  decimal.Decimal
	isSale  bool
}

func saleFigures(r models.Report, category string) figures {
	if r.Type == models.ReportTypeExpenditure {
		return figures{}
	}
	if category == "" {
		return figures{revenue: r.TotalRevenue, cost: r.TotalCost, profit: r.TotalProfit, isSale: true}
	}
	var f figures
	for _, item := range r.Items {
		if item.Category != category {
			continue
		}
		f.isSale = true
		f.revenue = f.revenue.Add(item.Revenue)
		f.cost = f.cost.Add(item.Cost)
		f.profit = f.profit.Add(item.Profit)
	}
	return f
}

type PeriodStats struct {
	Period       string          `json:"period"`
	Revenue      decimal.Decimal `json:"revenue"`
	Cost         decimal.Decimal `json:"cost"`
	Profit       decimal.Decimal `json:"profit"`
	Orders       int             `json:"orders"`
	Expenditures decimal.Decimal `json:"expenditures"`
	NetProfit    decimal.Decimal `json:"netProfit"`
	NetRevenue   decimal.Decimal `json:"netRevenue"`
}

// Sales buckets revenue, cost, profit and expenditures by period, oldest first.
func (s *Service) Sales(ctx context.Context, q Query) ([]PeriodStats, error) {
	if q.Period == "" {
		q.Period = Daily
	}
	reports, err := s.reports(ctx, q)
	if err != nil {
		return nil, err
	}

	buckets := map[string]*PeriodStats{}
	for _, r := range reports {
		key := q.Period.Key(r.Date)
		b, ok := buckets[key]
		if !ok {
			b = &PeriodStats{Period: key}
			buckets[key] = b
		}

		f := saleFigures(r, q.Category)
		if f.isSale {
			b.Orders++
			b.Revenue = b.Revenue.Add(f.revenue)
			b.Cost = b.Cost.Add(f.cost)
			b.Profit = b.Profit.Add(f.profit)
		}
		b.Expenditures = b.Expenditures.Add(r.TotalExpenditures)
	}

	out := make([]PeriodStats, 0, len(buckets))
	for _, b := range buckets {
		b.NetProfit = b.Profit.Sub(b.Expenditures)
		b.NetRevenue = b.Revenue.Sub(b.Expenditures)
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out, nil
}

type ProductStats struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	SKU         string          `json:"sku"`
	Category    string          `json:"category"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
	Cost        decimal.Decimal `json:"cost"`
	Profit      decimal.Decimal `json:"profit"`
}

type ProductReport struct {
	Products   []ProductStats `json:"products"`
	TopSellers []ProductStats `json:"topSellers"`
}

const topSellerCount = 5

// Products sums sold lines per product. Products are ordered by revenue; top
// sellers by units sold.
func (s *Service) Products(ctx context.Context, q Query) (*ProductReport, error) {
	reports, err := s.reports(ctx, q)
	if err != nil {
		return nil, err
	}

	byProduct := map[string]*ProductStats{}
	for _, r := range reports {
		for _, item := range r.Items {
			if q.Category != "" && item.Category != q.Category {
				continue
			}
			p, ok := byProduct[item.ProductID]
			if !ok {
				p = &ProductStats{ProductID: item.ProductID, ProductName: item.ProductName, SKU: item.SKU, Category: item.Category}
				byProduct[item.ProductID] = p
			}
			p.Quantity += item.Quantity
			p.Revenue = p.Revenue.Add(item.Revenue)
			p.Cost = p.Cost.Add(item.Cost)
			p.Profit = p.Profit.Add(item.Profit)
		}
	}

	report := &ProductReport{Products: make([]ProductStats, 0, len(byProduct))}
	for _, p := range byProduct {
		report.Products = append(report.Products, *p)
	}
	sort.Slice(report.Products, func(i, j int) bool {
		a, b := report.Products[i], report.Products[j]
		if !a.Revenue.Equal(b.Revenue) {
			return a.Revenue.GreaterThan(b.Revenue)
		}
		return a.ProductName < b.ProductName
	})

	top := append([]ProductStats(nil), report.Products...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Quantity > top[j].Quantity })
	if len(top) > topSellerCount {
		top = top[:topSellerCount]
	}
	report.TopSellers = top
	return report, nil
}

type CategoryStats struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Revenue  decimal.Decimal `json:"revenue"`
	Profit   decimal.Decimal `json:"profit"`
}

// Categories merges the category breakdowns of every report.
func (s *Service) Categories(ctx context.Context, q Query) ([]CategoryStats, error) {
	reports, err := s.reports(ctx, q)
	if err != nil {
		return nil, err
	}

	merged := models.CategoryBreakdown{}
	for _, r := range reports {
		for name, stat := range r.Categories.Data() {
			m := merged[name]
			m.Count += stat.Count
			m.Revenue = m.Revenue.Add(stat.Revenue)
			m.Profit = m.Profit.Add(stat.Profit)
			merged[name] = m
		}
	}

	out := make([]CategoryStats, 0, len(merged))
	for name, stat := range merged {
		if q.Category != "" && name != q.Category {
			continue
		}
		out = append(out, CategoryStats{Category: name, Count: stat.Count, Revenue: stat.Revenue, Profit: stat.Profit})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Revenue.GreaterThan(out[j].Revenue) })
	return out, nil
}

type PaymentMethodStats struct {
	Method      string          `json:"method"`
	Count       int             `json:"count"`
	Revenue     decimal.Decimal `json:"revenue"`
	AmountPaid  decimal.Decimal `json:"amountPaid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// PaymentMethods groups sale reports by how they were paid.
func (s *Service) PaymentMethods(ctx context.Context, q Query) ([]PaymentMethodStats, error) {
	q.Category = ""
	reports, err := s.reports(ctx, q)
	if err != nil {
		return nil, err
	}

	byMethod := map[string]*PaymentMethodStats{}
	for _, r := range reports {
		if r.Type == models.ReportTypeExpenditure {
			continue
		}
		method := r.PaymentMethod
		if method == "" {
			method = "unknown"
		}
		m, ok := byMethod[method]
		if !ok {
			m = &PaymentMethodStats{Method: method}
			byMethod[method] = m
		}
		m.Count++
		m.Revenue = m.Revenue.Add(r.TotalRevenue)
		m.AmountPaid = m.AmountPaid.Add(r.AmountPaid)
		m.Outstanding = m.Outstanding.Add(r.RemainingBalance)
	}

	out := make([]PaymentMethodStats, 0, len(byMethod))
	for _, m := range byMethod {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out, nil
}

type ProfitLossRow struct {
	Period       string          `json:"period"`
	Revenue      decimal.Decimal `json:"revenue"`
	Cost         decimal.Decimal `json:"cost"`
	GrossProfit  decimal.Decimal `json:"grossProfit"`
	Expenditures decimal.Decimal `json:"expenditures"`
	NetProfit    decimal.Decimal `json:"netProfit"`
	GrossMargin  decimal.Decimal `json:"grossMargin"`
	NetMargin    decimal.Decimal `json:"netMargin"`
}

type ProfitLoss struct {
	Periods []ProfitLossRow `json:"periods"`
	Total   ProfitLossRow   `json:"total"`
}

// ProfitLoss reports margins per period and overall. Margins are percentages of
// revenue rounded to one decimal, zero when there was no revenue.
func (s *Service) ProfitLoss(ctx context.Context, q Query) (*ProfitLoss, error) {
	periods, err := s.Sales(ctx, q)
	if err != nil {
		return nil, err
	}

	pl := &ProfitLoss{Periods: make([]ProfitLossRow, 0, len(periods)), Total: ProfitLossRow{Period: "total"}}
	for _, p := range periods {
		row := ProfitLossRow{
			Period:       p.Period,
			Revenue:      p.Revenue,
			Cost:         p.Cost,
			GrossProfit:  p.Profit,
			Expenditures: p.Expenditures,
			NetProfit:    p.NetProfit,
		}
		row.setMargins()
		pl.Periods = append(pl.Periods, row)

		pl.Total.Revenue = pl.Total.Revenue.Add(p.Revenue)
		pl.Total.Cost = pl.Total.Cost.Add(p.Cost)
		pl.Total.GrossProfit = pl.Total.GrossProfit.Add(p.Profit)
		pl.Total.Expenditures = pl.Total.Expenditures.Add(p.Expenditures)
		pl.Total.NetProfit = pl.Total.NetProfit.Add(p.NetProfit)
	}
	pl.Total.setMargins()
	return pl, nil
}

func (r *ProfitLossRow) setMargins() {
	r.GrossMargin = margin(r.GrossProfit, r.Revenue)
	r.NetMargin = margin(r.NetProfit, r.Revenue)
}

func margin(part, revenue decimal.Decimal) decimal.Decimal {
	if !revenue.IsPositive() {
		return decimal.Zero
	}
	return part.Div(revenue).Mul(decimal.NewFromInt(100)).Round(1)
}

// Summary is total revenue and order count of sales between start and end.
func (s *Service) Summary(ctx context.Context, start, end time.Time) (*store.SalesSummary, error) {
	sum, err := s.store.Reports().Summarize(ctx, start, end)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return sum, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Report, error) {
	r, err := s.store.Reports().FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("report")
	}
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return r, nil
}

func (s *Service) List(ctx context.Context, filter store.ReportFilter) ([]models.Report, error) {
	reports, err := s.store.Reports().List(ctx, filter)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return reports, nil
}

// Delete removes one report. A debt opened by the report stays: the money is
// still owed, and later payments on it skip the missing report.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.Reports().Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NotFound("report")
	}
	if err != nil {
		return apperrors.Storage(err)
	}
	s.log.Info("report deleted", zap.String("reportId", id))
	return nil
}

// DeleteRange removes every report dated within [start, end]. Debts are kept
// as in Delete.
func (s *Service) DeleteRange(ctx context.Context, start, end time.Time) (int64, error) {
	if start.IsZero() || end.IsZero() {
		return 0, apperrors.Validation("start date and end date are required")
	}
	if end.Before(start) {
		return 0, apperrors.Validation("end date must not be before start date")
	}
	n, err := s.store.Reports().DeleteRange(ctx, start, end)
	if err != nil {
		return 0, apperrors.Storage(err)
	}
	s.log.Warn("reports deleted",
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int64("count", n))
	return n, nil
}

func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.store.Reports().DeleteAll(ctx)
	if err != nil {
		return 0, apperrors.Storage(err)
	}
	s.log.Warn("all reports deleted", zap.Int64("count", n))
	return n, nil
}
