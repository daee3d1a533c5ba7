package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ReportType tells what a report carries.
type ReportType string

const (
	ReportTypeSale        ReportType = "sale"
	ReportTypeExpenditure ReportType = "expenditure"
	ReportTypeMixed       ReportType = "mixed"
)

// ReportItem - one sold line with its computed financials
type ReportItem struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	ReportID     string          `gorm:"index;size:36" json:"-"`
	ProductID    string          `gorm:"index;size:36" json:"productId"`
	ProductName  string          `gorm:"size:200" json:"productName"`
	SKU          string          `gorm:"size:64" json:"sku"`
	Category     string          `gorm:"size:50" json:"category"`
	Quantity     int             `json:"quantity"`
	Unit         string          `gorm:"size:20" json:"unit"`
	BuyingPrice  decimal.Decimal `gorm:"type:decimal(14,2)" json:"buyingPrice"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(14,2)" json:"sellingPrice"`
	Cost         decimal.Decimal `gorm:"type:decimal(14,2)" json:"cost"`
	Revenue      decimal.Decimal `gorm:"type:decimal(14,2)" json:"revenue"`
	Profit       decimal.Decimal `gorm:"type:decimal(14,2)" json:"profit"`
	Position     int             `json:"-"`
}

// ReportExpenditure - an expenditure posted onto a report
type ReportExpenditure struct {
	ID            string          `gorm:"primaryKey;size:36" json:"id"`
	ReportID      string          `gorm:"index;size:36" json:"-"`
	ExpenditureID string          `gorm:"size:36" json:"expenditureId"`
	Amount        decimal.Decimal `gorm:"type:decimal(14,2)" json:"amount"`
	Description   string          `json:"description"`
	Category      string          `gorm:"size:30" json:"category"`
	EmployeeName  string          `gorm:"size:200" json:"employeeName"`
	Position      int             `json:"-"`
}

type CategoryStat struct {
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

// CategoryBreakdown maps product category to its rollup. Iteration order is not significant.
type CategoryBreakdown map[string]CategoryStat

type ExpenditureStat struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type ExpenditureBreakdown map[string]ExpenditureStat

// Report - the financial facts of one settlement
type Report struct {
	ID                    string                                   `gorm:"primaryKey;size:36" json:"id"`
	Date                  time.Time                                `gorm:"index" json:"date"`
	Type                  ReportType                               `gorm:"size:20" json:"type"`
	Items                 []ReportItem                             `gorm:"foreignKey:ReportID" json:"items"`
	Expenditures          []ReportExpenditure                      `gorm:"foreignKey:ReportID" json:"expenditures"`
	TotalRevenue          decimal.Decimal                          `gorm:"type:decimal(14,2)" json:"totalRevenue"`
	TotalCost             decimal.Decimal                          `gorm:"type:decimal(14,2)" json:"totalCost"`
	TotalProfit           decimal.Decimal                          `gorm:"type:decimal(14,2)" json:"totalProfit"`
	TotalExpenditures     decimal.Decimal                          `gorm:"type:decimal(14,2)" json:"totalExpenditures"`
	NetProfit             decimal.Decimal                          `gorm:"type:decimal(14,2)" json:"netProfit"`
	Categories            datatypes.JSONType[CategoryBreakdown]    `json:"categories"`
	ExpenditureCategories datatypes.JSONType[ExpenditureBreakdown] `json:"expenditureCategories"`
	PaymentMethod         string                                   `gorm:"size:50" json:"paymentMethod"`
	PaymentStatus         PaymentStatus                            `gorm:"size:20" json:"paymentStatus"`
	AmountPaid            decimal.Decimal                          `gorm:"type:decimal(14,2)" json:"amountPaid"`
	RemainingBalance      decimal.Decimal                          `gorm:"type:decimal(14,2)" json:"remainingBalance"`
	UserID                string                                   `gorm:"index;size:36" json:"userId"`
	Customer              CustomerInfo                             `gorm:"embedded;embeddedPrefix:customer_" json:"customerInfo"`
	CreatedAt             time.Time                                `json:"createdAt"`
	UpdatedAt             time.Time                                `json:"updatedAt"`
}

// NewSaleReport starts a sale report for a settlement. Items are added with AddSaleItem.
func NewSaleReport(userID, paymentMethod string, customer CustomerInfo, terms PaymentTerms, now time.Time) *Report {
	return &Report{
		ID:                    uuid.NewString(),
		Date:                  now,
		Type:                  ReportTypeSale,
		Items:                 []ReportItem{},
		Expenditures:          []ReportExpenditure{},
		TotalRevenue:          terms.Total,
		Categories:            datatypes.NewJSONType(CategoryBreakdown{}),
		ExpenditureCategories: datatypes.NewJSONType(ExpenditureBreakdown{}),
		PaymentMethod:         paymentMethod,
		PaymentStatus:         terms.Status,
		AmountPaid:            terms.AmountPaid,
		RemainingBalance:      terms.RemainingBalance,
		UserID:                userID,
		Customer:              customer,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// AddSaleItem records a sold line. Cost is taken at the product's buying price and
// revenue at the snapshotted selling price.
func (r *Report) AddSaleItem(p Product, qty int, unitPrice decimal.Decimal) ReportItem {
	q := decimal.NewFromInt(int64(qty))
	cost := p.BuyingPrice.Mul(q)
	revenue := unitPrice.Mul(q)
	profit := revenue.Sub(cost)

	unit := p.Unit
	if unit == "" {
		unit = "pcs"
	}
	item := ReportItem{
		ID:           uuid.NewString(),
		ReportID:     r.ID,
		ProductID:    p.ID,
		ProductName:  p.Name,
		SKU:          p.SKU,
		Category:     p.Category,
		Quantity:     qty,
		Unit:         unit,
		BuyingPrice:  p.BuyingPrice,
		SellingPrice: unitPrice,
		Cost:         cost,
		Revenue:      revenue,
		Profit:       profit,
		Position:     len(r.Items),
	}
	r.Items = append(r.Items, item)

	categories := r.CategoryBreakdown()
	stat := categories[p.Category]
	stat.Count += qty
	stat.Revenue = stat.Revenue.Add(revenue)
	stat.Profit = stat.Profit.Add(profit)
	categories[p.Category] = stat
	r.Categories = datatypes.NewJSONType(categories)

	r.TotalCost = r.TotalCost.Add(cost)
	r.TotalProfit = r.TotalProfit.Add(profit)
	r.refreshNetProfit()
	return item
}

// CategoryBreakdown returns a copy of the category rollup.
func (r *Report) CategoryBreakdown() CategoryBreakdown {
	out := CategoryBreakdown{}
	for k, v := range r.Categories.Data() {
		out[k] = v
	}
	return out
}

func (r *Report) ExpenditureBreakdown() ExpenditureBreakdown {
	out := ExpenditureBreakdown{}
	for k, v := range r.ExpenditureCategories.Data() {
		out[k] = v
	}
	return out
}

func (r *Report) refreshNetProfit() {
	r.NetProfit = r.TotalProfit.Sub(r.TotalExpenditures)
}

// PostExpenditure appends a completed expenditure. Revenue is left as sold; only
// totalExpenditures and netProfit move.
func (r *Report) PostExpenditure(e Expenditure, now time.Time) {
	r.Expenditures = append(r.Expenditures, ReportExpenditure{
		ID:            uuid.NewString(),
		ReportID:      r.ID,
		ExpenditureID: e.ID,
		Amount:        e.Amount,
		Description:   e.Description,
		Category:      string(e.Category),
		EmployeeName:  e.EmployeeName,
		Position:      len(r.Expenditures),
	})

	categories := r.ExpenditureBreakdown()
	stat := categories[string(e.Category)]
	stat.Count++
	stat.Amount = stat.Amount.Add(e.Amount)
	categories[string(e.Category)] = stat
	r.ExpenditureCategories = datatypes.NewJSONType(categories)

	r.TotalExpenditures = r.TotalExpenditures.Add(e.Amount)
	r.refreshNetProfit()
	if r.Type == ReportTypeSale {
		r.Type = ReportTypeMixed
	}
	r.UpdatedAt = now
}

// NewExpenditureReport opens a report holding only the given expenditure.
func NewExpenditureReport(e Expenditure, userID string, now time.Time) *Report {
	r := &Report{
		ID:                    uuid.NewString(),
		Date:                  now,
		Type:                  ReportTypeExpenditure,
		Items:                 []ReportItem{},
		Expenditures:          []ReportExpenditure{},
		Categories:            datatypes.NewJSONType(CategoryBreakdown{}),
		ExpenditureCategories: datatypes.NewJSONType(ExpenditureBreakdown{}),
		PaymentMethod:         "expenditure",
		PaymentStatus:         PaymentPaid,
		UserID:                userID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	r.PostExpenditure(e, now)
	return r
}

// ApplyDebtSettlement mirrors the debt's payment figures onto the report.
func (r *Report) ApplyDebtSettlement(d *Debt, now time.Time) {
	r.AmountPaid = d.AmountPaid
	r.RemainingBalance = d.RemainingAmount
	if d.Status == DebtPaid {
		r.PaymentStatus = PaymentPaid
	} else {
		r.PaymentStatus = PaymentPartial
	}
	r.UpdatedAt = now
}
