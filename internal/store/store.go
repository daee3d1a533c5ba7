// Package store declares the persistence boundary of the back-office. Services depend
// on these interfaces; internal/database implements them on MySQL and
// internal/store/memstore implements them in memory.
package store

import (
	"context"
	"errors"
	"time"

	"go-pos-backoffice/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicate         = errors.New("record already exists")
	// ErrStale is returned when a versioned update lost a race.
	ErrStale = errors.New("record was modified concurrently")
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// Normalize applies the defaults used by every list endpoint.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	return p
}

func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

type ProductFilter struct {
	Search   string
	Category string
}

type ReportFilter struct {
	Start    *time.Time
	End      *time.Time
	Category string
	Type     models.ReportType
	UserID   string
}

type DebtFilter struct {
	UserID string
	Status models.DebtStatus
	// SortBy is one of dueDate, createdAt, remainingAmount.
	SortBy string
	Desc   bool
	Page   Page
}

type ExpenditureFilter struct {
	Status     models.ExpenditureStatus
	Category   models.ExpenditureCategory
	EmployeeID string
	Start      *time.Time
	End        *time.Time
}

// SalesSummary is the revenue and order count over a date range.
type SalesSummary struct {
	TotalRevenue decimal.Decimal
	TotalCount   int64
}

type ProductStore interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	// FindByIDForUpdate reads the latest committed row and locks it until the
	// transaction ends.
	FindByIDForUpdate(ctx context.Context, id string) (*models.Product, error)
	FindBySKU(ctx context.Context, sku string) (*models.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
	// DecrementStock removes qty units only if at least qty are on hand.
	DecrementStock(ctx context.Context, id string, qty int) error
	IncrementStock(ctx context.Context, id string, qty int) error
	LowStock(ctx context.Context) ([]models.Product, error)
}

type CartStore interface {
	// FindActiveByUser returns the user's active cart. Inside a transaction the
	// cart stays locked until commit.
	FindActiveByUser(ctx context.Context, userID string) (*models.Cart, error)
	// Save writes the cart header and replaces its items. Overwriting a cart that
	// is no longer active in storage fails with ErrStale.
	Save(ctx context.Context, cart *models.Cart) error
	List(ctx context.Context, status models.CartStatus, page Page) ([]models.Cart, int64, error)
	// ExpireAbandoned marks active carts untouched since before as abandoned.
	ExpireAbandoned(ctx context.Context, before time.Time) (int64, error)
}

type ReportStore interface {
	Create(ctx context.Context, r *models.Report) error
	FindByID(ctx context.Context, id string) (*models.Report, error)
	// FindByIDForUpdate reads the latest committed report and locks it until the
	// transaction ends. FindLatest locks the same way.
	FindByIDForUpdate(ctx context.Context, id string) (*models.Report, error)
	FindLatest(ctx context.Context) (*models.Report, error)
	// Save writes the report header and appends expenditure lines not yet stored.
	Save(ctx context.Context, r *models.Report) error
	// SaveSettlement writes only the payment columns of the report.
	SaveSettlement(ctx context.Context, r *models.Report) error
	List(ctx context.Context, filter ReportFilter) ([]models.Report, error)
	Summarize(ctx context.Context, start, end time.Time) (*SalesSummary, error)
	// Delete removes one report with its item and expenditure lines.
	Delete(ctx context.Context, id string) error
	// DeleteRange removes every report dated within [start, end].
	DeleteRange(ctx context.Context, start, end time.Time) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type DebtStore interface {
	Create(ctx context.Context, d *models.Debt) error
	FindByID(ctx context.Context, id string) (*models.Debt, error)
	FindByReport(ctx context.Context, reportID string) (*models.Debt, error)
	// Update is a compare-and-set on d.Version. New payment records are appended.
	// On success d.Version is advanced; on a lost race ErrStale is returned.
	Update(ctx context.Context, d *models.Debt) error
	List(ctx context.Context, filter DebtFilter) ([]models.Debt, int64, error)
	Outstanding(ctx context.Context) ([]models.Debt, error)
	// MarkOverdue flips every current debt with money remaining and a due date before
	// now to overdue, and returns the flipped debts.
	MarkOverdue(ctx context.Context, now time.Time) ([]models.Debt, error)
	DeleteAll(ctx context.Context) (int64, error)
}

type ExpenditureStore interface {
	Create(ctx context.Context, e *models.Expenditure) error
	FindByID(ctx context.Context, id string) (*models.Expenditure, error)
	Save(ctx context.Context, e *models.Expenditure) error
	List(ctx context.Context, filter ExpenditureFilter) ([]models.Expenditure, error)
	Delete(ctx context.Context, id string) error
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Count(ctx context.Context) (int64, error)
}

// Store groups the repositories. Transact runs fn against a transactional view; any
// error returned by fn rolls back every write made through that view.
type Store interface {
	Products() ProductStore
	Carts() CartStore
	Reports() ReportStore
	Debts() DebtStore
	Expenditures() ExpenditureStore
	Users() UserStore
	Transact(ctx context.Context, fn func(tx Store) error) error
}
