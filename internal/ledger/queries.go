package ledger

import (
	"context"
	"errors"
	"time"

	"go-pos-backoffice/internal/apperrors"
	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/notify"
	"go-pos-backoffice/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Get returns a debt. A non-empty ownerID hides debts of other users.
func (s *Service) Get(ctx context.Context, debtID, ownerID string) (*models.Debt, error) {
	d, err := s.find(ctx, s.store, debtID, ownerID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return d, nil
}

// ListForUser returns one page of the user's debts, newest first, and the total.
func (s *Service) ListForUser(ctx context.Context, userID string, page store.Page) ([]models.Debt, int64, error) {
	debts, total, err := s.store.Debts().List(ctx, store.DebtFilter{
		UserID: userID,
		SortBy: "createdAt",
		Desc:   true,
		Page:   page,
	})
	if err != nil {
		return nil, 0, apperrors.Storage(err)
	}
	return debts, total, nil
}

func (s *Service) List(ctx context.Context, filter store.DebtFilter) ([]models.Debt, int64, error) {
	debts, total, err := s.store.Debts().List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.Storage(err)
	}
	return debts, total, nil
}

type StatusDistribution struct {
	Current int `json:"current"`
	Overdue int `json:"overdue"`
}

type Statistics struct {
	TotalDebt          decimal.Decimal    `json:"totalDebt"`
	ActiveDebtCount    int                `json:"activeDebtCount"`
	OverdueAmount      decimal.Decimal    `json:"overdueAmount"`
	OverdueCount       int                `json:"overdueCount"`
	OverduePercentage  decimal.Decimal    `json:"overduePercentage"`
	StatusDistribution StatusDistribution `json:"debtStatusDistribution"`
}

// Statistics sums outstanding debt. A debt counts as active when money remains
// and its status is not paid; it counts as overdue when it is also past due,
// whatever the sweep has recorded so far.
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	active, err := s.store.Debts().Outstanding(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	now := s.now()

	stats := &Statistics{ActiveDebtCount: len(active)}
	for _, d := range active {
		stats.TotalDebt = stats.TotalDebt.Add(d.RemainingAmount)
		if d.DueDate.Before(now) {
			stats.OverdueCount++
			stats.OverdueAmount = stats.OverdueAmount.Add(d.RemainingAmount)
		}
	}
	if stats.TotalDebt.IsPositive() {
		stats.OverduePercentage = stats.OverdueAmount.Div(stats.TotalDebt).Mul(decimal.NewFromInt(100)).Round(2)
	}
	stats.StatusDistribution = StatusDistribution{
		Current: stats.ActiveDebtCount - stats.OverdueCount,
		Overdue: stats.OverdueCount,
	}
	return stats, nil
}

// AgingBucket names, by days past due.
const (
	Bucket1To30  = "1-30"
	Bucket31To60 = "31-60"
	Bucket61To90 = "61-90"
	BucketOver90 = "90+"
)

type Bucket struct {
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type OverdueReport struct {
	Count              int               `json:"count"`
	TotalOverdueAmount decimal.Decimal   `json:"totalOverdueAmount"`
	Groups             map[string]Bucket `json:"overdueGroups"`
	Debts              []models.Debt     `json:"data"`
}

func agingBucket(days int) string {
	switch {
	case days <= 30:
		return Bucket1To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	}
	return BucketOver90
}

// OverdueReport groups overdue debts by how long they are past due.
func (s *Service) OverdueReport(ctx context.Context) (*OverdueReport, error) {
	active, err := s.store.Debts().Outstanding(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	now := s.now()

	report := &OverdueReport{
		Groups: map[string]Bucket{
			Bucket1To30:  {},
			Bucket31To60: {},
			Bucket61To90: {},
			BucketOver90: {},
		},
		Debts: []models.Debt{},
	}
	for _, d := range active {
		if d.Status != models.DebtOverdue && !d.DueDate.Before(now) {
			continue
		}
		key := agingBucket(d.DaysOverdue(now))
		b := report.Groups[key]
		b.Count++
		b.Amount = b.Amount.Add(d.RemainingAmount)
		report.Groups[key] = b

		report.Debts = append(report.Debts, d)
		report.TotalOverdueAmount = report.TotalOverdueAmount.Add(d.RemainingAmount)
	}
	report.Count = len(report.Debts)
	return report, nil
}

// DetailsUpdate changes administrative fields of a debt. Nil fields are kept.
type DetailsUpdate struct {
	DueDate *time.Time
	Notes   *string
}

// UpdateDetails changes due date or notes and recomputes the status.
func (s *Service) UpdateDetails(ctx context.Context, debtID string, upd DetailsUpdate) (*models.Debt, error) {
	now := s.now()
	var debt *models.Debt
	err := s.store.Transact(ctx, func(tx store.Store) error {
		d, err := s.find(ctx, tx, debtID, "")
		if err != nil {
			return err
		}
		if upd.DueDate != nil {
			d.DueDate = *upd.DueDate
		}
		if upd.Notes != nil {
			d.Notes = *upd.Notes
		}
		d.RefreshStatus(now)
		d.UpdatedAt = now
		if err := tx.Debts().Update(ctx, d); err != nil {
			if errors.Is(err, store.ErrStale) {
				return apperrors.ConcurrentUpdate("debt")
			}
			return err
		}
		debt = d
		return nil
	})
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return debt, nil
}

// SendReminder emails the debtor. Unlike checkout, a delivery failure is the
// result of this operation and is returned.
func (s *Service) SendReminder(ctx context.Context, debtID string) error {
	d, err := s.find(ctx, s.store, debtID, "")
	if err != nil {
		return apperrors.Storage(err)
	}
	if !d.IsOutstanding() {
		return apperrors.DebtAlreadyPaid()
	}
	user, err := s.store.Users().FindByID(ctx, d.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("debtor")
		}
		return apperrors.Storage(err)
	}

	err = s.notifier.SendDebtReminder(ctx, user.Email, notify.DebtReminder{
		Username: user.Username,
		DebtID:   d.ID,
		OrderID:  d.ReportID,
		Amount:   d.RemainingAmount,
		DueDate:  d.DueDate,
	})
	if err != nil {
		s.metrics.RecordNotificationFailure("debt_reminder")
		s.log.Error("failed to send debt reminder", zap.String("debtId", d.ID), zap.Error(err))
		return apperrors.DependencyFailure("failed to send reminder email", err)
	}
	return nil
}

func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.store.Debts().DeleteAll(ctx)
	if err != nil {
		return 0, apperrors.Storage(err)
	}
	s.log.Warn("all debt records deleted", zap.Int64("count", n))
	return n, nil
}
