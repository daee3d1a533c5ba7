// Package ledger tracks what customers still owe after underpaid settlements.
package ledger

import (
	"context"
	"errors"
	"time"

	"go-pos-backoffice/internal/apperrors"
	"go-pos-backoffice/internal/events"
	"go-pos-backoffice/internal/metrics"
	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/notify"
	"go-pos-backoffice/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const DefaultDuePeriod = 30 * 24 * time.Hour

type Service struct {
	store     store.Store
	notifier  notify.Notifier
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *zap.Logger
	duePeriod time.Duration
	now       func() time.Time
}

func NewService(st store.Store, notifier notify.Notifier, publisher events.Publisher, m *metrics.Metrics, log *zap.Logger, duePeriod time.Duration) *Service {
	if duePeriod <= 0 {
		duePeriod = DefaultDuePeriod
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		store:     st,
		notifier:  notifier,
		publisher: publisher,
		metrics:   m,
		log:       log,
		duePeriod: duePeriod,
		now:       time.Now,
	}
}

// Open records the debt of a settlement inside the caller's transaction.
func (s *Service) Open(ctx context.Context, tx store.Store, userID, reportID string, terms models.PaymentTerms, now time.Time) (*models.Debt, error) {
	d := models.NewDebt(userID, reportID, terms, now.Add(s.duePeriod), now)
	if err := tx.Debts().Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Payment is a payment made against a debt.
type Payment struct {
	DebtID string
	// OwnerID restricts the payment to a debt of this user. Empty means any debt.
	OwnerID string
	Amount  decimal.Decimal
	Method  string
	Notes   string
}

// RecordPayment applies a payment and mirrors the new figures onto the
// settlement report in the same transaction.
func (s *Service) RecordPayment(ctx context.Context, p Payment) (*models.Debt, error) {
	if !p.Amount.IsPositive() {
		return nil, apperrors.InvalidAmount("valid payment amount is required")
	}
	now := s.now()

	var debt *models.Debt
	err := s.store.Transact(ctx, func(tx store.Store) error {
		d, err := s.find(ctx, tx, p.DebtID, p.OwnerID)
		if err != nil {
			return err
		}

		if _, err := d.RecordPayment(p.Amount, p.Method, p.Notes, now); err != nil {
			return translatePaymentError(err, d)
		}
		d.RefreshStatus(now)

		if err := tx.Debts().Update(ctx, d); err != nil {
			if errors.Is(err, store.ErrStale) {
				return apperrors.ConcurrentUpdate("debt")
			}
			return err
		}

		// Locked so a concurrent expenditure posting cannot be overwritten
		report, err := tx.Reports().FindByIDForUpdate(ctx, d.ReportID)
		if errors.Is(err, store.ErrNotFound) {
			s.log.Warn("debt references a missing report", zap.String("debtId", d.ID), zap.String("reportId", d.ReportID))
			debt = d
			return nil
		}
		if err != nil {
			return err
		}
		report.ApplyDebtSettlement(d, now)
		if err := tx.Reports().SaveSettlement(ctx, report); err != nil {
			return err
		}
		debt = d
		return nil
	})
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	s.metrics.RecordDebtPayment()
	s.publish(ctx, events.New(events.DebtPaymentRecorded, debt.ID, map[string]any{
		"amount":          p.Amount,
		"remainingAmount": debt.RemainingAmount,
		"status":          debt.Status,
		"reportId":        debt.ReportID,
	}))
	s.log.Info("debt payment recorded",
		zap.String("debtId", debt.ID),
		zap.String("amount", p.Amount.String()),
		zap.String("remaining", debt.RemainingAmount.String()),
		zap.String("status", string(debt.Status)))
	return debt, nil
}

func translatePaymentError(err error, d *models.Debt) error {
	switch {
	case errors.Is(err, models.ErrInvalidAmount):
		return apperrors.InvalidAmount(err.Error())
	case errors.Is(err, models.ErrOverPayment):
		return apperrors.OverPayment(d.RemainingAmount.StringFixed(2))
	case errors.Is(err, models.ErrDebtAlreadyPaid):
		return apperrors.DebtAlreadyPaid()
	}
	return err
}

// RecomputeOverdueStatuses flips current debts past their due date with money
// remaining to overdue. Running it twice changes nothing the second time.
func (s *Service) RecomputeOverdueStatuses(ctx context.Context) (int, error) {
	flipped, err := s.store.Debts().MarkOverdue(ctx, s.now())
	if err != nil {
		return 0, apperrors.Storage(err)
	}
	if len(flipped) == 0 {
		return 0, nil
	}

	s.metrics.RecordOverdue(len(flipped))
	evts := make([]events.Event, 0, len(flipped))
	for _, d := range flipped {
		evts = append(evts, events.New(events.DebtMarkedOverdue, d.ID, map[string]any{
			"userId":          d.UserID,
			"remainingAmount": d.RemainingAmount,
			"dueDate":         d.DueDate,
		}))
	}
	s.publish(ctx, evts...)
	s.log.Info("debts marked overdue", zap.Int("count", len(flipped)))
	return len(flipped), nil
}

// RepairStatuses recomputes the status of every unpaid debt from its balance
// and due date, including moving a debt back to current when its due date was
// extended. Debts changed concurrently are skipped.
func (s *Service) RepairStatuses(ctx context.Context) (updated, skipped int, err error) {
	now := s.now()

	var unpaid []models.Debt
	for _, status := range []models.DebtStatus{models.DebtCurrent, models.DebtOverdue} {
		for page := 1; ; page++ {
			batch, total, listErr := s.store.Debts().List(ctx, store.DebtFilter{Status: status, Page: store.Page{Page: page, Limit: 100}})
			if listErr != nil {
				return 0, 0, apperrors.Storage(listErr)
			}
			unpaid = append(unpaid, batch...)
			if int64(page*100) >= total {
				break
			}
		}
	}

	for i := range unpaid {
		d := &unpaid[i]
		if !d.RefreshStatus(now) {
			continue
		}
		switch updErr := s.store.Debts().Update(ctx, d); {
		case errors.Is(updErr, store.ErrStale):
			skipped++
		case updErr != nil:
			return updated, skipped, apperrors.Storage(updErr)
		default:
			updated++
		}
	}
	s.log.Info("debt statuses repaired", zap.Int("updated", updated), zap.Int("skipped", skipped))
	return updated, skipped, nil
}

func (s *Service) find(ctx context.Context, st store.Store, debtID, ownerID string) (*models.Debt, error) {
	d, err := st.Debts().FindByID(ctx, debtID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("debt record")
	}
	if err != nil {
		return nil, err
	}
	if ownerID != "" && d.UserID != ownerID {
		return nil, apperrors.NotFound("debt record")
	}
	return d, nil
}

func (s *Service) publish(ctx context.Context, evts ...events.Event) {
	err := s.publisher.Publish(context.WithoutCancel(ctx), evts...)
	for _, e := range evts {
		s.metrics.RecordEvent(e.Type, err)
	}
	if err != nil {
		s.log.Warn("failed to publish events", zap.Int("count", len(evts)), zap.Error(err))
	}
}
