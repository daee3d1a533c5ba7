// Package expenditure manages business spending and posts completed
// expenditures onto reports.
package expenditure

import (
	"context"
	"errors"
	"sort"
	"time"

	"go-pos-backoffice/internal/apperrors"
	"go-pos-backoffice/internal/events"
	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// autoApprover is recorded as the approver of auto-approved expenditures.
const autoApprover = "system"

type Service struct {
	store     store.Store
	publisher events.Publisher
	log       *zap.Logger
	limit     decimal.Decimal
	now       func() time.Time
}

// NewService creates the service. Expenditures at or below limit are approved on creation.
func NewService(st store.Store, publisher events.Publisher, log *zap.Logger, limit decimal.Decimal) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{store: st, publisher: publisher, log: log, limit: limit, now: time.Now}
}

type Draft struct {
	Amount       decimal.Decimal
	Description  string
	EmployeeName string
	EmployeeID   string
	Category     models.ExpenditureCategory
	Notes        string
	ReceiptImage string
}

func (s *Service) Create(ctx context.Context, d Draft) (*models.Expenditure, error) {
	if !d.Amount.IsPositive() {
		return nil, apperrors.InvalidAmount("expenditure amount must be greater than zero")
	}
	if !d.Category.Valid() {
		return nil, apperrors.Validation("invalid expenditure category")
	}

	now := s.now()
	e := models.NewExpenditure(d.Amount, d.Description, d.EmployeeName, d.EmployeeID, d.Category, d.Notes, now)
	e.ReceiptImage = d.ReceiptImage
	e.ApplyAutoApproval(s.limit, autoApprover, now)

	if err := s.store.Expenditures().Create(ctx, e); err != nil {
		return nil, apperrors.Storage(err)
	}
	if e.Status == models.ExpenditureApproved {
		s.publish(ctx, events.New(events.ExpenditureApproved, e.ID, map[string]any{
			"amount":     e.Amount,
			"approvedBy": e.ApprovedBy,
		}))
	}
	s.log.Info("expenditure created",
		zap.String("expenditureId", e.ID),
		zap.String("amount", e.Amount.String()),
		zap.String("status", string(e.Status)))
	return e, nil
}

// Changes holds the fields to update. Nil fields are kept.
type Changes struct {
	Amount       *decimal.Decimal
	Description  *string
	Category     *models.ExpenditureCategory
	Notes        *string
	ReceiptImage *string
}

// Update edits an expenditure that is not completed. A new amount re-evaluates
// auto approval; manual approvals stand.
func (s *Service) Update(ctx context.Context, id string, c Changes) (*models.Expenditure, error) {
	if c.Amount != nil && !c.Amount.IsPositive() {
		return nil, apperrors.InvalidAmount("expenditure amount must be greater than zero")
	}
	if c.Category != nil && !c.Category.Valid() {
		return nil, apperrors.Validation("invalid expenditure category")
	}

	return s.mutate(ctx, id, func(e *models.Expenditure, now time.Time) error {
		if e.Status == models.ExpenditureCompleted {
			return models.ErrExpenditureCompleted
		}
		if c.Description != nil {
			e.Description = *c.Description
		}
		if c.Category != nil {
			e.Category = *c.Category
		}
		if c.Notes != nil {
			e.Notes = *c.Notes
		}
		if c.ReceiptImage != nil {
			e.ReceiptImage = *c.ReceiptImage
		}
		if c.Amount != nil {
			e.Amount = *c.Amount
			e.ApplyAutoApproval(s.limit, autoApprover, now)
		}
		e.UpdatedAt = now
		return nil
	})
}

func (s *Service) Approve(ctx context.Context, id, adminID string) (*models.Expenditure, error) {
	e, err := s.mutate(ctx, id, func(e *models.Expenditure, now time.Time) error {
		return e.Approve(adminID, now)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.New(events.ExpenditureApproved, e.ID, map[string]any{
		"amount":     e.Amount,
		"approvedBy": adminID,
	}))
	return e, nil
}

func (s *Service) Reject(ctx context.Context, id, adminID string) (*models.Expenditure, error) {
	return s.mutate(ctx, id, func(e *models.Expenditure, now time.Time) error {
		return e.Reject(adminID, now)
	})
}

// Complete posts an approved expenditure onto the latest report, or onto a new
// expenditure report when none exists, in one transaction.
func (s *Service) Complete(ctx context.Context, id, adminID string) (*models.Expenditure, *models.Report, error) {
	now := s.now()
	var (
		exp    *models.Expenditure
		report *models.Report
	)
	err := s.store.Transact(ctx, func(tx store.Store) error {
		e, err := find(ctx, tx, id)
		if err != nil {
			return err
		}
		if e.Status != models.ExpenditureApproved {
			return translate(&models.TransitionError{From: e.Status, To: models.ExpenditureCompleted})
		}

		latest, err := tx.Reports().FindLatest(ctx)
		switch {
		case errors.Is(err, store.ErrNotFound):
			latest = models.NewExpenditureReport(*e, adminID, now)
			err = tx.Reports().Create(ctx, latest)
		case err == nil:
			latest.PostExpenditure(*e, now)
			err = tx.Reports().Save(ctx, latest)
		}
		if err != nil {
			return err
		}

		if err := e.Complete(latest.ID, now); err != nil {
			return translate(err)
		}
		if err := tx.Expenditures().Save(ctx, e); err != nil {
			return err
		}
		exp, report = e, latest
		return nil
	})
	if err != nil {
		return nil, nil, apperrors.Storage(err)
	}

	s.publish(ctx, events.New(events.ExpenditurePosted, exp.ID, map[string]any{
		"amount":   exp.Amount,
		"category": exp.Category,
		"reportId": report.ID,
	}))
	s.log.Info("expenditure posted",
		zap.String("expenditureId", exp.ID),
		zap.String("reportId", report.ID),
		zap.String("amount", exp.Amount.String()))
	return exp, report, nil
}

// Delete removes an expenditure that was not completed yet.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.Transact(ctx, func(tx store.Store) error {
		e, err := find(ctx, tx, id)
		if err != nil {
			return err
		}
		if e.Status == models.ExpenditureCompleted {
			return translate(models.ErrExpenditureCompleted)
		}
		return tx.Expenditures().Delete(ctx, id)
	})
	if err != nil {
		return apperrors.Storage(err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Expenditure, error) {
	e, err := find(ctx, s.store, id)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, filter store.ExpenditureFilter) ([]models.Expenditure, error) {
	list, err := s.store.Expenditures().List(ctx, filter)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return list, nil
}

type CategoryTotal struct {
	Category models.ExpenditureCategory `json:"category"`
	Count    int                        `json:"count"`
	Amount   decimal.Decimal            `json:"amount"`
}

type EmployeeTotal struct {
	EmployeeID   string          `json:"employeeId"`
	EmployeeName string          `json:"employeeName"`
	Count        int             `json:"count"`
	Amount       decimal.Decimal `json:"amount"`
}

type Statistics struct {
	TotalAmount decimal.Decimal                  `json:"totalAmount"`
	Count       int                              `json:"count"`
	ByStatus    map[models.ExpenditureStatus]int `json:"byStatus"`
	ByCategory  []CategoryTotal                  `json:"byCategory"`
	ByEmployee  []EmployeeTotal                  `json:"byEmployee"`
}

// Statistics totals approved and completed expenditures. Pending and rejected
// ones only show up in the status counts.
func (s *Service) Statistics(ctx context.Context, filter store.ExpenditureFilter) (*Statistics, error) {
	list, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{ByStatus: map[models.ExpenditureStatus]int{}}
	categories := map[models.ExpenditureCategory]*CategoryTotal{}
	employees := map[string]*EmployeeTotal{}
	for _, e := range list {
		stats.ByStatus[e.Status]++
		if !e.Counted() {
			continue
		}
		stats.Count++
		stats.TotalAmount = stats.TotalAmount.Add(e.Amount)

		c, ok := categories[e.Category]
		if !ok {
			c = &CategoryTotal{Category: e.Category}
			categories[e.Category] = c
		}
		c.Count++
		c.Amount = c.Amount.Add(e.Amount)

		emp, ok := employees[e.EmployeeID]
		if !ok {
			emp = &EmployeeTotal{EmployeeID: e.EmployeeID, EmployeeName: e.EmployeeName}
			employees[e.EmployeeID] = emp
		}
		emp.Count++
		emp.Amount = emp.Amount.Add(e.Amount)
	}

	stats.ByCategory = make([]CategoryTotal, 0, len(categories))
	for _, c := range categories {
		stats.ByCategory = append(stats.ByCategory, *c)
	}
	sort.Slice(stats.ByCategory, func(i, j int) bool { return stats.ByCategory[i].Amount.GreaterThan(stats.ByCategory[j].Amount) })

	stats.ByEmployee = make([]EmployeeTotal, 0, len(employees))
	for _, emp := range employees {
		stats.ByEmployee = append(stats.ByEmployee, *emp)
	}
	sort.Slice(stats.ByEmployee, func(i, j int) bool { return stats.ByEmployee[i].Amount.GreaterThan(stats.ByEmployee[j].Amount) })
	return stats, nil
}

func (s *Service) mutate(ctx context.Context, id string, fn func(e *models.Expenditure, now time.Time) error) (*models.Expenditure, error) {
	now := s.now()
	var exp *models.Expenditure
	err := s.store.Transact(ctx, func(tx store.Store) error {
		e, err := find(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(e, now); err != nil {
			return translate(err)
		}
		if err := tx.Expenditures().Save(ctx, e); err != nil {
			return err
		}
		exp = e
		return nil
	})
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return exp, nil
}

func find(ctx context.Context, st store.Store, id string) (*models.Expenditure, error) {
	e, err := st.Expenditures().FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("expenditure")
	}
	return e, err
}

func translate(err error) error {
	var transition *models.TransitionError
	switch {
	case errors.As(err, &transition):
		return apperrors.Conflict(transition.Error())
	case errors.Is(err, models.ErrExpenditureCompleted):
		return apperrors.Conflict(err.Error())
	}
	return err
}

func (s *Service) publish(ctx context.Context, evts ...events.Event) {
	if err := s.publisher.Publish(context.WithoutCancel(ctx), evts...); err != nil {
		s.log.Warn("failed to publish expenditure events", zap.Error(err))
	}
}
