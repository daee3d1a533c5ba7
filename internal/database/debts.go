package database

import (
	"context"
	"time"

	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type debtRepo struct{ db *gorm.DB }

func orderedPayments(db *gorm.DB) *gorm.DB {
	return db.Order("date")
}

var debtSortColumns = map[string]string{
	"dueDate":         "due_date",
	"createdAt":       "created_at",
	"remainingAmount": "remaining_amount",
}

func (r debtRepo) Create(ctx context.Context, d *models.Debt) error {
	if d.Version == 0 {
		d.Version = 1
	}
	return translate(r.db.WithContext(ctx).Create(d).Error)
}

func (r debtRepo) FindByID(ctx context.Context, id string) (*models.Debt, error) {
	var d models.Debt
	if err := r.db.WithContext(ctx).Preload("Payments", orderedPayments).First(&d, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r debtRepo) FindByReport(ctx context.Context, reportID string) (*models.Debt, error) {
	var d models.Debt
	err := r.db.WithContext(ctx).Preload("Payments", orderedPayments).
		Where("report_id = ?", reportID).
		First(&d).Error
	if err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

// Update writes the header only if nobody else did since d was read.
func (r debtRepo) Update(ctx context.Context, d *models.Debt) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Debt{}).
			Where("id = ? AND version = ?", d.ID, d.Version).
			Updates(map[string]any{
				"amount_paid":      d.AmountPaid,
				"remaining_amount": d.RemainingAmount,
				"due_date":         d.DueDate,
				"status":           d.Status,
				"notes":            d.Notes,
				"version":          d.Version + 1,
				"updated_at":       d.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := exists(tx, &models.Debt{}, d.ID); err != nil {
				return err
			}
			return store.ErrStale
		}

		// Payment history is append-only
		if len(d.Payments) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&d.Payments).Error; err != nil {
				return err
			}
		}
		d.Version++
		return nil
	})
}

func (r debtRepo) List(ctx context.Context, filter store.DebtFilter) ([]models.Debt, int64, error) {
	page := filter.Page.Normalize()
	q := r.db.WithContext(ctx).Model(&models.Debt{})
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := debtSortColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}

	debts := []models.Debt{}
	err := q.Preload("Payments", orderedPayments).
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: filter.Desc}).
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&debts).Error
	return debts, total, err
}

func (r debtRepo) Outstanding(ctx context.Context) ([]models.Debt, error) {
	debts := []models.Debt{}
	err := r.db.WithContext(ctx).
		Preload("Payments", orderedPayments).
		Where("remaining_amount > 0 AND status <> ?", models.DebtPaid).
		Order("due_date").
		Find(&debts).Error
	return debts, err
}

// MarkOverdue locks the candidate rows and flips them in one conditional update. A
// payment committed first makes its debt fail the remaining_amount check.
func (r debtRepo) MarkOverdue(ctx context.Context, now time.Time) ([]models.Debt, error) {
	var due []models.Debt
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("status = ? AND due_date < ? AND remaining_amount > 0", models.DebtCurrent, now).
			Find(&due).Error
		if err != nil || len(due) == 0 {
			return err
		}

		ids := make([]string, len(due))
		for i, d := range due {
			ids[i] = d.ID
		}
		return tx.Model(&models.Debt{}).
			Where("id IN ? AND status = ? AND remaining_amount > 0", ids, models.DebtCurrent).
			Updates(map[string]any{
				"status":     models.DebtOverdue,
				"version":    gorm.Expr("version + 1"),
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	for i := range due {
		due[i].Status = models.DebtOverdue
		due[i].Version++
		due[i].UpdatedAt = now
	}
	return due, nil
}

func (r debtRepo) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.PaymentRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("1 = 1").Delete(&models.Debt{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}
