package database

import (
	"context"
	"time"

	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type reportRepo struct{ db *gorm.DB }

func preloadReportLines(db *gorm.DB) *gorm.DB {
	byPosition := func(db *gorm.DB) *gorm.DB { return db.Order("position") }
	return db.Preload("Items", byPosition).Preload("Expenditures", byPosition)
}

func (r reportRepo) Create(ctx context.Context, rep *models.Report) error {
	return translate(r.db.WithContext(ctx).Create(rep).Error)
}

func (r reportRepo) FindByID(ctx context.Context, id string) (*models.Report, error) {
	var rep models.Report
	if err := preloadReportLines(r.db.WithContext(ctx)).First(&rep, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &rep, nil
}

func (r reportRepo) FindByIDForUpdate(ctx context.Context, id string) (*models.Report, error) {
	var rep models.Report
	err := preloadReportLines(r.db.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&rep, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rep, nil
}

func (r reportRepo) FindLatest(ctx context.Context) (*models.Report, error) {
	var rep models.Report
	err := preloadReportLines(r.db.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("date desc").
		First(&rep).Error
	if err != nil {
		return nil, translate(err)
	}
	return &rep, nil
}

// Save updates the header and appends expenditure lines that are not stored yet.
// Sold items never change after creation.
func (r reportRepo) Save(ctx context.Context, rep *models.Report) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &models.Report{}, rep.ID); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(rep).Error; err != nil {
			return err
		}
		if len(rep.Expenditures) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rep.Expenditures).Error
	})
}

// SaveSettlement touches the payment columns only, so totals written by other
// transactions survive.
func (r reportRepo) SaveSettlement(ctx context.Context, rep *models.Report) error {
	res := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ?", rep.ID).
		Updates(map[string]any{
			"amount_paid":       rep.AmountPaid,
			"remaining_balance": rep.RemainingBalance,
			"payment_status":    rep.PaymentStatus,
			"updated_at":        rep.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return exists(r.db.WithContext(ctx), &models.Report{}, rep.ID)
	}
	return nil
}

func (r reportRepo) List(ctx context.Context, filter store.ReportFilter) ([]models.Report, error) {
	db := r.db.WithContext(ctx)
	q := preloadReportLines(db)
	if filter.Start != nil {
		q = q.Where("date >= ?", *filter.Start)
	}
	if filter.End != nil {
		q = q.Where("date <= ?", *filter.End)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Category != "" {
		q = q.Where("id IN (?)", db.Model(&models.ReportItem{}).Select("report_id").Where("category = ?", filter.Category))
	}

	reports := []models.Report{}
	if err := q.Order("date").Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

// Summarize calculates revenue and order count of sales within a date range.
func (r reportRepo) Summarize(ctx context.Context, start, end time.Time) (*store.SalesSummary, error) {
	var result store.SalesSummary
	q := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Report{}).
			Where("date BETWEEN ? AND ?", start, end).
			Where("type <> ?", models.ReportTypeExpenditure)
	}

	// 1. Revenue. COALESCE gives 0 instead of NULL when nothing was sold
	if err := q().Select("COALESCE(SUM(total_revenue), 0)").Scan(&result.TotalRevenue).Error; err != nil {
		return nil, err
	}

	// 2. Orders
	if err := q().Count(&result.TotalCount).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes the report and its lines.
func (r reportRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &models.Report{}, id); err != nil {
			return err
		}
		if err := tx.Where("report_id = ?", id).Delete(&models.ReportItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("report_id = ?", id).Delete(&models.ReportExpenditure{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Report{}).Error
	})
}

func (r reportRepo) DeleteRange(ctx context.Context, start, end time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := tx.Model(&models.Report{}).Select("id").Where("date BETWEEN ? AND ?", start, end)
		if err := tx.Where("report_id IN (?)", ids).Delete(&models.ReportItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("report_id IN (?)", ids).Delete(&models.ReportExpenditure{}).Error; err != nil {
			return err
		}
		res := tx.Where("date BETWEEN ? AND ?", start, end).Delete(&models.Report{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}

func (r reportRepo) DeleteAll(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.ReportItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&models.ReportExpenditure{}).Error; err != nil {
			return err
		}
		res := tx.Where("1 = 1").Delete(&models.Report{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}
