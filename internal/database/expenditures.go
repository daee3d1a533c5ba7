package database

import (
	"context"

	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"

	"gorm.io/gorm"
)

type expenditureRepo struct{ db *gorm.DB }

func (r expenditureRepo) Create(ctx context.Context, e *models.Expenditure) error {
	return translate(r.db.WithContext(ctx).Create(e).Error)
}

func (r expenditureRepo) FindByID(ctx context.Context, id string) (*models.Expenditure, error) {
	var e models.Expenditure
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r expenditureRepo) Save(ctx context.Context, e *models.Expenditure) error {
	db := r.db.WithContext(ctx)
	if err := exists(db, &models.Expenditure{}, e.ID); err != nil {
		return err
	}
	return db.Save(e).Error
}

func (r expenditureRepo) List(ctx context.Context, f store.ExpenditureFilter) ([]models.Expenditure, error) {
	q := r.db.WithContext(ctx)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.EmployeeID != "" {
		q = q.Where("employee_id = ?", f.EmployeeID)
	}
	if f.Start != nil {
		q = q.Where("date >= ?", *f.Start)
	}
	if f.End != nil {
		q = q.Where("date <= ?", *f.End)
	}

	out := []models.Expenditure{}
	if err := q.Order("date desc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r expenditureRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Expenditure{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}
