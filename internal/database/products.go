package database

import (
	"context"
	"time"

	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type productRepo struct{ db *gorm.DB }

func (r productRepo) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r productRepo) FindByIDForUpdate(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r productRepo) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, "sku = ?", sku).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r productRepo) List(ctx context.Context, filter store.ProductFilter) ([]models.Product, error) {
	products := []models.Product{}
	q := r.db.WithContext(ctx)
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("name LIKE ? OR sku LIKE ?", like, like)
	}
	if err := q.Order("name").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r productRepo) Create(ctx context.Context, p *models.Product) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r productRepo) Update(ctx context.Context, p *models.Product) error {
	db := r.db.WithContext(ctx)
	if err := exists(db, &models.Product{}, p.ID); err != nil {
		return err
	}
	return translate(db.Save(p).Error)
}

func (r productRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DecrementStock is a single conditional UPDATE, so two sales of the last unit
// cannot both succeed.
func (r productRepo) DecrementStock(ctx context.Context, id string, qty int) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Product{}).
		Where("id = ? AND quantity >= ?", id, qty).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if err := exists(db, &models.Product{}, id); err != nil {
			return err
		}
		return store.ErrInsufficientStock
	}
	return nil
}

func (r productRepo) IncrementStock(ctx context.Context, id string, qty int) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r productRepo) LowStock(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := r.db.WithContext(ctx).
		Where("reorder_level > 0 AND quantity <= reorder_level").
		Order("quantity").
		Find(&products).Error
	return products, err
}
