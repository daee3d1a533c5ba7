package database

import (
	"context"
	"time"

	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type cartRepo struct{ db *gorm.DB }

func orderedCartItems(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}

func (r cartRepo) FindActiveByUser(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", orderedCartItems).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND status = ?", userID, models.CartActive).
		First(&cart).Error
	if err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

// Save writes the header and replaces the line items.
func (r cartRepo) Save(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A locking read sees the latest committed status, not the snapshot
		var stored []models.CartStatus
		err := tx.Model(&models.Cart{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", cart.ID).
			Pluck("status", &stored).Error
		if err != nil {
			return err
		}
		if len(stored) > 0 && stored[0] != models.CartActive {
			return store.ErrStale
		}

		if cart.Status == models.CartActive {
			// Lock the user's carts so two first accesses cannot both open one
			var others int64
			err := tx.Model(&models.Cart{}).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("user_id = ? AND status = ? AND id <> ?", cart.UserID, models.CartActive, cart.ID).
				Count(&others).Error
			if err != nil {
				return err
			}
			if others > 0 {
				return store.ErrDuplicate
			}
		}

		if err := tx.Omit(clause.Associations).Save(cart).Error; err != nil {
			return translate(err)
		}
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return nil
		}
		return tx.Create(&cart.Items).Error
	})
}

func (r cartRepo) List(ctx context.Context, status models.CartStatus, page store.Page) ([]models.Cart, int64, error) {
	page = page.Normalize()
	q := r.db.WithContext(ctx).Model(&models.Cart{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	carts := []models.Cart{}
	err := q.Preload("Items", orderedCartItems).
		Order("updated_at desc").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&carts).Error
	return carts, total, err
}

func (r cartRepo) ExpireAbandoned(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Cart{}).
		Where("status = ? AND updated_at < ?", models.CartActive, before).
		UpdateColumn("status", models.CartAbandoned)
	return res.RowsAffected, res.Error
}
