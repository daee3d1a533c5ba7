// Package inventory manages the product catalogue and its stock levels.
package inventory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go-pos-backoffice/internal/apperrors"
	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service struct {
	store store.Store
	log   *zap.Logger
	now   func() time.Time
}

func NewService(st store.Store, log *zap.Logger) *Service {
	return &Service{store: st, log: log, now: time.Now}
}

func (s *Service) List(ctx context.Context, filter store.ProductFilter) ([]models.Product, error) {
	products, err := s.store.Products().List(ctx, filter)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return products, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.store.Products().FindByID(ctx, id)
	return found(p, err)
}

// GetBySKU looks a product up by its barcode.
func (s *Service) GetBySKU(ctx context.Context, sku string) (*models.Product, error) {
	p, err := s.store.Products().FindBySKU(ctx, strings.TrimSpace(sku))
	return found(p, err)
}

func (s *Service) LowStock(ctx context.Context) ([]models.Product, error) {
	products, err := s.store.Products().LowStock(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return products, nil
}

// Statistics summarizes the catalogue.
type Statistics struct {
	TotalProducts      int             `json:"totalProducts"`
	LowStockCount      int             `json:"lowStockCount"`
	InventoryValue     decimal.Decimal `json:"inventoryValue"`
	RetailValue        decimal.Decimal `json:"retailValue"`
	ProductsByCategory []CategoryCount `json:"productsByCategory"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Statistics values the stock on hand at buying price (inventory value) and at
// selling price (retail value).
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	products, err := s.store.Products().List(ctx, store.ProductFilter{})
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	stats := &Statistics{
		TotalProducts:      len(products),
		InventoryValue:     decimal.Zero,
		RetailValue:        decimal.Zero,
		ProductsByCategory: []CategoryCount{},
	}
	counts := map[string]int{}
	for _, p := range products {
		if p.NeedsReorder() {
			stats.LowStockCount++
		}
		qty := decimal.NewFromInt(int64(p.Quantity))
		stats.InventoryValue = stats.InventoryValue.Add(p.StockValue())
		stats.RetailValue = stats.RetailValue.Add(p.SellingPrice.Mul(qty))
		counts[p.Category]++
	}
	for category, n := range counts {
		stats.ProductsByCategory = append(stats.ProductsByCategory, CategoryCount{Category: category, Count: n})
	}
	sort.Slice(stats.ProductsByCategory, func(i, j int) bool {
		return stats.ProductsByCategory[i].Category < stats.ProductsByCategory[j].Category
	})
	return stats, nil
}

func (s *Service) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	now := s.now()
	p.ID = uuid.NewString()
	if p.Unit == "" {
		p.Unit = "pcs"
	}
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.store.Products().Create(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperrors.Conflict("a product with this SKU already exists")
		}
		return nil, apperrors.Storage(err)
	}
	s.log.Info("product created", zap.String("productId", p.ID), zap.String("sku", p.SKU))
	return p, nil
}

// ProductUpdate holds the fields to change. Nil fields are kept.
type ProductUpdate struct {
	SKU          *string
	Name         *string
	Category     *string
	BuyingPrice  *decimal.Decimal
	SellingPrice *decimal.Decimal
	Quantity     *int
	Unit         *string
	ReorderLevel *int
	ImageURL     *string
	Description  *string
}

func (s *Service) Update(ctx context.Context, id string, upd ProductUpdate) (*models.Product, error) {
	var product *models.Product
	err := s.store.Transact(ctx, func(tx store.Store) error {
		p, err := found(tx.Products().FindByID(ctx, id))
		if err != nil {
			return err
		}
		apply(p, upd)
		if err := validate(p); err != nil {
			return err
		}
		p.UpdatedAt = s.now()
		if err := tx.Products().Update(ctx, p); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperrors.Conflict("a product with this SKU already exists")
			}
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return product, nil
}

// Restock adds delivered units to the stock on hand.
func (s *Service) Restock(ctx context.Context, id string, qty int) (*models.Product, error) {
	if qty < 1 {
		return nil, apperrors.Validation("quantity must be at least 1")
	}
	var product *models.Product
	err := s.store.Transact(ctx, func(tx store.Store) error {
		if err := tx.Products().IncrementStock(ctx, id, qty); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperrors.NotFound("product")
			}
			return err
		}
		var err error
		product, err = tx.Products().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	s.log.Info("product restocked", zap.String("productId", id), zap.Int("quantity", qty), zap.Int("onHand", product.Quantity))
	return product, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.store.Products().Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NotFound("product")
	}
	if err != nil {
		return apperrors.Storage(err)
	}
	return nil
}

func apply(p *models.Product, upd ProductUpdate) {
	if upd.SKU != nil {
		p.SKU = *upd.SKU
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	if upd.BuyingPrice != nil {
		p.BuyingPrice = *upd.BuyingPrice
	}
	if upd.SellingPrice != nil {
		p.SellingPrice = *upd.SellingPrice
	}
	if upd.Quantity != nil {
		p.Quantity = *upd.Quantity
	}
	if upd.Unit != nil {
		p.Unit = *upd.Unit
	}
	if upd.ReorderLevel != nil {
		p.ReorderLevel = *upd.ReorderLevel
	}
	if upd.ImageURL != nil {
		p.ImageURL = *upd.ImageURL
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
}

func validate(p *models.Product) error {
	switch {
	case strings.TrimSpace(p.SKU) == "":
		return apperrors.Validation("sku is required")
	case strings.TrimSpace(p.Name) == "":
		return apperrors.Validation("name is required")
	case p.Quantity < 0:
		return apperrors.Validation("quantity cannot be negative")
	case p.BuyingPrice.IsNegative() || p.SellingPrice.IsNegative():
		return apperrors.Validation("prices cannot be negative")
	}
	return nil
}

func found(p *models.Product, err error) (*models.Product, error) {
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("product")
	}
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return p, nil
}
