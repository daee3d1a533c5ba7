// Package cart manages the single active cart of each user.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go-pos-backoffice/internal/apperrors"
	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"

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

// GetOrCreate returns the user's active cart reconciled against live stock,
// creating an empty one when the user has none.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*models.Cart, error) {
	var cart *models.Cart
	err := s.store.Transact(ctx, func(tx store.Store) error {
		var err error
		cart, err = s.load(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return cart, nil
}

// AddItem adds qty units of a product, merging into an existing line.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (*models.Cart, error) {
	return s.mutate(ctx, userID, func(tx store.Store, cart *models.Cart) error {
		p, err := tx.Products().FindByID(ctx, productID)
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("product")
		}
		if err != nil {
			return err
		}
		return cart.AddProduct(*p, qty)
	})
}

// AddScanned adds the product behind a scanned code. The code is either a bare
// product ID or SKU, or the JSON label printed on the QR code ({"id": ...}).
func (s *Service) AddScanned(ctx context.Context, userID, code string, qty int) (*models.Cart, error) {
	code = strings.TrimSpace(code)
	var label struct {
		ID    string `json:"id"`
		OldID string `json:"_id"`
		SKU   string `json:"sku"`
	}
	if json.Unmarshal([]byte(code), &label) == nil {
		switch {
		case label.ID != "":
			code = label.ID
		case label.OldID != "":
			code = label.OldID
		case label.SKU != "":
			code = label.SKU
		}
	}
	if code == "" {
		return nil, apperrors.Validation("scanned code is empty")
	}

	return s.mutate(ctx, userID, func(tx store.Store, cart *models.Cart) error {
		p, err := tx.Products().FindByID(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			p, err = tx.Products().FindBySKU(ctx, code)
		}
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("product")
		}
		if err != nil {
			return err
		}
		return cart.AddProduct(*p, qty)
	})
}

// UpdateItemQuantity replaces the quantity of a line, checked against live stock.
func (s *Service) UpdateItemQuantity(ctx context.Context, userID, itemID string, qty int) (*models.Cart, error) {
	return s.mutate(ctx, userID, func(tx store.Store, cart *models.Cart) error {
		item, ok := cart.Item(itemID)
		if !ok {
			return models.ErrItemNotFound
		}
		p, err := tx.Products().FindByID(ctx, item.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.NotFound("product")
		}
		if err != nil {
			return err
		}
		return cart.SetQuantity(itemID, qty, *p)
	})
}

func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) (*models.Cart, error) {
	return s.mutate(ctx, userID, func(_ store.Store, cart *models.Cart) error {
		return cart.RemoveItem(itemID)
	})
}

// Clear empties the cart and resets discount and coupon.
func (s *Service) Clear(ctx context.Context, userID string) (*models.Cart, error) {
	return s.mutate(ctx, userID, func(_ store.Store, cart *models.Cart) error {
		cart.Clear()
		return nil
	})
}

func (s *Service) SetNote(ctx context.Context, userID, note string) (*models.Cart, error) {
	return s.mutate(ctx, userID, func(_ store.Store, cart *models.Cart) error {
		cart.Note = note
		return nil
	})
}

// List returns carts of every user, for administrators.
func (s *Service) List(ctx context.Context, status models.CartStatus, page store.Page) ([]models.Cart, int64, error) {
	carts, total, err := s.store.Carts().List(ctx, status, page)
	if err != nil {
		return nil, 0, apperrors.Storage(err)
	}
	return carts, total, nil
}

// ExpireAbandoned marks active carts untouched for longer than ttl as abandoned.
func (s *Service) ExpireAbandoned(ctx context.Context, ttl time.Duration) (int64, error) {
	n, err := s.store.Carts().ExpireAbandoned(ctx, s.now().Add(-ttl))
	if err != nil {
		return 0, apperrors.Storage(err)
	}
	if n > 0 {
		s.log.Info("expired abandoned carts", zap.Int64("count", n))
	}
	return n, nil
}

// mutate loads the cart, applies fn, recomputes totals and persists, all in one
// transaction. Errors from fn leave the stored cart untouched.
func (s *Service) mutate(ctx context.Context, userID string, fn func(tx store.Store, cart *models.Cart) error) (*models.Cart, error) {
	var cart *models.Cart
	err := s.store.Transact(ctx, func(tx store.Store) error {
		var err error
		cart, err = s.load(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := fn(tx, cart); err != nil {
			return translate(err)
		}
		cart.Recalculate(s.now())
		return tx.Carts().Save(ctx, cart)
	})
	if errors.Is(err, store.ErrStale) {
		return nil, apperrors.ConcurrentUpdate("cart")
	}
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return cart, nil
}

func (s *Service) load(ctx context.Context, tx store.Store, userID string) (*models.Cart, error) {
	cart, err := tx.Carts().FindActiveByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		cart = models.NewCart(userID, s.now())
		cart.Recalculate(s.now())
		if err := tx.Carts().Save(ctx, cart); err != nil {
			return nil, err
		}
		return cart, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.reconcile(ctx, tx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// reconcile drops lines whose product is gone or sold out and clamps lines
// holding more than the stock, writing the cart back when anything changed.
func (s *Service) reconcile(ctx context.Context, tx store.Store, cart *models.Cart) error {
	if len(cart.Items) == 0 {
		return nil
	}
	stock := make(map[string]*models.Product, len(cart.Items))
	for _, item := range cart.Items {
		p, err := tx.Products().FindByID(ctx, item.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		stock[item.ProductID] = p
	}

	if !cart.Reconcile(stock) {
		return nil
	}
	s.log.Info("cart reconciled against stock", zap.String("cartId", cart.ID), zap.String("userId", cart.UserID))
	cart.Recalculate(s.now())
	return tx.Carts().Save(ctx, cart)
}

func translate(err error) error {
	var stockErr *models.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return apperrors.OutOfStock(stockErr.Name, stockErr.Available)
	case errors.Is(err, models.ErrItemNotFound):
		return apperrors.NotFound("cart item")
	case errors.Is(err, models.ErrInvalidQuantity):
		return apperrors.Validation(err.Error())
	}
	return err
}
