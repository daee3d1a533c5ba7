package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartStatus is the lifecycle state of a cart.
type CartStatus string

const (
	CartActive    CartStatus = "active"
	CartCheckout  CartStatus = "checkout"
	CartAbandoned CartStatus = "abandoned"
	CartConverted CartStatus = "converted"
)

var (
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// InsufficientStockError is returned when a requested quantity exceeds stock.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("only %d units of %s available", e.Available, e.Name)
}

// CartItem - one pending line; price and display fields are snapshots taken when the line was added
type CartItem struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`
	CartID    string          `gorm:"index;size:36" json:"-"`
	ProductID string          `gorm:"size:36" json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(14,2)" json:"price"`
	Name      string          `gorm:"size:200" json:"name"`
	SKU       string          `gorm:"size:64" json:"sku"`
	ImageURL  string          `json:"imageUrl"`
	Unit      string          `gorm:"size:20" json:"unit"`
	Position  int             `json:"-"`
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart - The single in-progress basket of a user
type Cart struct {
	ID               string          `gorm:"primaryKey;size:36" json:"id"`
	UserID           string          `gorm:"index;size:36" json:"userId"`
	Items            []CartItem      `gorm:"foreignKey:CartID" json:"items"`
	CouponCode       string          `gorm:"size:64" json:"couponCode"`
	Discount         decimal.Decimal `gorm:"type:decimal(14,2)" json:"discount"`
	Note             string          `json:"note"`
	AmountPaid       decimal.Decimal `gorm:"type:decimal(14,2)" json:"amountPaid"`
	RemainingBalance decimal.Decimal `gorm:"type:decimal(14,2)" json:"remainingBalance"`
	PaymentStatus    PaymentStatus   `gorm:"size:20" json:"paymentStatus"`
	Status           CartStatus      `gorm:"index;size:20" json:"status"`
	Total            decimal.Decimal `gorm:"type:decimal(14,2)" json:"total"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// NewCart returns an empty active cart for the user.
func NewCart(userID string, now time.Time) *Cart {
	return &Cart{
		ID:            uuid.NewString(),
		UserID:        userID,
		Items:         []CartItem{},
		PaymentStatus: PaymentUnpaid,
		Status:        CartActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Subtotal is the sum of price x quantity before discount.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.Items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// Recalculate refreshes the stored total and line positions. Every write path calls it.
func (c *Cart) Recalculate(now time.Time) {
	for i := range c.Items {
		c.Items[i].Position = i
		c.Items[i].CartID = c.ID
	}
	c.Total = c.Subtotal().Sub(c.Discount)
	c.UpdatedAt = now
}

func (c *Cart) findItem(itemID string) int {
	for i, item := range c.Items {
		if item.ID == itemID {
			return i
		}
	}
	return -1
}

func (c *Cart) findProduct(productID string) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Item returns a copy of the line with the given id.
func (c *Cart) Item(itemID string) (CartItem, bool) {
	idx := c.findItem(itemID)
	if idx < 0 {
		return CartItem{}, false
	}
	return c.Items[idx], true
}

// AddProduct appends a new line or merges into the existing line for the product.
// Stock is checked against the merged quantity. The first-added price is kept on merge.
func (c *Cart) AddProduct(p Product, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}

	idx := c.findProduct(p.ID)
	want := qty
	if idx >= 0 {
		want += c.Items[idx].Quantity
	}
	if want > p.Quantity {
		return &InsufficientStockError{ProductID: p.ID, Name: p.Name, Requested: want, Available: p.Quantity}
	}

	if idx >= 0 {
		c.Items[idx].Quantity = want
		return nil
	}

	unit := p.Unit
	if unit == "" {
		unit = "pcs"
	}
	c.Items = append(c.Items, CartItem{
		ID:        uuid.NewString(),
		CartID:    c.ID,
		ProductID: p.ID,
		Quantity:  qty,
		Price:     p.SellingPrice,
		Name:      p.Name,
		SKU:       p.SKU,
		ImageURL:  p.ImageURL,
		Unit:      unit,
	})
	return nil
}

// SetQuantity replaces the quantity of a line after checking live stock.
func (c *Cart) SetQuantity(itemID string, qty int, p Product) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	idx := c.findItem(itemID)
	if idx < 0 {
		return ErrItemNotFound
	}
	if qty > p.Quantity {
		return &InsufficientStockError{ProductID: p.ID, Name: p.Name, Requested: qty, Available: p.Quantity}
	}
	c.Items[idx].Quantity = qty
	return nil
}

func (c *Cart) RemoveItem(itemID string) error {
	idx := c.findItem(itemID)
	if idx < 0 {
		return ErrItemNotFound
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	return nil
}

// Clear empties the cart and resets discount and coupon.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.Discount = decimal.Zero
	c.CouponCode = ""
}

// Reconcile adjusts lines to live stock. Lines whose product is gone or out of stock
// are dropped; lines holding more than the stock are clamped. It reports whether
// anything changed.
func (c *Cart) Reconcile(stock map[string]*Product) bool {
	changed := false
	kept := c.Items[:0]
	for _, item := range c.Items {
		p, ok := stock[item.ProductID]
		if !ok || p == nil || p.Quantity <= 0 {
			changed = true
			continue
		}
		if item.Quantity > p.Quantity {
			item.Quantity = p.Quantity
			changed = true
		}
		kept = append(kept, item)
	}
	c.Items = kept
	return changed
}

// MarkConverted records the settlement figures and moves the cart to its terminal state.
func (c *Cart) MarkConverted(terms PaymentTerms, now time.Time) {
	c.AmountPaid = terms.AmountPaid
	c.RemainingBalance = terms.RemainingBalance
	c.PaymentStatus = terms.Status
	c.Status = CartConverted
	c.UpdatedAt = now
}
