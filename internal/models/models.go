package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Roles
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// User - The person operating the back-office
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50" json:"username"`
	Email        string    `gorm:"size:255" json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `gorm:"size:20" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Product - The Inventory
type Product struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	SKU          string          `gorm:"uniqueIndex;size:64" json:"sku" binding:"required"`
	Name         string          `gorm:"size:200" json:"name" binding:"required"`
	Category     string          `gorm:"index;size:50" json:"category" binding:"required"`
	BuyingPrice  decimal.Decimal `gorm:"type:decimal(14,2)" json:"buyingPrice"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(14,2)" json:"sellingPrice"`
	Quantity     int             `json:"quantity" binding:"gte=0"`
	Unit         string          `gorm:"size:20" json:"unit"`
	ReorderLevel int             `json:"reorderLevel"`
	ImageURL     string          `json:"imageUrl"`
	Description  string          `json:"description"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// NeedsReorder reports whether stock fell to the reorder threshold.
func (p Product) NeedsReorder() bool {
	return p.ReorderLevel > 0 && p.Quantity <= p.ReorderLevel
}

// StockValue is the quantity on hand valued at buying price.
func (p Product) StockValue() decimal.Decimal {
	return p.BuyingPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// CustomerInfo is the customer snapshot captured at checkout.
type CustomerInfo struct {
	Name    string `gorm:"size:200" json:"name"`
	Email   string `gorm:"size:255" json:"email"`
	Phone   string `gorm:"size:50" json:"phone"`
	Address string `json:"address"`
}

// PaymentStatus of a settlement.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPartial PaymentStatus = "partial"
	PaymentUnpaid  PaymentStatus = "unpaid"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPaid, PaymentPartial, PaymentUnpaid:
		return true
	}
	return false
}
