package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DebtStatus: current -> overdue (due date passed), current|overdue -> paid. Nothing leaves paid.
type DebtStatus string

const (
	DebtCurrent DebtStatus = "current"
	DebtOverdue DebtStatus = "overdue"
	DebtPaid    DebtStatus = "paid"
)

func (s DebtStatus) Valid() bool {
	switch s {
	case DebtCurrent, DebtOverdue, DebtPaid:
		return true
	}
	return false
}

var (
	ErrInvalidAmount   = errors.New("payment amount must be greater than 0")
	ErrOverPayment     = errors.New("payment amount cannot exceed the remaining debt")
	ErrDebtAlreadyPaid = errors.New("debt has already been fully paid")
)

// PaymentRecord - one entry of a debt's payment history
type PaymentRecord struct {
	ID     string          `gorm:"primaryKey;size:36" json:"id"`
	DebtID string          `gorm:"index;size:36" json:"-"`
	Amount decimal.Decimal `gorm:"type:decimal(14,2)" json:"amount"`
	Date   time.Time       `json:"date"`
	Method string          `gorm:"size:50" json:"paymentMethod"`
	Notes  string          `json:"notes"`
}

// Debt - outstanding balance left by an underpaid settlement
type Debt struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	UserID          string          `gorm:"index;size:36" json:"userId"`
	ReportID        string          `gorm:"index;size:36" json:"orderId"`
	OriginalAmount  decimal.Decimal `gorm:"type:decimal(14,2)" json:"originalAmount"`
	AmountPaid      decimal.Decimal `gorm:"type:decimal(14,2)" json:"amountPaid"`
	RemainingAmount decimal.Decimal `gorm:"type:decimal(14,2);index" json:"remainingAmount"`
	DueDate         time.Time       `gorm:"index" json:"dueDate"`
	Status          DebtStatus      `gorm:"index;size:20" json:"status"`
	Notes           string          `json:"notes"`
	Payments        []PaymentRecord `gorm:"foreignKey:DebtID" json:"paymentHistory"`
	Version         int             `json:"-"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// DeriveDebtStatus: paid once nothing remains, overdue past the due date, current otherwise.
func DeriveDebtStatus(remaining decimal.Decimal, dueDate, now time.Time) DebtStatus {
	if !remaining.IsPositive() {
		return DebtPaid
	}
	if dueDate.Before(now) {
		return DebtOverdue
	}
	return DebtCurrent
}

// NewDebt opens a debt for a settlement, seeded with the payment made at checkout.
func NewDebt(userID, reportID string, terms PaymentTerms, dueDate, now time.Time) *Debt {
	status := DebtCurrent
	if !terms.RemainingBalance.IsPositive() {
		status = DebtPaid
	}
	id := uuid.NewString()
	return &Debt{
		ID:              id,
		UserID:          userID,
		ReportID:        reportID,
		OriginalAmount:  terms.Total,
		AmountPaid:      terms.AmountPaid,
		RemainingAmount: terms.RemainingBalance,
		DueDate:         dueDate,
		Status:          status,
		Payments: []PaymentRecord{{
			ID:     uuid.NewString(),
			DebtID: id,
			Amount: terms.AmountPaid,
			Date:   now,
			Method: "initial payment",
			Notes:  "Payment at checkout",
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsOutstanding is the authoritative "active debt" predicate: money remains and the
// status does not say paid.
func (d *Debt) IsOutstanding() bool {
	return d.RemainingAmount.IsPositive() && d.Status != DebtPaid
}

// RecordPayment applies a payment and returns the appended history entry.
func (d *Debt) RecordPayment(amount decimal.Decimal, method, notes string, now time.Time) (PaymentRecord, error) {
	if !amount.IsPositive() {
		return PaymentRecord{}, ErrInvalidAmount
	}
	if d.Status == DebtPaid || !d.RemainingAmount.IsPositive() {
		return PaymentRecord{}, ErrDebtAlreadyPaid
	}
	if amount.GreaterThan(d.RemainingAmount) {
		return PaymentRecord{}, ErrOverPayment
	}

	rec := PaymentRecord{
		ID:     uuid.NewString(),
		DebtID: d.ID,
		Amount: amount,
		Date:   now,
		Method: method,
		Notes:  notes,
	}
	d.Payments = append(d.Payments, rec)
	d.AmountPaid = d.AmountPaid.Add(amount)
	d.RemainingAmount = decimal.Max(decimal.Zero, d.RemainingAmount.Sub(amount))
	if d.RemainingAmount.IsZero() {
		d.Status = DebtPaid
	}
	d.UpdatedAt = now
	return rec, nil
}

// RefreshStatus recomputes the status from balance and due date. It never leaves paid.
func (d *Debt) RefreshStatus(now time.Time) bool {
	if d.Status == DebtPaid {
		return false
	}
	next := DeriveDebtStatus(d.RemainingAmount, d.DueDate, now)
	if next == d.Status {
		return false
	}
	d.Status = next
	d.UpdatedAt = now
	return true
}

// DaysOverdue counts whole days past the due date.
func (d *Debt) DaysOverdue(now time.Time) int {
	if !d.DueDate.Before(now) {
		return 0
	}
	return int(now.Sub(d.DueDate) / (24 * time.Hour))
}

// PaymentStatus maps the debt onto the settlement payment vocabulary.
func (d *Debt) PaymentStatus() PaymentStatus {
	switch {
	case !d.RemainingAmount.IsPositive():
		return PaymentPaid
	case d.AmountPaid.IsPositive():
		return PaymentPartial
	}
	return PaymentUnpaid
}
