package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ExpenditureStatus string

const (
	ExpenditurePending   ExpenditureStatus = "pending"
	ExpenditureApproved  ExpenditureStatus = "approved"
	ExpenditureRejected  ExpenditureStatus = "rejected"
	ExpenditureCompleted ExpenditureStatus = "completed"
)

type ExpenditureCategory string

const (
	CategorySalary        ExpenditureCategory = "salary"
	CategorySupplies      ExpenditureCategory = "supplies"
	CategoryUtilities     ExpenditureCategory = "utilities"
	CategoryMaintenance   ExpenditureCategory = "maintenance"
	CategoryMiscellaneous ExpenditureCategory = "miscellaneous"
)

func (c ExpenditureCategory) Valid() bool {
	switch c {
	case CategorySalary, CategorySupplies, CategoryUtilities, CategoryMaintenance, CategoryMiscellaneous:
		return true
	}
	return false
}

var ErrExpenditureCompleted = errors.New("completed expenditures cannot be changed")

// TransitionError reports a status change that is not allowed from the current status.
type TransitionError struct {
	From ExpenditureStatus
	To   ExpenditureStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("expenditure is already %s, cannot move to %s", e.From, e.To)
}

// Expenditure - money spent by the business, posted onto reports once completed
type Expenditure struct {
	ID               string              `gorm:"primaryKey;size:36" json:"id"`
	Amount           decimal.Decimal     `gorm:"type:decimal(14,2)" json:"amount"`
	Description      string              `json:"description"`
	EmployeeName     string              `gorm:"size:200" json:"employeeName"`
	EmployeeID       string              `gorm:"index;size:36" json:"employeeId"`
	Date             time.Time           `gorm:"index" json:"date"`
	Status           ExpenditureStatus   `gorm:"index;size:20" json:"status"`
	ApprovedBy       string              `gorm:"size:36" json:"approvedBy,omitempty"`
	ApprovalDate     *time.Time          `json:"approvalDate,omitempty"`
	Category         ExpenditureCategory `gorm:"index;size:30" json:"category"`
	Notes            string              `json:"notes"`
	ReceiptImage     string              `json:"receiptImage,omitempty"`
	ManuallyApproved bool                `json:"manuallyApproved"`
	ReportID         string              `gorm:"size:36" json:"reportId,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

// NewExpenditure returns a pending expenditure.
func NewExpenditure(amount decimal.Decimal, description, employeeName, employeeID string, category ExpenditureCategory, notes string, now time.Time) *Expenditure {
	return &Expenditure{
		ID:           uuid.NewString(),
		Amount:       amount,
		Description:  description,
		EmployeeName: employeeName,
		EmployeeID:   employeeID,
		Date:         now,
		Status:       ExpenditurePending,
		Category:     category,
		Notes:        notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// AutoApprovable: amounts at or below the limit skip manual approval.
func AutoApprovable(amount, limit decimal.Decimal) bool {
	return amount.LessThanOrEqual(limit)
}

// ApplyAutoApproval approves a pending expenditure within the limit, and returns an
// auto-approved one back to pending once its amount exceeds the limit.
func (e *Expenditure) ApplyAutoApproval(limit decimal.Decimal, approverID string, now time.Time) {
	within := AutoApprovable(e.Amount, limit)
	switch {
	case within && e.Status == ExpenditurePending:
		e.Status = ExpenditureApproved
		e.ApprovedBy = approverID
		e.ApprovalDate = &now
	case !within && e.Status == ExpenditureApproved && !e.ManuallyApproved:
		e.Status = ExpenditurePending
		e.ApprovedBy = ""
		e.ApprovalDate = nil
	}
	e.UpdatedAt = now
}

func (e *Expenditure) Approve(adminID string, now time.Time) error {
	if e.Status != ExpenditurePending {
		return &TransitionError{From: e.Status, To: ExpenditureApproved}
	}
	e.Status = ExpenditureApproved
	e.ApprovedBy = adminID
	e.ApprovalDate = &now
	e.ManuallyApproved = true
	e.UpdatedAt = now
	return nil
}

func (e *Expenditure) Reject(adminID string, now time.Time) error {
	if e.Status != ExpenditurePending {
		return &TransitionError{From: e.Status, To: ExpenditureRejected}
	}
	e.Status = ExpenditureRejected
	e.ApprovedBy = adminID
	e.ApprovalDate = &now
	e.UpdatedAt = now
	return nil
}

// Complete marks an approved expenditure as paid out and links it to the report it was posted on.
func (e *Expenditure) Complete(reportID string, now time.Time) error {
	if e.Status != ExpenditureApproved {
		return &TransitionError{From: e.Status, To: ExpenditureCompleted}
	}
	e.Status = ExpenditureCompleted
	e.ReportID = reportID
	e.UpdatedAt = now
	return nil
}

// Counted reports whether the expenditure is part of the spending totals.
func (e *Expenditure) Counted() bool {
	return e.Status == ExpenditureApproved || e.Status == ExpenditureCompleted
}
