// Package notify sends customer-facing messages about settlements and debts.
package notify

import (
	"context"
	"time"

	"go-pos-backoffice/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderLine is one row of an order confirmation.
type OrderLine struct {
	Name     string
	Quantity int
	Price    decimal.Decimal
	Total    decimal.Decimal
}

type OrderDetails struct {
	ReportID         string
	Date             time.Time
	Items            []OrderLine
	Subtotal         decimal.Decimal
	Discount         decimal.Decimal
	Total            decimal.Decimal
	Customer         models.CustomerInfo
	PaymentMethod    string
	PaymentStatus    models.PaymentStatus
	AmountPaid       decimal.Decimal
	RemainingBalance decimal.Decimal
	DebtID           string
	DueDate          *time.Time
	TrackingURL      string
}

type DebtReminder struct {
	Username string
	DebtID   string
	OrderID  string
	Amount   decimal.Decimal
	DueDate  time.Time
}

type Notifier interface {
	SendOrderConfirmation(ctx context.Context, email, customerName string, order OrderDetails) error
	SendDebtReminder(ctx context.Context, email string, reminder DebtReminder) error
}

// LogNotifier writes messages to the log instead of sending them. It is used
// when no mail server is configured.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendOrderConfirmation(_ context.Context, email, customerName string, order OrderDetails) error {
	if err := validateOrder(email, customerName); err != nil {
		return err
	}
	n.log.Info("order confirmation",
		zap.String("email", email),
		zap.String("customer", customerName),
		zap.String("reportId", order.ReportID),
		zap.String("total", order.Total.StringFixed(2)),
		zap.String("paymentStatus", string(order.PaymentStatus)))
	return nil
}

func (n *LogNotifier) SendDebtReminder(_ context.Context, email string, reminder DebtReminder) error {
	if err := validateReminder(email, reminder); err != nil {
		return err
	}
	n.log.Info("debt reminder",
		zap.String("email", email),
		zap.String("debtId", reminder.DebtID),
		zap.String("amount", reminder.Amount.StringFixed(2)),
		zap.Time("dueDate", reminder.DueDate))
	return nil
}
