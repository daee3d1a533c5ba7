// Package checkout turns a user's active cart into a settlement: stock is taken,
// a sales report is written and, when the customer underpays, a debt is opened.
package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-pos-backoffice/internal/apperrors"
	"go-pos-backoffice/internal/events"
	"go-pos-backoffice/internal/metrics"
	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/notify"
	"go-pos-backoffice/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const notifyTimeout = 30 * time.Second

// DebtOpener records the debt of an underpaid settlement inside a transaction.
type DebtOpener interface {
	Open(ctx context.Context, tx store.Store, userID, reportID string, terms models.PaymentTerms, now time.Time) (*models.Debt, error)
}

// Request carries what the cashier submits at checkout. Nil amounts are derived.
type Request struct {
	UserID           string
	UserEmail        string
	PaymentMethod    string
	Customer         models.CustomerInfo
	PaymentStatus    models.PaymentStatus
	AmountPaid       *decimal.Decimal
	RemainingBalance *decimal.Decimal
}

type Result struct {
	Report *models.Report `json:"report"`
	Debt   *models.Debt   `json:"debt,omitempty"`
}

type Orchestrator struct {
	store     store.Store
	debts     DebtOpener
	notifier  notify.Notifier
	publisher events.Publisher
	metrics   *metrics.Metrics
	log       *zap.Logger
	baseURL   string
	now       func() time.Time

	// pending tracks confirmation emails still being sent.
	pending sync.WaitGroup
}

func NewOrchestrator(st store.Store, debts DebtOpener, notifier notify.Notifier, publisher events.Publisher, m *metrics.Metrics, log *zap.Logger, baseURL string) *Orchestrator {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Orchestrator{
		store:     st,
		debts:     debts,
		notifier:  notifier,
		publisher: publisher,
		metrics:   m,
		log:       log,
		baseURL:   baseURL,
		now:       time.Now,
	}
}

// Checkout settles the user's active cart. Everything up to marking the cart
// converted happens in one transaction; the confirmation email is sent afterwards
// and its failure never fails the checkout.
func (o *Orchestrator) Checkout(ctx context.Context, req Request) (*Result, error) {
	now := o.now()
	var (
		res  Result
		cart *models.Cart
	)

	err := o.store.Transact(ctx, func(tx store.Store) error {
		// 1. Load the active cart
		var err error
		cart, err = tx.Carts().FindActiveByUser(ctx, req.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return apperrors.CartNotFound()
		}
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return apperrors.EmptyCart()
		}

		// 2. Re-check every line against live stock
		products, err := checkAvailability(ctx, tx, cart)
		if err != nil {
			return err
		}

		// 3. Payment figures
		total := cart.Subtotal().Sub(cart.Discount)
		terms := models.SettlePayment(total, req.AmountPaid, req.RemainingBalance, req.PaymentStatus)

		// 4. Take the stock. The conditional decrement is the real guard: a concurrent
		// checkout may have passed step 2 too.
		report := models.NewSaleReport(req.UserID, req.PaymentMethod, req.Customer, terms, now)
		for _, item := range cart.Items {
			if err := tx.Products().DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, store.ErrInsufficientStock) || errors.Is(err, store.ErrNotFound) {
					return unavailable(ctx, tx, item)
				}
				return err
			}
			report.AddSaleItem(*products[item.ProductID], item.Quantity, item.Price)
		}

		// 5. Persist the report
		if err := tx.Reports().Create(ctx, report); err != nil {
			return err
		}
		res.Report = report

		// 6. Open a debt for whatever was not paid
		if terms.RemainingBalance.IsPositive() {
			debt, err := o.debts.Open(ctx, tx, req.UserID, report.ID, terms, now)
			if err != nil {
				return apperrors.DependencyFailure("failed to create debt record", err)
			}
			res.Debt = debt
		}

		// 7. Close the cart. A cart converted by a concurrent checkout is refused
		// here, which rolls back everything above.
		cart.MarkConverted(terms, now)
		if err := tx.Carts().Save(ctx, cart); err != nil {
			if errors.Is(err, store.ErrStale) {
				return apperrors.CartNotFound()
			}
			return err
		}
		return nil
	})
	if err != nil {
		o.metrics.RecordCheckout(outcome(err), decimal.Zero, false)
		if !apperrors.HasCode(err, apperrors.CodeItemsUnavailable) {
			o.log.Warn("checkout failed", zap.String("userId", req.UserID), zap.Error(err))
		}
		return nil, apperrors.Storage(err)
	}

	o.metrics.RecordCheckout(metrics.OutcomeSuccess, res.Report.TotalRevenue, res.Debt != nil)
	o.publishSettlement(ctx, &res)
	o.log.Info("checkout completed",
		zap.String("userId", req.UserID),
		zap.String("reportId", res.Report.ID),
		zap.String("total", res.Report.TotalRevenue.StringFixed(2)),
		zap.String("paymentStatus", string(res.Report.PaymentStatus)),
		zap.Bool("debtOpened", res.Debt != nil))

	// 8. Confirmation email, best effort
	if req.UserEmail != "" && req.Customer.Name != "" {
		o.sendConfirmation(ctx, req.UserEmail, req.Customer.Name, o.orderDetails(cart, &res))
	}
	return &res, nil
}

// Wait blocks until queued confirmation emails are sent.
func (o *Orchestrator) Wait() {
	o.pending.Wait()
}

func checkAvailability(ctx context.Context, tx store.Store, cart *models.Cart) (map[string]*models.Product, error) {
	products := make(map[string]*models.Product, len(cart.Items))
	var short []apperrors.UnavailableItem
	for _, item := range cart.Items {
		p, err := tx.Products().FindByID(ctx, item.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			short = append(short, apperrors.UnavailableItem{ProductID: item.ProductID, Name: item.Name, Requested: item.Quantity})
			continue
		}
		if err != nil {
			return nil, err
		}
		if p.Quantity < item.Quantity {
			short = append(short, apperrors.UnavailableItem{ProductID: p.ID, Name: p.Name, Requested: item.Quantity, Available: p.Quantity})
			continue
		}
		products[p.ID] = p
	}
	if len(short) > 0 {
		return nil, apperrors.ItemsUnavailable(short)
	}
	return products, nil
}

func unavailable(ctx context.Context, tx store.Store, item models.CartItem) error {
	short := apperrors.UnavailableItem{ProductID: item.ProductID, Name: item.Name, Requested: item.Quantity}
	if p, err := tx.Products().FindByIDForUpdate(ctx, item.ProductID); err == nil {
		short.Available = p.Quantity
	}
	return apperrors.ItemsUnavailable([]apperrors.UnavailableItem{short})
}

func outcome(err error) string {
	switch {
	case apperrors.HasCode(err, apperrors.CodeCartNotFound):
		return metrics.OutcomeNoCart
	case apperrors.HasCode(err, apperrors.CodeEmptyCart):
		return metrics.OutcomeEmptyCart
	case apperrors.HasCode(err, apperrors.CodeItemsUnavailable):
		return metrics.OutcomeUnavailable
	}
	return metrics.OutcomeError
}

func (o *Orchestrator) publishSettlement(ctx context.Context, res *Result) {
	evts := []events.Event{events.New(events.SettlementCompleted, res.Report.ID, map[string]any{
		"userId":           res.Report.UserID,
		"totalRevenue":     res.Report.TotalRevenue,
		"totalProfit":      res.Report.TotalProfit,
		"paymentMethod":    res.Report.PaymentMethod,
		"paymentStatus":    res.Report.PaymentStatus,
		"remainingBalance": res.Report.RemainingBalance,
	})}
	if res.Debt != nil {
		evts = append(evts, events.New(events.DebtOpened, res.Debt.ID, map[string]any{
			"userId":          res.Debt.UserID,
			"reportId":        res.Debt.ReportID,
			"remainingAmount": res.Debt.RemainingAmount,
			"dueDate":         res.Debt.DueDate,
		}))
	}

	err := o.publisher.Publish(context.WithoutCancel(ctx), evts...)
	for _, e := range evts {
		o.metrics.RecordEvent(e.Type, err)
	}
	if err != nil {
		o.log.Warn("failed to publish settlement events", zap.String("reportId", res.Report.ID), zap.Error(err))
	}
}

func (o *Orchestrator) orderDetails(cart *models.Cart, res *Result) notify.OrderDetails {
	r := res.Report
	details := notify.OrderDetails{
		ReportID:         r.ID,
		Date:             r.Date,
		Items:            make([]notify.OrderLine, 0, len(r.Items)),
		Subtotal:         cart.Subtotal(),
		Discount:         cart.Discount,
		Total:            r.TotalRevenue,
		Customer:         r.Customer,
		PaymentMethod:    r.PaymentMethod,
		PaymentStatus:    r.PaymentStatus,
		AmountPaid:       r.AmountPaid,
		RemainingBalance: r.RemainingBalance,
		TrackingURL:      o.baseURL + "/orders/" + r.ID,
	}
	for _, item := range r.Items {
		details.Items = append(details.Items, notify.OrderLine{
			Name:     item.ProductName,
			Quantity: item.Quantity,
			Price:    item.SellingPrice,
			Total:    item.Revenue,
		})
	}
	if res.Debt != nil {
		due := res.Debt.DueDate
		details.DebtID = res.Debt.ID
		details.DueDate = &due
	}
	return details
}

func (o *Orchestrator) sendConfirmation(ctx context.Context, email, customerName string, details notify.OrderDetails) {
	o.pending.Add(1)
	go func() {
		defer o.pending.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		if err := o.notifier.SendOrderConfirmation(sendCtx, email, customerName, details); err != nil {
			o.metrics.RecordNotificationFailure("order_confirmation")
			o.log.Error("failed to send order confirmation",
				zap.String("reportId", details.ReportID),
				zap.String("email", email),
				zap.Error(err))
		}
	}()
}
