package models

import "github.com/shopspring/decimal"

// PaymentTerms are the money figures of one settlement.
type PaymentTerms struct {
	Total            decimal.Decimal
	AmountPaid       decimal.Decimal
	RemainingBalance decimal.Decimal
	Status           PaymentStatus
}

// SettlePayment computes the payment figures of a checkout.
//
// amountPaid defaults to zero and is never negative. remaining, when given, overrides
// total-amountPaid (it is still clamped at zero). status, when non-empty, overrides the
// derived status: unpaid when nothing was paid, partial below the total, paid otherwise.
func SettlePayment(total decimal.Decimal, amountPaid, remaining *decimal.Decimal, status PaymentStatus) PaymentTerms {
	paid := decimal.Zero
	if amountPaid != nil && amountPaid.IsPositive() {
		paid = *amountPaid
	}

	balance := decimal.Max(decimal.Zero, total.Sub(paid))
	if remaining != nil {
		balance = decimal.Max(decimal.Zero, *remaining)
	}

	if status == "" {
		switch {
		case !paid.IsPositive():
			status = PaymentUnpaid
		case paid.LessThan(total):
			status = PaymentPartial
		default:
			status = PaymentPaid
		}
	}

	return PaymentTerms{
		Total:            total,
		AmountPaid:       paid,
		RemainingBalance: balance,
		Status:           status,
	}
}
