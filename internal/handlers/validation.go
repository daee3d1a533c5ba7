package handlers

import (
	"go-pos-backoffice/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the back-office rules to gin's validator. It is safe to
// call more than once.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	rules := map[string]validator.Func{
		"payment_status":       validPaymentStatus,
		"expenditure_category": validExpenditureCategory,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func validPaymentStatus(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || models.PaymentStatus(s).Valid()
}

func validExpenditureCategory(fl validator.FieldLevel) bool {
	return models.ExpenditureCategory(fl.Field().String()).Valid()
}
