package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned to API clients.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "RESOURCE_NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeDependencyFailure = "DEPENDENCY_FAILURE"
	CodeInternal          = "INTERNAL_ERROR"

	CodeCartNotFound     = "CART_NOT_FOUND"
	CodeEmptyCart        = "EMPTY_CART"
	CodeOutOfStock       = "OUT_OF_STOCK"
	CodeItemsUnavailable = "ITEMS_UNAVAILABLE"
	CodeInvalidAmount    = "INVALID_AMOUNT"
	CodeOverPayment      = "OVER_PAYMENT"
	CodeDebtAlreadyPaid  = "DEBT_ALREADY_PAID"
	CodeConcurrentUpdate = "CONCURRENT_UPDATE"
)

// Error is an application error with an HTTP status and a client-facing code.
type Error struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	HTTPStatus int            `json:"-"`
	Err        error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetail attaches a single detail value.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Wrap records the underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// New creates an Error.
func New(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, HTTPStatus: status}
}

func Validation(message string) *Error {
	return New(CodeValidation, message, http.StatusBadRequest)
}

func NotFound(resource string) *Error {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func Conflict(message string) *Error {
	return New(CodeConflict, message, http.StatusConflict)
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = "authentication required"
	}
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "access denied"
	}
	return New(CodeForbidden, message, http.StatusForbidden)
}

// DependencyFailure reports a failed call to storage or another collaborator.
func DependencyFailure(message string, err error) *Error {
	return New(CodeDependencyFailure, message, http.StatusBadGateway).Wrap(err)
}

// Storage passes app errors through and reports anything else as a failed
// storage call.
func Storage(err error) *Error {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	return DependencyFailure("storage operation failed", err)
}

func Internal(message string) *Error {
	if message == "" {
		message = "an internal error occurred"
	}
	return New(CodeInternal, message, http.StatusInternalServerError)
}

// Domain errors

func CartNotFound() *Error {
	return New(CodeCartNotFound, "cart not found", http.StatusNotFound)
}

func EmptyCart() *Error {
	return New(CodeEmptyCart, "cannot checkout an empty cart", http.StatusBadRequest)
}

// OutOfStock reports that a requested quantity exceeds the live stock.
func OutOfStock(productName string, available int) *Error {
	return New(CodeOutOfStock, fmt.Sprintf("only %d units of %s available", available, productName), http.StatusConflict).
		WithDetail("availableQuantity", available)
}

// UnavailableItem describes one line that can no longer be fulfilled.
type UnavailableItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func ItemsUnavailable(items []UnavailableItem) *Error {
	return New(CodeItemsUnavailable, "some items are no longer available", http.StatusConflict).
		WithDetail("unavailableItems", items)
}

func InvalidAmount(message string) *Error {
	return New(CodeInvalidAmount, message, http.StatusBadRequest)
}

func OverPayment(remaining string) *Error {
	return New(CodeOverPayment, "payment amount cannot exceed the remaining debt", http.StatusConflict).
		WithDetail("remainingAmount", remaining)
}

func DebtAlreadyPaid() *Error {
	return New(CodeDebtAlreadyPaid, "this debt has already been fully paid", http.StatusConflict)
}

func ConcurrentUpdate(resource string) *Error {
	return New(CodeConcurrentUpdate, fmt.Sprintf("%s was modified concurrently, retry the request", resource), http.StatusConflict)
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// From converts any error into an *Error, treating unknown errors as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	return Internal("").Wrap(err)
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
