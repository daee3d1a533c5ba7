package handlers

import (
	"net/http"

	"go-pos-backoffice/internal/checkout"
	"go-pos-backoffice/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (h *Handler) GetCart(c *gin.Context) {
	cart, err := h.Carts.GetOrCreate(c.Request.Context(), identity(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, cart)
}

type AddItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// ScanRequest carries what the scanner read: a product ID, a SKU or the JSON
// label of a QR code.
type ScanRequest struct {
	Code     string `json:"code" binding:"required"`
	Quantity int    `json:"quantity" binding:"omitempty,gt=0"`
}

func (h *Handler) AddToCart(c *gin.Context) {
	var input AddItemRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	cart, err := h.Carts.AddItem(c.Request.Context(), identity(c).ID, input.ProductID, input.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, cart)
}

// --- POST: /api/v1/cart/scan ---
func (h *Handler) ScanToCart(c *gin.Context) {
	var input ScanRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	cart, err := h.Carts.AddScanned(c.Request.Context(), identity(c).ID, input.Code, input.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, cart)
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

func (h *Handler) UpdateCartItem(c *gin.Context) {
	var input UpdateItemRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	cart, err := h.Carts.UpdateItemQuantity(c.Request.Context(), identity(c).ID, c.Param("itemId"), input.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, cart)
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	cart, err := h.Carts.RemoveItem(c.Request.Context(), identity(c).ID, c.Param("itemId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, cart)
}

func (h *Handler) ClearCart(c *gin.Context) {
	cart, err := h.Carts.Clear(c.Request.Context(), identity(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, cart)
}

type CartNoteRequest struct {
	Note string `json:"note" binding:"max=500"`
}

func (h *Handler) SetCartNote(c *gin.Context) {
	var input CartNoteRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	cart, err := h.Carts.SetNote(c.Request.Context(), identity(c).ID, input.Note)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, cart)
}

// ListCarts is the admin view of carts by status.
func (h *Handler) ListCarts(c *gin.Context) {
	page := pageFromQuery(c)
	carts, total, err := h.Carts.List(c.Request.Context(), models.CartStatus(c.Query("status")), page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondPage(c, carts, page, total)
}

type CheckoutRequest struct {
	PaymentMethod    string              `json:"paymentMethod" binding:"required,max=50"`
	Customer         models.CustomerInfo `json:"customerInfo"`
	PaymentStatus    string              `json:"paymentStatus" binding:"payment_status"`
	AmountPaid       *decimal.Decimal    `json:"amountPaid"`
	RemainingBalance *decimal.Decimal    `json:"remainingBalance"`
}

func (h *Handler) CheckoutCart(c *gin.Context) {
	var input CheckoutRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, bindError(err))
		return
	}

	id := identity(c)
	result, err := h.Checkout.Checkout(c.Request.Context(), checkout.Request{
		UserID:           id.ID,
		UserEmail:        id.Email,
		PaymentMethod:    input.PaymentMethod,
		Customer:         input.Customer,
		PaymentStatus:    models.PaymentStatus(input.PaymentStatus),
		AmountPaid:       input.AmountPaid,
		RemainingBalance: input.RemainingBalance,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, result)
}
