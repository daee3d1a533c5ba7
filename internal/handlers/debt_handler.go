package handlers

import (
	"net/http"
	"strings"
	"time"

	"go-pos-backoffice/internal/apperrors"
	"go-pos-backoffice/internal/ledger"
	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (h *Handler) GetUserDebts(c *gin.Context) {
	page := pageFromQuery(c)
	debts, total, err := h.Debts.ListForUser(c.Request.Context(), identity(c).ID, page)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondPage(c, debts, page, total)
}

func (h *Handler) GetUserDebt(c *gin.Context) {
	debt, err := h.Debts.Get(c.Request.Context(), c.Param("debtId"), identity(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, debt)
}

type DebtPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod" binding:"max=50"`
	Notes         string          `json:"notes" binding:"max=500"`
}

func (h *Handler) PayDebt(c *gin.Context) {
	var input DebtPaymentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	if input.PaymentMethod == "" {
		input.PaymentMethod = "cash"
	}

	debt, err := h.Debts.RecordPayment(c.Request.Context(), ledger.Payment{
		DebtID:  c.Param("debtId"),
		OwnerID: identity(c).ID,
		Amount:  input.Amount,
		Method:  input.PaymentMethod,
		Notes:   input.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, debt)
}

func (h *Handler) GetDebtStatistics(c *gin.Context) {
	stats, err := h.Debts.Statistics(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

var debtSortFields = map[string]bool{"dueDate": true, "createdAt": true, "remainingAmount": true}

// ListDebts is the admin view of every debt.
func (h *Handler) ListDebts(c *gin.Context) {
	filter := store.DebtFilter{
		Status: models.DebtStatus(c.Query("status")),
		SortBy: c.DefaultQuery("sortBy", "createdAt"),
		Desc:   !strings.EqualFold(c.DefaultQuery("order", "desc"), "asc"),
		Page:   pageFromQuery(c),
	}
	switch filter.Status {
	case "", models.DebtCurrent, models.DebtOverdue, models.DebtPaid:
	default:
		h.respondError(c, apperrors.Validation("status must be current, overdue or paid"))
		return
	}
	if !debtSortFields[filter.SortBy] {
		h.respondError(c, apperrors.Validation("sortBy must be dueDate, createdAt or remainingAmount"))
		return
	}

	debts, total, err := h.Debts.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondPage(c, debts, filter.Page, total)
}

func (h *Handler) GetOverdueReport(c *gin.Context) {
	report, err := h.Debts.OverdueReport(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, report)
}

type DebtUpdateRequest struct {
	DueDate *string `json:"dueDate"`
	Notes   *string `json:"notes" binding:"omitempty,max=500"`
}

func (h *Handler) UpdateDebt(c *gin.Context) {
	var input DebtUpdateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, bindError(err))
		return
	}

	upd := ledger.DetailsUpdate{Notes: input.Notes}
	if input.DueDate != nil {
		due, err := parseDate(*input.DueDate, true)
		if err != nil {
			h.respondError(c, apperrors.Validation("dueDate must be a date (YYYY-MM-DD)"))
			return
		}
		upd.DueDate = &due
	}

	debt, err := h.Debts.UpdateDetails(c.Request.Context(), c.Param("debtId"), upd)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, debt)
}

func (h *Handler) SendDebtReminder(c *gin.Context) {
	if err := h.Debts.SendReminder(c.Request.Context(), c.Param("debtId")); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "reminder sent", "sentAt": time.Now().UTC()})
}

func (h *Handler) DeleteAllDebts(c *gin.Context) {
	n, err := h.Debts.DeleteAll(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deletedCount": n})
}
