package handlers

import (
	"net/http"

	"go-pos-backoffice/internal/apperrors"
	"go-pos-backoffice/internal/reporting"

	"github.com/gin-gonic/gin"
)

// reportQuery reads period, start, end and category from the query string.
func reportQuery(c *gin.Context) (reporting.Query, error) {
	start, end, err := dateRange(c)
	if err != nil {
		return reporting.Query{}, err
	}
	period := reporting.Period(c.DefaultQuery("period", string(reporting.Daily)))
	if !period.Valid() {
		return reporting.Query{}, apperrors.Validation("period must be daily, weekly, monthly or yearly")
	}
	return reporting.Query{Period: period, Start: start, End: end, Category: c.Query("category")}, nil
}

// --- GET: /api/v1/reports ---
// GetOverview is the dashboard: revenue, order count, top sellers and recent sales.
func (h *Handler) GetOverview(c *gin.Context) {
	overview, err := h.Reports.Overview(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, overview)
}

func (h *Handler) GetSalesReport(c *gin.Context) {
	q, err := reportQuery(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	stats, err := h.Reports.Sales(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

func (h *Handler) GetProductReport(c *gin.Context) {
	q, err := reportQuery(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	report, err := h.Reports.Products(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, report)
}

func (h *Handler) GetCategoryReport(c *gin.Context) {
	q, err := reportQuery(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	stats, err := h.Reports.Categories(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

func (h *Handler) GetPaymentMethodReport(c *gin.Context) {
	q, err := reportQuery(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	stats, err := h.Reports.PaymentMethods(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

func (h *Handler) GetProfitLoss(c *gin.Context) {
	q, err := reportQuery(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	pl, err := h.Reports.ProfitLoss(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, pl)
}

// --- GET: /api/v1/reports/valuation ---
// GetStockValuation values everything on the shelves at buying price, grouped by category.
func (h *Handler) GetStockValuation(c *gin.Context) {
	valuation, err := h.Reports.Valuation(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, valuation)
}

func (h *Handler) GetReport(c *gin.Context) {
	report, err := h.Reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, report)
}

func (h *Handler) DeleteReport(c *gin.Context) {
	if err := h.Reports.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "report deleted"})
}

// --- DELETE: /api/v1/reports?start=...&end=... ---
// DeleteReports removes every report dated within the range. Both ends are required.
func (h *Handler) DeleteReports(c *gin.Context) {
	start, end, err := dateRange(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if start == nil || end == nil {
		h.respondError(c, apperrors.Validation("start and end are required"))
		return
	}
	n, err := h.Reports.DeleteRange(c.Request.Context(), *start, *end)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deletedCount": n})
}

func (h *Handler) DeleteAllReports(c *gin.Context) {
	n, err := h.Reports.DeleteAll(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deletedCount": n})
}
