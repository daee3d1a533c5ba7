// Package handlers exposes the back-office over HTTP.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"go-pos-backoffice/internal/ai"
	"go-pos-backoffice/internal/apperrors"
	"go-pos-backoffice/internal/auth"
	"go-pos-backoffice/internal/cart"
	"go-pos-backoffice/internal/checkout"
	"go-pos-backoffice/internal/expenditure"
	"go-pos-backoffice/internal/inventory"
	"go-pos-backoffice/internal/ledger"
	"go-pos-backoffice/internal/middleware"
	"go-pos-backoffice/internal/reporting"
	"go-pos-backoffice/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler holds the services behind the HTTP routes.
type Handler struct {
	Auth         *auth.Service
	Products     *inventory.Service
	Carts        *cart.Service
	Checkout     *checkout.Orchestrator
	Debts        *ledger.Service
	Reports      *reporting.Service
	Expenditures *expenditure.Service
	Assistant    *ai.Agent

	CookieName   string
	CookieSecure bool
	InstanceID   string
	Log          *zap.Logger

	startedAt time.Time
}

// respondError writes err as {"success": false, "code", "message", "details"}.
func (h *Handler) respondError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		h.Log.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("code", appErr.Code),
			zap.Error(err))
	}
	_ = c.Error(err)

	body := gin.H{
		"success": false,
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.JSON(appErr.HTTPStatus, body)
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondPage(c *gin.Context, data any, page store.Page, total int64) {
	page = page.Normalize()
	pages := (total + int64(page.Limit) - 1) / int64(page.Limit)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
		"pagination": gin.H{
			"page":  page.Page,
			"limit": page.Limit,
			"total": total,
			"pages": pages,
		},
	})
}

// identity is set by the auth middleware on every protected route.
func identity(c *gin.Context) auth.Identity {
	id, _ := middleware.CurrentIdentity(c)
	return id
}

func pageFromQuery(c *gin.Context) store.Page {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return store.Page{Page: page, Limit: limit}.Normalize()
}

// dateRange reads start and end query parameters as YYYY-MM-DD or RFC 3339. A
// plain end date covers that whole day.
func dateRange(c *gin.Context) (start, end *time.Time, err error) {
	if s := c.Query("start"); s != "" {
		t, perr := parseDate(s, false)
		if perr != nil {
			return nil, nil, apperrors.Validation("start must be a date (YYYY-MM-DD)")
		}
		start = &t
	}
	if s := c.Query("end"); s != "" {
		t, perr := parseDate(s, true)
		if perr != nil {
			return nil, nil, apperrors.Validation("end must be a date (YYYY-MM-DD)")
		}
		end = &t
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, apperrors.Validation("end must not be before start")
	}
	return start, end, nil
}

func parseDate(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func bindError(err error) error {
	return apperrors.Validation("invalid request body").WithDetail("reason", err.Error())
}
