package handlers

import (
	"net/http"

	"go-pos-backoffice/internal/expenditure"
	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ExpenditureRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description" binding:"required,max=500"`
	EmployeeName string          `json:"employeeName" binding:"max=200"`
	Category     string          `json:"category" binding:"required,expenditure_category"`
	Notes        string          `json:"notes" binding:"max=1000"`
	ReceiptImage string          `json:"receiptImage"`
}

// CreateExpenditure records spending by the current user. Small amounts are
// approved on the spot.
func (h *Handler) CreateExpenditure(c *gin.Context) {
	var input ExpenditureRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, bindError(err))
		return
	}

	id := identity(c)
	if input.EmployeeName == "" {
		input.EmployeeName = id.Username
	}
	exp, err := h.Expenditures.Create(c.Request.Context(), expenditure.Draft{
		Amount:       input.Amount,
		Description:  input.Description,
		EmployeeName: input.EmployeeName,
		EmployeeID:   id.ID,
		Category:     models.ExpenditureCategory(input.Category),
		Notes:        input.Notes,
		ReceiptImage: input.ReceiptImage,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, exp)
}

// expenditureFilter limits staff to their own expenditures.
func (h *Handler) expenditureFilter(c *gin.Context) (store.ExpenditureFilter, error) {
	start, end, err := dateRange(c)
	if err != nil {
		return store.ExpenditureFilter{}, err
	}
	filter := store.ExpenditureFilter{
		Status:     models.ExpenditureStatus(c.Query("status")),
		Category:   models.ExpenditureCategory(c.Query("category")),
		EmployeeID: c.Query("employeeId"),
		Start:      start,
		End:        end,
	}
	if id := identity(c); !id.IsAdmin {
		filter.EmployeeID = id.ID
	}
	return filter, nil
}

func (h *Handler) ListExpenditures(c *gin.Context) {
	filter, err := h.expenditureFilter(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	list, err := h.Expenditures.List(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}

func (h *Handler) GetExpenditureStatistics(c *gin.Context) {
	filter, err := h.expenditureFilter(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	stats, err := h.Expenditures.Statistics(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

func (h *Handler) GetExpenditure(c *gin.Context) {
	exp, err := h.Expenditures.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, exp)
}

type ExpenditureUpdateRequest struct {
	Amount       *decimal.Decimal `json:"amount"`
	Description  *string          `json:"description" binding:"omitempty,max=500"`
	Category     *string          `json:"category" binding:"omitempty,expenditure_category"`
	Notes        *string          `json:"notes" binding:"omitempty,max=1000"`
	ReceiptImage *string          `json:"receiptImage"`
}

func (h *Handler) UpdateExpenditure(c *gin.Context) {
	var input ExpenditureUpdateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, bindError(err))
		return
	}

	changes := expenditure.Changes{
		Amount:       input.Amount,
		Description:  input.Description,
		Notes:        input.Notes,
		ReceiptImage: input.ReceiptImage,
	}
	if input.Category != nil {
		category := models.ExpenditureCategory(*input.Category)
		changes.Category = &category
	}

	exp, err := h.Expenditures.Update(c.Request.Context(), c.Param("id"), changes)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, exp)
}

func (h *Handler) ApproveExpenditure(c *gin.Context) {
	exp, err := h.Expenditures.Approve(c.Request.Context(), c.Param("id"), identity(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, exp)
}

func (h *Handler) RejectExpenditure(c *gin.Context) {
	exp, err := h.Expenditures.Reject(c.Request.Context(), c.Param("id"), identity(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, exp)
}

// CompleteExpenditure posts an approved expenditure to the books.
func (h *Handler) CompleteExpenditure(c *gin.Context) {
	exp, report, err := h.Expenditures.Complete(c.Request.Context(), c.Param("id"), identity(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"expenditure": exp, "report": report})
}

func (h *Handler) DeleteExpenditure(c *gin.Context) {
	if err := h.Expenditures.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "expenditure deleted"})
}
