package handlers

import (
	"net/http"

	"go-pos-backoffice/internal/inventory"
	"go-pos-backoffice/internal/models"
	"go-pos-backoffice/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// --- GET: List products ---
// Supports ?search= (name or SKU) and ?category=.
func (h *Handler) GetProducts(c *gin.Context) {
	products, err := h.Products.List(c.Request.Context(), store.ProductFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, products)
}

func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.Products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, product)
}

// --- GET: Look a product up by the scanned barcode ---
func (h *Handler) ScanProduct(c *gin.Context) {
	product, err := h.Products.GetBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, product)
}

func (h *Handler) GetLowStock(c *gin.Context) {
	products, err := h.Products.LowStock(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, products)
}

// --- GET: /api/v1/products/statistics ---
func (h *Handler) GetInventoryStatistics(c *gin.Context) {
	stats, err := h.Products.Statistics(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

// --- POST: Add a new product ---
func (h *Handler) AddProduct(c *gin.Context) {
	var newProduct models.Product

	// 1. Parse JSON Input
	if err := c.ShouldBindJSON(&newProduct); err != nil {
		h.respondError(c, bindError(err))
		return
	}

	// 2. Save it
	product, err := h.Products.Create(c.Request.Context(), &newProduct)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, product)
}

// ProductUpdateRequest only changes the fields that were sent.
type ProductUpdateRequest struct {
	SKU          *string          `json:"sku" binding:"omitempty,max=64"`
	Name         *string          `json:"name" binding:"omitempty,max=200"`
	Category     *string          `json:"category" binding:"omitempty,max=50"`
	BuyingPrice  *decimal.Decimal `json:"buyingPrice"`
	SellingPrice *decimal.Decimal `json:"sellingPrice"`
	Quantity     *int             `json:"quantity" binding:"omitempty,gte=0"`
	Unit         *string          `json:"unit" binding:"omitempty,max=20"`
	ReorderLevel *int             `json:"reorderLevel" binding:"omitempty,gte=0"`
	ImageURL     *string          `json:"imageUrl"`
	Description  *string          `json:"description"`
}

// --- PUT: Update price, stock or details ---
func (h *Handler) UpdateProduct(c *gin.Context) {
	var input ProductUpdateRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, bindError(err))
		return
	}

	product, err := h.Products.Update(c.Request.Context(), c.Param("id"), inventory.ProductUpdate{
		SKU:          input.SKU,
		Name:         input.Name,
		Category:     input.Category,
		BuyingPrice:  input.BuyingPrice,
		SellingPrice: input.SellingPrice,
		Quantity:     input.Quantity,
		Unit:         input.Unit,
		ReorderLevel: input.ReorderLevel,
		ImageURL:     input.ImageURL,
		Description:  input.Description,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, product)
}

type RestockRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

func (h *Handler) RestockProduct(c *gin.Context) {
	var input RestockRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		h.respondError(c, bindError(err))
		return
	}
	product, err := h.Products.Restock(c.Request.Context(), c.Param("id"), input.Quantity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, product)
}

// --- DELETE: Remove a product ---
// Past reports keep their own copy of the product name and prices.
func (h *Handler) DeleteProduct(c *gin.Context) {
	if err := h.Products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "product deleted"})
}
