package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"crazypromo/internal/models"
	"crazypromo/internal/services"
)

// ProductHandler handles product and price history requests.
type ProductHandler struct {
	productService services.ProductServicer
	auditService   services.AuditServicer
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(productService services.ProductServicer, auditService services.AuditServicer) *ProductHandler {
	return &ProductHandler{productService: productService, auditService: auditService}
}

// CreateProductRequest represents the request payload for creating a product
type CreateProductRequest struct {
	StoreID       string   `json:"store_id" binding:"required"`
	CategoryID    *string  `json:"category_id"`
	ExternalID    *string  `json:"external_id" binding:"omitempty,max=200"`
	Name          string   `json:"name" binding:"required,max=300"`
	Description   string   `json:"description" binding:"max=5000"`
	Image         string   `json:"image" binding:"omitempty,url"`
	OriginalURL   string   `json:"original_url" binding:"required,url"`
	Barcode       *string  `json:"barcode" binding:"omitempty,max=50"`
	SKU           string   `json:"sku" binding:"max=100"`
	Brand         string   `json:"brand" binding:"max=100"`
	CurrentPrice  float64  `json:"current_price" binding:"required,gt=0"`
	OriginalPrice *float64 `json:"original_price" binding:"omitempty,gt=0"`
}

// UpdateProductRequest represents the request payload for updating a product.
// Omitted fields are left unchanged.
type UpdateProductRequest struct {
	Name          *string  `json:"name" binding:"omitempty,min=1,max=300"`
	Description   *string  `json:"description" binding:"omitempty,max=5000"`
	Image         *string  `json:"image"`
	CategoryID    *string  `json:"category_id"`
	Barcode       *string  `json:"barcode" binding:"omitempty,max=50"`
	Brand         *string  `json:"brand" binding:"omitempty,max=100"`
	CurrentPrice  *float64 `json:"current_price" binding:"omitempty,gt=0"`
	OriginalPrice *float64 `json:"original_price" binding:"omitempty,gt=0"`
	IsActive      *bool    `json:"is_active"`
}

// RecordPriceRequest represents one observed price
type RecordPriceRequest struct {
	Price      float64            `json:"price" binding:"required,gt=0"`
	Source     models.PriceSource `json:"source" binding:"omitempty,price_source"`
	ObservedAt *time.Time         `json:"observed_at"`
}

// ListProducts returns a page of products
// @Summary     List products
// @Description Get a paginated list of active products, newest first
// @Tags        products
// @Produce     json
// @Param       search query string false "Name search"
// @Param       category query string false "Category slug"
// @Param       store query string false "Store slug"
// @Param       page query int false "Page number" minimum(1)
// @Param       page_size query int false "Items per page" minimum(1) maximum(100)
// @Success     200 {object} pagination.PageResponse[models.Product] "Products"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter := services.ProductFilter{
		Search:       c.Query("search"),
		CategorySlug: c.Query("category"),
		StoreSlug:    c.Query("store"),
		StoreID:      c.Query("store_id"),
		OnlyActive:   !queryBool(c, "include_inactive"),
	}
	result, err := h.productService.ListProducts(c.Request.Context(), filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetProduct returns a product with its history and deal analysis
// @Summary     Get product
// @Description Get a product by ID or slug with its last 90 days of prices, statistics and the analysis of its best running promotion
// @Tags        products
// @Produce     json
// @Param       id path string true "Product ID or slug"
// @Success     200 {object} services.ProductDetail "Product detail"
// @Failure     404 {object} ErrorResponse "Product not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	detail, err := h.productService.GetProductDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetPriceHistory returns the price points of a product
// @Summary     Get price history
// @Description Get the price points observed over the last N days
// @Tags        products
// @Produce     json
// @Param       id path string true "Product ID or slug"
// @Param       days query int false "Window in days (default 90, max 365)"
// @Param       order query string false "asc or desc (default asc)"
// @Success     200 {array} models.PricePoint "Price points"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Product not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /products/{id}/prices [get]
func (h *ProductHandler) GetPriceHistory(c *gin.Context) {
	days, err := queryInt(c, "days")
	if err != nil {
		respondWithError(c, err)
		return
	}

	points, err := h.productService.GetPriceHistory(c.Request.Context(), c.Param("id"), days, c.Query("order") != "desc")
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prices": points})
}

// CreateProduct creates a product by hand
// @Summary     Create product
// @Description Create a product and record its first manual price point
// @Tags        products
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateProductRequest true "Product details"
// @Success     201 {object} models.Product "Product created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Store or category not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), services.ProductInput{
		StoreID:       req.StoreID,
		CategoryID:    req.CategoryID,
		ExternalID:    req.ExternalID,
		Name:          req.Name,
		Description:   req.Description,
		Image:         req.Image,
		OriginalURL:   req.OriginalURL,
		Barcode:       req.Barcode,
		SKU:           req.SKU,
		Brand:         req.Brand,
		CurrentPrice:  req.CurrentPrice,
		OriginalPrice: req.OriginalPrice,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "CREATE_PRODUCT", "product", product.ID, c.ClientIP(),
		map[string]interface{}{"name": product.Name, "store_id": product.StoreID, "price": product.CurrentPrice})
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// UpdateProduct updates a product
// @Summary     Update product
// @Description Update product fields. A changed current price is recorded as a manual price point.
// @Tags        products
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Product ID"
// @Param       request body UpdateProductRequest true "Product changes"
// @Success     200 {object} models.Product "Product updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Product not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), c.Param("id"), services.ProductUpdate{
		Name:          req.Name,
		Description:   req.Description,
		Image:         req.Image,
		CategoryID:    req.CategoryID,
		Barcode:       req.Barcode,
		Brand:         req.Brand,
		CurrentPrice:  req.CurrentPrice,
		OriginalPrice: req.OriginalPrice,
		IsActive:      req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	changes := map[string]interface{}{}
	if req.CurrentPrice != nil {
		changes["current_price"] = *req.CurrentPrice
	}
	if req.IsActive != nil {
		changes["is_active"] = *req.IsActive
	}
	h.auditService.Log(c.Request.Context(), userID, "UPDATE_PRODUCT", "product", product.ID, c.ClientIP(), changes)
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// DeleteProduct deletes a product
// @Summary     Delete product
// @Description Delete a product. Products with promotions or price history are only deleted with cascade=true.
// @Tags        products
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Product ID"
// @Param       cascade query bool false "Also delete promotions and price history"
// @Success     200 {object} map[string]string "Product deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Product not found"
// @Failure     409 {object} ErrorResponse "Product in use"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id := c.Param("id")
	cascade := queryBool(c, "cascade")
	if err := h.productService.DeleteProduct(c.Request.Context(), id, cascade); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "DELETE_PRODUCT", "product", id, c.ClientIP(),
		map[string]interface{}{"cascade": cascade})
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// RecordPrice appends a price observation
// @Summary     Record price
// @Description Append an observed price. The newest observation becomes the current price.
// @Tags        products
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Product ID"
// @Param       request body RecordPriceRequest true "Observation"
// @Success     201 {object} models.PricePoint "Price recorded"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Product not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/products/{id}/prices [post]
func (h *ProductHandler) RecordPrice(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RecordPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}
	if req.Source == "" {
		req.Source = models.PriceSourceManual
	}
	var observedAt time.Time
	if req.ObservedAt != nil {
		observedAt = *req.ObservedAt
	}

	point, err := h.productService.RecordPrice(c.Request.Context(), c.Param("id"), req.Price, req.Source, observedAt)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "RECORD_PRICE", "product", point.ProductID, c.ClientIP(),
		map[string]interface{}{"price": point.Price, "source": point.Source})
	c.JSON(http.StatusCreated, gin.H{"price_point": point})
}
