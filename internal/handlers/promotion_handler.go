package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"crazypromo/internal/services"
)

// PromotionHandler handles promotion requests.
type PromotionHandler struct {
	promotionService services.PromotionServicer
	analysisService  services.PriceAnalysisServicer
	auditService     services.AuditServicer
}

// NewPromotionHandler creates a new PromotionHandler.
func NewPromotionHandler(promotionService services.PromotionServicer, analysisService services.PriceAnalysisServicer, auditService services.AuditServicer) *PromotionHandler {
	return &PromotionHandler{
		promotionService: promotionService,
		analysisService:  analysisService,
		auditService:     auditService,
	}
}

// PromotionListQuery holds the promotion list filters
type PromotionListQuery struct {
	Category    string   `form:"category"`
	Store       string   `form:"store"`
	MinDiscount *float64 `form:"min_discount" binding:"omitempty,gte=0,lte=100"`
	OnlyReal    bool     `form:"only_real"`
	Featured    bool     `form:"featured"`
	Sort        string   `form:"sort" binding:"omitempty,promotion_sort"`
}

// CreatePromotionRequest represents the request payload for creating a promotion
type CreatePromotionRequest struct {
	ProductID      string     `json:"product_id" binding:"required"`
	Title          string     `json:"title" binding:"max=300"`
	Description    string     `json:"description" binding:"max=2000"`
	PromotionPrice float64    `json:"promotion_price" binding:"required,gt=0"`
	OriginalPrice  float64    `json:"original_price" binding:"required,gt=0"`
	IsFeatured     bool       `json:"is_featured"`
	StartsAt       *time.Time `json:"starts_at"`
	EndsAt         *time.Time `json:"ends_at"`
}

// UpdatePromotionRequest represents the request payload for updating a promotion.
// Omitted fields are left unchanged.
type UpdatePromotionRequest struct {
	Title          *string    `json:"title" binding:"omitempty,min=1,max=300"`
	Description    *string    `json:"description" binding:"omitempty,max=2000"`
	PromotionPrice *float64   `json:"promotion_price" binding:"omitempty,gt=0"`
	OriginalPrice  *float64   `json:"original_price" binding:"omitempty,gt=0"`
	IsActive       *bool      `json:"is_active"`
	IsFeatured     *bool      `json:"is_featured"`
	StartsAt       *time.Time `json:"starts_at"`
	EndsAt         *time.Time `json:"ends_at"`
}

func (h *PromotionHandler) list(c *gin.Context, includeAll bool) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var q PromotionListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	result, err := h.promotionService.ListPromotions(c.Request.Context(), services.PromotionFilter{
		CategorySlug: q.Category,
		StoreSlug:    q.Store,
		MinDiscount:  q.MinDiscount,
		OnlyReal:     q.OnlyReal,
		OnlyFeatured: q.Featured,
		IncludeAll:   includeAll,
		Sort:         q.Sort,
	}, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListPromotions returns running promotions
// @Summary     List promotions
// @Description Get a paginated list of active promotions inside their validity window
// @Tags        promotions
// @Produce     json
// @Param       category query string false "Category slug"
// @Param       store query string false "Store slug"
// @Param       min_discount query number false "Minimum claimed discount percent"
// @Param       only_real query bool false "Only verified real deals"
// @Param       featured query bool false "Only featured promotions"
// @Param       sort query string false "deal_score, discount, price or newest"
// @Param       page query int false "Page number" minimum(1)
// @Param       page_size query int false "Items per page" minimum(1) maximum(100)
// @Success     200 {object} pagination.PageResponse[models.Promotion] "Promotions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /promotions [get]
func (h *PromotionHandler) ListPromotions(c *gin.Context) {
	h.list(c, false)
}

// ListAllPromotions returns promotions regardless of state
// @Summary     List all promotions
// @Description Admin listing including inactive, upcoming and expired promotions
// @Tags        promotions
// @Produce     json
// @Security    BearerAuth
// @Param       sort query string false "deal_score, discount, price or newest"
// @Param       page query int false "Page number" minimum(1)
// @Param       page_size query int false "Items per page" minimum(1) maximum(100)
// @Success     200 {object} pagination.PageResponse[models.Promotion] "Promotions"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/promotions [get]
func (h *PromotionHandler) ListAllPromotions(c *gin.Context) {
	h.list(c, true)
}

// GetPromotion returns a promotion with a fresh analysis
// @Summary     Get promotion
// @Description Get a promotion with its product and an analysis against the current price history
// @Tags        promotions
// @Produce     json
// @Param       id path string true "Promotion ID"
// @Success     200 {object} models.Promotion "Promotion"
// @Failure     404 {object} ErrorResponse "Promotion not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /promotions/{id} [get]
func (h *PromotionHandler) GetPromotion(c *gin.Context) {
	ctx := c.Request.Context()
	promo, err := h.promotionService.GetPromotion(ctx, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	original := promo.OriginalPrice
	analysis, err := h.analysisService.AnalyzeDeal(ctx, promo.ProductID, promo.PromotionPrice, &original)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"promotion": promo, "analysis": analysis})
}

// CreatePromotion declares a promotion
// @Summary     Create promotion
// @Description Create a promotion. It is analyzed against the product's price history and the result is stored with it.
// @Tags        promotions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreatePromotionRequest true "Promotion details"
// @Success     201 {object} models.Promotion "Promotion created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Product not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/promotions [post]
func (h *PromotionHandler) CreatePromotion(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	promo, err := h.promotionService.CreatePromotion(c.Request.Context(), services.PromotionInput{
		ProductID:      req.ProductID,
		Title:          req.Title,
		Description:    req.Description,
		PromotionPrice: req.PromotionPrice,
		OriginalPrice:  req.OriginalPrice,
		IsFeatured:     req.IsFeatured,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "CREATE_PROMOTION", "promotion", promo.ID, c.ClientIP(),
		map[string]interface{}{"product_id": promo.ProductID, "promotion_price": promo.PromotionPrice, "original_price": promo.OriginalPrice})
	c.JSON(http.StatusCreated, gin.H{"promotion": promo})
}

// UpdatePromotion updates a promotion
// @Summary     Update promotion
// @Description Update a promotion. Changing a price re-runs the analysis.
// @Tags        promotions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Promotion ID"
// @Param       request body UpdatePromotionRequest true "Promotion changes"
// @Success     200 {object} models.Promotion "Promotion updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Promotion not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/promotions/{id} [put]
func (h *PromotionHandler) UpdatePromotion(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	promo, err := h.promotionService.UpdatePromotion(c.Request.Context(), c.Param("id"), services.PromotionUpdate{
		Title:          req.Title,
		Description:    req.Description,
		PromotionPrice: req.PromotionPrice,
		OriginalPrice:  req.OriginalPrice,
		IsActive:       req.IsActive,
		IsFeatured:     req.IsFeatured,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "UPDATE_PROMOTION", "promotion", promo.ID, c.ClientIP(), nil)
	c.JSON(http.StatusOK, gin.H{"promotion": promo})
}

// DeactivatePromotion retracts a promotion
// @Summary     Deactivate promotion
// @Description Hide a promotion from the storefront without deleting it
// @Tags        promotions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Promotion ID"
// @Success     200 {object} models.Promotion "Promotion deactivated"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Promotion not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/promotions/{id}/deactivate [post]
func (h *PromotionHandler) DeactivatePromotion(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	promo, err := h.promotionService.DeactivatePromotion(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "DEACTIVATE_PROMOTION", "promotion", promo.ID, c.ClientIP(), nil)
	c.JSON(http.StatusOK, gin.H{"promotion": promo})
}

// DeletePromotion deletes a promotion
// @Summary     Delete promotion
// @Description Delete a promotion. Its clicks are kept and detached.
// @Tags        promotions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Promotion ID"
// @Success     200 {object} map[string]string "Promotion deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Promotion not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/promotions/{id} [delete]
func (h *PromotionHandler) DeletePromotion(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	id := c.Param("id")
	if err := h.promotionService.DeletePromotion(c.Request.Context(), id); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(c.Request.Context(), userID, "DELETE_PROMOTION", "promotion", id, c.ClientIP(), nil)
	c.JSON(http.StatusOK, gin.H{"message": "Promotion deleted successfully"})
}

// AnalyzePromotion re-runs and stores the analysis of a promotion
// @Summary     Re-analyze promotion
// @Description Re-score a promotion against the current price history and store the result
// @Tags        promotions
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Promotion ID"
// @Success     200 {object} models.Promotion "Promotion analyzed"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Promotion not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/promotions/{id}/analyze [post]
func (h *PromotionHandler) AnalyzePromotion(c *gin.Context) {
	promo, err := h.promotionService.AnalyzePromotion(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"promotion": promo})
}
