package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crazypromo/internal/pricing"
	"crazypromo/internal/services"
)

// AnalysisHandler exposes the deal-verification engine.
type AnalysisHandler struct {
	analysisService services.PriceAnalysisServicer
	productService  services.ProductServicer
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(analysisService services.PriceAnalysisServicer, productService services.ProductServicer) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService, productService: productService}
}

// AnalyzeDealRequest asks whether a price is a real deal
type AnalyzeDealRequest struct {
	ProductID      string   `json:"product_id" binding:"required"`
	PromotionPrice float64  `json:"promotion_price" binding:"required,gt=0"`
	OriginalPrice  *float64 `json:"original_price" binding:"omitempty,gt=0"`
}

// PriceStatsResponse is the statistics view of a product
type PriceStatsResponse struct {
	ProductID            string         `json:"product_id"`
	SufficientHistory    bool           `json:"sufficient_history"`
	Stats                *pricing.Stats `json:"stats"`
	ManipulationDetected bool           `json:"manipulation_detected"`
}

// AnalyzeDeal scores a candidate price against the product's history
// @Summary     Analyze deal
// @Description Score a promotion price against the product's price history. Products without enough history get a neutral result.
// @Tags        analysis
// @Accept      json
// @Produce     json
// @Param       request body AnalyzeDealRequest true "Candidate deal"
// @Success     200 {object} pricing.Analysis "Deal analysis"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Product not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /analysis [post]
func (h *AnalysisHandler) AnalyzeDeal(c *gin.Context) {
	var req AnalyzeDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), req.ProductID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	analysis, err := h.analysisService.AnalyzeDeal(c.Request.Context(), product.ID, req.PromotionPrice, req.OriginalPrice)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}

// GetPriceStats returns the price statistics of a product
// @Summary     Get price statistics
// @Description Get lowest, highest, average and median price over the statistics window, the trend and the manipulation signal
// @Tags        analysis
// @Produce     json
// @Param       id path string true "Product ID or slug"
// @Success     200 {object} PriceStatsResponse "Statistics"
// @Failure     404 {object} ErrorResponse "Product not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /products/{id}/stats [get]
func (h *AnalysisHandler) GetPriceStats(c *gin.Context) {
	ctx := c.Request.Context()
	product, err := h.productService.GetProduct(ctx, c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	stats, err := h.analysisService.GetPriceStats(ctx, product.ID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	manipulated, err := h.analysisService.DetectManipulation(ctx, product.ID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, PriceStatsResponse{
		ProductID:            product.ID,
		SufficientHistory:    stats != nil,
		Stats:                stats,
		ManipulationDetected: manipulated,
	})
}
