package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crazypromo/internal/services"
)

// ClickHandler handles affiliate click tracking.
type ClickHandler struct {
	clickService services.ClickServicer
}

// NewClickHandler creates a new ClickHandler.
func NewClickHandler(clickService services.ClickServicer) *ClickHandler {
	return &ClickHandler{clickService: clickService}
}

// RecordClickRequest names the product or promotion that was clicked
type RecordClickRequest struct {
	ProductID   *string `json:"product_id"`
	PromotionID *string `json:"promotion_id"`
}

// RecordClick stores an outbound click and returns where to send the visitor
// @Summary     Record click
// @Description Record a click on a product or promotion and return the affiliate URL to redirect to
// @Tags        clicks
// @Accept      json
// @Produce     json
// @Param       request body RecordClickRequest true "Clicked item"
// @Success     201 {object} map[string]string "Redirect URL"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Product or promotion not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /clicks [post]
func (h *ClickHandler) RecordClick(c *gin.Context) {
	var req RecordClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	target, err := h.clickService.RecordClick(c.Request.Context(), services.ClickInput{
		ProductID:   req.ProductID,
		PromotionID: req.PromotionID,
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
		Referer:     c.Request.Referer(),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"redirect_url": target})
}

// GetClickStats aggregates recent clicks
// @Summary     Click statistics
// @Description Total clicks, clicks per day and the most clicked products over the last N days
// @Tags        clicks
// @Produce     json
// @Security    BearerAuth
// @Param       days query int false "Window in days (default 30, max 365)"
// @Success     200 {object} services.ClickStats "Click statistics"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /admin/clicks/stats [get]
func (h *ClickHandler) GetClickStats(c *gin.Context) {
	days, err := queryInt(c, "days")
	if err != nil {
		respondWithError(c, err)
		return
	}

	stats, err := h.clickService.GetClickStats(c.Request.Context(), days)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
