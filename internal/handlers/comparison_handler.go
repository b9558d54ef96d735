package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crazypromo/internal/pagination"
	"crazypromo/internal/services"
)

const (
	defaultCompareLimit = 10
	maxCompareLimit     = 50
)

// ComparisonHandler handles cross-store price comparison requests.
type ComparisonHandler struct {
	comparisonService services.ComparisonServicer
}

// NewComparisonHandler creates a new ComparisonHandler.
func NewComparisonHandler(comparisonService services.ComparisonServicer) *ComparisonHandler {
	return &ComparisonHandler{comparisonService: comparisonService}
}

func (h *ComparisonHandler) limit(c *gin.Context) (int, error) {
	n, err := queryInt(c, "limit")
	if err != nil {
		return 0, err
	}
	return pagination.ClampLimit(n, defaultCompareLimit, maxCompareLimit), nil
}

// Compare groups offers for the same item across stores
// @Summary     Compare prices
// @Description Group offers by exact barcode, or by name similarity when no barcode is given. Without either, returns the best cross-store deals.
// @Tags        comparison
// @Produce     json
// @Param       barcode query string false "EAN/GTIN barcode"
// @Param       name query string false "Product name"
// @Param       limit query int false "Maximum groups (default 10, max 50)"
// @Success     200 {array} matching.Group "Match groups"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /compare [get]
func (h *ComparisonHandler) Compare(c *gin.Context) {
	limit, err := h.limit(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groups, err := h.comparisonService.FindMatches(c.Request.Context(), c.Query("barcode"), c.Query("name"), limit)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// BestDeals returns the cross-store groups with the largest savings
// @Summary     Best cross-store deals
// @Description Barcode groups sold by at least two stores, largest price spread first
// @Tags        comparison
// @Produce     json
// @Param       limit query int false "Maximum groups (default 10, max 50)"
// @Success     200 {array} matching.Group "Match groups"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /deals/best [get]
func (h *ComparisonHandler) BestDeals(c *gin.Context) {
	limit, err := h.limit(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	groups, err := h.comparisonService.GetBestDeals(c.Request.Context(), limit)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// SimilarProducts returns offers similar to a product from other stores
// @Summary     Similar products
// @Description Offers with the same barcode (similarity 100) and similar names from other stores, most similar first
// @Tags        comparison
// @Produce     json
// @Param       id path string true "Product ID"
// @Param       limit query int false "Maximum offers (default 10, max 50)"
// @Success     200 {array} matching.Offer "Similar offers"
// @Failure     404 {object} ErrorResponse "Product not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /products/{id}/similar [get]
func (h *ComparisonHandler) SimilarProducts(c *gin.Context) {
	limit, err := h.limit(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	offers, err := h.comparisonService.GetSimilarProducts(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers})
}
