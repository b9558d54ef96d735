package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crazypromo/internal/services"
)

// CronHandler runs scheduled maintenance on request of the scheduler.
type CronHandler struct {
	cronService services.CronServicer
}

// NewCronHandler creates a new CronHandler.
func NewCronHandler(cronService services.CronServicer) *CronHandler {
	return &CronHandler{cronService: cronService}
}

// UpdatePrices runs the scheduled price maintenance
// @Summary     Scheduled price update
// @Description Deactivate expired promotions and re-score the active ones. Requires "Authorization: Bearer CRON_SECRET".
// @Tags        cron
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.PriceUpdateReport "Run summary"
// @Failure     401 {object} ErrorResponse "Invalid secret"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /cron/update-prices [get]
func (h *CronHandler) UpdatePrices(c *gin.Context) {
	report, err := h.cronService.UpdatePrices(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}
