package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// secretGuard aborts unless extract(c) equals secret. An empty secret
// disables the guarded routes with 503.
func secretGuard(secret, notConfiguredCode, scope string, extract func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": gin.H{"code": notConfiguredCode, "message": scope + " endpoints are not configured"}})
			return
		}
		if subtle.ConstantTimeCompare([]byte(extract(c)), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": gin.H{"code": "INVALID_API_KEY", "message": "Invalid or missing API key"}})
			return
		}
		c.Next()
	}
}

// PipelineAuthMiddleware validates the X-API-Key header used by the feed
// synchroniser.
func PipelineAuthMiddleware(apiKey string) gin.HandlerFunc {
	return secretGuard(apiKey, "PIPELINE_NOT_CONFIGURED", "Pipeline", func(c *gin.Context) string {
		return c.GetHeader("X-API-Key")
	})
}

// CronAuthMiddleware validates "Authorization: Bearer <CRON_SECRET>" sent by
// the scheduler.
func CronAuthMiddleware(secret string) gin.HandlerFunc {
	return secretGuard(secret, "CRON_NOT_CONFIGURED", "Cron", func(c *gin.Context) string {
		token, _ := bearerToken(c)
		return token
	})
}
