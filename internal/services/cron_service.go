package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "crazypromo/internal/errors"
	"crazypromo/internal/logger"
	"crazypromo/internal/models"
)

// cronService runs the scheduled maintenance pass. Prices are not scraped;
// new observations arrive through feed sync.
type cronService struct {
	db         *gorm.DB
	promotions PromotionServicer
}

// NewCronService creates a new CronServicer.
func NewCronService(db *gorm.DB, promotions PromotionServicer) CronServicer {
	return &cronService{db: db, promotions: promotions}
}

// UpdatePrices deactivates expired promotions and re-scores the active ones
// against the current price history. A promotion that fails to re-score is
// counted and skipped.
func (s *cronService) UpdatePrices(ctx context.Context) (*PriceUpdateReport, error) {
	start := time.Now()
	log := logger.Named("cron")
	db := s.db.WithContext(ctx)
	report := &PriceUpdateReport{}

	if err := db.Model(&models.Product{}).Where("is_active = ?", true).Count(&report.ActiveProducts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	expired := db.Model(&models.Promotion{}).
		Where("is_active = ? AND ends_at IS NOT NULL AND ends_at < ?", true, start.UTC()).
		Update("is_active", false)
	if expired.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, expired.Error)
	}
	report.ExpiredPromotions = expired.RowsAffected

	var ids []string
	if err := db.Model(&models.Promotion{}).Where("is_active = ?", true).Order("created_at ASC").Pluck("id", &ids).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := s.promotions.AnalyzePromotion(ctx, id); err != nil {
			report.Failed++
			log.Warnw("promotion re-analysis failed", "promotion_id", id, "error", err)
			continue
		}
		report.Reanalyzed++
	}

	report.Duration = time.Since(start)
	log.Infow("scheduled price update finished",
		"active_products", report.ActiveProducts,
		"expired_promotions", report.ExpiredPromotions,
		"reanalyzed", report.Reanalyzed,
		"failed", report.Failed,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}
