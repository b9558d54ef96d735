package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "crazypromo/internal/errors"
	"crazypromo/internal/metrics"
	"crazypromo/internal/models"
	"crazypromo/internal/pagination"
)

const (
	defaultClickDays = 30
	maxClickDays     = 365
	topProductsLimit = 10
)

// clickService tracks outbound affiliate clicks.
type clickService struct {
	db      *gorm.DB
	metrics *metrics.Registry
}

// NewClickService creates a new ClickServicer. reg may be nil.
func NewClickService(db *gorm.DB, reg *metrics.Registry) ClickServicer {
	return &clickService{db: db, metrics: reg}
}

// RecordClick stores a click on a product or promotion and returns the URL
// the visitor should be redirected to.
func (s *clickService) RecordClick(ctx context.Context, in ClickInput) (string, error) {
	in.ProductID = emptyToNil(in.ProductID)
	in.PromotionID = emptyToNil(in.PromotionID)
	if in.ProductID == nil && in.PromotionID == nil {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "product_id or promotion_id is required")
	}

	db := s.db.WithContext(ctx)
	if in.PromotionID != nil {
		var promo models.Promotion
		if err := db.Select("id", "product_id").Where("id = ?", *in.PromotionID).First(&promo).Error; err != nil {
			return "", notFound(err, apperrors.ErrPromotionNotFound)
		}
		productID := promo.ProductID
		in.ProductID = &productID
	}

	var product models.Product
	if err := db.Where("id = ?", *in.ProductID).First(&product).Error; err != nil {
		return "", notFound(err, apperrors.ErrProductNotFound)
	}

	click := &models.Click{
		ProductID:   in.ProductID,
		PromotionID: in.PromotionID,
		IPAddress:   in.IPAddress,
		UserAgent:   in.UserAgent,
		Referer:     in.Referer,
	}
	if err := db.Create(click).Error; err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	s.metrics.ObserveClick()
	return product.Link(), nil
}

// GetClickStats aggregates clicks over the last days days.
func (s *clickService) GetClickStats(ctx context.Context, days int) (*ClickStats, error) {
	days = pagination.ClampLimit(days, defaultClickDays, maxClickDays)
	since := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	db := s.db.WithContext(ctx)

	stats := &ClickStats{Days: days, ByDay: []DailyClicks{}, TopProducts: []ProductClick{}}
	if err := db.Model(&models.Click{}).Where("created_at >= ?", since).Count(&stats.Total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var times []time.Time
	if err := db.Model(&models.Click{}).Where("created_at >= ?", since).Order("created_at ASC").Pluck("created_at", &times).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, t := range times {
		day := t.UTC().Format("2006-01-02")
		if n := len(stats.ByDay); n > 0 && stats.ByDay[n-1].Day == day {
			stats.ByDay[n-1].Clicks++
			continue
		}
		stats.ByDay = append(stats.ByDay, DailyClicks{Day: day, Clicks: 1})
	}

	err := db.Model(&models.Click{}).
		Select("clicks.product_id AS product_id, products.name AS name, COUNT(*) AS clicks").
		Joins("JOIN products ON products.id = clicks.product_id").
		Where("clicks.created_at >= ?", since).
		Group("clicks.product_id, products.name").
		Order("COUNT(*) DESC").
		Limit(topProductsLimit).
		Scan(&stats.TopProducts).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return stats, nil
}
