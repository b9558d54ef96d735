package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	apperrors "crazypromo/internal/errors"
	"crazypromo/internal/models"
	"crazypromo/internal/pagination"
)

// promotionService handles claimed discounts and their analysis.
type promotionService struct {
	db       *gorm.DB
	analysis PriceAnalysisServicer
}

// NewPromotionService creates a new PromotionServicer.
func NewPromotionService(db *gorm.DB, analysis PriceAnalysisServicer) PromotionServicer {
	return &promotionService{db: db, analysis: analysis}
}

var promotionOrders = map[string]string{
	"deal_score": "promotions.deal_score IS NULL, promotions.deal_score DESC, promotions.created_at DESC",
	"discount":   "promotions.discount_percent DESC, promotions.created_at DESC",
	"price":      "promotions.promotion_price ASC, promotions.created_at DESC",
	"newest":     "promotions.created_at DESC",
}

// ListPromotions returns promotions matching filter. Unless IncludeAll is
// set only active promotions inside their validity window are listed.
func (s *promotionService) ListPromotions(ctx context.Context, filter PromotionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Promotion], error) {
	page.Defaults()

	order, ok := promotionOrders[filter.Sort]
	if filter.Sort == "" {
		order, ok = promotionOrders["deal_score"], true
	}
	if !ok {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("unknown sort %q", filter.Sort))
	}

	now := time.Now().UTC()
	base := s.db.WithContext(ctx).Model(&models.Promotion{}).
		Joins("JOIN products ON products.id = promotions.product_id")
	if !filter.IncludeAll {
		base = base.Where("promotions.is_active = ? AND products.is_active = ?", true, true).
			Where("promotions.starts_at IS NULL OR promotions.starts_at <= ?", now).
			Where("promotions.ends_at IS NULL OR promotions.ends_at > ?", now)
	}
	if filter.OnlyReal {
		base = base.Where("promotions.is_real_deal = ?", true)
	}
	if filter.OnlyFeatured {
		base = base.Where("promotions.is_featured = ?", true)
	}
	if filter.MinDiscount != nil {
		base = base.Where("promotions.discount_percent >= ?", *filter.MinDiscount)
	}
	if filter.StoreSlug != "" {
		base = base.Joins("JOIN stores ON stores.id = products.store_id AND stores.slug = ?", filter.StoreSlug)
	}
	if filter.CategorySlug != "" {
		base = base.Joins("JOIN categories ON categories.id = products.category_id AND categories.slug = ?", filter.CategorySlug)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var promotions []models.Promotion
	err := base.Preload("Product.Store").Preload("Product.Category").
		Order(order).
		Scopes(pagination.Paginate(page)).
		Find(&promotions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(promotions, page, totalItems)
	return &result, nil
}

// GetPromotion finds a promotion with its product and store.
func (s *promotionService) GetPromotion(ctx context.Context, id string) (*models.Promotion, error) {
	var promo models.Promotion
	if err := s.db.WithContext(ctx).Preload("Product.Store").Where("id = ?", id).First(&promo).Error; err != nil {
		return nil, notFound(err, apperrors.ErrPromotionNotFound)
	}
	return &promo, nil
}

// utcTime stores window bounds in UTC so they compare correctly as text on
// SQLite.
func utcTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// defaultPromotionTitle renders "N% OFF - <product name>".
func defaultPromotionTitle(discount float64, productName string) string {
	return fmt.Sprintf("%d%% OFF - %s", int(math.Round(discount)), productName)
}

// CreatePromotion declares a discount and persists its analysis.
func (s *promotionService) CreatePromotion(ctx context.Context, in PromotionInput) (*models.Promotion, error) {
	if in.PromotionPrice <= 0 || in.OriginalPrice <= 0 {
		return nil, apperrors.ErrInvalidPrice
	}
	if in.PromotionPrice >= in.OriginalPrice {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "promotion price must be lower than the original price")
	}
	if in.StartsAt != nil && in.EndsAt != nil && !in.EndsAt.After(*in.StartsAt) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "ends_at must be after starts_at")
	}

	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ?", in.ProductID).First(&product).Error; err != nil {
		return nil, notFound(err, apperrors.ErrProductNotFound)
	}

	promo := &models.Promotion{
		ProductID:   product.ID,
		Title:       in.Title,
		Description: in.Description,
		IsActive:    true,
		IsFeatured:  in.IsFeatured,
		StartsAt:    utcTime(in.StartsAt),
		EndsAt:      utcTime(in.EndsAt),
	}
	promo.SetPrices(in.PromotionPrice, in.OriginalPrice)
	if promo.Title == "" {
		promo.Title = defaultPromotionTitle(promo.DiscountPercent, product.Name)
	}

	if err := s.applyAnalysis(ctx, promo); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Omit("Product").Create(promo).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetPromotion(ctx, promo.ID)
}

func (s *promotionService) applyAnalysis(ctx context.Context, promo *models.Promotion) error {
	original := promo.OriginalPrice
	analysis, err := s.analysis.AnalyzeDeal(ctx, promo.ProductID, promo.PromotionPrice, &original)
	if err != nil {
		return err
	}
	promo.ApplyAnalysis(*analysis, time.Now().UTC())
	return nil
}

// UpdatePromotion applies the given changes. Changing either price
// recomputes the discount and re-runs the analysis.
func (s *promotionService) UpdatePromotion(ctx context.Context, id string, in PromotionUpdate) (*models.Promotion, error) {
	promo, err := s.GetPromotion(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil && *in.Title != "" {
		promo.Title = *in.Title
	}
	if in.Description != nil {
		promo.Description = *in.Description
	}
	if in.IsActive != nil {
		promo.IsActive = *in.IsActive
	}
	if in.IsFeatured != nil {
		promo.IsFeatured = *in.IsFeatured
	}
	if in.StartsAt != nil {
		promo.StartsAt = utcTime(in.StartsAt)
	}
	if in.EndsAt != nil {
		promo.EndsAt = utcTime(in.EndsAt)
	}
	if promo.StartsAt != nil && promo.EndsAt != nil && !promo.EndsAt.After(*promo.StartsAt) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "ends_at must be after starts_at")
	}

	if in.PromotionPrice != nil || in.OriginalPrice != nil {
		promoPrice, original := promo.PromotionPrice, promo.OriginalPrice
		if in.PromotionPrice != nil {
			promoPrice = *in.PromotionPrice
		}
		if in.OriginalPrice != nil {
			original = *in.OriginalPrice
		}
		if promoPrice <= 0 || original <= 0 {
			return nil, apperrors.ErrInvalidPrice
		}
		if promoPrice >= original {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "promotion price must be lower than the original price")
		}
		if promoPrice != promo.PromotionPrice || original != promo.OriginalPrice {
			promo.SetPrices(promoPrice, original)
			if err := s.applyAnalysis(ctx, promo); err != nil {
				return nil, err
			}
		}
	}

	if err := s.db.WithContext(ctx).Omit("Product").Save(promo).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return promo, nil
}

// DeactivatePromotion retracts a promotion without deleting it.
func (s *promotionService) DeactivatePromotion(ctx context.Context, id string) (*models.Promotion, error) {
	inactive := false
	return s.UpdatePromotion(ctx, id, PromotionUpdate{IsActive: &inactive})
}

// DeletePromotion removes a promotion and detaches its clicks.
func (s *promotionService) DeletePromotion(ctx context.Context, id string) error {
	promo, err := s.GetPromotion(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Click{}).Where("promotion_id = ?", promo.ID).Update("promotion_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Unscoped().Delete(&models.Promotion{}, "id = ?", promo.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// AnalyzePromotion re-runs the analysis against the current history and
// persists the result.
func (s *promotionService) AnalyzePromotion(ctx context.Context, id string) (*models.Promotion, error) {
	promo, err := s.GetPromotion(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyAnalysis(ctx, promo); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Omit("Product").Save(promo).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return promo, nil
}
