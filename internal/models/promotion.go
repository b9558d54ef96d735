package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"crazypromo/internal/pricing"
)

// Promotion is a claimed discount on a product.
type Promotion struct {
	Base
	ProductID       string  `gorm:"type:uuid;not null;index" json:"product_id"`
	Title           string  `gorm:"not null" json:"title"`
	Description     string  `json:"description,omitempty"`
	PromotionPrice  float64 `gorm:"type:numeric(12,2);not null" json:"promotion_price"`
	OriginalPrice   float64 `gorm:"type:numeric(12,2);not null" json:"original_price"`
	DiscountPercent float64 `gorm:"type:numeric(5,2);not null" json:"discount_percent"`

	// Analysis results; DealScore stays nil until the promotion is analyzed.
	DealScore            *int                   `json:"deal_score,omitempty"`
	IsRealDeal           bool                   `gorm:"not null;default:false" json:"is_real_deal"`
	ManipulationDetected bool                   `gorm:"not null;default:false" json:"manipulation_detected"`
	Recommendation       pricing.Recommendation `json:"recommendation,omitempty"`
	Analysis             string                 `json:"analysis,omitempty"`
	AnalyzedAt           *time.Time             `json:"analyzed_at,omitempty"`

	IsActive   bool       `gorm:"not null;index" json:"is_active"`
	IsFeatured bool       `gorm:"not null;default:false" json:"is_featured"`
	StartsAt   *time.Time `json:"starts_at,omitempty"`
	EndsAt     *time.Time `json:"ends_at,omitempty"`

	// Relationships
	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// DiscountPercent returns (original - promotion) / original * 100 rounded to
// two decimals, or 0 when original is not positive.
func DiscountPercent(originalPrice, promotionPrice float64) float64 {
	if originalPrice <= 0 {
		return 0
	}
	orig := decimal.NewFromFloat(originalPrice)
	promo := decimal.NewFromFloat(promotionPrice)
	return orig.Sub(promo).Div(orig).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}

// SetPrices updates both claimed prices and the derived discount.
func (p *Promotion) SetPrices(promotionPrice, originalPrice float64) {
	p.PromotionPrice = promotionPrice
	p.OriginalPrice = originalPrice
	p.DiscountPercent = DiscountPercent(originalPrice, promotionPrice)
}

// ApplyAnalysis copies a deal analysis onto the promotion.
func (p *Promotion) ApplyAnalysis(a pricing.Analysis, at time.Time) {
	score := a.DealScore
	p.DealScore = &score
	p.IsRealDeal = a.IsRealDeal
	p.ManipulationDetected = a.PriceManipulationDetected
	p.Recommendation = a.Recommendation
	p.Analysis = a.Analysis
	p.AnalyzedAt = &at
}

// Expired reports whether the validity window has ended at now.
func (p *Promotion) Expired(now time.Time) bool {
	return p.EndsAt != nil && p.EndsAt.Before(now)
}

// BeforeSave hook recomputes the discount from the claimed prices.
func (p *Promotion) BeforeSave(tx *gorm.DB) error {
	p.DiscountPercent = DiscountPercent(p.OriginalPrice, p.PromotionPrice)
	return nil
}
