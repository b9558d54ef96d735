package models

import (
	"errors"
	"time"

	"crazypromo/internal/uuid"

	"gorm.io/gorm"
)

// PriceSource tags where an observed price came from.
type PriceSource string

const (
	PriceSourceManual    PriceSource = "manual"
	PriceSourceFeed      PriceSource = "feed"
	PriceSourceScheduled PriceSource = "scheduled"
)

// ErrNonPositivePrice is returned when a price point is created with price <= 0.
var ErrNonPositivePrice = errors.New("price must be greater than zero")

// PricePoint is one observed price of a product.
// Price points are append-only, so there is no Base embed and no soft delete.
type PricePoint struct {
	ID         string      `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID  string      `gorm:"type:uuid;not null;index:idx_price_points_product_observed,priority:1" json:"product_id"`
	Price      float64     `gorm:"type:numeric(12,2);not null" json:"price"`
	Source     PriceSource `gorm:"not null" json:"source"`
	ObservedAt time.Time   `gorm:"not null;index:idx_price_points_product_observed,priority:2" json:"observed_at"`
	CreatedAt  time.Time   `json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7, defaults the observation time and
// rejects non-positive prices.
func (p *PricePoint) BeforeCreate(tx *gorm.DB) error {
	if p.Price <= 0 {
		return ErrNonPositivePrice
	}
	if p.ID == "" {
		p.ID = uuid.New()
	}
	if p.ObservedAt.IsZero() {
		p.ObservedAt = time.Now()
	}
	p.ObservedAt = p.ObservedAt.UTC()
	return nil
}

// BeforeUpdate hook keeps price points immutable.
func (p *PricePoint) BeforeUpdate(tx *gorm.DB) error {
	return errors.New("price points are immutable")
}
