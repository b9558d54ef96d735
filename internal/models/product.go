package models

import "time"

// Product is one sellable item at one store.
//
// LowestPrice, HighestPrice and AveragePrice are a cache over the product's
// price history and are only written by the price recompute in the services
// package.
type Product struct {
	Base
	StoreID       string     `gorm:"type:uuid;not null;index;uniqueIndex:idx_products_store_external" json:"store_id"`
	CategoryID    *string    `gorm:"type:uuid;index" json:"category_id,omitempty"`
	ExternalID    *string    `gorm:"uniqueIndex:idx_products_store_external" json:"external_id,omitempty"`
	Name          string     `gorm:"not null" json:"name"`
	Slug          string     `gorm:"uniqueIndex;not null" json:"slug"`
	Description   string     `json:"description,omitempty"`
	Image         string     `json:"image,omitempty"`
	OriginalURL   string     `gorm:"not null" json:"original_url"`
	AffiliateURL  string     `json:"affiliate_url,omitempty"`
	Barcode       *string    `gorm:"index" json:"barcode,omitempty"`
	SKU           string     `json:"sku,omitempty"`
	Brand         string     `json:"brand,omitempty"`
	CurrentPrice  float64    `gorm:"type:numeric(12,2);not null" json:"current_price"`
	OriginalPrice *float64   `gorm:"type:numeric(12,2)" json:"original_price,omitempty"`
	LowestPrice   float64    `gorm:"type:numeric(12,2);not null;default:0" json:"lowest_price"`
	HighestPrice  float64    `gorm:"type:numeric(12,2);not null;default:0" json:"highest_price"`
	AveragePrice  float64    `gorm:"type:numeric(12,2);not null;default:0" json:"average_price"`
	IsActive      bool       `gorm:"not null" json:"is_active"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`

	// Relationships
	Store       *Store       `gorm:"foreignKey:StoreID" json:"store,omitempty"`
	Category    *Category    `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	PricePoints []PricePoint `gorm:"foreignKey:ProductID" json:"price_points,omitempty"`
	Promotions  []Promotion  `gorm:"foreignKey:ProductID" json:"promotions,omitempty"`
}

// Link returns the outbound URL for the product, preferring the affiliate link.
func (p *Product) Link() string {
	if p.AffiliateURL != "" {
		return p.AffiliateURL
	}
	return p.OriginalURL
}

// BarcodeValue returns the barcode or an empty string.
func (p *Product) BarcodeValue() string {
	if p.Barcode == nil {
		return ""
	}
	return *p.Barcode
}
