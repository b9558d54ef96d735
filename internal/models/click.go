package models

import (
	"time"

	"crazypromo/internal/uuid"

	"gorm.io/gorm"
)

// Click records one outbound affiliate link visit.
type Click struct {
	ID          string    `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID   *string   `gorm:"type:uuid;index" json:"product_id,omitempty"`
	PromotionID *string   `gorm:"type:uuid;index" json:"promotion_id,omitempty"`
	IPAddress   string    `json:"ip_address,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	Referer     string    `json:"referer,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (c *Click) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New()
	}
	return nil
}
