package models

import (
	"time"

	"gorm.io/datatypes"

	"crazypromo/internal/affiliate"
)

// FeedType identifies the partner feed a store publishes.
type FeedType string

const (
	FeedTypeLomadee FeedType = "lomadee"
	FeedTypeAwin    FeedType = "awin"
	FeedTypeCSV     FeedType = "csv"
)

// Store is a partner retailer whose products are listed.
type Store struct {
	Base
	Name            string                                `gorm:"not null" json:"name"`
	Slug            string                                `gorm:"uniqueIndex;not null" json:"slug"`
	Website         string                                `json:"website"`
	Logo            string                                `json:"logo,omitempty"`
	Description     string                                `json:"description,omitempty"`
	AffiliateID     string                                `json:"affiliate_id,omitempty"`
	AffiliateConfig *datatypes.JSONType[affiliate.Config] `json:"affiliate_config,omitempty"`
	Commission      float64                               `gorm:"type:numeric(5,2);not null;default:0" json:"commission"`
	FeedURL         string                                `json:"feed_url,omitempty"`
	FeedType        FeedType                              `json:"feed_type,omitempty"`
	FeedMapping     datatypes.JSONMap                     `json:"feed_mapping,omitempty"`
	LastFeedSync    *time.Time                            `json:"last_feed_sync,omitempty"`
	IsActive        bool                                  `gorm:"not null" json:"is_active"`

	// Relationships
	Products []Product `gorm:"foreignKey:StoreID" json:"products,omitempty"`
}

// AffiliateSettings returns the store's link configuration, or nil when none is set.
func (s *Store) AffiliateSettings() *affiliate.Config {
	if s.AffiliateConfig == nil {
		return nil
	}
	cfg := s.AffiliateConfig.Data()
	if cfg.Type == "" {
		return nil
	}
	return &cfg
}

// AffiliateLink rewrites a product URL with the store's affiliate settings.
func (s *Store) AffiliateLink(originalURL string) string {
	return affiliate.Link(originalURL, s.AffiliateID, s.AffiliateSettings())
}

// FeedColumnOverrides returns the per-store feed column overrides as strings.
func (s *Store) FeedColumnOverrides() map[string]string {
	out := make(map[string]string, len(s.FeedMapping))
	for field, v := range s.FeedMapping {
		if key, ok := v.(string); ok {
			out[field] = key
		}
	}
	return out
}
