package models

// Category groups products on the storefront. Categories may nest one level
// or more through ParentID.
type Category struct {
	Base
	Name        string  `gorm:"not null" json:"name"`
	Slug        string  `gorm:"uniqueIndex;not null" json:"slug"`
	Description string  `json:"description,omitempty"`
	Icon        string  `json:"icon,omitempty"`
	Image       string  `json:"image,omitempty"`
	ParentID    *string `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	IsActive    bool    `gorm:"not null" json:"is_active"`

	// Relationships
	Parent   *Category  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}
