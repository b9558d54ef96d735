package services

import (
	"context"
	"time"

	"crazypromo/internal/affiliate"
	"crazypromo/internal/feeds"
	"crazypromo/internal/matching"
	"crazypromo/internal/models"
	"crazypromo/internal/pagination"
	"crazypromo/internal/pricing"
)

// UserServicer defines the contract for admin user business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, email, password, name string, role models.UserRole) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(ctx context.Context, email, password string) (*models.User, error)
	StoreRefreshTokenHash(ctx context.Context, userID, tokenHash string) error
	GetRefreshTokenHash(ctx context.Context, userID string) (string, error)
	EnsureAdmin(ctx context.Context, email, password string) (*models.User, bool, error)
}

// StoreInput carries the editable fields of a store.
type StoreInput struct {
	Name            string
	Website         string
	Logo            string
	Description     string
	AffiliateID     string
	AffiliateConfig *affiliate.Config
	Commission      float64
	FeedURL         string
	FeedType        models.FeedType
	FeedMapping     map[string]string
}

// StoreUpdate holds optional store changes; nil fields are left untouched.
type StoreUpdate struct {
	Name            *string
	Website         *string
	Logo            *string
	Description     *string
	AffiliateID     *string
	AffiliateConfig *affiliate.Config
	Commission      *float64
	FeedURL         *string
	FeedType        *models.FeedType
	FeedMapping     map[string]string
	IsActive        *bool
}

// StoreServicer defines the contract for partner store management.
type StoreServicer interface {
	CreateStore(ctx context.Context, in StoreInput) (*models.Store, error)
	ListStores(ctx context.Context, onlyActive bool, page pagination.PageRequest) (*pagination.PageResponse[models.Store], error)
	GetStore(ctx context.Context, idOrSlug string) (*models.Store, error)
	UpdateStore(ctx context.Context, id string, in StoreUpdate) (*models.Store, error)
	DeleteStore(ctx context.Context, id string) error
	ListFeedStores(ctx context.Context) ([]models.Store, error)
}

// CategoryInput carries the editable fields of a category.
type CategoryInput struct {
	Name        string
	Description string
	Icon        string
	Image       string
	ParentID    *string
	IsActive    *bool
}

// CategoryServicer defines the contract for storefront category management.
type CategoryServicer interface {
	CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error)
	ListCategories(ctx context.Context, onlyActive bool, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategory(ctx context.Context, idOrSlug string) (*models.Category, error)
	UpdateCategory(ctx context.Context, id string, in CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

// ProductFilter holds optional filter parameters for listing products.
type ProductFilter struct {
	Search       string
	CategorySlug string
	StoreSlug    string
	StoreID      string
	OnlyActive   bool
}

// ProductInput carries the fields of a manually created product.
type ProductInput struct {
	StoreID       string
	CategoryID    *string
	ExternalID    *string
	Name          string
	Description   string
	Image         string
	OriginalURL   string
	Barcode       *string
	SKU           string
	Brand         string
	CurrentPrice  float64
	OriginalPrice *float64
}

// ProductUpdate holds optional product changes; nil fields are left untouched.
type ProductUpdate struct {
	Name          *string
	Description   *string
	Image         *string
	CategoryID    *string
	Barcode       *string
	Brand         *string
	CurrentPrice  *float64
	OriginalPrice *float64
	IsActive      *bool
}

// ProductDetail is a product with its recent history and deal analysis.
type ProductDetail struct {
	Product       *models.Product     `json:"product"`
	PriceHistory  []models.PricePoint `json:"price_history"`
	Stats         *pricing.Stats      `json:"stats"`
	BestPromotion *models.Promotion   `json:"best_promotion,omitempty"`
	Analysis      *pricing.Analysis   `json:"analysis,omitempty"`
	HistoryDays   int                 `json:"history_days"`
}

// ProductServicer defines the contract for products and their price history.
type ProductServicer interface {
	ListProducts(ctx context.Context, filter ProductFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Product], error)
	GetProduct(ctx context.Context, idOrSlug string) (*models.Product, error)
	GetProductDetail(ctx context.Context, idOrSlug string) (*ProductDetail, error)
	CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id string, in ProductUpdate) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string, cascade bool) error
	GetPriceHistory(ctx context.Context, id string, days int, ascending bool) ([]models.PricePoint, error)
	RecordPrice(ctx context.Context, productID string, price float64, source models.PriceSource, observedAt time.Time) (*models.PricePoint, error)
	RecomputeProductStats(ctx context.Context, productID string) error
}

// PriceAnalysisServicer exposes the deal-verification engine over stored history.
type PriceAnalysisServicer interface {
	GetPriceStats(ctx context.Context, productID string) (*pricing.Stats, error)
	DetectManipulation(ctx context.Context, productID string) (bool, error)
	AnalyzeDeal(ctx context.Context, productID string, promoPrice float64, originalPrice *float64) (*pricing.Analysis, error)
}

// PromotionFilter holds optional filter parameters for listing promotions.
type PromotionFilter struct {
	CategorySlug string
	StoreSlug    string
	MinDiscount  *float64
	OnlyReal     bool
	OnlyFeatured bool
	IncludeAll   bool
	Sort         string
}

// PromotionInput carries the fields of a new promotion.
type PromotionInput struct {
	ProductID      string
	Title          string
	Description    string
	PromotionPrice float64
	OriginalPrice  float64
	IsFeatured     bool
	StartsAt       *time.Time
	EndsAt         *time.Time
}

// PromotionUpdate holds optional promotion changes; nil fields are left untouched.
type PromotionUpdate struct {
	Title          *string
	Description    *string
	PromotionPrice *float64
	OriginalPrice  *float64
	IsActive       *bool
	IsFeatured     *bool
	StartsAt       *time.Time
	EndsAt         *time.Time
}

// PromotionServicer defines the contract for claimed discounts.
type PromotionServicer interface {
	ListPromotions(ctx context.Context, filter PromotionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Promotion], error)
	GetPromotion(ctx context.Context, id string) (*models.Promotion, error)
	CreatePromotion(ctx context.Context, in PromotionInput) (*models.Promotion, error)
	UpdatePromotion(ctx context.Context, id string, in PromotionUpdate) (*models.Promotion, error)
	DeactivatePromotion(ctx context.Context, id string) (*models.Promotion, error)
	DeletePromotion(ctx context.Context, id string) error
	AnalyzePromotion(ctx context.Context, id string) (*models.Promotion, error)
}

// ImportResult summarises one feed import.
type ImportResult struct {
	StoreID  string             `json:"store_id"`
	Provider feeds.Provider     `json:"provider"`
	Imported int                `json:"imported"`
	Updated  int                `json:"updated"`
	Errors   int                `json:"errors"`
	Skipped  []feeds.EntryError `json:"skipped,omitempty"`
	Duration time.Duration      `json:"duration_ns"`
}

// FeedServicer defines the contract for feed normalisation and reconciliation.
type FeedServicer interface {
	ImportFeed(ctx context.Context, storeID string, provider feeds.Provider, data []byte) (*ImportResult, error)
	SyncStore(ctx context.Context, storeID string) (*ImportResult, error)
}

// ComparisonServicer defines the contract for cross-store matching.
type ComparisonServicer interface {
	FindMatches(ctx context.Context, barcode, name string, limit int) ([]matching.Group, error)
	GetBestDeals(ctx context.Context, limit int) ([]matching.Group, error)
	GetSimilarProducts(ctx context.Context, productID string, limit int) ([]matching.Offer, error)
}

// ClickInput describes one outbound click.
type ClickInput struct {
	ProductID   *string
	PromotionID *string
	IPAddress   string
	UserAgent   string
	Referer     string
}

// ClickStats aggregates clicks over a window.
type ClickStats struct {
	Days        int            `json:"days"`
	Total       int64          `json:"total"`
	ByDay       []DailyClicks  `json:"by_day"`
	TopProducts []ProductClick `json:"top_products"`
}

// DailyClicks is the click count of one calendar day (UTC).
type DailyClicks struct {
	Day    string `json:"day"`
	Clicks int64  `json:"clicks"`
}

// ProductClick is the click count of one product.
type ProductClick struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Clicks    int64  `json:"clicks"`
}

// ClickServicer defines the contract for affiliate click tracking.
type ClickServicer interface {
	RecordClick(ctx context.Context, in ClickInput) (string, error)
	GetClickStats(ctx context.Context, days int) (*ClickStats, error)
}

// PriceUpdateReport summarises one scheduled run.
type PriceUpdateReport struct {
	ActiveProducts    int64         `json:"active_products"`
	ExpiredPromotions int64         `json:"expired_promotions"`
	Reanalyzed        int           `json:"reanalyzed_promotions"`
	Failed            int           `json:"failed"`
	Duration          time.Duration `json:"duration_ns"`
}

// CronServicer defines the contract for scheduled maintenance.
type CronServicer interface {
	UpdatePrices(ctx context.Context) (*PriceUpdateReport, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
