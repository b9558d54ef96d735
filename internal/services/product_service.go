package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "crazypromo/internal/errors"
	"crazypromo/internal/metrics"
	"crazypromo/internal/models"
	"crazypromo/internal/pagination"
	"crazypromo/internal/pricing"
	"crazypromo/internal/slug"
	"crazypromo/internal/uuid"
)

const (
	defaultHistoryDays = pricing.StatsWindowDays
	maxHistoryDays     = 730
	detailHistoryLimit = 90
)

// productService handles products and their price history.
type productService struct {
	db       *gorm.DB
	analysis PriceAnalysisServicer
	metrics  *metrics.Registry
}

// NewProductService creates a new ProductServicer. reg may be nil.
func NewProductService(db *gorm.DB, analysis PriceAnalysisServicer, reg *metrics.Registry) ProductServicer {
	return &productService{db: db, analysis: analysis, metrics: reg}
}

// newProduct assigns the id and a slug unique to that id.
func newProduct(name string) *models.Product {
	id := uuid.New()
	p := &models.Product{Name: name, IsActive: true}
	p.ID = id
	p.Slug = slug.WithSuffix(slug.Make(name, slug.MaxLength-9), id[len(id)-8:])
	return p
}

// ListProducts returns products matching filter, newest first.
func (s *productService) ListProducts(ctx context.Context, filter ProductFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Product], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Product{})
	if filter.OnlyActive {
		base = base.Where("products.is_active = ?", true)
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		base = base.Where(`(LOWER(products.name) LIKE ? ESCAPE '\' OR LOWER(products.brand) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if filter.StoreID != "" {
		base = base.Where("products.store_id = ?", filter.StoreID)
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

	var products []models.Product
	err := base.Preload("Store").Preload("Category").
		Order("products.created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&products).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(products, page, totalItems)
	return &result, nil
}

// GetProduct finds a product by id or slug, with its store and category.
func (s *productService) GetProduct(ctx context.Context, idOrSlug string) (*models.Product, error) {
	var product models.Product
	db := s.db.WithContext(ctx).Preload("Store").Preload("Category")
	err := byIDOrSlug(db, "products", idOrSlug).First(&product).Error
	if err != nil {
		return nil, notFound(err, apperrors.ErrProductNotFound)
	}
	return &product, nil
}

// GetProductDetail returns the product with its recent history, statistics
// and a fresh analysis of its cheapest running promotion.
func (s *productService) GetProductDetail(ctx context.Context, idOrSlug string) (*ProductDetail, error) {
	product, err := s.GetProduct(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	since := time.Now().Add(-defaultHistoryDays * 24 * time.Hour)
	points, err := windowPoints(s.db.WithContext(ctx), product.ID, since, false, detailHistoryLimit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	stats, err := s.analysis.GetPriceStats(ctx, product.ID)
	if err != nil {
		return nil, err
	}

	detail := &ProductDetail{
		Product:      product,
		PriceHistory: points,
		Stats:        stats,
		HistoryDays:  defaultHistoryDays,
	}

	promo, err := bestActivePromotion(s.db.WithContext(ctx), product.ID, time.Now())
	if err != nil {
		return nil, err
	}
	if promo != nil {
		original := promo.OriginalPrice
		analysis, err := s.analysis.AnalyzeDeal(ctx, product.ID, promo.PromotionPrice, &original)
		if err != nil {
			return nil, err
		}
		detail.BestPromotion = promo
		detail.Analysis = analysis
	}
	return detail, nil
}

// bestActivePromotion returns the cheapest running promotion of a product.
func bestActivePromotion(tx *gorm.DB, productID string, now time.Time) (*models.Promotion, error) {
	var promo models.Promotion
	err := tx.Where("product_id = ? AND is_active = ?", productID, true).
		Where("starts_at IS NULL OR starts_at <= ?", now.UTC()).
		Where("ends_at IS NULL OR ends_at > ?", now.UTC()).
		Order("promotion_price ASC").
		First(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &promo, nil
}

func (s *productService) loadStore(tx *gorm.DB, storeID string) (*models.Store, error) {
	var store models.Store
	if err := tx.Where("id = ?", storeID).First(&store).Error; err != nil {
		return nil, notFound(err, apperrors.ErrStoreNotFound)
	}
	return &store, nil
}

func (s *productService) checkCategory(tx *gorm.DB, categoryID *string) error {
	if categoryID == nil || *categoryID == "" {
		return nil
	}
	var count int64
	if err := tx.Model(&models.Category{}).Where("id = ?", *categoryID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrCategoryNotFound
	}
	return nil
}

// CreateProduct creates a product by hand and records its first manual
// price point.
func (s *productService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if in.Name == "" || in.OriginalURL == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name and original_url are required")
	}
	if in.CurrentPrice <= 0 || (in.OriginalPrice != nil && *in.OriginalPrice <= 0) {
		return nil, apperrors.ErrInvalidPrice
	}

	db := s.db.WithContext(ctx)
	store, err := s.loadStore(db, in.StoreID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(db, in.CategoryID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := newProduct(in.Name)
	product.StoreID = store.ID
	product.CategoryID = emptyToNil(in.CategoryID)
	product.ExternalID = emptyToNil(in.ExternalID)
	product.Description = in.Description
	product.Image = in.Image
	product.OriginalURL = in.OriginalURL
	product.AffiliateURL = store.AffiliateLink(in.OriginalURL)
	product.Barcode = emptyToNil(in.Barcode)
	product.SKU = in.SKU
	product.Brand = in.Brand
	product.CurrentPrice = in.CurrentPrice
	product.OriginalPrice = in.OriginalPrice
	product.LastCheckedAt = &now

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Store", "Category", "PricePoints", "Promotions").Create(product).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "a product with this external id already exists in the store")
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if _, err := appendPricePoint(tx, product.ID, in.CurrentPrice, models.PriceSourceManual, now); err != nil {
			return err
		}
		return recomputeStats(tx, product.ID)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObservePricePoint(string(models.PriceSourceManual))

	return s.GetProduct(ctx, product.ID)
}

// UpdateProduct applies the given changes. A changed current price is
// recorded as a manual price point.
func (s *productService) UpdateProduct(ctx context.Context, id string, in ProductUpdate) (*models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name cannot be empty")
		}
		product.Name = *in.Name
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.Image != nil {
		product.Image = *in.Image
	}
	if in.Brand != nil {
		product.Brand = *in.Brand
	}
	if in.Barcode != nil {
		product.Barcode = emptyToNil(in.Barcode)
	}
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}
	if in.OriginalPrice != nil {
		if *in.OriginalPrice <= 0 {
			return nil, apperrors.ErrInvalidPrice
		}
		product.OriginalPrice = in.OriginalPrice
	}
	if in.CategoryID != nil {
		if err := s.checkCategory(s.db.WithContext(ctx), in.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = emptyToNil(in.CategoryID)
	}

	priceChanged := false
	if in.CurrentPrice != nil {
		if *in.CurrentPrice <= 0 {
			return nil, apperrors.ErrInvalidPrice
		}
		priceChanged = *in.CurrentPrice != product.CurrentPrice
		product.CurrentPrice = *in.CurrentPrice
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if priceChanged {
			product.LastCheckedAt = &now
		}
		err := tx.Model(product).Select(
			"name", "description", "image", "brand", "barcode", "is_active",
			"original_price", "category_id", "current_price", "last_checked_at", "updated_at",
		).Updates(product).Error
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if !priceChanged {
			return nil
		}
		if _, err := appendPricePoint(tx, product.ID, product.CurrentPrice, models.PriceSourceManual, now); err != nil {
			return err
		}
		return recomputeStats(tx, product.ID)
	})
	if err != nil {
		return nil, err
	}
	if priceChanged {
		s.metrics.ObservePricePoint(string(models.PriceSourceManual))
	}

	return s.GetProduct(ctx, product.ID)
}

// DeleteProduct removes a product. Products with promotions or price
// history are kept unless cascade is set, in which case that evidence is
// removed with them and their clicks are detached.
func (s *productService) DeleteProduct(ctx context.Context, id string, cascade bool) error {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var promotions, points int64
		if err := tx.Model(&models.Promotion{}).Where("product_id = ?", product.ID).Count(&promotions).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(&models.PricePoint{}).Where("product_id = ?", product.ID).Count(&points).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if (promotions > 0 || points > 0) && !cascade {
			return apperrors.ErrProductInUse
		}

		var promoIDs []string
		if err := tx.Unscoped().Model(&models.Promotion{}).Where("product_id = ?", product.ID).Pluck("id", &promoIDs).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if len(promoIDs) > 0 {
			if err := tx.Model(&models.Click{}).Where("promotion_id IN ?", promoIDs).Update("promotion_id", nil).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if err := tx.Model(&models.Click{}).Where("product_id = ?", product.ID).Update("product_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Unscoped().Where("product_id = ?", product.ID).Delete(&models.Promotion{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.PricePoint{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Unscoped().Delete(&models.Product{}, "id = ?", product.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// GetPriceHistory returns the product's price points over the last days
// calendar days.
func (s *productService) GetPriceHistory(ctx context.Context, id string, days int, ascending bool) ([]models.PricePoint, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	days = pagination.ClampLimit(days, defaultHistoryDays, maxHistoryDays)
	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	return windowPoints(s.db.WithContext(ctx), product.ID, since, ascending, 0)
}

// RecordPrice appends an observation. The product's current price follows
// the newest observation and the cached statistics are recomputed.
func (s *productService) RecordPrice(ctx context.Context, productID string, price float64, source models.PriceSource, observedAt time.Time) (*models.PricePoint, error) {
	if price <= 0 {
		return nil, apperrors.ErrInvalidPrice
	}
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	var point *models.PricePoint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Where("id = ?", productID).First(&product).Error; err != nil {
			return notFound(err, apperrors.ErrProductNotFound)
		}

		var newer int64
		if err := tx.Model(&models.PricePoint{}).
			Where("product_id = ? AND observed_at > ?", productID, observedAt.UTC()).
			Count(&newer).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		var err error
		if point, err = appendPricePoint(tx, productID, price, source, observedAt); err != nil {
			return err
		}
		if newer == 0 {
			err := tx.Model(&product).UpdateColumns(map[string]interface{}{
				"current_price":   price,
				"last_checked_at": observedAt,
			}).Error
			if err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return recomputeStats(tx, productID)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObservePricePoint(string(source))
	return point, nil
}

// RecomputeProductStats rebuilds the cached lowest, highest and average
// price from the full history.
func (s *productService) RecomputeProductStats(ctx context.Context, productID string) error {
	var count int64
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return apperrors.ErrProductNotFound
	}
	return recomputeStats(db, productID)
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
