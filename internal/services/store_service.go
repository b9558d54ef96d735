package services

import (
	"context"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"crazypromo/internal/affiliate"
	apperrors "crazypromo/internal/errors"
	"crazypromo/internal/feeds"
	"crazypromo/internal/logger"
	"crazypromo/internal/models"
	"crazypromo/internal/pagination"
	"crazypromo/internal/slug"
)

// storeService handles partner store management.
type storeService struct {
	db *gorm.DB
}

// NewStoreService creates a new StoreServicer.
func NewStoreService(db *gorm.DB) StoreServicer {
	return &storeService{db: db}
}

func validateStoreFeed(feedType models.FeedType, mapping map[string]string) error {
	if feedType == "" {
		return nil
	}
	if _, err := feeds.FormatOf(feeds.Provider(feedType)); err != nil {
		return apperrors.ErrUnsupportedFeedType
	}
	if _, err := feeds.DefaultMappings()[feeds.Provider(feedType)].WithOverrides(mapping); err != nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	return nil
}

func validateAffiliateConfig(cfg *affiliate.Config) error {
	if cfg == nil {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	return nil
}

func toJSONMap(m map[string]string) datatypes.JSONMap {
	if len(m) == 0 {
		return nil
	}
	out := make(datatypes.JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// CreateStore creates a partner store with a slug derived from its name.
func (s *storeService) CreateStore(ctx context.Context, in StoreInput) (*models.Store, error) {
	if in.Name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "store name is required")
	}
	if err := validateStoreFeed(in.FeedType, in.FeedMapping); err != nil {
		return nil, err
	}
	if err := validateAffiliateConfig(in.AffiliateConfig); err != nil {
		return nil, err
	}

	store := &models.Store{
		Name:        in.Name,
		Slug:        slug.Make(in.Name, slug.MaxLength),
		Website:     in.Website,
		Logo:        in.Logo,
		Description: in.Description,
		AffiliateID: in.AffiliateID,
		Commission:  in.Commission,
		FeedURL:     in.FeedURL,
		FeedType:    in.FeedType,
		FeedMapping: toJSONMap(in.FeedMapping),
		IsActive:    true,
	}
	if store.Slug == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "store name must contain letters or digits")
	}
	if in.AffiliateConfig != nil {
		cfg := datatypes.NewJSONType(*in.AffiliateConfig)
		store.AffiliateConfig = &cfg
	}

	if err := s.db.WithContext(ctx).Create(store).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrDuplicateSlug
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return store, nil
}

// ListStores returns stores ordered by name.
func (s *storeService) ListStores(ctx context.Context, onlyActive bool, page pagination.PageRequest) (*pagination.PageResponse[models.Store], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Store{})
	if onlyActive {
		base = base.Where("is_active = ?", true)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var stores []models.Store
	if err := base.Order("name ASC").Scopes(pagination.Paginate(page)).Find(&stores).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(stores, page, totalItems)
	return &result, nil
}

// GetStore finds a store by id or slug.
func (s *storeService) GetStore(ctx context.Context, idOrSlug string) (*models.Store, error) {
	var store models.Store
	if err := byIDOrSlug(s.db.WithContext(ctx), "stores", idOrSlug).First(&store).Error; err != nil {
		return nil, notFound(err, apperrors.ErrStoreNotFound)
	}
	return &store, nil
}

// UpdateStore applies the given changes. When the affiliate id or link
// configuration changes, the affiliate URLs of all the store's products are
// regenerated.
func (s *storeService) UpdateStore(ctx context.Context, id string, in StoreUpdate) (*models.Store, error) {
	store, err := s.GetStore(ctx, id)
	if err != nil {
		return nil, err
	}

	relink := false
	if in.Name != nil {
		if *in.Name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "store name is required")
		}
		store.Name = *in.Name
		store.Slug = slug.Make(*in.Name, slug.MaxLength)
	}
	if in.Website != nil {
		store.Website = *in.Website
	}
	if in.Logo != nil {
		store.Logo = *in.Logo
	}
	if in.Description != nil {
		store.Description = *in.Description
	}
	if in.Commission != nil {
		store.Commission = *in.Commission
	}
	if in.FeedURL != nil {
		store.FeedURL = *in.FeedURL
	}
	if in.FeedType != nil {
		store.FeedType = *in.FeedType
	}
	if in.FeedMapping != nil {
		store.FeedMapping = toJSONMap(in.FeedMapping)
	}
	if in.IsActive != nil {
		store.IsActive = *in.IsActive
	}
	if in.AffiliateID != nil && *in.AffiliateID != store.AffiliateID {
		store.AffiliateID = *in.AffiliateID
		relink = true
	}
	if in.AffiliateConfig != nil {
		if err := validateAffiliateConfig(in.AffiliateConfig); err != nil {
			return nil, err
		}
		cfg := datatypes.NewJSONType(*in.AffiliateConfig)
		store.AffiliateConfig = &cfg
		relink = true
	}
	if err := validateStoreFeed(store.FeedType, store.FeedColumnOverrides()); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(store).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.ErrDuplicateSlug
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if relink {
			return relinkProducts(tx, store)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// relinkProducts regenerates the affiliate URL of every product of store.
func relinkProducts(tx *gorm.DB, store *models.Store) error {
	var products []models.Product
	if err := tx.Select("id", "original_url").Where("store_id = ?", store.ID).Find(&products).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for _, p := range products {
		link := store.AffiliateLink(p.OriginalURL)
		if err := tx.Model(&models.Product{}).Where("id = ?", p.ID).Update("affiliate_url", link).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	logger.Named("stores").Infow("affiliate links regenerated", "store_id", store.ID, "products", len(products))
	return nil
}

// DeleteStore removes a store that no longer has products.
func (s *storeService) DeleteStore(ctx context.Context, id string) error {
	store, err := s.GetStore(ctx, id)
	if err != nil {
		return err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).Where("store_id = ?", store.ID).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrStoreHasProducts
	}

	if err := s.db.WithContext(ctx).Unscoped().Delete(store).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// ListFeedStores returns the active stores with a feed configured.
func (s *storeService) ListFeedStores(ctx context.Context) ([]models.Store, error) {
	stores := []models.Store{}
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND feed_url <> '' AND feed_type <> ''", true).
		Order("name ASC").
		Find(&stores).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return stores, nil
}
