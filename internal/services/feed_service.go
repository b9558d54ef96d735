package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "crazypromo/internal/errors"
	"crazypromo/internal/feeds"
	"crazypromo/internal/logger"
	"crazypromo/internal/metrics"
	"crazypromo/internal/models"
	"crazypromo/internal/slug"
)

// reconcileAttempts bounds the retries after a unique-index conflict. A
// conflict means a concurrent import created the product first, so the
// retry finds it and updates it instead.
const reconcileAttempts = 2

// feedService normalises partner feeds and reconciles them with the catalog.
type feedService struct {
	db       *gorm.DB
	fetcher  *feeds.Fetcher
	mappings feeds.MappingSet
	metrics  *metrics.Registry
	log      *zap.SugaredLogger
}

// NewFeedService creates a new FeedServicer. A nil mappings uses the
// built-in defaults; reg may be nil.
func NewFeedService(db *gorm.DB, fetcher *feeds.Fetcher, mappings feeds.MappingSet, reg *metrics.Registry) FeedServicer {
	if mappings == nil {
		mappings = feeds.DefaultMappings()
	}
	return &feedService{
		db:       db,
		fetcher:  fetcher,
		mappings: mappings,
		metrics:  reg,
		log:      logger.Named("feeds"),
	}
}

func (s *feedService) loadStore(ctx context.Context, storeID string) (*models.Store, error) {
	var store models.Store
	if err := byIDOrSlug(s.db.WithContext(ctx), "stores", storeID).First(&store).Error; err != nil {
		return nil, notFound(err, apperrors.ErrStoreNotFound)
	}
	return &store, nil
}

// ImportFeed parses data as the provider's format and reconciles every
// record with the store's products. Entries are processed in order, each
// in its own transaction; a failed entry is counted and skipped. When
// provider is empty the store's configured feed type is used.
func (s *feedService) ImportFeed(ctx context.Context, storeID string, provider feeds.Provider, data []byte) (*ImportResult, error) {
	start := time.Now()

	store, err := s.loadStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if provider == "" {
		provider = feeds.Provider(store.FeedType)
	}

	format, err := feeds.FormatOf(provider)
	if err != nil {
		return nil, apperrors.ErrUnsupportedFeedType
	}
	mapping, err := s.mappings.For(provider)
	if err != nil {
		return nil, apperrors.ErrUnsupportedFeedType
	}
	if mapping, err = mapping.WithOverrides(store.FeedColumnOverrides()); err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}

	batch, err := feeds.Parse(format, data, mapping)
	if err != nil {
		s.metrics.ObserveFeedImport(string(provider), 0, 0, 0, err, time.Since(start))
		s.log.Warnw("feed parse failed", "store_id", store.ID, "provider", provider, "error", err)
		return nil, apperrors.Wrap(apperrors.ErrFeedParseFailed, err)
	}

	result := &ImportResult{
		StoreID:  store.ID,
		Provider: provider,
		Errors:   len(batch.Skipped),
		Skipped:  append([]feeds.EntryError(nil), batch.Skipped...),
	}
	for _, skipped := range batch.Skipped {
		s.log.Debugw("feed entry skipped", "store_id", store.ID, "index", skipped.Index, "reason", skipped.Reason)
	}

	for _, rec := range batch.Records {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			s.metrics.ObserveFeedImport(string(provider), result.Imported, result.Updated, result.Errors, err, result.Duration)
			return result, err
		}

		created, err := s.reconcile(ctx, store, rec)
		if err != nil {
			result.Errors++
			result.Skipped = append(result.Skipped, feeds.EntryError{Index: rec.Index, Reason: reconcileReason(err)})
			s.log.Warnw("feed entry failed", "store_id", store.ID, "index", rec.Index, "external_id", rec.ExternalID, "error", err)
			continue
		}
		if created {
			result.Imported++
		} else {
			result.Updated++
		}
		s.metrics.ObservePricePoint(string(models.PriceSourceFeed))
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(store).UpdateColumn("last_feed_sync", now).Error; err != nil {
		s.log.Errorw("failed to record feed sync time", "store_id", store.ID, "error", err)
	}

	result.Duration = time.Since(start)
	s.metrics.ObserveFeedImport(string(provider), result.Imported, result.Updated, result.Errors, nil, result.Duration)
	s.log.Infow("feed imported",
		"store_id", store.ID,
		"provider", provider,
		"imported", result.Imported,
		"updated", result.Updated,
		"errors", result.Errors,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func reconcileReason(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// reconcile upserts one record and appends its feed price point. It
// reports whether a new product was created.
func (s *feedService) reconcile(ctx context.Context, store *models.Store, rec feeds.Record) (bool, error) {
	var (
		created bool
		err     error
	)
	for attempt := 0; attempt < reconcileAttempts; attempt++ {
		created, err = s.reconcileOnce(ctx, store, rec)
		if err == nil || !isUniqueConstraintError(err) {
			break
		}
	}
	return created, err
}

func (s *feedService) reconcileOnce(ctx context.Context, store *models.Store, rec feeds.Record) (bool, error) {
	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		existing, err := findFeedProduct(tx, store.ID, rec)
		if err != nil {
			return err
		}

		productID := ""
		if existing != nil {
			productID = existing.ID
			err := tx.Model(existing).UpdateColumns(map[string]interface{}{
				"current_price":   rec.Price,
				"original_price":  rec.OriginalPrice,
				"last_checked_at": now,
				"updated_at":      now,
			}).Error
			if err != nil {
				return err
			}
		} else {
			product, err := s.newFeedProduct(tx, store, rec, now)
			if err != nil {
				return err
			}
			if err := tx.Omit("Store", "Category", "PricePoints", "Promotions").Create(product).Error; err != nil {
				return err
			}
			productID = product.ID
			created = true
		}

		if _, err := appendPricePoint(tx, productID, rec.Price, models.PriceSourceFeed, now); err != nil {
			return err
		}
		return recomputeStats(tx, productID)
	})
	return created, err
}

// findFeedProduct looks a record up by external id, or by barcode when the
// record has no external id.
func findFeedProduct(tx *gorm.DB, storeID string, rec feeds.Record) (*models.Product, error) {
	q := tx.Where("store_id = ?", storeID)
	switch {
	case rec.ExternalID != "":
		q = q.Where("external_id = ?", rec.ExternalID)
	case rec.Barcode != "":
		q = q.Where("barcode = ?", rec.Barcode).Order("created_at ASC")
	default:
		return nil, nil
	}

	var product models.Product
	err := q.First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *feedService) newFeedProduct(tx *gorm.DB, store *models.Store, rec feeds.Record, now time.Time) (*models.Product, error) {
	product := newProduct(rec.Name)
	product.StoreID = store.ID
	product.Description = rec.Description
	product.Image = rec.Image
	product.OriginalURL = rec.URL
	product.AffiliateURL = store.AffiliateLink(rec.URL)
	product.SKU = rec.SKU
	product.Brand = rec.Brand
	product.CurrentPrice = rec.Price
	product.OriginalPrice = rec.OriginalPrice
	product.LastCheckedAt = &now
	if rec.ExternalID != "" {
		externalID := rec.ExternalID
		product.ExternalID = &externalID
	}
	if rec.Barcode != "" {
		barcode := rec.Barcode
		product.Barcode = &barcode
	}

	if rec.Category != "" {
		var category models.Category
		err := tx.Select("id").Where("slug = ?", slug.Make(rec.Category, slug.MaxLength)).First(&category).Error
		switch {
		case err == nil:
			product.CategoryID = &category.ID
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}
	return product, nil
}

// SyncStore fetches the store's configured feed and imports it.
func (s *feedService) SyncStore(ctx context.Context, storeID string) (*ImportResult, error) {
	store, err := s.loadStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store.FeedURL == "" || store.FeedType == "" {
		return nil, apperrors.ErrFeedNotConfigured
	}
	if s.fetcher == nil {
		return nil, apperrors.WithMessage(apperrors.ErrFeedFetchFailed, "feed transport is not configured")
	}

	provider := feeds.Provider(store.FeedType)
	source, err := feeds.SourceURL(provider, store.FeedURL, store.AffiliateID)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrFeedNotConfigured, err.Error())
	}

	data, err := s.fetcher.Fetch(ctx, source)
	if err != nil {
		s.metrics.ObserveFeedImport(string(provider), 0, 0, 0, err, 0)
		s.log.Warnw("feed fetch failed", "store_id", store.ID, "provider", provider, "error", err)
		return nil, apperrors.Wrap(apperrors.ErrFeedFetchFailed, err)
	}
	return s.ImportFeed(ctx, store.ID, provider, data)
}
