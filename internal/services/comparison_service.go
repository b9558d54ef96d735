package services

import (
	"context"
	"sort"
	"strings"

	"gorm.io/gorm"

	apperrors "crazypromo/internal/errors"
	"crazypromo/internal/matching"
	"crazypromo/internal/models"
)

const (
	defaultScanLimit = 500
	similarLimit     = 10
)

// comparisonService groups products across stores for price comparison.
type comparisonService struct {
	db        *gorm.DB
	scanLimit int
}

// NewComparisonService creates a new ComparisonServicer. scanLimit bounds
// how many products one comparison reads; zero uses the default.
func NewComparisonService(db *gorm.DB, scanLimit int) ComparisonServicer {
	if scanLimit <= 0 {
		scanLimit = defaultScanLimit
	}
	return &comparisonService{db: db, scanLimit: scanLimit}
}

func toOffer(p models.Product) matching.Offer {
	o := matching.Offer{
		ProductID:     p.ID,
		StoreID:       p.StoreID,
		Name:          p.Name,
		Barcode:       p.BarcodeValue(),
		Brand:         p.Brand,
		Image:         p.Image,
		URL:           p.Link(),
		Price:         p.CurrentPrice,
		OriginalPrice: p.OriginalPrice,
	}
	if p.Store != nil {
		o.StoreName = p.Store.Name
	}
	return o
}

func toOffers(products []models.Product) []matching.Offer {
	offers := make([]matching.Offer, len(products))
	for i, p := range products {
		offers[i] = toOffer(p)
	}
	return offers
}

// activeProducts scopes a query to active products of active stores.
func (s *comparisonService) activeProducts(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Product{}).
		Joins("JOIN stores ON stores.id = products.store_id AND stores.is_active = ? AND stores.deleted_at IS NULL", true).
		Where("products.is_active = ?", true).
		Preload("Store")
}

// tokenFilter matches products whose name contains any of tokens.
func tokenFilter(db *gorm.DB, tokens []string) *gorm.DB {
	clauses := make([]string, len(tokens))
	args := make([]interface{}, len(tokens))
	for i, t := range tokens {
		clauses[i] = `LOWER(products.name) LIKE ? ESCAPE '\'`
		args[i] = likePattern(t)
	}
	return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
}

// FindMatches groups products by exact barcode when one is given,
// otherwise by fuzzy name similarity. Without either it returns the global
// best deals.
func (s *comparisonService) FindMatches(ctx context.Context, barcode, name string, limit int) ([]matching.Group, error) {
	barcode = strings.TrimSpace(barcode)
	name = strings.TrimSpace(name)

	switch {
	case barcode != "":
		var products []models.Product
		if err := s.activeProducts(ctx).Where("products.barcode = ?", barcode).Find(&products).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return matching.ByBarcode(toOffers(products)), nil

	case name != "":
		tokens := matching.Tokenize(name)
		if len(tokens) == 0 {
			return []matching.Group{}, nil
		}

		var products []models.Product
		err := tokenFilter(s.activeProducts(ctx), tokens).
			Order("products.current_price ASC").
			Limit(s.scanLimit).
			Find(&products).Error
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		group := matching.FuzzyGroup(name, toOffers(products))
		if group == nil {
			return []matching.Group{}, nil
		}
		return []matching.Group{*group}, nil

	default:
		return s.GetBestDeals(ctx, limit)
	}
}

// GetBestDeals groups the most recently updated barcoded products and
// returns the limit groups spanning two or more stores with the largest
// savings.
func (s *comparisonService) GetBestDeals(ctx context.Context, limit int) ([]matching.Group, error) {
	var products []models.Product
	err := s.activeProducts(ctx).
		Where("products.barcode IS NOT NULL AND products.barcode <> ''").
		Order("products.updated_at DESC").
		Limit(s.scanLimit).
		Find(&products).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return matching.BestDeals(toOffers(products), limit), nil
}

// GetSimilarProducts returns other products sharing the barcode
// (similarity 100) and fuzzy name matches from other stores, most similar
// first.
func (s *comparisonService) GetSimilarProducts(ctx context.Context, productID string, limit int) ([]matching.Offer, error) {
	if limit <= 0 {
		limit = similarLimit
	}

	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ?", productID).First(&product).Error; err != nil {
		return nil, notFound(err, apperrors.ErrProductNotFound)
	}

	best := make(map[string]matching.Offer)
	var order []string
	add := func(o matching.Offer) {
		prev, seen := best[o.ProductID]
		if !seen {
			order = append(order, o.ProductID)
		}
		if !seen || o.Similarity > prev.Similarity {
			best[o.ProductID] = o
		}
	}

	if barcode := product.BarcodeValue(); barcode != "" {
		var sameBarcode []models.Product
		err := s.activeProducts(ctx).
			Where("products.barcode = ? AND products.id <> ?", barcode, product.ID).
			Find(&sameBarcode).Error
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for _, p := range sameBarcode {
			o := toOffer(p)
			o.Similarity = matching.ExactSimilarity
			add(o)
		}
	}

	query := matching.Tokenize(product.Name)
	if len(query) > 0 {
		var candidates []models.Product
		err := tokenFilter(s.activeProducts(ctx), query).
			Where("products.id <> ? AND products.store_id <> ?", product.ID, product.StoreID).
			Limit(s.scanLimit).
			Find(&candidates).Error
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		for _, p := range candidates {
			tokens := matching.Tokenize(p.Name)
			if !matching.IsSimilar(query, tokens) {
				continue
			}
			o := toOffer(p)
			o.Similarity = matching.Similarity(query, tokens)
			add(o)
		}
	}

	offers := make([]matching.Offer, 0, len(order))
	for _, id := range order {
		offers = append(offers, best[id])
	}
	sort.SliceStable(offers, func(i, j int) bool {
		if offers[i].Similarity != offers[j].Similarity {
			return offers[i].Similarity > offers[j].Similarity
		}
		return offers[i].Price < offers[j].Price
	})
	if len(offers) > limit {
		offers = offers[:limit]
	}
	return offers, nil
}
