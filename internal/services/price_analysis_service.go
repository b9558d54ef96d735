package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "crazypromo/internal/errors"
	"crazypromo/internal/metrics"
	"crazypromo/internal/models"
	"crazypromo/internal/pricing"
)

// AnalysisOptions tunes the deal-verification engine. Zero values fall back
// to the package defaults.
type AnalysisOptions struct {
	Weights            *pricing.Weights
	Rules              *pricing.ManipulationRules
	StatsWindow        time.Duration
	ManipulationWindow time.Duration
}

// priceAnalysisService runs the statistics engine, manipulation detector
// and deal scorer over a product's stored price history.
type priceAnalysisService struct {
	db                 *gorm.DB
	metrics            *metrics.Registry
	weights            pricing.Weights
	rules              pricing.ManipulationRules
	statsWindow        time.Duration
	manipulationWindow time.Duration
	now                func() time.Time
}

// NewPriceAnalysisService creates a new PriceAnalysisServicer. reg may be nil.
func NewPriceAnalysisService(db *gorm.DB, reg *metrics.Registry, opts AnalysisOptions) PriceAnalysisServicer {
	s := &priceAnalysisService{
		db:                 db,
		metrics:            reg,
		weights:            pricing.DefaultWeights(),
		rules:              pricing.DefaultManipulationRules(),
		statsWindow:        pricing.StatsWindowDays * 24 * time.Hour,
		manipulationWindow: pricing.ManipulationWindowDays * 24 * time.Hour,
		now:                time.Now,
	}
	if opts.Weights != nil {
		s.weights = *opts.Weights
	}
	if opts.Rules != nil {
		s.rules = *opts.Rules
	}
	if opts.StatsWindow > 0 {
		s.statsWindow = opts.StatsWindow
	}
	if opts.ManipulationWindow > 0 {
		s.manipulationWindow = opts.ManipulationWindow
	}
	return s
}

func (s *priceAnalysisService) productExists(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ?", productID).First(&product).Error; err != nil {
		return nil, notFound(err, apperrors.ErrProductNotFound)
	}
	return &product, nil
}

// GetPriceStats summarises the product's prices over the stats window. A nil
// result with a nil error means there is not enough history.
func (s *priceAnalysisService) GetPriceStats(ctx context.Context, productID string) (*pricing.Stats, error) {
	if _, err := s.productExists(ctx, productID); err != nil {
		return nil, err
	}
	return s.stats(ctx, productID)
}

func (s *priceAnalysisService) stats(ctx context.Context, productID string) (*pricing.Stats, error) {
	prices, err := windowPrices(s.db.WithContext(ctx), productID, s.now().Add(-s.statsWindow))
	if err != nil {
		return nil, err
	}
	stats, ok := pricing.ComputeStats(prices)
	if !ok {
		return nil, nil
	}
	return &stats, nil
}

// DetectManipulation reports whether the manipulation window contains an
// inflate-then-discount pattern.
func (s *priceAnalysisService) DetectManipulation(ctx context.Context, productID string) (bool, error) {
	if _, err := s.productExists(ctx, productID); err != nil {
		return false, err
	}
	return s.manipulated(ctx, productID)
}

func (s *priceAnalysisService) manipulated(ctx context.Context, productID string) (bool, error) {
	prices, err := windowPrices(s.db.WithContext(ctx), productID, s.now().Add(-s.manipulationWindow))
	if err != nil {
		return false, err
	}
	return pricing.DetectManipulation(prices, s.rules), nil
}

// AnalyzeDeal scores promoPrice against the product's history. When
// originalPrice is nil the product's own claimed original price is used.
// Products without enough history get the neutral analysis.
func (s *priceAnalysisService) AnalyzeDeal(ctx context.Context, productID string, promoPrice float64, originalPrice *float64) (*pricing.Analysis, error) {
	if promoPrice <= 0 {
		return nil, apperrors.ErrInvalidPrice
	}
	if originalPrice != nil && *originalPrice <= 0 {
		return nil, apperrors.ErrInvalidPrice
	}

	product, err := s.productExists(ctx, productID)
	if err != nil {
		return nil, err
	}

	claimed := 0.0
	switch {
	case originalPrice != nil:
		claimed = *originalPrice
	case product.OriginalPrice != nil:
		claimed = *product.OriginalPrice
	}

	stats, err := s.stats(ctx, productID)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		analysis := pricing.NeutralAnalysis()
		s.metrics.ObserveAnalysis(string(analysis.Recommendation), false)
		return &analysis, nil
	}

	manipulated, err := s.manipulated(ctx, productID)
	if err != nil {
		return nil, err
	}

	analysis := pricing.Score(pricing.ScoreInput{
		Stats:                stats,
		ManipulationDetected: manipulated,
		CurrentPrice:         promoPrice,
		ClaimedOriginalPrice: claimed,
	}, s.weights)
	s.metrics.ObserveAnalysis(string(analysis.Recommendation), manipulated)
	return &analysis, nil
}
