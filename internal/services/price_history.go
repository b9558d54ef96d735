package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "crazypromo/internal/errors"
	"crazypromo/internal/models"
	"crazypromo/internal/uuid"
)

// Price history persistence shared by the product, feed and analysis
// services. Functions take the *gorm.DB to run on so callers can pass a
// transaction.

// appendPricePoint records one observation. Price points are never updated.
func appendPricePoint(tx *gorm.DB, productID string, price float64, source models.PriceSource, at time.Time) (*models.PricePoint, error) {
	pp := &models.PricePoint{
		ProductID:  productID,
		Price:      price,
		Source:     source,
		ObservedAt: at,
	}
	if err := tx.Create(pp).Error; err != nil {
		if errors.Is(err, models.ErrNonPositivePrice) {
			return nil, apperrors.ErrInvalidPrice
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return pp, nil
}

// windowPrices returns the prices observed since the given instant, oldest
// first. A zero since returns the full history.
func windowPrices(tx *gorm.DB, productID string, since time.Time) ([]float64, error) {
	q := tx.Model(&models.PricePoint{}).Where("product_id = ?", productID)
	if !since.IsZero() {
		q = q.Where("observed_at >= ?", since.UTC())
	}
	var prices []float64
	if err := q.Order("observed_at ASC").Order("created_at ASC").Pluck("price", &prices).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return prices, nil
}

// windowPoints returns the price points observed since the given instant.
func windowPoints(tx *gorm.DB, productID string, since time.Time, ascending bool, limit int) ([]models.PricePoint, error) {
	q := tx.Where("product_id = ?", productID)
	if !since.IsZero() {
		q = q.Where("observed_at >= ?", since.UTC())
	}
	if ascending {
		q = q.Order("observed_at ASC")
	} else {
		q = q.Order("observed_at DESC")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	points := []models.PricePoint{}
	if err := q.Find(&points).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return points, nil
}

type priceAggregate struct {
	Lowest  float64
	Highest float64
	Average float64
	Samples int64
}

// recomputeStats is the only writer of a product's cached lowest, highest
// and average price. It aggregates the full history.
func recomputeStats(tx *gorm.DB, productID string) error {
	var agg priceAggregate
	err := tx.Model(&models.PricePoint{}).
		Select("MIN(price) AS lowest, MAX(price) AS highest, AVG(price) AS average, COUNT(*) AS samples").
		Where("product_id = ?", productID).
		Scan(&agg).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if agg.Samples == 0 {
		return nil
	}

	err = tx.Model(&models.Product{}).Where("id = ?", productID).UpdateColumns(map[string]interface{}{
		"lowest_price":  roundMoney(agg.Lowest),
		"highest_price": roundMoney(agg.Highest),
		"average_price": roundMoney(agg.Average),
	}).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func roundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// isUniqueConstraintError checks if an error, or any error it wraps, is a
// unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := e.Error()
		if strings.Contains(msg, "UNIQUE constraint failed") || // SQLite
			strings.Contains(msg, "duplicate key value violates unique constraint") { // PostgreSQL
			return true
		}
	}
	return false
}

// notFound maps gorm.ErrRecordNotFound to sentinel and anything else to an
// internal error.
func notFound(err error, sentinel *apperrors.AppError) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

// byIDOrSlug filters on the primary key when key is a UUID and on the slug
// otherwise. PostgreSQL rejects non-UUID literals compared against uuid
// columns.
func byIDOrSlug(db *gorm.DB, table, key string) *gorm.DB {
	if uuid.IsValid(key) {
		return db.Where(table+".id = ?", key)
	}
	return db.Where(table+".slug = ?", key)
}

// likePattern escapes s for use in a LIKE pattern matching it anywhere.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
