package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"crazypromo/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// CreateTestUser creates an admin user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates an admin user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		Name:     "Test Admin",
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestStore creates an active store without affiliate or feed settings.
func CreateTestStore(t *testing.T, db *gorm.DB) *models.Store {
	t.Helper()

	n := nextID()
	store := &models.Store{
		Name:     fmt.Sprintf("Test Store %d", n),
		Slug:     fmt.Sprintf("test-store-%d", n),
		Website:  "https://store.example",
		IsActive: true,
	}
	if err := db.Create(store).Error; err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	return store
}

// CreateTestCategory creates an active top-level category.
func CreateTestCategory(t *testing.T, db *gorm.DB) *models.Category {
	t.Helper()

	n := nextID()
	category := &models.Category{
		Name:     fmt.Sprintf("Test Category %d", n),
		Slug:     fmt.Sprintf("test-category-%d", n),
		IsActive: true,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestProduct creates an active product at the given current price.
// No price history is recorded; use CreateTestPriceHistory for that.
func CreateTestProduct(t *testing.T, db *gorm.DB, storeID string, price float64) *models.Product {
	t.Helper()
	return CreateTestProductNamed(t, db, storeID, fmt.Sprintf("Test Product %d", nextID()), price)
}

// CreateTestProductNamed creates an active product with the given name.
func CreateTestProductNamed(t *testing.T, db *gorm.DB, storeID, name string, price float64) *models.Product {
	t.Helper()

	n := nextID()
	product := &models.Product{
		StoreID:      storeID,
		Name:         name,
		Slug:         fmt.Sprintf("test-product-%d", n),
		OriginalURL:  fmt.Sprintf("https://store.example/p/%d", n),
		CurrentPrice: price,
		LowestPrice:  price,
		HighestPrice: price,
		AveragePrice: price,
		IsActive:     true,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("failed to create test product: %v", err)
	}
	return product
}

// CreateTestPricePoint records one observed price at the given time.
func CreateTestPricePoint(t *testing.T, db *gorm.DB, productID string, price float64, at time.Time) *models.PricePoint {
	t.Helper()

	point := &models.PricePoint{
		ProductID:  productID,
		Price:      price,
		Source:     models.PriceSourceManual,
		ObservedAt: at,
	}
	if err := db.Create(point).Error; err != nil {
		t.Fatalf("failed to create test price point: %v", err)
	}
	return point
}

// CreateTestPriceHistory records one point per day, oldest first, ending
// today. prices[len(prices)-1] is observed now.
func CreateTestPriceHistory(t *testing.T, db *gorm.DB, productID string, prices ...float64) {
	t.Helper()

	now := time.Now().UTC()
	for i, price := range prices {
		daysAgo := len(prices) - 1 - i
		CreateTestPricePoint(t, db, productID, price, now.Add(-time.Duration(daysAgo)*24*time.Hour))
	}
}

// CreateTestPromotion creates an active, unanalyzed promotion.
func CreateTestPromotion(t *testing.T, db *gorm.DB, productID string, promotionPrice, originalPrice float64) *models.Promotion {
	t.Helper()

	promo := &models.Promotion{
		ProductID: productID,
		Title:     fmt.Sprintf("Test Promotion %d", nextID()),
		IsActive:  true,
	}
	promo.SetPrices(promotionPrice, originalPrice)
	if err := db.Omit("Product").Create(promo).Error; err != nil {
		t.Fatalf("failed to create test promotion: %v", err)
	}
	return promo
}
