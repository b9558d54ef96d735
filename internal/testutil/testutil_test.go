package testutil_test

import (
	"testing"

	"crazypromo/internal/errors"
	"crazypromo/internal/models"
	"crazypromo/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	// Verify all tables exist by doing a simple count query on each model.
	var count int64
	for _, table := range []string{"users", "stores", "categories", "products", "price_points", "promotions", "clicks", "audit_logs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestSetupTestDB_Isolated(t *testing.T) {
	first := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, first)
	second := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, second)

	testutil.CreateTestStore(t, first)

	var count int64
	if err := second.Model(&models.Store{}).Count(&count).Error; err != nil {
		t.Fatalf("count stores: %v", err)
	}
	if count != 0 {
		t.Errorf("expected a fresh database, found %d stores", count)
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	if user.ID == "" {
		t.Fatal("user should have an ID")
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("expected admin role, got %s", user.Role)
	}

	store := testutil.CreateTestStore(t, db)
	product := testutil.CreateTestProduct(t, db, store.ID, 199.9)
	if product.CurrentPrice != 199.9 {
		t.Errorf("expected current price 199.9, got %f", product.CurrentPrice)
	}

	testutil.CreateTestPriceHistory(t, db, product.ID, 250, 220, 199.9)
	var points int64
	db.Model(&models.PricePoint{}).Where("product_id = ?", product.ID).Count(&points)
	if points != 3 {
		t.Errorf("expected 3 price points, got %d", points)
	}

	promo := testutil.CreateTestPromotion(t, db, product.ID, 150, 200)
	if promo.DiscountPercent != 25 {
		t.Errorf("expected discount 25, got %f", promo.DiscountPercent)
	}
	if promo.DealScore != nil {
		t.Error("new promotion should not be analyzed")
	}
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrProductNotFound, "custom message")
	testutil.AssertAppError(t, err, "PRODUCT_NOT_FOUND")
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
}

func TestAssertPrice(t *testing.T) {
	testutil.AssertPrice(t, "sum", 0.1+0.2, 0.3)
	testutil.AssertPrice(t, "rounded", 19.999, 20)
}
