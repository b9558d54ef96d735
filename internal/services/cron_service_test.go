package services

import (
	"context"
	"testing"
	"time"

	"crazypromo/internal/models"
	"crazypromo/internal/pricing"
	"crazypromo/internal/testutil"
)

func TestUpdatePrices(t *testing.T) {
	ctx := context.Background()

	t.Run("expires_and_reanalyzes", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCronService(db, newTestPromotionService(db))

		store := testutil.CreateTestStore(t, db)
		product := productWithHistory(t, db, store.ID, "Smart TV 50")
		running := testutil.CreateTestPromotion(t, db, product.ID, 70, 100)

		expired := testutil.CreateTestPromotion(t, db, product.ID, 90, 100)
		db.Model(expired).Update("ends_at", time.Now().UTC().Add(-time.Hour))

		future := testutil.CreateTestPromotion(t, db, product.ID, 95, 100)
		db.Model(future).Update("ends_at", time.Now().UTC().Add(48*time.Hour))

		retired := testutil.CreateTestProduct(t, db, store.ID, 10)
		db.Model(retired).Update("is_active", false)

		report, err := svc.UpdatePrices(ctx)
		testutil.AssertNoError(t, err)
		if report.ActiveProducts != 1 {
			t.Errorf("expected 1 active product, got %d", report.ActiveProducts)
		}
		if report.ExpiredPromotions != 1 {
			t.Errorf("expected 1 expired promotion, got %d", report.ExpiredPromotions)
		}
		if report.Reanalyzed != 2 || report.Failed != 0 {
			t.Errorf("expected 2 re-analyzed promotions, got %+v", report)
		}

		var reloaded models.Promotion
		db.First(&reloaded, "id = ?", expired.ID)
		if reloaded.IsActive || reloaded.DealScore != nil {
			t.Error("expected the expired promotion to be deactivated without analysis")
		}

		db.First(&reloaded, "id = ?", running.ID)
		if reloaded.DealScore == nil || *reloaded.DealScore != 100 || reloaded.Recommendation != pricing.RecommendationExcellent {
			t.Errorf("expected running promotion to be scored, got %v %s", reloaded.DealScore, reloaded.Recommendation)
		}
		if reloaded.AnalyzedAt == nil {
			t.Error("expected analysis time to be set")
		}
	})

	t.Run("nothing_to_do", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCronService(db, newTestPromotionService(db))

		report, err := svc.UpdatePrices(ctx)
		testutil.AssertNoError(t, err)
		if report.ActiveProducts != 0 || report.ExpiredPromotions != 0 || report.Reanalyzed != 0 {
			t.Errorf("expected an empty report, got %+v", report)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewCronService(db, newTestPromotionService(db))

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		if _, err := svc.UpdatePrices(cancelled); err == nil {
			t.Error("expected an error for a cancelled context")
		}
	})
}
