package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "crazypromo/internal/errors"
	"crazypromo/internal/matching"
	"crazypromo/internal/services"
)

type mockComparisonService struct {
	findMatchesFn        func(barcode, name string, limit int) ([]matching.Group, error)
	getBestDealsFn       func(limit int) ([]matching.Group, error)
	getSimilarProductsFn func(productID string, limit int) ([]matching.Offer, error)
}

func (m *mockComparisonService) FindMatches(_ context.Context, barcode, name string, limit int) ([]matching.Group, error) {
	if m.findMatchesFn != nil {
		return m.findMatchesFn(barcode, name, limit)
	}
	return []matching.Group{}, nil
}

func (m *mockComparisonService) GetBestDeals(_ context.Context, limit int) ([]matching.Group, error) {
	if m.getBestDealsFn != nil {
		return m.getBestDealsFn(limit)
	}
	return []matching.Group{}, nil
}

func (m *mockComparisonService) GetSimilarProducts(_ context.Context, productID string, limit int) ([]matching.Offer, error) {
	if m.getSimilarProductsFn != nil {
		return m.getSimilarProductsFn(productID, limit)
	}
	return []matching.Offer{}, nil
}

var _ services.ComparisonServicer = (*mockComparisonService)(nil)

func setupComparisonRouter(handler *ComparisonHandler) *gin.Engine {
	r := gin.New()
	r.GET("/compare", handler.Compare)
	r.GET("/deals/best", handler.BestDeals)
	r.GET("/products/:id/similar", handler.SimilarProducts)
	return r
}

func TestComparisonHandler_Compare(t *testing.T) {
	t.Run("passes query and default limit", func(t *testing.T) {
		var gotBarcode, gotName string
		var gotLimit int
		svc := &mockComparisonService{
			findMatchesFn: func(barcode, name string, limit int) ([]matching.Group, error) {
				gotBarcode, gotName, gotLimit = barcode, name, limit
				return []matching.Group{{Key: barcode, StoreCount: 2, Savings: 50}}, nil
			},
		}
		r := setupComparisonRouter(NewComparisonHandler(svc))

		rec := doRequest(r, "GET", "/compare?barcode=7891234567890&name=Galaxy", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotBarcode != "7891234567890" || gotName != "Galaxy" || gotLimit != defaultCompareLimit {
			t.Errorf("unexpected call %q %q %d", gotBarcode, gotName, gotLimit)
		}
		groups := parseJSON(t, rec)["groups"].([]interface{})
		if len(groups) != 1 {
			t.Errorf("expected 1 group, got %d", len(groups))
		}
	})

	t.Run("clamps limit", func(t *testing.T) {
		var gotLimit int
		svc := &mockComparisonService{
			findMatchesFn: func(_, _ string, limit int) ([]matching.Group, error) {
				gotLimit = limit
				return nil, nil
			},
		}
		r := setupComparisonRouter(NewComparisonHandler(svc))

		rec := doRequest(r, "GET", "/compare?name=tv&limit=500", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotLimit != maxCompareLimit {
			t.Errorf("expected limit %d, got %d", maxCompareLimit, gotLimit)
		}
	})

	t.Run("returns 400 on bad limit", func(t *testing.T) {
		r := setupComparisonRouter(NewComparisonHandler(&mockComparisonService{}))

		rec := doRequest(r, "GET", "/compare?limit=ten", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestComparisonHandler_BestDeals(t *testing.T) {
	var gotLimit int
	svc := &mockComparisonService{
		getBestDealsFn: func(limit int) ([]matching.Group, error) {
			gotLimit = limit
			return []matching.Group{{Key: "a"}, {Key: "b"}}, nil
		},
	}
	r := setupComparisonRouter(NewComparisonHandler(svc))

	rec := doRequest(r, "GET", "/compare/best-deals?limit=2", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotLimit != 2 {
		t.Errorf("expected limit 2, got %d", gotLimit)
	}
}

func TestComparisonHandler_SimilarProducts(t *testing.T) {
	t.Run("returns offers", func(t *testing.T) {
		svc := &mockComparisonService{
			getSimilarProductsFn: func(productID string, _ int) ([]matching.Offer, error) {
				return []matching.Offer{{ProductID: "p2", Similarity: 100}}, nil
			},
		}
		r := setupComparisonRouter(NewComparisonHandler(svc))

		rec := doRequest(r, "GET", "/products/p1/similar", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		offers := parseJSON(t, rec)["offers"].([]interface{})
		if len(offers) != 1 {
			t.Errorf("expected 1 offer, got %d", len(offers))
		}
	})

	t.Run("returns 404 for unknown product", func(t *testing.T) {
		svc := &mockComparisonService{
			getSimilarProductsFn: func(string, int) ([]matching.Offer, error) { return nil, apperrors.ErrProductNotFound },
		}
		r := setupComparisonRouter(NewComparisonHandler(svc))

		rec := doRequest(r, "GET", "/products/nope/similar", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
