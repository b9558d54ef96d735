package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "crazypromo/internal/errors"
	"crazypromo/internal/models"
	"crazypromo/internal/pagination"
	"crazypromo/internal/pricing"
	"crazypromo/internal/services"
)

// --- mock product service ---

type mockProductService struct {
	listProductsFn     func(filter services.ProductFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Product], error)
	getProductFn       func(idOrSlug string) (*models.Product, error)
	getProductDetailFn func(idOrSlug string) (*services.ProductDetail, error)
	createProductFn    func(in services.ProductInput) (*models.Product, error)
	updateProductFn    func(id string, in services.ProductUpdate) (*models.Product, error)
	deleteProductFn    func(id string, cascade bool) error
	getPriceHistoryFn  func(id string, days int, ascending bool) ([]models.PricePoint, error)
	recordPriceFn      func(productID string, price float64, source models.PriceSource, observedAt time.Time) (*models.PricePoint, error)
}

func (m *mockProductService) ListProducts(_ context.Context, filter services.ProductFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Product], error) {
	if m.listProductsFn != nil {
		return m.listProductsFn(filter, page)
	}
	resp := pagination.NewPageResponse([]models.Product{}, page, 0)
	return &resp, nil
}

func (m *mockProductService) GetProduct(_ context.Context, idOrSlug string) (*models.Product, error) {
	if m.getProductFn != nil {
		return m.getProductFn(idOrSlug)
	}
	return &models.Product{Base: models.Base{ID: idOrSlug}}, nil
}

func (m *mockProductService) GetProductDetail(_ context.Context, idOrSlug string) (*services.ProductDetail, error) {
	if m.getProductDetailFn != nil {
		return m.getProductDetailFn(idOrSlug)
	}
	return &services.ProductDetail{}, nil
}

func (m *mockProductService) CreateProduct(_ context.Context, in services.ProductInput) (*models.Product, error) {
	if m.createProductFn != nil {
		return m.createProductFn(in)
	}
	return &models.Product{}, nil
}

func (m *mockProductService) UpdateProduct(_ context.Context, id string, in services.ProductUpdate) (*models.Product, error) {
	if m.updateProductFn != nil {
		return m.updateProductFn(id, in)
	}
	return &models.Product{Base: models.Base{ID: id}}, nil
}

func (m *mockProductService) DeleteProduct(_ context.Context, id string, cascade bool) error {
	if m.deleteProductFn != nil {
		return m.deleteProductFn(id, cascade)
	}
	return nil
}

func (m *mockProductService) GetPriceHistory(_ context.Context, id string, days int, ascending bool) ([]models.PricePoint, error) {
	if m.getPriceHistoryFn != nil {
		return m.getPriceHistoryFn(id, days, ascending)
	}
	return []models.PricePoint{}, nil
}

func (m *mockProductService) RecordPrice(_ context.Context, productID string, price float64, source models.PriceSource, observedAt time.Time) (*models.PricePoint, error) {
	if m.recordPriceFn != nil {
		return m.recordPriceFn(productID, price, source, observedAt)
	}
	return &models.PricePoint{ProductID: productID, Price: price, Source: source}, nil
}

func (m *mockProductService) RecomputeProductStats(_ context.Context, _ string) error {
	return nil
}

var _ services.ProductServicer = (*mockProductService)(nil)

func setupProductRouter(handler *ProductHandler) *gin.Engine {
	r := gin.New()
	r.GET("/products", handler.ListProducts)
	r.GET("/products/:id", handler.GetProduct)
	r.GET("/products/:id/prices", handler.GetPriceHistory)
	admin := r.Group("/admin", injectUserID("user-1"))
	admin.POST("/products", handler.CreateProduct)
	admin.PUT("/products/:id", handler.UpdateProduct)
	admin.DELETE("/products/:id", handler.DeleteProduct)
	admin.POST("/products/:id/prices", handler.RecordPrice)
	return r
}

func TestProductHandler_ListProducts(t *testing.T) {
	t.Run("passes filters through", func(t *testing.T) {
		var got services.ProductFilter
		svc := &mockProductService{
			listProductsFn: func(filter services.ProductFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Product], error) {
				got = filter
				resp := pagination.NewPageResponse([]models.Product{}, page, 0)
				return &resp, nil
			},
		}
		r := setupProductRouter(NewProductHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/products?search=galaxy&category=celulares&store=loja-a", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		want := services.ProductFilter{Search: "galaxy", CategorySlug: "celulares", StoreSlug: "loja-a", OnlyActive: true}
		if got != want {
			t.Errorf("expected filter %+v, got %+v", want, got)
		}
	})
}

func TestProductHandler_GetProduct(t *testing.T) {
	t.Run("returns detail", func(t *testing.T) {
		svc := &mockProductService{
			getProductDetailFn: func(idOrSlug string) (*services.ProductDetail, error) {
				return &services.ProductDetail{
					Product:      &models.Product{Base: models.Base{ID: "p1"}, Slug: idOrSlug},
					PriceHistory: []models.PricePoint{{Price: 100}},
					Stats:        &pricing.Stats{Average: 100, SampleSize: 5},
					HistoryDays:  90,
				}, nil
			},
		}
		r := setupProductRouter(NewProductHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/products/galaxy-s24", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["history_days"] != float64(90) {
			t.Errorf("unexpected history_days %v", result["history_days"])
		}
		stats := result["stats"].(map[string]interface{})
		if stats["sample_size"] != float64(5) {
			t.Errorf("unexpected stats %v", stats)
		}
	})

	t.Run("returns 404 for unknown product", func(t *testing.T) {
		svc := &mockProductService{
			getProductDetailFn: func(string) (*services.ProductDetail, error) { return nil, apperrors.ErrProductNotFound },
		}
		r := setupProductRouter(NewProductHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/products/nope", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "PRODUCT_NOT_FOUND")
	})
}

func TestProductHandler_GetPriceHistory(t *testing.T) {
	t.Run("parses days and order", func(t *testing.T) {
		var gotDays int
		gotAsc := true
		svc := &mockProductService{
			getPriceHistoryFn: func(_ string, days int, ascending bool) ([]models.PricePoint, error) {
				gotDays, gotAsc = days, ascending
				return []models.PricePoint{{Price: 10}, {Price: 9}}, nil
			},
		}
		r := setupProductRouter(NewProductHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/products/p1/prices?days=30&order=desc", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotDays != 30 || gotAsc {
			t.Errorf("expected 30 days descending, got %d asc=%v", gotDays, gotAsc)
		}
		prices := parseJSON(t, rec)["prices"].([]interface{})
		if len(prices) != 2 {
			t.Errorf("expected 2 prices, got %d", len(prices))
		}
	})

	t.Run("returns 400 on non-numeric days", func(t *testing.T) {
		r := setupProductRouter(NewProductHandler(&mockProductService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/products/p1/prices?days=abc", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestProductHandler_CreateProduct(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var got services.ProductInput
		svc := &mockProductService{
			createProductFn: func(in services.ProductInput) (*models.Product, error) {
				got = in
				return &models.Product{Base: models.Base{ID: "p1"}, Name: in.Name, StoreID: in.StoreID, CurrentPrice: in.CurrentPrice}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupProductRouter(NewProductHandler(svc, audit))

		body := `{"store_id":"store-1","name":"Galaxy S24","original_url":"https://loja.example.com/p/1","current_price":3999.9,"original_price":4999.9,"barcode":"7891234567890"}`
		rec := doRequest(r, "POST", "/admin/products", body)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.Barcode == nil || *got.Barcode != "7891234567890" {
			t.Errorf("unexpected barcode %v", got.Barcode)
		}
		if got.OriginalPrice == nil || *got.OriginalPrice != 4999.9 {
			t.Errorf("unexpected original price %v", got.OriginalPrice)
		}
		if len(audit.entries) != 1 || audit.entries[0].action != "CREATE_PRODUCT" {
			t.Errorf("unexpected audit entries %+v", audit.entries)
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"missing store", `{"name":"X","original_url":"https://a.example.com","current_price":1}`},
		{"zero price", `{"store_id":"s","name":"X","original_url":"https://a.example.com","current_price":0}`},
		{"negative price", `{"store_id":"s","name":"X","original_url":"https://a.example.com","current_price":-5}`},
		{"bad url", `{"store_id":"s","name":"X","original_url":"loja","current_price":5}`},
	}
	for _, tt := range tests {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			r := setupProductRouter(NewProductHandler(&mockProductService{}, &mockAuditService{}))

			rec := doRequest(r, "POST", "/admin/products", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		})
	}
}

func TestProductHandler_UpdateProduct(t *testing.T) {
	t.Run("audits price change", func(t *testing.T) {
		var got services.ProductUpdate
		svc := &mockProductService{
			updateProductFn: func(id string, in services.ProductUpdate) (*models.Product, error) {
				got = in
				return &models.Product{Base: models.Base{ID: id}}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupProductRouter(NewProductHandler(svc, audit))

		rec := doRequest(r, "PUT", "/admin/products/p1", `{"current_price":89.9}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got.CurrentPrice == nil || *got.CurrentPrice != 89.9 || got.Name != nil {
			t.Errorf("unexpected update %+v", got)
		}
		if len(audit.entries) != 1 || audit.entries[0].action != "UPDATE_PRODUCT" {
			t.Errorf("unexpected audit entries %+v", audit.entries)
		}
	})
}

func TestProductHandler_DeleteProduct(t *testing.T) {
	t.Run("forwards cascade flag", func(t *testing.T) {
		var gotCascade bool
		svc := &mockProductService{
			deleteProductFn: func(_ string, cascade bool) error {
				gotCascade = cascade
				return nil
			},
		}
		r := setupProductRouter(NewProductHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/admin/products/p1?cascade=true", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !gotCascade {
			t.Error("expected cascade=true")
		}
	})

	t.Run("returns 409 when in use", func(t *testing.T) {
		svc := &mockProductService{
			deleteProductFn: func(string, bool) error { return apperrors.ErrProductInUse },
		}
		r := setupProductRouter(NewProductHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/admin/products/p1", "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "PRODUCT_IN_USE")
	})
}

func TestProductHandler_RecordPrice(t *testing.T) {
	t.Run("defaults source to manual", func(t *testing.T) {
		var gotSource models.PriceSource
		var gotAt time.Time
		svc := &mockProductService{
			recordPriceFn: func(productID string, price float64, source models.PriceSource, observedAt time.Time) (*models.PricePoint, error) {
				gotSource, gotAt = source, observedAt
				return &models.PricePoint{ProductID: productID, Price: price, Source: source}, nil
			},
		}
		r := setupProductRouter(NewProductHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/admin/products/p1/prices", `{"price":99.9}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotSource != models.PriceSourceManual {
			t.Errorf("expected manual source, got %s", gotSource)
		}
		if !gotAt.IsZero() {
			t.Errorf("expected zero observation time, got %v", gotAt)
		}
		point := parseJSON(t, rec)["price_point"].(map[string]interface{})
		if point["price"] != 99.9 {
			t.Errorf("unexpected price %v", point["price"])
		}
	})

	t.Run("passes observed_at", func(t *testing.T) {
		var gotAt time.Time
		svc := &mockProductService{
			recordPriceFn: func(productID string, price float64, source models.PriceSource, observedAt time.Time) (*models.PricePoint, error) {
				gotAt = observedAt
				return &models.PricePoint{ProductID: productID, Price: price, Source: source}, nil
			},
		}
		r := setupProductRouter(NewProductHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/admin/products/p1/prices", `{"price":10,"source":"scheduled","observed_at":"2026-01-02T03:04:05Z"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		if !gotAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
			t.Errorf("unexpected observed_at %v", gotAt)
		}
	})

	t.Run("returns 400 on unknown source", func(t *testing.T) {
		r := setupProductRouter(NewProductHandler(&mockProductService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/admin/products/p1/prices", `{"price":10,"source":"scraper"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
