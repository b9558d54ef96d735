package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "crazypromo/internal/errors"
	"crazypromo/internal/models"
	"crazypromo/internal/pagination"
	"crazypromo/internal/services"
)

// --- mock category service ---

type mockCategoryService struct {
	createCategoryFn func(in services.CategoryInput) (*models.Category, error)
	listCategoriesFn func(onlyActive bool, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	getCategoryFn    func(idOrSlug string) (*models.Category, error)
	updateCategoryFn func(id string, in services.CategoryInput) (*models.Category, error)
	deleteCategoryFn func(id string) error
}

func (m *mockCategoryService) CreateCategory(_ context.Context, in services.CategoryInput) (*models.Category, error) {
	if m.createCategoryFn != nil {
		return m.createCategoryFn(in)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) ListCategories(_ context.Context, onlyActive bool, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(onlyActive, page)
	}
	resp := pagination.NewPageResponse([]models.Category{}, page, 0)
	return &resp, nil
}

func (m *mockCategoryService) GetCategory(_ context.Context, idOrSlug string) (*models.Category, error) {
	if m.getCategoryFn != nil {
		return m.getCategoryFn(idOrSlug)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) UpdateCategory(_ context.Context, id string, in services.CategoryInput) (*models.Category, error) {
	if m.updateCategoryFn != nil {
		return m.updateCategoryFn(id, in)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) DeleteCategory(_ context.Context, id string) error {
	if m.deleteCategoryFn != nil {
		return m.deleteCategoryFn(id)
	}
	return nil
}

var _ services.CategoryServicer = (*mockCategoryService)(nil)

func setupCategoryRouter(handler *CategoryHandler) *gin.Engine {
	r := gin.New()
	r.GET("/categories", handler.ListCategories)
	r.GET("/categories/:id", handler.GetCategory)
	admin := r.Group("/admin", injectUserID("user-1"))
	admin.POST("/categories", handler.CreateCategory)
	admin.PUT("/categories/:id", handler.UpdateCategory)
	admin.DELETE("/categories/:id", handler.DeleteCategory)
	return r
}

func TestCategoryHandler_CreateCategory(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var got services.CategoryInput
		svc := &mockCategoryService{
			createCategoryFn: func(in services.CategoryInput) (*models.Category, error) {
				got = in
				return &models.Category{Base: models.Base{ID: "cat-1"}, Name: in.Name, Slug: "celulares"}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupCategoryRouter(NewCategoryHandler(svc, audit))

		rec := doRequest(r, "POST", "/admin/categories", `{"name":"Celulares","icon":"phone","parent_id":"cat-0"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.ParentID == nil || *got.ParentID != "cat-0" {
			t.Errorf("expected parent cat-0, got %v", got.ParentID)
		}
		category := parseJSON(t, rec)["category"].(map[string]interface{})
		if category["slug"] != "celulares" {
			t.Errorf("unexpected slug %v", category["slug"])
		}
		if len(audit.entries) != 1 || audit.entries[0].action != "CREATE_CATEGORY" {
			t.Errorf("unexpected audit entries %+v", audit.entries)
		}
	})

	t.Run("returns 400 when service rejects empty name", func(t *testing.T) {
		svc := &mockCategoryService{
			createCategoryFn: func(services.CategoryInput) (*models.Category, error) {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Name is required")
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/admin/categories", `{"name":""}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on invalid image url", func(t *testing.T) {
		r := setupCategoryRouter(NewCategoryHandler(&mockCategoryService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/admin/categories", `{"name":"TVs","image":"not a url"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestCategoryHandler_ListCategories(t *testing.T) {
	t.Run("returns 200 with page", func(t *testing.T) {
		svc := &mockCategoryService{
			listCategoriesFn: func(onlyActive bool, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
				if !onlyActive {
					t.Error("expected active categories only")
				}
				resp := pagination.NewPageResponse([]models.Category{{Name: "TVs"}, {Name: "Celulares"}}, page, 2)
				return &resp, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/categories", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		data := parseJSON(t, rec)["data"].([]interface{})
		if len(data) != 2 {
			t.Errorf("expected 2 categories, got %d", len(data))
		}
	})
}

func TestCategoryHandler_GetCategory(t *testing.T) {
	t.Run("returns 404 for unknown category", func(t *testing.T) {
		svc := &mockCategoryService{
			getCategoryFn: func(string) (*models.Category, error) { return nil, apperrors.ErrCategoryNotFound },
		}
		r := setupCategoryRouter(NewCategoryHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/categories/nope", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_NOT_FOUND")
	})
}

func TestCategoryHandler_UpdateCategory(t *testing.T) {
	t.Run("returns 400 on self parent", func(t *testing.T) {
		svc := &mockCategoryService{
			updateCategoryFn: func(string, services.CategoryInput) (*models.Category, error) {
				return nil, apperrors.ErrSelfParentCategory
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/admin/categories/cat-1", `{"parent_id":"cat-1"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "SELF_PARENT_CATEGORY")
	})

	t.Run("returns 200 on success", func(t *testing.T) {
		svc := &mockCategoryService{
			updateCategoryFn: func(id string, in services.CategoryInput) (*models.Category, error) {
				return &models.Category{Base: models.Base{ID: id}, Name: in.Name}, nil
			},
		}
		r := setupCategoryRouter(NewCategoryHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/admin/categories/cat-1", `{"name":"Smartphones"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}

func TestCategoryHandler_DeleteCategory(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"deleted", nil, http.StatusOK},
		{"in use", apperrors.ErrCategoryInUse, http.StatusConflict},
		{"has children", apperrors.ErrCategoryHasChildren, http.StatusConflict},
		{"not found", apperrors.ErrCategoryNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockCategoryService{
				deleteCategoryFn: func(string) error { return tt.err },
			}
			r := setupCategoryRouter(NewCategoryHandler(svc, &mockAuditService{}))

			rec := doRequest(r, "DELETE", "/admin/categories/cat-1", "")

			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}
		})
	}
}
