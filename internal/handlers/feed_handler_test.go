package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "crazypromo/internal/errors"
	"crazypromo/internal/feeds"
	"crazypromo/internal/models"
	"crazypromo/internal/services"
)

type mockFeedService struct {
	importFeedFn func(storeID string, provider feeds.Provider, data []byte) (*services.ImportResult, error)
	syncStoreFn  func(storeID string) (*services.ImportResult, error)
}

func (m *mockFeedService) ImportFeed(_ context.Context, storeID string, provider feeds.Provider, data []byte) (*services.ImportResult, error) {
	if m.importFeedFn != nil {
		return m.importFeedFn(storeID, provider, data)
	}
	return &services.ImportResult{StoreID: storeID, Provider: provider}, nil
}

func (m *mockFeedService) SyncStore(_ context.Context, storeID string) (*services.ImportResult, error) {
	if m.syncStoreFn != nil {
		return m.syncStoreFn(storeID)
	}
	return &services.ImportResult{StoreID: storeID}, nil
}

var _ services.FeedServicer = (*mockFeedService)(nil)

func setupFeedRouter(handler *FeedHandler) *gin.Engine {
	r := gin.New()
	admin := r.Group("/admin", injectUserID("user-1"))
	admin.POST("/feeds/import", handler.ImportFeed)
	pipeline := r.Group("/pipeline")
	pipeline.GET("/feeds/stores", handler.ListFeedStores)
	pipeline.POST("/feeds/:store_id/sync", handler.SyncStore)
	return r
}

func TestFeedHandler_ImportFeed(t *testing.T) {
	t.Run("imports raw body", func(t *testing.T) {
		var gotStore string
		var gotProvider feeds.Provider
		var gotData []byte
		svc := &mockFeedService{
			importFeedFn: func(storeID string, provider feeds.Provider, data []byte) (*services.ImportResult, error) {
				gotStore, gotProvider, gotData = storeID, provider, data
				return &services.ImportResult{StoreID: storeID, Provider: provider, Imported: 2, Updated: 1}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupFeedRouter(NewFeedHandler(svc, &mockStoreService{}, audit, 0))

		rec := doRequest(r, "POST", "/admin/feeds/import?store_id=store-1&provider=lomadee", `{"offers":[]}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotStore != "store-1" || gotProvider != feeds.ProviderLomadee || string(gotData) != `{"offers":[]}` {
			t.Errorf("unexpected call %s %s %s", gotStore, gotProvider, gotData)
		}
		result := parseJSON(t, rec)
		if result["imported"] != float64(2) || result["updated"] != float64(1) {
			t.Errorf("unexpected result %v", result)
		}
		if len(audit.entries) != 1 || audit.entries[0].action != "IMPORT_FEED" || audit.entries[0].resourceID != "store-1" {
			t.Errorf("unexpected audit entries %+v", audit.entries)
		}
	})

	t.Run("imports multipart file", func(t *testing.T) {
		var gotData []byte
		svc := &mockFeedService{
			importFeedFn: func(storeID string, provider feeds.Provider, data []byte) (*services.ImportResult, error) {
				gotData = data
				return &services.ImportResult{StoreID: storeID, Provider: provider}, nil
			},
		}
		r := setupFeedRouter(NewFeedHandler(svc, &mockStoreService{}, &mockAuditService{}, 0))

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("file", "feed.csv")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte("sku;name;price\n1;TV;999,90\n"))
		_ = mw.Close()

		req := httptest.NewRequest("POST", "/admin/feeds/import?store_id=store-1&provider=csv", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.HasPrefix(string(gotData), "sku;name;price") {
			t.Errorf("unexpected payload %q", gotData)
		}
	})

	t.Run("returns 400 without store_id", func(t *testing.T) {
		r := setupFeedRouter(NewFeedHandler(&mockFeedService{}, &mockStoreService{}, &mockAuditService{}, 0))

		rec := doRequest(r, "POST", "/admin/feeds/import?provider=awin", `<feed/>`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on empty payload", func(t *testing.T) {
		r := setupFeedRouter(NewFeedHandler(&mockFeedService{}, &mockStoreService{}, &mockAuditService{}, 0))

		rec := doRequest(r, "POST", "/admin/feeds/import?store_id=store-1", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on oversized payload", func(t *testing.T) {
		r := setupFeedRouter(NewFeedHandler(&mockFeedService{}, &mockStoreService{}, &mockAuditService{}, 16))

		rec := doRequest(r, "POST", "/admin/feeds/import?store_id=store-1", strings.Repeat("x", 64))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("maps parse failures", func(t *testing.T) {
		svc := &mockFeedService{
			importFeedFn: func(string, feeds.Provider, []byte) (*services.ImportResult, error) {
				return nil, apperrors.ErrFeedParseFailed
			},
		}
		r := setupFeedRouter(NewFeedHandler(svc, &mockStoreService{}, &mockAuditService{}, 0))

		rec := doRequest(r, "POST", "/admin/feeds/import?store_id=store-1&provider=awin", `<broken`)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "FEED_PARSE_FAILED")
	})
}

func TestFeedHandler_SyncStore(t *testing.T) {
	t.Run("syncs store from path", func(t *testing.T) {
		var got string
		svc := &mockFeedService{
			syncStoreFn: func(storeID string) (*services.ImportResult, error) {
				got = storeID
				return &services.ImportResult{StoreID: storeID, Provider: feeds.ProviderAwin, Imported: 4}, nil
			},
		}
		r := setupFeedRouter(NewFeedHandler(svc, &mockStoreService{}, &mockAuditService{}, 0))

		rec := doRequest(r, "POST", "/pipeline/feeds/store-1/sync", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if got != "store-1" {
			t.Errorf("unexpected store %s", got)
		}
	})

	t.Run("maps upstream failures", func(t *testing.T) {
		svc := &mockFeedService{
			syncStoreFn: func(string) (*services.ImportResult, error) { return nil, apperrors.ErrFeedFetchFailed },
		}
		r := setupFeedRouter(NewFeedHandler(svc, &mockStoreService{}, &mockAuditService{}, 0))

		rec := doRequest(r, "POST", "/pipeline/feeds/store-1/sync", "")

		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
	})
}

func TestFeedHandler_ListFeedStores(t *testing.T) {
	synced := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	storeSvc := &mockStoreService{
		listFeedStoresFn: func() ([]models.Store, error) {
			return []models.Store{
				{Base: models.Base{ID: "s1"}, Name: "Loja A", Slug: "loja-a", FeedType: models.FeedTypeLomadee, LastFeedSync: &synced},
				{Base: models.Base{ID: "s2"}, Name: "Loja B", Slug: "loja-b", FeedType: models.FeedTypeCSV},
			}, nil
		},
	}
	r := setupFeedRouter(NewFeedHandler(&mockFeedService{}, storeSvc, &mockAuditService{}, 0))

	rec := doRequest(r, "GET", "/pipeline/feeds/stores", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	stores := parseJSON(t, rec)["stores"].([]interface{})
	if len(stores) != 2 {
		t.Fatalf("expected 2 stores, got %d", len(stores))
	}
	first := stores[0].(map[string]interface{})
	if first["feed_type"] != "lomadee" || first["last_feed_sync"] != "2026-03-01T12:00:00Z" {
		t.Errorf("unexpected store %v", first)
	}
	if _, ok := stores[1].(map[string]interface{})["last_feed_sync"]; ok {
		t.Error("expected last_feed_sync to be omitted for a never-synced store")
	}
}
