package feedsync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFeedStores_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/pipeline/feeds/stores", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"stores": []map[string]any{
				{"id": "s-1", "name": "Loja A", "slug": "loja-a", "feed_type": "lomadee", "last_feed_sync": nil},
				{"id": "s-2", "name": "Loja B", "slug": "loja-b", "feed_type": "csv", "last_feed_sync": "2026-10-01T10:00:00Z"},
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", "test-key", server.Client())
	stores, err := c.ListFeedStores(context.Background())
	require.NoError(t, err)
	require.Len(t, stores, 2)

	assert.Equal(t, "s-1", stores[0].ID)
	assert.Equal(t, "lomadee", stores[0].FeedType)
	assert.Nil(t, stores[0].LastFeedSync)
	assert.Equal(t, "loja-b", stores[1].Slug)
	require.NotNil(t, stores[1].LastFeedSync)
	assert.Equal(t, 2026, stores[1].LastFeedSync.Year())
}

func TestListFeedStores_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"INVALID_API_KEY","message":"Invalid or missing API key"}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "wrong", server.Client())
	_, err := c.ListFeedStores(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "INVALID_API_KEY", apiErr.Code)
	assert.Equal(t, "Invalid or missing API key", apiErr.Message)
}

func TestListFeedStores_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	c := NewClient(server.URL, "test-key", server.Client())
	_, err := c.ListFeedStores(context.Background())
	assert.Error(t, err)
}

func TestSyncStore_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/pipeline/feeds/s-1/sync", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"store_id":    "s-1",
			"provider":    "lomadee",
			"imported":    3,
			"updated":     2,
			"errors":      1,
			"skipped":     []map[string]any{{"index": 4, "reason": "missing price"}},
			"duration_ns": 1500000,
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "test-key", server.Client())
	res, err := c.SyncStore(context.Background(), "s-1")
	require.NoError(t, err)

	assert.Equal(t, "s-1", res.StoreID)
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 1, res.Errors)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "missing price", res.Skipped[0].Reason)
	assert.Equal(t, int64(1500000), res.Duration.Nanoseconds())
}

func TestSyncStore_BadGateway(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"code":"FEED_FETCH_FAILED","message":"Feed could not be fetched"}}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "test-key", server.Client())
	_, err := c.SyncStore(context.Background(), "s-1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Contains(t, err.Error(), "syncing store s-1")
}

func TestSyncStore_EmptyErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL, "test-key", nil)
	_, err := c.SyncStore(context.Background(), "s-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}
