// Package feedsync drives scheduled feed reconciliation through the pipeline API.
package feedsync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// FeedStore is a store with a configured feed, as returned by the pipeline API.
type FeedStore struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	FeedType     string     `json:"feed_type"`
	LastFeedSync *time.Time `json:"last_feed_sync"`
}

// SkippedEntry describes a feed entry the server refused to import.
type SkippedEntry struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// SyncResult is the import summary for one store.
type SyncResult struct {
	StoreID  string         `json:"store_id"`
	Provider string         `json:"provider"`
	Imported int            `json:"imported"`
	Updated  int            `json:"updated"`
	Errors   int            `json:"errors"`
	Skipped  []SkippedEntry `json:"skipped"`
	Duration time.Duration  `json:"duration_ns"`
}

// APIError is a non-2xx response from the pipeline API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s: %s", e.Status, e.Code, e.Message)
}

// Client communicates with the CrazyPromo pipeline API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new pipeline API client.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// ListFeedStores fetches the active stores that have a feed configured.
func (c *Client) ListFeedStores(ctx context.Context) ([]FeedStore, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/pipeline/feeds/stores", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed stores: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching feed stores: %w", decodeAPIError(resp))
	}

	var result struct {
		Stores []FeedStore `json:"stores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding feed stores response: %w", err)
	}
	return result.Stores, nil
}

// SyncStore asks the API to fetch and reconcile one store's feed.
func (c *Client) SyncStore(ctx context.Context, storeID string) (*SyncResult, error) {
	endpoint := c.baseURL + "/api/v1/pipeline/feeds/" + url.PathEscape(storeID) + "/sync"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("syncing store %s: %w", storeID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("syncing store %s: %w", storeID, decodeAPIError(resp))
	}

	var result SyncResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding sync response: %w", err)
	}
	return &result, nil
}

// decodeAPIError reads the {"error": {"code", "message"}} envelope when the
// body carries one.
func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Code = body.Error.Code
		apiErr.Message = body.Error.Message
	}
	return apiErr
}
