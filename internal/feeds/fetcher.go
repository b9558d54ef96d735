package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultMaxBytes caps a feed payload when no limit is configured.
const DefaultMaxBytes int64 = 50 << 20

// Fetcher downloads feed payloads. One call is one GET; it never retries,
// authenticates or paginates.
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
}

// NewFetcher creates a Fetcher. A nil client gets a client with the given
// timeout; maxBytes <= 0 uses DefaultMaxBytes.
func NewFetcher(httpClient *http.Client, timeout time.Duration, maxBytes int64) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{httpClient: httpClient, maxBytes: maxBytes}
}

// Fetch returns the body of feedURL.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/xml, text/csv, */*")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching feed: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading feed: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("reading feed: payload exceeds %d bytes", f.maxBytes)
	}
	return body, nil
}

// SourceURL returns the URL to fetch for a store's feed. Lomadee feeds carry
// the affiliate source id as a query parameter.
func SourceURL(p Provider, feedURL, affiliateID string) (string, error) {
	u, err := url.Parse(feedURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid feed URL %q", feedURL)
	}
	if p == ProviderLomadee && affiliateID != "" {
		q := u.Query()
		q.Set("sourceId", affiliateID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
