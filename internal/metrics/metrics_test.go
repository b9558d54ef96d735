package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilRegistryIsSafe(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.ObserveFeedImport("csv", 1, 2, 3, nil, time.Second)
		r.ObserveAnalysis("good", true)
		r.ObservePricePoint("feed")
		r.ObserveClick()
		r.ObserveRequest("GET", "/x", 200, time.Millisecond)
	})
}

func TestObserveFeedImport(t *testing.T) {
	r := NewRegistry()
	r.ObserveFeedImport("lomadee", 3, 2, 1, nil, 150*time.Millisecond)
	r.ObserveFeedImport("lomadee", 0, 0, 0, errors.New("boom"), time.Millisecond)

	assert.Equal(t, 3.0, testutil.ToFloat64(r.FeedEntries.WithLabelValues("imported")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.FeedEntries.WithLabelValues("updated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.FeedEntries.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.FeedImports.WithLabelValues("lomadee", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.FeedImports.WithLabelValues("lomadee", "failure")))
}

func TestObserveAnalysis(t *testing.T) {
	r := NewRegistry()
	r.ObserveAnalysis("suspicious", true)
	r.ObserveAnalysis("excellent", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.DealAnalyses.WithLabelValues("suspicious")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Manipulations))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.ObserveClick()
	r.ObserveRequest("GET", "/api/v1/products", 200, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "crazypromo_affiliate_clicks_total 1"))
	assert.Contains(t, body, `crazypromo_http_requests_total{method="GET",route="/api/v1/products",status="200"} 1`)
}
