// Package metrics exposes Prometheus instruments for the API.
// All recording methods are safe to call on a nil *Registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	FeedEntries        *prometheus.CounterVec
	FeedImports        *prometheus.CounterVec
	FeedImportDuration prometheus.Histogram
	DealAnalyses       *prometheus.CounterVec
	Manipulations      prometheus.Counter
	PricePoints        *prometheus.CounterVec
	Clicks             prometheus.Counter
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	feedEntries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crazypromo_feed_entries_total",
		Help: "Feed entries processed, by result (imported, updated, error).",
	}, []string{"result"})
	feedImports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crazypromo_feed_imports_total",
		Help: "Feed import runs, by provider and outcome.",
	}, []string{"provider", "outcome"})
	feedDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "crazypromo_feed_import_duration_seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})
	analyses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crazypromo_deal_analyses_total",
		Help: "Deal analyses, by recommendation.",
	}, []string{"recommendation"})
	manipulations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crazypromo_price_manipulation_detected_total",
	})
	pricePoints := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crazypromo_price_points_recorded_total",
	}, []string{"source"})
	clicks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crazypromo_affiliate_clicks_total",
	})
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crazypromo_http_requests_total",
	}, []string{"method", "route", "status"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crazypromo_http_request_duration_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		feedEntries, feedImports, feedDuration, analyses, manipulations,
		pricePoints, clicks, httpRequests, httpDuration,
	)

	return &Registry{
		reg:                r,
		FeedEntries:        feedEntries,
		FeedImports:        feedImports,
		FeedImportDuration: feedDuration,
		DealAnalyses:       analyses,
		Manipulations:      manipulations,
		PricePoints:        pricePoints,
		Clicks:             clicks,
		HTTPRequests:       httpRequests,
		HTTPDuration:       httpDuration,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// ObserveFeedImport records one finished import run.
func (r *Registry) ObserveFeedImport(provider string, imported, updated, errors int, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	r.FeedImports.WithLabelValues(provider, outcome).Inc()
	r.FeedImportDuration.Observe(elapsed.Seconds())
	r.FeedEntries.WithLabelValues("imported").Add(float64(imported))
	r.FeedEntries.WithLabelValues("updated").Add(float64(updated))
	r.FeedEntries.WithLabelValues("error").Add(float64(errors))
}

// ObserveAnalysis records one deal analysis.
func (r *Registry) ObserveAnalysis(recommendation string, manipulated bool) {
	if r == nil {
		return
	}
	r.DealAnalyses.WithLabelValues(recommendation).Inc()
	if manipulated {
		r.Manipulations.Inc()
	}
}

// ObservePricePoint records one appended price observation.
func (r *Registry) ObservePricePoint(source string) {
	if r == nil {
		return
	}
	r.PricePoints.WithLabelValues(source).Inc()
}

// ObserveClick records one outbound click.
func (r *Registry) ObserveClick() {
	if r == nil {
		return
	}
	r.Clicks.Inc()
}

// ObserveRequest records one served HTTP request.
func (r *Registry) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
