// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trailhub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trailhub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Catalog sync
	CatalogItemsSynced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trailhub_catalog_items_synced_total",
			Help: "Parks and trails written by the catalog syncer",
		},
		[]string{"kind", "result"}, // kind: park|trail, result: created|updated|error
	)

	CatalogSyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trailhub_catalog_sync_duration_seconds",
			Help:    "Duration of one state sync",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"state"},
	)

	SourceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trailhub_catalog_source_requests_total",
			Help: "Requests made to external catalog sources",
		},
		[]string{"source", "status"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trailhub_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Notifications
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trailhub_notifications_created_total",
			Help: "Notifications written by the fanout",
		},
		[]string{"type"},
	)

	NotificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trailhub_notification_failures_total",
			Help: "Notification inserts or publishes that failed",
		},
		[]string{"stage"}, // insert|publish
	)

	// Catalog cache
	CatalogCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trailhub_catalog_cache_hits_total",
		Help: "Catalog read cache hits",
	})

	CatalogCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trailhub_catalog_cache_misses_total",
		Help: "Catalog read cache misses",
	})
)

// RecordAPIRequest records one served HTTP request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordCatalogItem counts one park or trail outcome.
func RecordCatalogItem(kind, result string) {
	CatalogItemsSynced.WithLabelValues(kind, result).Inc()
}

// RecordSourceRequest counts one request to an external source.
func RecordSourceRequest(source string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	SourceRequests.WithLabelValues(source, status).Inc()
}

// SetBreakerState exports a circuit breaker state as 0, 1 or 2.
func SetBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
