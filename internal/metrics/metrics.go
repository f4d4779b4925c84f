// Package metrics holds Prometheus instruments that are used across the
// CMS.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActiveTenants = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_tenants",
			Help: "Number of tenants currently loaded in memory.",
		})

	TenantLoadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_load_total",
			Help: "Cumulative number of tenants successfully loaded.",
		})

	TenantLoadErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_load_errors_total",
			Help: "Cumulative number of tenant load errors.",
		})

	TenantEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_evict_total",
			Help: "Cumulative number of tenants evicted from the cache.",
		})

	VersionAppendTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "page_version_append_total",
			Help: "Cumulative number of page version snapshots appended.",
		})

	VersionRestoreTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "page_version_restore_total",
			Help: "Cumulative number of version restores (each creates a new head).",
		})

	PublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_publish_total",
			Help: "Cumulative number of page status transitions.",
		}, []string{"to"})

	RevalidateErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "revalidate_errors_total",
			Help: "Cumulative number of failed best-effort revalidation calls.",
		})

	PublicCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "public_cache_hits_total",
			Help: "Published-content LRU cache hits on the public read path.",
		})

	PublicCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "public_cache_misses_total",
			Help: "Published-content LRU cache misses on the public read path.",
		})
)

func init() {
	prometheus.MustRegister(
		ActiveTenants,
		TenantLoadTotal,
		TenantLoadErrorsTotal,
		TenantEvictTotal,
		VersionAppendTotal,
		VersionRestoreTotal,
		PublishTotal,
		RevalidateErrorsTotal,
		PublicCacheHits,
		PublicCacheMisses,
	)
}
