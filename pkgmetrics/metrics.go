// Package pkgmetrics exposes Prometheus counters and histograms for the
// resolver, loader, cache, and installer, adapted from the teacher's
// metrics package (same otel/Prometheus wiring, new instrument names).
package pkgmetrics

import (
	"context"
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the counters and histograms a runtime session and
// installer run report to.
type Metrics struct {
	ResolvesTotal       metric.Int64Counter
	LoadsTotal          metric.Int64Counter
	CacheHitsTotal      metric.Int64Counter
	CacheMissesTotal    metric.Int64Counter
	InstalledBytesTotal metric.Int64Counter
	PublishedBytesTotal metric.Int64Counter
	HookDuration        metric.Float64Histogram
}

// New registers a Prometheus exporter as the global otel meter provider
// and creates every instrument Metrics exposes.
func New() (m Metrics, err error) {
	exporter, err := prometheus.New()
	if err != nil {
		return Metrics{}, fmt.Errorf("pkgmetrics: failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter("github.com/a-h/pkgrun")

	if m.ResolvesTotal, err = meter.Int64Counter("resolves_total", metric.WithDescription("Total number of require() requests resolved")); err != nil {
		return Metrics{}, fmt.Errorf("pkgmetrics: failed to create resolves_total counter: %w", err)
	}
	if m.LoadsTotal, err = meter.Int64Counter("loads_total", metric.WithDescription("Total number of modules loaded and executed")); err != nil {
		return Metrics{}, fmt.Errorf("pkgmetrics: failed to create loads_total counter: %w", err)
	}
	if m.CacheHitsTotal, err = meter.Int64Counter("module_cache_hits_total", metric.WithDescription("Total number of require() calls served from the module cache")); err != nil {
		return Metrics{}, fmt.Errorf("pkgmetrics: failed to create module_cache_hits_total counter: %w", err)
	}
	if m.CacheMissesTotal, err = meter.Int64Counter("module_cache_misses_total", metric.WithDescription("Total number of require() calls that executed a module")); err != nil {
		return Metrics{}, fmt.Errorf("pkgmetrics: failed to create module_cache_misses_total counter: %w", err)
	}
	if m.InstalledBytesTotal, err = meter.Int64Counter("installed_bytes_total", metric.WithDescription("Total bytes of dist archives downloaded by the installer")); err != nil {
		return Metrics{}, fmt.Errorf("pkgmetrics: failed to create installed_bytes_total counter: %w", err)
	}
	if m.PublishedBytesTotal, err = meter.Int64Counter("published_bytes_total", metric.WithDescription("Total bytes of dist archives uploaded by publish")); err != nil {
		return Metrics{}, fmt.Errorf("pkgmetrics: failed to create published_bytes_total counter: %w", err)
	}
	if m.HookDuration, err = meter.Float64Histogram("hook_duration_seconds", metric.WithDescription("Duration of lifecycle hook runs")); err != nil {
		return Metrics{}, fmt.Errorf("pkgmetrics: failed to create hook_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// ListenAndServe serves the Prometheus "/metrics" endpoint on addr.
func ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promclient.Handler())
	return http.ListenAndServe(addr, mux)
}

// IncrementResolve records a resolver chain invocation, distinguishing a
// filesystem resolution from a binding resolution.
func (m Metrics) IncrementResolve(ctx context.Context, kind string) {
	if m.ResolvesTotal == nil {
		return
	}
	m.ResolvesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// IncrementLoad records a module load/execution, by loader suffix (".py",
// ".json", or "" for a binding).
func (m Metrics) IncrementLoad(ctx context.Context, suffix string) {
	if m.LoadsTotal == nil {
		return
	}
	m.LoadsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("suffix", suffix)))
}

// IncrementCache records whether a require() call was served from the
// module cache or had to execute.
func (m Metrics) IncrementCache(ctx context.Context, hit bool) {
	if hit {
		if m.CacheHitsTotal != nil {
			m.CacheHitsTotal.Add(ctx, 1)
		}
		return
	}
	if m.CacheMissesTotal != nil {
		m.CacheMissesTotal.Add(ctx, 1)
	}
}

// AddInstalledBytes records bytes fetched by the installer for a package.
func (m Metrics) AddInstalledBytes(ctx context.Context, pkg string, bytes int64) {
	if m.InstalledBytesTotal == nil {
		return
	}
	m.InstalledBytesTotal.Add(ctx, bytes, metric.WithAttributes(attribute.String("package", pkg)))
}

// AddPublishedBytes records bytes uploaded by publish for a package.
func (m Metrics) AddPublishedBytes(ctx context.Context, pkg string, bytes int64) {
	if m.PublishedBytesTotal == nil {
		return
	}
	m.PublishedBytesTotal.Add(ctx, bytes, metric.WithAttributes(attribute.String("package", pkg)))
}

// ObserveHookDuration records how long a lifecycle hook took to run.
func (m Metrics) ObserveHookDuration(ctx context.Context, event string, seconds float64) {
	if m.HookDuration == nil {
		return
	}
	m.HookDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("event", event)))
}
