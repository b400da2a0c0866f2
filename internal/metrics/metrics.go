package metrics

/*
rxrecon — DNS and Certificate Transparency reconnaissance in Go
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	registry           = prometheus.NewRegistry()
	defaultRegisterer  = promauto.With(registry)
	metricsInitialized sync.Once
	metricsEnabled     bool
	metricsServer      *http.Server
)

// Metrics groups the collectors for DNS lookups, crt.sh fetches and exports.
type Metrics struct {
	// DNS collection metrics
	DNSQueriesTotal   *prometheus.CounterVec
	DNSQueryDuration  *prometheus.HistogramVec
	DNSRowsTotal      *prometheus.CounterVec
	DomainsCollected  prometheus.Counter
	DomainsDiscovered prometheus.Gauge

	// crt.sh metrics
	CTRequestsTotal   *prometheus.CounterVec
	CTRequestDuration prometheus.Histogram
	CTRowsTotal       *prometheus.CounterVec

	// Export metrics
	ExportRowsTotal     *prometheus.CounterVec
	ExportErrorsTotal   *prometheus.CounterVec
	ExportWriteDuration *prometheus.HistogramVec
	ExportWriteBytes    *prometheus.HistogramVec
}

// globalMetrics is built lazily on first use.
var globalMetrics *Metrics
var metricsOnce sync.Once

// GetMetrics returns the process-wide collectors, registering them on first call.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = newMetrics()
	})
	return globalMetrics
}

// Registry exposes the registry metrics are registered with.
func Registry() *prometheus.Registry {
	return registry
}

// EnableMetrics turns recording on. Until then every Observe call is a no-op.
func EnableMetrics() {
	metricsEnabled = true
}

// DisableMetrics turns collection back off.
func DisableMetrics() {
	metricsEnabled = false
}

// IsMetricsEnabled reports whether recording is on.
func IsMetricsEnabled() bool {
	return metricsEnabled
}

// newMetrics registers every collector on the private registry.
func newMetrics() *Metrics {
	buckets := []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	byteBuckets := []float64{1024, 10 * 1024, 50 * 1024, 100 * 1024, 500 * 1024, 1000 * 1024, 5000 * 1024, 10000 * 1024}

	m := &Metrics{
		DNSQueriesTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rxrecon_dns_queries_total",
				Help: "Total number of DNS record type lookups",
			},
			[]string{"rdtype", "status", "kind"},
		),
		DNSQueryDuration: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rxrecon_dns_query_duration_seconds",
				Help:    "Time spent resolving one record type",
				Buckets: buckets,
			},
			[]string{"rdtype"},
		),
		DNSRowsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rxrecon_dns_rows_total",
				Help: "Total number of DNS rows decoded",
			},
			[]string{"rdtype"},
		),
		DomainsCollected: defaultRegisterer.NewCounter(
			prometheus.CounterOpts{
				Name: "rxrecon_domains_collected_total",
				Help: "Total number of domains whose DNS records were collected",
			},
		),
		DomainsDiscovered: defaultRegisterer.NewGauge(
			prometheus.GaugeOpts{
				Name: "rxrecon_domains_discovered",
				Help: "Number of domains discovered from certificates in the last harvest",
			},
		),

		CTRequestsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rxrecon_crtsh_requests_total",
				Help: "Total number of crt.sh search requests",
			},
			[]string{"status"},
		),
		CTRequestDuration: defaultRegisterer.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rxrecon_crtsh_request_duration_seconds",
				Help:    "Time spent fetching crt.sh search pages",
				Buckets: buckets,
			},
		),
		CTRowsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rxrecon_crtsh_rows_total",
				Help: "Certificate table rows seen, by outcome",
			},
			[]string{"outcome"},
		),

		ExportRowsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rxrecon_export_rows_total",
				Help: "Total number of rows exported",
			},
			[]string{"format"},
		),
		ExportErrorsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rxrecon_export_errors_total",
				Help: "Total number of failed exports",
			},
			[]string{"format"},
		),
		ExportWriteDuration: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rxrecon_export_write_duration_seconds",
				Help:    "Time spent writing export files",
				Buckets: buckets,
			},
			[]string{"format"},
		),
		ExportWriteBytes: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rxrecon_export_write_bytes",
				Help:    "Size of written export files in bytes",
				Buckets: byteBuckets,
			},
			[]string{"format"},
		),
	}

	return m
}

// StartMetricsServer serves /metrics on addr in the background. It starts at most
// once per process and does nothing while recording is off.
func StartMetricsServer(addr string, log *logrus.Entry) error {
	if !metricsEnabled {
		return nil
	}

	var startErr error
	metricsInitialized.Do(func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

		metricsServer = &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			log.WithField("addr", addr).Info("Starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("Metrics server error")
			}
		}()
	})

	return startErr
}

// ShutdownMetricsServer stops the server started by StartMetricsServer, if any.
func ShutdownMetricsServer(ctx context.Context) error {
	if metricsServer != nil {
		return metricsServer.Shutdown(ctx)
	}
	return nil
}

// MeasureDuration starts a timer and returns the func that records it into histogram.
func MeasureDuration(histogram *prometheus.HistogramVec, labels prometheus.Labels) func() {
	if !metricsEnabled {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		histogram.With(labels).Observe(duration.Seconds())
	}
}

// ObserveDNSQuery records one record type lookup.
func ObserveDNSQuery(rdtype, status, kind string, elapsed time.Duration) {
	if !metricsEnabled {
		return
	}
	m := GetMetrics()
	m.DNSQueriesTotal.WithLabelValues(rdtype, status, kind).Inc()
	if elapsed > 0 {
		m.DNSQueryDuration.WithLabelValues(rdtype).Observe(elapsed.Seconds())
	}
}

// ObserveDNSRows adds decoded rows for rdtype.
func ObserveDNSRows(rdtype string, n int) {
	if !metricsEnabled || n == 0 {
		return
	}
	GetMetrics().DNSRowsTotal.WithLabelValues(rdtype).Add(float64(n))
}

// ObserveDomainCollected counts one finished domain.
func ObserveDomainCollected() {
	if !metricsEnabled {
		return
	}
	GetMetrics().DomainsCollected.Inc()
}

// SetDomainsDiscovered records the size of the last discovered domain set.
func SetDomainsDiscovered(n int) {
	if !metricsEnabled {
		return
	}
	GetMetrics().DomainsDiscovered.Set(float64(n))
}

// ObserveCTRequest records one crt.sh fetch. status is an HTTP status code or "error".
func ObserveCTRequest(status string, elapsed time.Duration) {
	if !metricsEnabled {
		return
	}
	m := GetMetrics()
	m.CTRequestsTotal.WithLabelValues(status).Inc()
	m.CTRequestDuration.Observe(elapsed.Seconds())
}

// ObserveCTRows records kept and skipped certificate table rows.
func ObserveCTRows(kept, skipped int) {
	if !metricsEnabled {
		return
	}
	m := GetMetrics()
	m.CTRowsTotal.WithLabelValues("kept").Add(float64(kept))
	m.CTRowsTotal.WithLabelValues("skipped").Add(float64(skipped))
}

// ObserveExport records a finished export. size is the written file size, if known.
func ObserveExport(format string, rows int, size int64, err error) {
	if !metricsEnabled {
		return
	}
	m := GetMetrics()
	if err != nil {
		m.ExportErrorsTotal.WithLabelValues(format).Inc()
		return
	}
	m.ExportRowsTotal.WithLabelValues(format).Add(float64(rows))
	if size > 0 {
		m.ExportWriteBytes.WithLabelValues(format).Observe(float64(size))
	}
}
