// Package metrics exposes the Prometheus instruments of the allocation
// engine. A nil *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	ChunksUploaded    *prometheus.CounterVec   // cloudpool_chunks_uploaded_total{provider}
	BytesUploaded     prometheus.Counter       // cloudpool_bytes_uploaded_total
	BytesDownloaded   prometheus.Counter       // cloudpool_bytes_downloaded_total
	TransportFailures *prometheus.CounterVec   // cloudpool_transport_failures_total{provider,op}
	ProbeFailures     *prometheus.CounterVec   // cloudpool_probe_failures_total{provider}
	Overallocations   prometheus.Counter       // cloudpool_overallocations_total
	OrphanedChunks    prometheus.Counter       // cloudpool_orphaned_chunks_total
	OperationDuration *prometheus.HistogramVec // cloudpool_operation_duration_seconds{op}
	PoolAvailable     *prometheus.GaugeVec     // cloudpool_account_available_bytes{provider,account}
}

// New registers all instruments with reg. Passing a fresh registry per
// server keeps tests independent of the global default.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ChunksUploaded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudpool_chunks_uploaded_total",
			Help: "Chunks stored, by provider",
		}, []string{"provider"}),

		BytesUploaded: f.NewCounter(prometheus.CounterOpts{
			Name: "cloudpool_bytes_uploaded_total",
			Help: "Encoded bytes sent to providers",
		}),

		BytesDownloaded: f.NewCounter(prometheus.CounterOpts{
			Name: "cloudpool_bytes_downloaded_total",
			Help: "Encoded bytes fetched from providers",
		}),

		TransportFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudpool_transport_failures_total",
			Help: "Failed provider calls by provider and operation",
		}, []string{"provider", "op"}),

		ProbeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudpool_probe_failures_total",
			Help: "Quota probes that degraded to zero capacity",
		}, []string{"provider"}),

		Overallocations: f.NewCounter(prometheus.CounterOpts{
			Name: "cloudpool_overallocations_total",
			Help: "Plan entries assigned to a slot without enough declared capacity",
		}),

		OrphanedChunks: f.NewCounter(prometheus.CounterOpts{
			Name: "cloudpool_orphaned_chunks_total",
			Help: "Chunks left behind by aborted uploads",
		}),

		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cloudpool_operation_duration_seconds",
			Help:    "File operation duration",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"op"}),

		PoolAvailable: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cloudpool_account_available_bytes",
			Help: "Last probed available bytes per account",
		}, []string{"provider", "account"}),
	}
}

func (m *Metrics) ChunkUploaded(provider string, bytes int64) {
	if m == nil {
		return
	}
	m.ChunksUploaded.WithLabelValues(provider).Inc()
	m.BytesUploaded.Add(float64(bytes))
}

func (m *Metrics) ChunkDownloaded(bytes int64) {
	if m == nil {
		return
	}
	m.BytesDownloaded.Add(float64(bytes))
}

func (m *Metrics) TransportFailed(provider, op string) {
	if m == nil {
		return
	}
	m.TransportFailures.WithLabelValues(provider, op).Inc()
}

func (m *Metrics) ProbeFailed(provider string) {
	if m == nil {
		return
	}
	m.ProbeFailures.WithLabelValues(provider).Inc()
}

func (m *Metrics) Probed(provider, account string, available int64) {
	if m == nil {
		return
	}
	m.PoolAvailable.WithLabelValues(provider, account).Set(float64(available))
}

func (m *Metrics) Overallocated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Overallocations.Add(float64(n))
}

func (m *Metrics) Orphaned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.OrphanedChunks.Add(float64(n))
}

// Since records the time elapsed from start under op.
func (m *Metrics) Since(op string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Serve exposes gatherer on addr at /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
