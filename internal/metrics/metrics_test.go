package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	m := &dto.Metric{}
	require.NoError(t, (<-ch).Write(m))
	if m.Counter != nil {
		return m.GetCounter().GetValue()
	}
	return m.GetGauge().GetValue()
}

func TestMetrics_Record(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ChunkUploaded("google", 100)
	m.ChunkUploaded("google", 50)
	m.ChunkDownloaded(70)
	m.TransportFailed("dropbox", "upload")
	m.ProbeFailed("s3")
	m.Overallocated(1)
	m.Orphaned(2)
	m.Orphaned(0)
	m.Probed("google", "a@x", 4096)
	m.Since("upload", time.Now())

	assert.Equal(t, 2.0, counterValue(t, m.ChunksUploaded.WithLabelValues("google")))
	assert.Equal(t, 150.0, counterValue(t, m.BytesUploaded))
	assert.Equal(t, 70.0, counterValue(t, m.BytesDownloaded))
	assert.Equal(t, 1.0, counterValue(t, m.TransportFailures.WithLabelValues("dropbox", "upload")))
	assert.Equal(t, 1.0, counterValue(t, m.ProbeFailures.WithLabelValues("s3")))
	assert.Equal(t, 1.0, counterValue(t, m.Overallocations))
	assert.Equal(t, 2.0, counterValue(t, m.OrphanedChunks))
	assert.Equal(t, 4096.0, counterValue(t, m.PoolAvailable.WithLabelValues("google", "a@x")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ChunkUploaded("google", 1)
		m.ChunkDownloaded(1)
		m.TransportFailed("google", "download")
		m.ProbeFailed("google")
		m.Probed("google", "a", 1)
		m.Overallocated(1)
		m.Orphaned(3)
		m.Since("get", time.Now())
	})
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
