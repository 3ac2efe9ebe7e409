package bundlemetrics

import (
	"fmt"
	"sync/atomic"

	"github.com/paulschiretz/pgl-figcompress/pkg/plog"
)

// Metrics defines the interface for collecting statistics while bundling the output tree.
type Metrics interface {
	AddEntriesAdded(n int64)
	AddBytesRead(n int64)
	AddBytesWritten(n int64)
	LogSummary(msg string)
}

// BundleMetrics holds the atomic counters of a bundle run.
// It is the concrete implementation of the Metrics interface.
type BundleMetrics struct {
	EntriesAdded atomic.Int64
	BytesRead    atomic.Int64
	BytesWritten atomic.Int64
}

func (m *BundleMetrics) AddEntriesAdded(n int64) { m.EntriesAdded.Add(n) }
func (m *BundleMetrics) AddBytesRead(n int64)    { m.BytesRead.Add(n) }
func (m *BundleMetrics) AddBytesWritten(n int64) { m.BytesWritten.Add(n) }

// LogSummary logs the current state of the metrics.
func (m *BundleMetrics) LogSummary(msg string) {
	read := m.BytesRead.Load()
	written := m.BytesWritten.Load()

	var ratio float64
	if read > 0 {
		ratio = float64(written) / float64(read) * 100.0
	}

	plog.Info(msg,
		"entries_added", m.EntriesAdded.Load(),
		"bytes_read", fmt.Sprintf("%d", read),
		"bytes_written", fmt.Sprintf("%d", written),
		"ratio_pct", fmt.Sprintf("%.2f%%", ratio),
	)
}

// NoopMetrics is an implementation of the Metrics interface that performs no operations.
type NoopMetrics struct{}

func (m *NoopMetrics) AddEntriesAdded(n int64) {}
func (m *NoopMetrics) AddBytesRead(n int64)    {}
func (m *NoopMetrics) AddBytesWritten(n int64) {}
func (m *NoopMetrics) LogSummary(msg string)   {}

// Statically assert that our types implement the interface.
var _ Metrics = (*BundleMetrics)(nil)
var _ Metrics = (*NoopMetrics)(nil)
