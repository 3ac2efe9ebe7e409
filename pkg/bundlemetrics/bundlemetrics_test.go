package bundlemetrics

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/paulschiretz/pgl-figcompress/pkg/plog"
)

func TestBundleMetrics_Adders(t *testing.T) {
	m := &BundleMetrics{}
	m.AddEntriesAdded(3)
	m.AddBytesRead(1000)
	m.AddBytesWritten(250)

	if got := m.EntriesAdded.Load(); got != 3 {
		t.Errorf("expected EntriesAdded to be 3, got %d", got)
	}
	if got := m.BytesRead.Load(); got != 1000 {
		t.Errorf("expected BytesRead to be 1000, got %d", got)
	}
	if got := m.BytesWritten.Load(); got != 250 {
		t.Errorf("expected BytesWritten to be 250, got %d", got)
	}
}

func TestBundleMetrics_Log(t *testing.T) {
	var logBuf bytes.Buffer
	plog.SetOutput(&logBuf)
	t.Cleanup(func() { plog.SetOutput(os.Stderr) })

	m := &BundleMetrics{}
	m.AddEntriesAdded(2)
	m.AddBytesRead(200)
	m.AddBytesWritten(50)
	m.LogSummary("Bundle summary")

	output := logBuf.String()
	for _, want := range []string{
		"msg=\"Bundle summary\"",
		"entries_added=2",
		"bytes_read=200",
		"bytes_written=50",
		"ratio_pct=25.00%",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected log output to contain %q. Got: %s", want, output)
		}
	}
}

func TestNoopMetrics(t *testing.T) {
	var logBuf bytes.Buffer
	plog.SetOutput(&logBuf)
	t.Cleanup(func() { plog.SetOutput(os.Stderr) })

	m := &NoopMetrics{}
	m.AddEntriesAdded(1)
	m.LogSummary("should not appear")
	if logBuf.Len() != 0 {
		t.Errorf("expected no output from NoopMetrics, got: %s", logBuf.String())
	}
}
