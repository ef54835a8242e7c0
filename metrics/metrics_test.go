package metrics_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swind/go-enigma/metrics"
)

func TestObserve(t *testing.T) {
	renames := testutil.ToFloat64(metrics.Edits.WithLabelValues("rename"))
	hits := testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("hit"))
	failed := testutil.ToFloat64(metrics.ExportedClasses.WithLabelValues("failed"))

	metrics.ObserveEdit("rename")
	metrics.ObserveEdit("rename")
	metrics.ObserveCacheLookup(true)
	metrics.ObserveCacheLookup(false)
	metrics.ObserveExport(3, 1)

	assert.Equal(t, renames+2, testutil.ToFloat64(metrics.Edits.WithLabelValues("rename")))
	assert.Equal(t, hits+1, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.ExportedClasses.WithLabelValues("failed")))
}

func TestWriteTextfile(t *testing.T) {
	metrics.ObserveIndex(4)
	metrics.ObserveConversion(1, 2)

	path := filepath.Join(t.TempDir(), "enigma.prom")
	require.NoError(t, metrics.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "enigma_jarindex_classes_total")
	assert.Contains(t, string(data), `enigma_convert_dropped_records_total{reason="broken"}`)

	assert.NoError(t, metrics.WriteTextfile(""))
}
