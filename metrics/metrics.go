// Package metrics counts workbench activity. Long-running commands write
// the counters as a node exporter textfile when they finish.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var Edits = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "enigma",
	Subsystem: "deobf",
	Name:      "edits_total",
	Help:      "Published mapping edits by kind.",
}, []string{"kind"})

var IndexedClasses = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "enigma",
	Subsystem: "jarindex",
	Name:      "classes_total",
	Help:      "Classes indexed.",
})

var CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "enigma",
	Subsystem: "source",
	Name:      "cache_lookups_total",
	Help:      "Decompiled class cache lookups by result.",
}, []string{"result"})

var ExportedClasses = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "enigma",
	Subsystem: "source",
	Name:      "exported_classes_total",
	Help:      "Classes handled by source exports by result.",
}, []string{"result"})

var ConvertedRecords = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "enigma",
	Subsystem: "convert",
	Name:      "dropped_records_total",
	Help:      "Mapping records left behind by conversions by reason.",
}, []string{"reason"})

// Registry holds every enigma collector and nothing else.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(Edits, IndexedClasses, CacheLookups, ExportedClasses, ConvertedRecords)
}

// ObserveEdit matches the deobf rename hook.
func ObserveEdit(kind string) {
	Edits.WithLabelValues(kind).Inc()
}

// ObserveCacheLookup matches the source cache lookup hook.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(result).Inc()
}

func ObserveIndex(classes int) {
	IndexedClasses.Add(float64(classes))
}

func ObserveExport(written, failed int) {
	ExportedClasses.WithLabelValues("written").Add(float64(written))
	ExportedClasses.WithLabelValues("failed").Add(float64(failed))
}

func ObserveConversion(unmatched, broken int) {
	ConvertedRecords.WithLabelValues("unmatched").Add(float64(unmatched))
	ConvertedRecords.WithLabelValues("broken").Add(float64(broken))
}

// WriteTextfile writes the registry to path in the text exposition
// format. An empty path writes nothing.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, Registry)
}
