// Package metrics counts file-resolution outcomes for a run and writes them
// in the Prometheus text format, for node_exporter's textfile collector or
// for a person reading the reportlets directory.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolution outcomes.
const (
	OutcomeResolved  = "resolved"
	OutcomeNotFound  = "not_found"
	OutcomeAmbiguous = "ambiguous"
)

// Resolution holds the counters for one run on a private registry, so
// several runs in one process never share state.
type Resolution struct {
	registry *prometheus.Registry

	resolutions *prometheus.CounterVec
	candidates  *prometheus.CounterVec
	subjects    prometheus.Gauge
}

// NewResolution creates and registers the run's collectors.
func NewResolution() *Resolution {
	r := &Resolution{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "betagrid",
			Name:      "file_resolutions_total",
			Help:      "Total file category lookups, by category and outcome.",
		}, []string{"category", "outcome"}),
		candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "betagrid",
			Name:      "file_candidates_total",
			Help:      "Total candidate files returned by the index, by category.",
		}, []string{"category"}),
		subjects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "betagrid",
			Name:      "participant_subjects",
			Help:      "Number of subject workflows attached to the participant workflow.",
		}),
	}
	r.registry.MustRegister(r.resolutions, r.candidates, r.subjects)
	return r
}

// ObserveResolution records one lookup and how many candidates it saw.
func (r *Resolution) ObserveResolution(category, outcome string, candidates int) {
	r.resolutions.WithLabelValues(category, outcome).Inc()
	r.candidates.WithLabelValues(category).Add(float64(candidates))
}

// SetSubjects records the number of attached subject workflows.
func (r *Resolution) SetSubjects(n int) {
	r.subjects.Set(float64(n))
}

// WriteTextfile writes every metric to path, creating its directory.
func (r *Resolution) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
