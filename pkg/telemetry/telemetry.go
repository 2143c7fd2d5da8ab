// Package telemetry records forest training metrics with Prometheus.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/YuminosukeSato/decisionforest/core/forest"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

// Recorder implements forest.Recorder on a private Prometheus registry.
type Recorder struct {
	registry *prometheus.Registry

	TreesTotal   prometheus.Counter
	NodesTotal   *prometheus.CounterVec
	NodeDepth    *prometheus.HistogramVec
	TreeDuration prometheus.Histogram
}

// NewRecorder creates the training collectors under namespace and registers
// them on a new registry.
func NewRecorder(namespace string) *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.TreesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trees_trained_total",
		Help:      "Number of decision trees trained.",
	})
	r.NodesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "nodes_trained_total",
		Help:      "Number of tree nodes finalized, by kind.",
	}, []string{"kind"})
	r.NodeDepth = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "node_depth",
		Help:      "Depth at which tree nodes were finalized.",
		Buckets:   prometheus.LinearBuckets(0, 1, forest.MaxDepth+1),
	}, []string{"kind"})
	r.TreeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "tree_training_duration_seconds",
		Help:      "Wall time spent training one tree.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	r.registry.MustRegister(r.TreesTotal, r.NodesTotal, r.NodeDepth, r.TreeDuration)
	return r
}

// ObserveNode implements forest.Recorder.
func (r *Recorder) ObserveNode(kind forest.NodeKind, depth int) {
	r.NodesTotal.WithLabelValues(kind.String()).Inc()
	r.NodeDepth.WithLabelValues(kind.String()).Observe(float64(depth))
}

// ObserveTree implements forest.Recorder.
func (r *Recorder) ObserveTree(elapsed time.Duration) {
	r.TreesTotal.Inc()
	r.TreeDuration.Observe(elapsed.Seconds())
}

// Registry returns the registry holding the training collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the current metrics in the text exposition format,
// suitable for the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return errors.Wrapf(prometheus.WriteToTextfile(path, r.registry), "telemetry: write %s", path)
}
