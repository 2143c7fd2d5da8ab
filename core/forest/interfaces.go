package forest

import (
	"math/rand/v2"
	"time"
)

// PointCollection is a set of training or test points. The engine only needs
// the number of points; weak learners and aggregators interpret the contents.
type PointCollection interface {
	Count() int
}

// WeakLearner computes a scalar response for one point. Implementations are
// usually small value types so that a split node can hold a copy.
type WeakLearner interface {
	// Response returns the response for the point at index in data.
	Response(data PointCollection, index int) float64

	// MarshalBinary encodes the learner for forest persistence.
	MarshalBinary() ([]byte, error)
}

// Aggregator accumulates summary statistics over a set of points.
// S is the concrete aggregator type itself, normally a pointer type.
// Aggregators are not assumed to be safe for concurrent mutation.
type Aggregator[S any] interface {
	// Clear resets the aggregator to the empty state.
	Clear()

	// Aggregate adds the point at index in data.
	Aggregate(data PointCollection, index int)

	// Merge adds everything aggregated by other.
	Merge(other S)

	// Clone returns an independent deep copy.
	Clone() S

	// MarshalBinary encodes the statistics for forest persistence.
	MarshalBinary() ([]byte, error)
}

// TrainingContext supplies the task-specific policy used while growing trees.
type TrainingContext[F WeakLearner, S Aggregator[S]] interface {
	// RandomLearner draws a candidate weak learner using rng.
	RandomLearner(rng *rand.Rand) F

	// NewAggregator returns an empty aggregator.
	NewAggregator() S

	// InformationGain scores splitting parent into left and right.
	InformationGain(parent, left, right S) float64

	// ShouldTerminate reports whether the node should become a leaf even
	// though the best split has the given positive gain.
	ShouldTerminate(parent, left, right S, gain float64) bool
}

// Codec decodes the payloads written by WeakLearner.MarshalBinary and
// Aggregator.MarshalBinary when a forest is read back.
type Codec[F WeakLearner, S Aggregator[S]] struct {
	Learner    func(data []byte) (F, error)
	Statistics func(data []byte) (S, error)
}

// Recorder observes training progress. pkg/telemetry provides a Prometheus
// implementation.
type Recorder interface {
	ObserveNode(kind NodeKind, depth int)
	ObserveTree(elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveNode(NodeKind, int) {}
func (nopRecorder) ObserveTree(time.Duration) {}
