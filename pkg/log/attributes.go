// Package log defines standard attribute keys for forest operations.
//
// Keys follow a hierarchical naming convention ("forest.tree", "data.samples")
// so that training progress can be filtered and aggregated downstream.
package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "RandomForestClassifier".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "apply", "serialize", "deserialize"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging, e.g. "forest.trainer".
	ComponentKey = "ml.component"
)

// Forest structure.
const (
	// TreeKey is the zero-based index of the tree being trained or applied.
	TreeKey = "forest.tree"

	// TreesKey is the number of trees in a forest.
	TreesKey = "forest.trees"

	// NodeKey is the implicit heap index of a node inside its tree.
	NodeKey = "forest.node"

	// DepthKey is the depth of a node, or the configured maximum depth.
	DepthKey = "forest.depth"

	// NodeKindKey is "leaf" or "split".
	NodeKindKey = "forest.node_kind"

	// GainKey is the information gain of the winning split.
	GainKey = "forest.gain"

	// ThresholdKey is the threshold of the winning split.
	ThresholdKey = "forest.threshold"

	// LeavesKey is the number of leaves in a trained tree.
	LeavesKey = "forest.leaves"

	// WorkersKey is the size of the parallel trainer's worker pool.
	WorkersKey = "forest.workers"
)

// Data shape.
const (
	// SamplesKey indicates the number of points reaching a node or in a collection.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the dimensionality of the data points.
	FeaturesKey = "data.features"

	// CandidateFeaturesKey is NumberOfCandidateFeatures.
	CandidateFeaturesKey = "params.candidate_features"

	// CandidateThresholdsKey is NumberOfCandidateThresholdsPerFeature.
	CandidateThresholdsKey = "params.candidate_thresholds"
)

// Performance and configuration.
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// PathKey records a file path being read or written.
	PathKey = "io.path"
)

// Standard attribute values.
const (
	OperationFit         = "fit"
	OperationPredict     = "predict"
	OperationApply       = "apply"
	OperationSerialize   = "serialize"
	OperationDeserialize = "deserialize"
)
