package ensemble

import (
	"context"
	"runtime"
	"strings"

	"github.com/YuminosukeSato/decisionforest/core/forest"
	"github.com/YuminosukeSato/decisionforest/core/parallel"
	"github.com/YuminosukeSato/decisionforest/dataset"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
	"github.com/YuminosukeSato/decisionforest/pkg/log"
	"github.com/YuminosukeSato/decisionforest/stats"
)

// SplitKind selects the weak learner family.
type SplitKind string

const (
	// AxisAligned splits on a single coordinate.
	AxisAligned SplitKind = "axis"
	// Linear splits on the projection onto a random direction.
	Linear SplitKind = "linear"
)

// ParseSplitKind parses "axis" or "linear".
func ParseSplitKind(s string) (SplitKind, error) {
	switch k := SplitKind(strings.ToLower(strings.TrimSpace(s))); k {
	case AxisAligned, Linear:
		return k, nil
	default:
		return "", errors.NewValidationError("split", "must be \"axis\" or \"linear\"", s)
	}
}

// LeafModel selects what a regression leaf predicts.
type LeafModel string

const (
	// ConstantLeaf predicts the mean target of the leaf.
	ConstantLeaf LeafModel = "constant"
	// LinearLeaf predicts with a least squares line in the single input
	// coordinate.
	LinearLeaf LeafModel = "linear"
)

// ParseLeafModel parses "constant" or "linear".
func ParseLeafModel(s string) (LeafModel, error) {
	switch m := LeafModel(strings.ToLower(strings.TrimSpace(s))); m {
	case ConstantLeaf, LinearLeaf:
		return m, nil
	default:
		return "", errors.NewValidationError("leaf", "must be \"constant\" or \"linear\"", s)
	}
}

type config struct {
	params   forest.TrainingParameters
	split    SplitKind
	leaf     LeafModel
	parallel bool
	workers  int
	seed     *uint64
	logger   log.Logger
	recorder forest.Recorder
	stop     float64
	prior    stats.Prior
}

// Option configures a forest estimator.
type Option func(*config)

func newConfig(name string, stop float64, prior stats.Prior, opts []Option) *config {
	c := &config{
		params:  forest.DefaultTrainingParameters(),
		split:   AxisAligned,
		leaf:    ConstantLeaf,
		workers: runtime.NumCPU(),
		stop:    stop,
		prior:   prior,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.GetLoggerWithName(name)
	}
	return c
}

// WithParams replaces all training parameters.
func WithParams(p forest.TrainingParameters) Option {
	return func(c *config) { c.params = p }
}

// WithTrees sets the number of trees.
func WithTrees(n int) Option {
	return func(c *config) { c.params.NumberOfTrees = n }
}

// WithMaxDepth sets the maximum number of decision levels.
func WithMaxDepth(d int) Option {
	return func(c *config) { c.params.MaxDecisionLevels = d }
}

// WithCandidateFeatures sets the number of weak learners tried per node.
func WithCandidateFeatures(n int) Option {
	return func(c *config) { c.params.NumberOfCandidateFeatures = n }
}

// WithCandidateThresholds sets the number of thresholds tried per learner.
func WithCandidateThresholds(n int) Option {
	return func(c *config) { c.params.NumberOfCandidateThresholdsPerFeature = n }
}

// WithSplit selects the weak learner family.
func WithSplit(kind SplitKind) Option {
	return func(c *config) { c.split = kind }
}

// WithLeafModel selects the leaf predictor of a regressor. LinearLeaf needs
// one input column.
func WithLeafModel(m LeafModel) Option {
	return func(c *config) { c.leaf = m }
}

// WithParallel trains each tree with a pool of workers. workers < 1 means
// runtime.NumCPU().
func WithParallel(workers int) Option {
	return func(c *config) {
		c.parallel = true
		if workers > 0 {
			c.workers = workers
		}
	}
}

// WithRandomState fixes the random seed so that Fit is reproducible.
func WithRandomState(seed uint64) Option {
	return func(c *config) { c.seed = &seed }
}

// WithLogger sets the logger used for fit and tree progress.
func WithLogger(l log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithRecorder sets a training observer such as telemetry.Recorder.
func WithRecorder(r forest.Recorder) Option {
	return func(c *config) { c.recorder = r }
}

// WithTerminationGain overrides the gain below which nodes become leaves.
func WithTerminationGain(g float64) Option {
	return func(c *config) { c.stop = g }
}

// WithPrior sets the Gaussian prior used by regression and density forests.
func WithPrior(p stats.Prior) Option {
	return func(c *config) { c.prior = p }
}

func (c *config) validate() error {
	if err := c.params.Validate(); err != nil {
		return err
	}
	if c.split != AxisAligned && c.split != Linear {
		return errors.NewValidationError("split", "must be \"axis\" or \"linear\"", c.split)
	}
	if c.leaf != ConstantLeaf && c.leaf != LinearLeaf {
		return errors.NewValidationError("leaf", "must be \"constant\" or \"linear\"", c.leaf)
	}
	return nil
}

func (c *config) trainerOptions() []forest.Option {
	opts := []forest.Option{forest.WithProgress(c.logger), forest.WithWorkers(c.workers)}
	if c.seed != nil {
		opts = append(opts, forest.WithSeed(*c.seed))
	}
	if c.recorder != nil {
		opts = append(opts, forest.WithRecorder(c.recorder))
	}
	return opts
}

func train[F forest.WeakLearner, S forest.Aggregator[S]](c *config, ctx forest.TrainingContext[F, S], data *dataset.Collection) (*forest.Forest[F, S], error) {
	if c.parallel {
		return forest.TrainForestParallel(ctx, c.params, data, c.trainerOptions()...)
	}
	return forest.TrainForest(ctx, c.params, data, c.trainerOptions()...)
}

func apply[F forest.WeakLearner, S forest.Aggregator[S]](c *config, f *forest.Forest[F, S], data *dataset.Collection) ([][]int, error) {
	if c.parallel {
		return f.ApplyParallel(context.Background(), data, c.workers)
	}
	return f.Apply(data)
}

// parallelPredictThreshold is the point count above which per-point
// aggregation of leaf statistics is spread across CPUs.
const parallelPredictThreshold = 2048

func forEachPoint(n int, fn func(start, end int)) {
	parallel.ParallelizeWithThreshold(n, parallelPredictThreshold, fn)
}

type dimensioned interface {
	MinDimensions() int
}

// requiredDimensions returns the smallest point dimension every split node
// of f can read.
func requiredDimensions[F forest.WeakLearner, S forest.Aggregator[S]](f *forest.Forest[F, S]) int {
	dims := 0
	for t := 0; t < f.TreeCount(); t++ {
		tree := f.Tree(t)
		for i := 0; i < tree.NodeCount(); i++ {
			n := tree.Node(i)
			if !n.IsSplit() {
				continue
			}
			if d, ok := any(n.Learner).(dimensioned); ok && d.MinDimensions() > dims {
				dims = d.MinDimensions()
			}
		}
	}
	return dims
}
