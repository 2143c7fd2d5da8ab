package ensemble

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/decisionforest/core/forest"
	"github.com/YuminosukeSato/decisionforest/stats"
)

// Default termination gains. A node whose best split gains less than the
// threshold becomes a leaf.
const (
	DefaultClassificationStop = 0.01
	DefaultRegressionStop     = 0.05
	DefaultDensityStop        = 0.25
)

// LearnerFactory draws random weak learners. features.AxisAlignedFactory and
// features.LinearFactory implement it.
type LearnerFactory[F forest.WeakLearner] interface {
	Random(rng *rand.Rand) F
}

// ClassificationContext grows trees whose nodes hold class histograms.
// The information gain is the reduction in Shannon entropy.
type ClassificationContext[F forest.WeakLearner] struct {
	Factory   LearnerFactory[F]
	Classes   int
	StopBelow float64
}

// NewClassificationContext returns a context over classes classes using the
// default termination gain.
func NewClassificationContext[F forest.WeakLearner](factory LearnerFactory[F], classes int) *ClassificationContext[F] {
	return &ClassificationContext[F]{Factory: factory, Classes: classes, StopBelow: DefaultClassificationStop}
}

func (c *ClassificationContext[F]) RandomLearner(rng *rand.Rand) F { return c.Factory.Random(rng) }

func (c *ClassificationContext[F]) NewAggregator() *stats.Histogram {
	return stats.NewHistogram(c.Classes)
}

// InformationGain returns H(parent) minus the count-weighted entropies of
// the children, or 0 when the parent has at most one sample.
func (c *ClassificationContext[F]) InformationGain(parent, left, right *stats.Histogram) float64 {
	if parent.SampleCount <= 1 {
		return 0
	}
	n := float64(left.SampleCount + right.SampleCount)
	if n == 0 {
		return 0
	}
	after := (float64(left.SampleCount)*left.Entropy() + float64(right.SampleCount)*right.Entropy()) / n
	return parent.Entropy() - after
}

func (c *ClassificationContext[F]) ShouldTerminate(_, _, _ *stats.Histogram, gain float64) bool {
	return gain < c.StopBelow
}

// targetStatistics is implemented by the regression aggregators.
type targetStatistics interface {
	Count() int
	Entropy() float64
}

// entropyGain returns the parent entropy minus the count-weighted entropies
// of the children, or 0 when the parent has at most one sample.
func entropyGain[S targetStatistics](parent, left, right S) float64 {
	if parent.Count() <= 1 {
		return 0
	}
	n := float64(left.Count() + right.Count())
	if n == 0 {
		return 0
	}
	after := (float64(left.Count())*left.Entropy() + float64(right.Count())*right.Entropy()) / n
	return parent.Entropy() - after
}

// RegressionContext grows trees whose nodes hold target Gaussians, so each
// leaf predicts a constant.
type RegressionContext[F forest.WeakLearner] struct {
	Factory   LearnerFactory[F]
	Prior     stats.Prior
	StopBelow float64
}

// NewRegressionContext returns a regression context with the default target
// prior and termination gain.
func NewRegressionContext[F forest.WeakLearner](factory LearnerFactory[F]) *RegressionContext[F] {
	return &RegressionContext[F]{Factory: factory, Prior: stats.TargetPrior, StopBelow: DefaultRegressionStop}
}

func (c *RegressionContext[F]) RandomLearner(rng *rand.Rand) F { return c.Factory.Random(rng) }

func (c *RegressionContext[F]) NewAggregator() *stats.TargetGaussian {
	return stats.NewTargetGaussian(c.Prior)
}

// InformationGain returns the reduction in differential entropy of the
// target distribution.
func (c *RegressionContext[F]) InformationGain(parent, left, right *stats.TargetGaussian) float64 {
	return entropyGain(parent, left, right)
}

func (c *RegressionContext[F]) ShouldTerminate(_, _, _ *stats.TargetGaussian, gain float64) bool {
	return gain < c.StopBelow
}

// LinearFitContext grows regression trees whose nodes fit a line to the
// target against the first input coordinate. The gain is the reduction in
// entropy of the residuals around the lines.
type LinearFitContext[F forest.WeakLearner] struct {
	Factory   LearnerFactory[F]
	Prior     stats.Prior
	StopBelow float64
}

// NewLinearFitContext returns a line fitting context with the default
// target prior and termination gain.
func NewLinearFitContext[F forest.WeakLearner](factory LearnerFactory[F]) *LinearFitContext[F] {
	return &LinearFitContext[F]{Factory: factory, Prior: stats.TargetPrior, StopBelow: DefaultRegressionStop}
}

func (c *LinearFitContext[F]) RandomLearner(rng *rand.Rand) F { return c.Factory.Random(rng) }

func (c *LinearFitContext[F]) NewAggregator() *stats.LinearFit { return stats.NewLinearFit(c.Prior) }

func (c *LinearFitContext[F]) InformationGain(parent, left, right *stats.LinearFit) float64 {
	return entropyGain(parent, left, right)
}

func (c *LinearFitContext[F]) ShouldTerminate(_, _, _ *stats.LinearFit, gain float64) bool {
	return gain < c.StopBelow
}

// DensityContext grows trees whose nodes hold d-dimensional Gaussians over
// the points themselves.
type DensityContext[F forest.WeakLearner] struct {
	Factory    LearnerFactory[F]
	Dimensions int
	Prior      stats.Prior
	StopBelow  float64
}

// NewDensityContext returns a density context for dims-dimensional points.
func NewDensityContext[F forest.WeakLearner](factory LearnerFactory[F], dims int) *DensityContext[F] {
	return &DensityContext[F]{Factory: factory, Dimensions: dims, Prior: stats.DefaultPrior, StopBelow: DefaultDensityStop}
}

func (c *DensityContext[F]) RandomLearner(rng *rand.Rand) F { return c.Factory.Random(rng) }

func (c *DensityContext[F]) NewAggregator() *stats.Gaussian {
	return stats.NewGaussian(c.Dimensions, c.Prior)
}

// InformationGain returns the reduction in differential entropy of the
// fitted Gaussians. Children with no samples do not contribute.
func (c *DensityContext[F]) InformationGain(parent, left, right *stats.Gaussian) float64 {
	if parent.SampleCount <= 1 {
		return 0
	}
	n := float64(left.SampleCount + right.SampleCount)
	if n == 0 {
		return 0
	}
	after := 0.0
	if left.SampleCount > 0 {
		after += float64(left.SampleCount) * left.Entropy()
	}
	if right.SampleCount > 0 {
		after += float64(right.SampleCount) * right.Entropy()
	}
	return parent.Entropy() - after/n
}

func (c *DensityContext[F]) ShouldTerminate(_, _, _ *stats.Gaussian, gain float64) bool {
	return gain < c.StopBelow
}
