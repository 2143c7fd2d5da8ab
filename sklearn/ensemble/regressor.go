package ensemble

import (
	"io"
	"time"

	"github.com/goccy/go-graphviz"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionforest/core/forest"
	"github.com/YuminosukeSato/decisionforest/core/model"
	"github.com/YuminosukeSato/decisionforest/dataset"
	"github.com/YuminosukeSato/decisionforest/metrics"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
	"github.com/YuminosukeSato/decisionforest/pkg/log"
	"github.com/YuminosukeSato/decisionforest/stats"
)

type regressorForest interface {
	fit(c *config, data *dataset.Collection) error
	estimate(c *config, data *dataset.Collection) ([]float64, error)
	save(path string) error
	load(path string) (dims int, err error)
	treeCount() int
	draw(tree int, format graphviz.Format, w io.Writer) error
	get() any
}

// regressorModel is generic over the leaf statistics: constant leaves hold
// target Gaussians and linear leaves hold line fits.
type regressorModel[F forest.WeakLearner, S forest.Aggregator[S]] struct {
	kind    learnerKind[F]
	context func(c *config, dims int) forest.TrainingContext[F, S]
	decode  func(data []byte) (S, error)
	count   func(s S) int
	predict func(s S, point []float64) float64
	forest  *forest.Forest[F, S]
}

func newRegressorForest(kind SplitKind, leaf LeafModel) regressorForest {
	switch {
	case kind == Linear && leaf == LinearLeaf:
		return newLinearFitModel(linearKind)
	case leaf == LinearLeaf:
		return newLinearFitModel(axisKind)
	case kind == Linear:
		return newGaussianModel(linearKind)
	default:
		return newGaussianModel(axisKind)
	}
}

func newGaussianModel[F forest.WeakLearner](kind learnerKind[F]) *regressorModel[F, *stats.TargetGaussian] {
	return &regressorModel[F, *stats.TargetGaussian]{
		kind: kind,
		context: func(c *config, dims int) forest.TrainingContext[F, *stats.TargetGaussian] {
			ctx := NewRegressionContext(kind.factory(dims))
			ctx.Prior = c.prior
			ctx.StopBelow = c.stop
			return ctx
		},
		decode:  stats.DecodeTargetGaussian,
		count:   (*stats.TargetGaussian).Count,
		predict: func(g *stats.TargetGaussian, _ []float64) float64 { return g.Mean() },
	}
}

func newLinearFitModel[F forest.WeakLearner](kind learnerKind[F]) *regressorModel[F, *stats.LinearFit] {
	return &regressorModel[F, *stats.LinearFit]{
		kind: kind,
		context: func(c *config, dims int) forest.TrainingContext[F, *stats.LinearFit] {
			ctx := NewLinearFitContext(kind.factory(dims))
			ctx.Prior = c.prior
			ctx.StopBelow = c.stop
			return ctx
		},
		decode:  stats.DecodeLinearFit,
		count:   (*stats.LinearFit).Count,
		predict: func(l *stats.LinearFit, point []float64) float64 { return l.MeanAt(point[0]) },
	}
}

func (m *regressorModel[F, S]) fit(c *config, data *dataset.Collection) error {
	f, err := train[F, S](c, m.context(c, data.Dimensions()), data)
	if err != nil {
		return err
	}
	m.forest = f
	return nil
}

// estimate averages the leaf predictions of the non-empty leaves reached in
// each tree. A point reaching only empty leaves gets the prediction of the
// first root.
func (m *regressorModel[F, S]) estimate(c *config, data *dataset.Collection) ([]float64, error) {
	leaves, err := apply(c, m.forest, data)
	if err != nil {
		return nil, err
	}
	out := make([]float64, data.Count())
	root := m.forest.Tree(0).Node(0).Statistics
	forEachPoint(len(out), func(start, end int) {
		for i := start; i < end; i++ {
			point := data.Point(i)
			sum, contributing := 0.0, 0
			for t, tree := range leaves {
				s := m.forest.Tree(t).Node(tree[i]).Statistics
				if m.count(s) == 0 {
					continue
				}
				sum += m.predict(s, point)
				contributing++
			}
			if contributing == 0 {
				out[i] = m.predict(root, point)
				continue
			}
			out[i] = sum / float64(contributing)
		}
	})
	return out, nil
}

func (m *regressorModel[F, S]) save(path string) error { return model.SaveForest(m.forest, path) }

func (m *regressorModel[F, S]) load(path string) (int, error) {
	f, err := model.LoadForest(path, forest.Codec[F, S]{Learner: m.kind.decode, Statistics: m.decode})
	if err != nil {
		return 0, err
	}
	if f.TreeCount() == 0 || f.Tree(0).Node(0).IsNull() {
		return 0, errors.NewValueError("RandomForestRegressor.Load", "forest has no trained trees")
	}
	m.forest = f
	return max(requiredDimensions(f), 1), nil
}

func (m *regressorModel[F, S]) treeCount() int {
	if m.forest == nil {
		return 0
	}
	return m.forest.TreeCount()
}

func (m *regressorModel[F, S]) draw(tree int, format graphviz.Format, w io.Writer) error {
	return drawTree(m.forest, tree, format, w)
}

func (m *regressorModel[F, S]) get() any {
	if m.forest == nil {
		return nil
	}
	return m.forest
}

// RandomForestRegressor is a decision forest whose leaves predict the mean
// target or, with LinearLeaf, a line through the leaf's targets.
type RandomForestRegressor struct {
	state  *model.StateManager
	cfg    *config
	model  regressorForest
	loaded bool
}

// NewRandomForestRegressor creates a regressor.
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	cfg := newConfig("RandomForestRegressor", DefaultRegressionStop, stats.TargetPrior, opts)
	return &RandomForestRegressor{
		state: model.NewStateManager(),
		cfg:   cfg,
		model: newRegressorForest(cfg.split, cfg.leaf),
	}
}

// Fit trains the forest on X and targets y.
func (rf *RandomForestRegressor) Fit(X mat.Matrix, y []float64) (err error) {
	defer errors.Recover(&err, "RandomForestRegressor.Fit")
	if err := rf.cfg.validate(); err != nil {
		return err
	}
	data, err := toCollection("RandomForestRegressor.Fit", X)
	if err != nil {
		return err
	}
	if len(y) != data.Count() {
		return errors.NewDimensionError("RandomForestRegressor.Fit", data.Count(), len(y), 0)
	}
	if rf.cfg.leaf == LinearLeaf && data.Dimensions() != 1 {
		return errors.NewValidationError("leaf", "linear leaves need exactly one input column", data.Dimensions())
	}
	if err := errors.CheckNumericalStability("RandomForestRegressor.Fit", y, 0); err != nil {
		return err
	}
	if data, err = data.WithTargets(y); err != nil {
		return err
	}

	start := time.Now()
	rf.state.Reset()
	if err := rf.model.fit(rf.cfg, data); err != nil {
		return errors.NewModelError("RandomForestRegressor.Fit", "training", err)
	}
	rf.loaded = false
	rf.state.SetFitted(data.Dimensions(), data.Count())

	rf.cfg.logger.Info("Fitted regressor",
		log.SamplesKey, data.Count(),
		log.FeaturesKey, data.Dimensions(),
		log.TreesKey, rf.model.treeCount(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict returns the forest estimate of the target for each row.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (out []float64, err error) {
	defer errors.Recover(&err, "RandomForestRegressor.Predict")
	if err := rf.state.RequireFitted("RandomForestRegressor", "Predict"); err != nil {
		return nil, err
	}
	data, err := toCollection("RandomForestRegressor.Predict", X)
	if err != nil {
		return nil, err
	}
	nFeatures, _ := rf.state.Dimensions()
	if err := checkColumns("RandomForestRegressor.Predict", data.Dimensions(), nFeatures, rf.loaded); err != nil {
		return nil, err
	}
	return rf.model.estimate(rf.cfg, data)
}

// Score returns the coefficient of determination of Predict(X) against y.
func (rf *RandomForestRegressor) Score(X mat.Matrix, y []float64) (float64, error) {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2Score(y, pred)
}

// Forest returns the trained *forest.Forest, or nil before Fit.
func (rf *RandomForestRegressor) Forest() any { return rf.model.get() }

// DrawTree renders tree number i of the forest to w as a graphviz graph.
func (rf *RandomForestRegressor) DrawTree(i int, format graphviz.Format, w io.Writer) error {
	if err := rf.state.RequireFitted("RandomForestRegressor", "DrawTree"); err != nil {
		return err
	}
	return rf.model.draw(i, format, w)
}

// Save writes the forest in the binary forest format.
func (rf *RandomForestRegressor) Save(path string) error {
	if err := rf.state.RequireFitted("RandomForestRegressor", "Save"); err != nil {
		return err
	}
	return rf.model.save(path)
}

// Load reads a forest written by Save.
func (rf *RandomForestRegressor) Load(path string) error {
	dims, err := rf.model.load(path)
	if err != nil {
		return err
	}
	rf.loaded = true
	rf.state.SetFitted(dims, 0)
	return nil
}
