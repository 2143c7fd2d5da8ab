package ensemble

import (
	"io"
	"math"
	"time"

	"github.com/goccy/go-graphviz"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/YuminosukeSato/decisionforest/core/forest"
	"github.com/YuminosukeSato/decisionforest/core/model"
	"github.com/YuminosukeSato/decisionforest/dataset"
	"github.com/YuminosukeSato/decisionforest/features"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
	"github.com/YuminosukeSato/decisionforest/pkg/log"
	"github.com/YuminosukeSato/decisionforest/stats"
)

type densityForest interface {
	fit(c *config, data *dataset.Collection) error
	logProbability(c *config, data *dataset.Collection) ([]float64, error)
	save(path string) error
	load(path string) (dims int, err error)
	treeCount() int
	draw(tree int, format graphviz.Format, w io.Writer) error
	get() any
}

type densityModel[F forest.WeakLearner] struct {
	kind   learnerKind[F]
	forest *forest.Forest[F, *stats.Gaussian]
}

func newDensityForest(kind SplitKind) densityForest {
	if kind == Linear {
		return &densityModel[features.Linear]{kind: linearKind}
	}
	return &densityModel[features.AxisAligned]{kind: axisKind}
}

func (m *densityModel[F]) fit(c *config, data *dataset.Collection) error {
	ctx := NewDensityContext(m.kind.factory(data.Dimensions()), data.Dimensions())
	ctx.Prior = c.prior
	ctx.StopBelow = c.stop
	f, err := train[F, *stats.Gaussian](c, ctx, data)
	if err != nil {
		return err
	}
	m.forest = f
	return nil
}

// leafTerm is the contribution of one leaf: its Gaussian and the log of
// n_leaf/n_root divided by the Gaussian mass inside the leaf's cell.
type leafTerm struct {
	normal    *distmv.Normal
	logWeight float64
}

// cellBounds returns the axis-aligned cell lower <= x < upper reached by node
// index. ok is false when a split on the path is not axis-aligned.
func cellBounds[F forest.WeakLearner](tree *forest.Tree[F, *stats.Gaussian], index, dims int) (lower, upper []float64, ok bool) {
	lower = make([]float64, dims)
	upper = make([]float64, dims)
	for i := range lower {
		lower[i], upper[i] = math.Inf(-1), math.Inf(1)
	}
	for j := index; j > 0; {
		p := (j - 1) / 2
		node := tree.Node(p)
		learner, isAxis := any(node.Learner).(features.AxisAligned)
		if !isAxis || learner.Axis < 0 || learner.Axis >= dims {
			return nil, nil, false
		}
		a := learner.Axis
		if j == 2*p+1 {
			upper[a] = math.Min(upper[a], node.Threshold)
		} else {
			lower[a] = math.Max(lower[a], node.Threshold)
		}
		j = p
	}
	return lower, upper, true
}

func (m *densityModel[F]) termFor(tree *forest.Tree[F, *stats.Gaussian], leaf int) (leafTerm, error) {
	g := tree.Node(leaf).Statistics
	normal, err := g.Normal()
	if err != nil {
		return leafTerm{}, err
	}
	logWeight := math.Log(float64(g.SampleCount) / float64(tree.Node(0).Statistics.SampleCount))
	lower, upper, ok := cellBounds(tree, leaf, g.Dimensions())
	if !ok {
		return leafTerm{normal: normal, logWeight: logWeight}, nil
	}
	mass, err := g.Mass(lower, upper)
	if err != nil {
		return leafTerm{}, err
	}
	if mass <= 0 {
		return leafTerm{}, errors.NewNumericalInstabilityError("DensityForest.LogProbability", []float64{mass}, leaf)
	}
	return leafTerm{normal: normal, logWeight: logWeight - math.Log(mass)}, nil
}

// logProbability returns log((1/T) * sum_t w_t * N(x; leaf_t)) where w_t is
// n_leaf/n_root over the leaf Gaussian's mass inside the leaf's cell, so each
// tree integrates to one. Trees with linear splits skip the cell term.
// Empty leaves carry no mass.
func (m *densityModel[F]) logProbability(c *config, data *dataset.Collection) ([]float64, error) {
	leaves, err := apply(c, m.forest, data)
	if err != nil {
		return nil, err
	}
	trees := m.forest.TreeCount()
	terms := make([]map[int]leafTerm, trees)
	for t := range terms {
		terms[t] = make(map[int]leafTerm)
		tree := m.forest.Tree(t)
		if tree.Node(0).Statistics.SampleCount == 0 {
			continue
		}
		for _, leaf := range leaves[t] {
			if _, ok := terms[t][leaf]; ok || tree.Node(leaf).Statistics.SampleCount == 0 {
				continue
			}
			if terms[t][leaf], err = m.termFor(tree, leaf); err != nil {
				return nil, err
			}
		}
	}

	out := make([]float64, data.Count())
	forEachPoint(len(out), func(start, end int) {
		logs := make([]float64, 0, trees)
		for i := start; i < end; i++ {
			logs = logs[:0]
			x := data.Point(i)
			for t := 0; t < trees; t++ {
				term, ok := terms[t][leaves[t][i]]
				if !ok {
					continue
				}
				logs = append(logs, term.logWeight+term.normal.LogProb(x))
			}
			if len(logs) == 0 {
				out[i] = math.Inf(-1)
				continue
			}
			out[i] = floats.LogSumExp(logs) - math.Log(float64(trees))
		}
	})
	return out, nil
}

func (m *densityModel[F]) save(path string) error { return model.SaveForest(m.forest, path) }

func (m *densityModel[F]) load(path string) (int, error) {
	f, err := model.LoadForest(path, forest.Codec[F, *stats.Gaussian]{
		Learner:    m.kind.decode,
		Statistics: stats.DecodeGaussian,
	})
	if err != nil {
		return 0, err
	}
	if f.TreeCount() == 0 || f.Tree(0).Node(0).IsNull() {
		return 0, errors.NewValueError("DensityForest.Load", "forest has no trained trees")
	}
	m.forest = f
	return f.Tree(0).Node(0).Statistics.Dimensions(), nil
}

func (m *densityModel[F]) treeCount() int {
	if m.forest == nil {
		return 0
	}
	return m.forest.TreeCount()
}

func (m *densityModel[F]) draw(tree int, format graphviz.Format, w io.Writer) error {
	return drawTree(m.forest, tree, format, w)
}

func (m *densityModel[F]) get() any {
	if m.forest == nil {
		return nil
	}
	return m.forest
}

// DensityForest estimates a probability density from unlabelled points.
// Each leaf holds a Gaussian fitted to the points that reached it.
type DensityForest struct {
	state *model.StateManager
	cfg   *config
	model densityForest
}

// NewDensityForest creates a density forest.
func NewDensityForest(opts ...Option) *DensityForest {
	cfg := newConfig("DensityForest", DefaultDensityStop, stats.DefaultPrior, opts)
	return &DensityForest{
		state: model.NewStateManager(),
		cfg:   cfg,
		model: newDensityForest(cfg.split),
	}
}

// Fit trains the forest on the rows of X.
func (df *DensityForest) Fit(X mat.Matrix) (err error) {
	defer errors.Recover(&err, "DensityForest.Fit")
	if err := df.cfg.validate(); err != nil {
		return err
	}
	data, err := toCollection("DensityForest.Fit", X)
	if err != nil {
		return err
	}

	start := time.Now()
	df.state.Reset()
	if err := df.model.fit(df.cfg, data); err != nil {
		return errors.NewModelError("DensityForest.Fit", "training", err)
	}
	df.state.SetFitted(data.Dimensions(), data.Count())

	df.cfg.logger.Info("Fitted density forest",
		log.SamplesKey, data.Count(),
		log.FeaturesKey, data.Dimensions(),
		log.TreesKey, df.model.treeCount(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// LogProbability returns the log density of each row of X.
func (df *DensityForest) LogProbability(X mat.Matrix) (out []float64, err error) {
	defer errors.Recover(&err, "DensityForest.LogProbability")
	if err := df.state.RequireFitted("DensityForest", "LogProbability"); err != nil {
		return nil, err
	}
	data, err := toCollection("DensityForest.LogProbability", X)
	if err != nil {
		return nil, err
	}
	if err := df.state.RequireFeatures("DensityForest.LogProbability", data.Dimensions()); err != nil {
		return nil, err
	}
	return df.model.logProbability(df.cfg, data)
}

// Forest returns the trained *forest.Forest, or nil before Fit.
func (df *DensityForest) Forest() any { return df.model.get() }

// DrawTree renders tree number i of the forest to w as a graphviz graph.
func (df *DensityForest) DrawTree(i int, format graphviz.Format, w io.Writer) error {
	if err := df.state.RequireFitted("DensityForest", "DrawTree"); err != nil {
		return err
	}
	return df.model.draw(i, format, w)
}

// Save writes the forest in the binary forest format.
func (df *DensityForest) Save(path string) error {
	if err := df.state.RequireFitted("DensityForest", "Save"); err != nil {
		return err
	}
	return df.model.save(path)
}

// Load reads a forest written by Save.
func (df *DensityForest) Load(path string) error {
	dims, err := df.model.load(path)
	if err != nil {
		return err
	}
	df.state.SetFitted(dims, 0)
	return nil
}
