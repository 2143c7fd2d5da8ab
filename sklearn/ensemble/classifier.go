package ensemble

import (
	"io"
	"time"

	"github.com/goccy/go-graphviz"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionforest/core/forest"
	"github.com/YuminosukeSato/decisionforest/core/model"
	"github.com/YuminosukeSato/decisionforest/dataset"
	"github.com/YuminosukeSato/decisionforest/features"
	"github.com/YuminosukeSato/decisionforest/metrics"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
	"github.com/YuminosukeSato/decisionforest/pkg/log"
	"github.com/YuminosukeSato/decisionforest/stats"
)

// classifierForest hides the weak learner type behind the estimator.
type classifierForest interface {
	fit(c *config, data *dataset.Collection, classes int) error
	proba(c *config, data *dataset.Collection, classes int) (*mat.Dense, error)
	save(path string) error
	load(path string) (classes, dims int, err error)
	treeCount() int
	draw(tree int, format graphviz.Format, w io.Writer) error
	get() any
}

type classifierModel[F forest.WeakLearner] struct {
	kind   learnerKind[F]
	forest *forest.Forest[F, *stats.Histogram]
}

func newClassifierForest(kind SplitKind) classifierForest {
	if kind == Linear {
		return &classifierModel[features.Linear]{kind: linearKind}
	}
	return &classifierModel[features.AxisAligned]{kind: axisKind}
}

func (m *classifierModel[F]) codec() forest.Codec[F, *stats.Histogram] {
	return forest.Codec[F, *stats.Histogram]{Learner: m.kind.decode, Statistics: stats.DecodeHistogram}
}

func (m *classifierModel[F]) fit(c *config, data *dataset.Collection, classes int) error {
	ctx := NewClassificationContext(m.kind.factory(data.Dimensions()), classes)
	ctx.StopBelow = c.stop
	f, err := train[F, *stats.Histogram](c, ctx, data)
	if err != nil {
		return err
	}
	m.forest = f
	return nil
}

func (m *classifierModel[F]) proba(c *config, data *dataset.Collection, classes int) (*mat.Dense, error) {
	leaves, err := apply(c, m.forest, data)
	if err != nil {
		return nil, err
	}
	n := data.Count()
	out := mat.NewDense(n, classes, nil)
	forEachPoint(n, func(start, end int) {
		row := make([]float64, classes)
		for i := start; i < end; i++ {
			clear(row)
			contributing := 0
			for t, tree := range leaves {
				h := m.forest.Tree(t).Node(tree[i]).Statistics
				if h.SampleCount == 0 {
					continue
				}
				contributing++
				for k := range row {
					row[k] += h.Probability(k)
				}
			}
			for k := range row {
				if contributing == 0 {
					row[k] = 1 / float64(classes)
				} else {
					row[k] /= float64(contributing)
				}
			}
			out.SetRow(i, row)
		}
	})
	return out, nil
}

func (m *classifierModel[F]) save(path string) error {
	return model.SaveForest(m.forest, path)
}

func (m *classifierModel[F]) load(path string) (int, int, error) {
	f, err := model.LoadForest(path, m.codec())
	if err != nil {
		return 0, 0, err
	}
	if f.TreeCount() == 0 || f.Tree(0).Node(0).IsNull() {
		return 0, 0, errors.NewValueError("RandomForestClassifier.Load", "forest has no trained trees")
	}
	m.forest = f
	return len(f.Tree(0).Node(0).Statistics.Bins), requiredDimensions(f), nil
}

func (m *classifierModel[F]) treeCount() int {
	if m.forest == nil {
		return 0
	}
	return m.forest.TreeCount()
}

func (m *classifierModel[F]) draw(tree int, format graphviz.Format, w io.Writer) error {
	return drawTree(m.forest, tree, format, w)
}

func (m *classifierModel[F]) get() any {
	if m.forest == nil {
		return nil
	}
	return m.forest
}

// RandomForestClassifier is a decision forest over class histograms.
// Labels are non-negative integers stored as float64; dataset.UnknownLabel
// rows are routed during training but not counted.
type RandomForestClassifier struct {
	state  *model.StateManager
	cfg    *config
	model  classifierForest
	nClass int
	loaded bool
}

// NewRandomForestClassifier creates a classifier. Without options it grows
// 10 axis-aligned trees of depth 10.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	cfg := newConfig("RandomForestClassifier", DefaultClassificationStop, stats.DefaultPrior, opts)
	return &RandomForestClassifier{
		state: model.NewStateManager(),
		cfg:   cfg,
		model: newClassifierForest(cfg.split),
	}
}

// Fit trains the forest on X and labels y.
func (rf *RandomForestClassifier) Fit(X mat.Matrix, y []float64) (err error) {
	defer errors.Recover(&err, "RandomForestClassifier.Fit")
	if err := rf.cfg.validate(); err != nil {
		return err
	}
	data, err := toCollection("RandomForestClassifier.Fit", X)
	if err != nil {
		return err
	}
	labels, classes, err := classLabels("RandomForestClassifier.Fit", y, data.Count())
	if err != nil {
		return err
	}
	if classes == 0 {
		return errors.NewValueError("RandomForestClassifier.Fit", "y has no labelled rows")
	}
	if data, err = data.WithLabels(labels); err != nil {
		return err
	}

	start := time.Now()
	rf.state.Reset()
	if err := rf.model.fit(rf.cfg, data, classes); err != nil {
		return errors.NewModelError("RandomForestClassifier.Fit", "training", err)
	}
	rf.nClass = classes
	rf.loaded = false
	rf.state.SetFitted(data.Dimensions(), data.Count())

	rf.cfg.logger.Info("Fitted classifier",
		log.SamplesKey, data.Count(),
		log.FeaturesKey, data.Dimensions(),
		log.TreesKey, rf.model.treeCount(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// PredictProba returns an n x classes matrix of class probabilities, the
// average of the leaf distributions reached in each tree.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (proba *mat.Dense, err error) {
	defer errors.Recover(&err, "RandomForestClassifier.PredictProba")
	if err := rf.state.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	data, err := toCollection("RandomForestClassifier.PredictProba", X)
	if err != nil {
		return nil, err
	}
	nFeatures, _ := rf.state.Dimensions()
	if err := checkColumns("RandomForestClassifier.PredictProba", data.Dimensions(), nFeatures, rf.loaded); err != nil {
		return nil, err
	}
	return rf.model.proba(rf.cfg, data, rf.nClass)
}

// Predict returns the most probable class of each row; the lowest class
// wins ties.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) ([]float64, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, _ := proba.Dims()
	out := make([]float64, rows)
	for i := range out {
		best := 0
		for k, p := range proba.RawRowView(i) {
			if p > proba.At(i, best) {
				best = k
			}
		}
		out[i] = float64(best)
	}
	return out, nil
}

// Score returns the accuracy of Predict(X) against the labelled rows of y.
func (rf *RandomForestClassifier) Score(X mat.Matrix, y []float64) (float64, error) {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	yTrue, _, err := classLabels("RandomForestClassifier.Score", y, len(pred))
	if err != nil {
		return 0, err
	}
	labelled := yTrue[:0]
	yPred := make([]int, 0, len(pred))
	for i, label := range yTrue {
		if label == dataset.UnknownLabel {
			continue
		}
		labelled = append(labelled, label)
		yPred = append(yPred, int(pred[i]))
	}
	return metrics.Accuracy(labelled, yPred)
}

// NClasses returns the number of classes seen during fitting.
func (rf *RandomForestClassifier) NClasses() int { return rf.nClass }

// Forest returns the trained forest, a *forest.Forest of
// features.AxisAligned or features.Linear learners over *stats.Histogram
// depending on the split kind, or nil before Fit.
func (rf *RandomForestClassifier) Forest() any { return rf.model.get() }

// DrawTree renders tree number i of the forest to w as a graphviz graph.
func (rf *RandomForestClassifier) DrawTree(i int, format graphviz.Format, w io.Writer) error {
	if err := rf.state.RequireFitted("RandomForestClassifier", "DrawTree"); err != nil {
		return err
	}
	return rf.model.draw(i, format, w)
}

// Save writes the forest in the binary forest format.
func (rf *RandomForestClassifier) Save(path string) error {
	if err := rf.state.RequireFitted("RandomForestClassifier", "Save"); err != nil {
		return err
	}
	return rf.model.save(path)
}

// Load reads a forest written by Save. The classifier must be configured
// with the split kind the forest was trained with.
func (rf *RandomForestClassifier) Load(path string) error {
	classes, dims, err := rf.model.load(path)
	if err != nil {
		return err
	}
	rf.nClass = classes
	rf.loaded = true
	rf.state.SetFitted(dims, 0)
	return nil
}
