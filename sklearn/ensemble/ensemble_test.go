package ensemble

import (
	"bytes"
	"math"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/goccy/go-graphviz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionforest/core/forest"
	"github.com/YuminosukeSato/decisionforest/dataset"
	"github.com/YuminosukeSato/decisionforest/features"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
	"github.com/YuminosukeSato/decisionforest/pkg/log"
	"github.com/YuminosukeSato/decisionforest/stats"
)

// blobs returns n points around (2,2) labelled 0 and n around (8,8)
// labelled 1.
func blobs(n int, seed uint64) (*mat.Dense, []float64) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(2*n, 2, nil)
	y := make([]float64, 2*n)
	for i := 0; i < 2*n; i++ {
		center := 2.0
		if i >= n {
			center = 8
			y[i] = 1
		}
		X.Set(i, 0, center+rng.NormFloat64()*0.5)
		X.Set(i, 1, center+rng.NormFloat64()*0.5)
	}
	return X, y
}

func histogram(bins ...int) *stats.Histogram {
	h := stats.NewHistogram(len(bins))
	for i, c := range bins {
		h.Bins[i] = c
		h.SampleCount += c
	}
	return h
}

func TestClassificationContextGain(t *testing.T) {
	ctx := NewClassificationContext[features.AxisAligned](features.AxisAlignedFactory{Dimensions: 2}, 2)

	tests := []struct {
		name                string
		parent, left, right *stats.Histogram
		want                float64
	}{
		{"perfect split", histogram(2, 2), histogram(2, 0), histogram(0, 2), 1},
		{"useless split", histogram(2, 2), histogram(1, 1), histogram(1, 1), 0},
		{"single sample", histogram(1, 0), histogram(1, 0), histogram(0, 0), 0},
		{"empty parent", histogram(0, 0), histogram(0, 0), histogram(0, 0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ctx.InformationGain(tt.parent, tt.left, tt.right), 1e-12)
		})
	}

	assert.True(t, ctx.ShouldTerminate(nil, nil, nil, 0.005))
	assert.False(t, ctx.ShouldTerminate(nil, nil, nil, 0.5))
	assert.Len(t, ctx.NewAggregator().Bins, 2)
}

func TestRegressionContextGain(t *testing.T) {
	ctx := NewRegressionContext[features.AxisAligned](features.AxisAlignedFactory{Dimensions: 1})
	ctx.Prior = stats.Prior{A: 0.001, B: 1e-6}

	left := stats.NewTargetGaussian(ctx.Prior)
	left.SampleCount, left.Sum, left.SumSquares = 3, 3.3, 3.65
	right := stats.NewTargetGaussian(ctx.Prior)
	right.SampleCount, right.Sum, right.SumSquares = 3, 30.3, 306.05
	parent := left.Clone()
	parent.Merge(right)

	assert.Greater(t, ctx.InformationGain(parent, left, right), DefaultRegressionStop)
	assert.Zero(t, ctx.InformationGain(stats.NewTargetGaussian(ctx.Prior), left, right))
}

func TestDensityContextGainSeparatesClusters(t *testing.T) {
	ctx := NewDensityContext[features.AxisAligned](features.AxisAlignedFactory{Dimensions: 2}, 2)
	X, _ := blobs(20, 3)
	data, err := toCollection("test", X)
	require.NoError(t, err)

	parent, left, right := ctx.NewAggregator(), ctx.NewAggregator(), ctx.NewAggregator()
	for i := 0; i < data.Count(); i++ {
		parent.Aggregate(data, i)
		if i < 20 {
			left.Aggregate(data, i)
		} else {
			right.Aggregate(data, i)
		}
	}
	gain := ctx.InformationGain(parent, left, right)
	assert.Greater(t, gain, DefaultDensityStop)
	assert.False(t, math.IsNaN(gain))
}

func TestParseSplitKind(t *testing.T) {
	k, err := ParseSplitKind(" Linear ")
	require.NoError(t, err)
	assert.Equal(t, Linear, k)

	_, err = ParseSplitKind("oblique")
	var validation *errors.ValidationError
	assert.True(t, errors.As(err, &validation))
}

func TestRandomForestClassifier(t *testing.T) {
	X, y := blobs(40, 1)
	test, yTest := blobs(20, 2)

	for _, split := range []SplitKind{AxisAligned, Linear} {
		t.Run(string(split), func(t *testing.T) {
			clf := NewRandomForestClassifier(
				WithTrees(5), WithMaxDepth(4), WithSplit(split),
				WithRandomState(7), WithLogger(log.NopLogger{}),
			)
			require.NoError(t, clf.Fit(X, y))
			assert.Equal(t, 2, clf.NClasses())
			assert.NotNil(t, clf.Forest())

			proba, err := clf.PredictProba(test)
			require.NoError(t, err)
			rows, cols := proba.Dims()
			require.Equal(t, 40, rows)
			require.Equal(t, 2, cols)
			for i := 0; i < rows; i++ {
				assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-9)
			}

			score, err := clf.Score(test, yTest)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, score, 0.95)
		})
	}
}

func TestRandomForestClassifierDeterministic(t *testing.T) {
	X, y := blobs(30, 4)
	fit := func(opts ...Option) []float64 {
		clf := NewRandomForestClassifier(append(opts, WithTrees(3), WithRandomState(11), WithLogger(log.NopLogger{}))...)
		require.NoError(t, clf.Fit(X, y))
		proba, err := clf.PredictProba(X)
		require.NoError(t, err)
		return proba.RawMatrix().Data
	}
	assert.Equal(t, fit(), fit())
	assert.Equal(t, fit(WithParallel(3)), fit(WithParallel(3)))
}

func TestRandomForestClassifierSaveLoad(t *testing.T) {
	X, y := blobs(30, 5)
	path := filepath.Join(t.TempDir(), "clf.bin")

	clf := NewRandomForestClassifier(WithTrees(4), WithRandomState(3), WithLogger(log.NopLogger{}))
	require.NoError(t, clf.Fit(X, y))
	want, err := clf.PredictProba(X)
	require.NoError(t, err)
	require.NoError(t, clf.Save(path))

	loaded := NewRandomForestClassifier(WithLogger(log.NopLogger{}))
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, 2, loaded.NClasses())
	got, err := loaded.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))

	// A linear classifier cannot read axis-aligned payloads.
	wrong := NewRandomForestClassifier(WithSplit(Linear), WithLogger(log.NopLogger{}))
	assert.Error(t, wrong.Load(path))
}

func TestRandomForestClassifierErrors(t *testing.T) {
	clf := NewRandomForestClassifier(WithLogger(log.NopLogger{}))
	X, y := blobs(5, 1)

	_, err := clf.Predict(X)
	var notFitted *errors.NotFittedError
	assert.True(t, errors.As(err, &notFitted))
	assert.Error(t, clf.Save(filepath.Join(t.TempDir(), "x")))

	assert.Error(t, clf.Fit(X, y[:3]), "label count mismatch")
	assert.Error(t, clf.Fit(X, append([]float64{0.5}, y[1:]...)), "fractional label")
	assert.ErrorIs(t, clf.Fit(&mat.Dense{}, nil), errors.ErrEmptyData)

	bad := NewRandomForestClassifier(WithMaxDepth(20), WithLogger(log.NopLogger{}))
	var validation *errors.ValidationError
	assert.True(t, errors.As(bad.Fit(X, y), &validation))

	require.NoError(t, clf.Fit(X, y))
	_, err = clf.Predict(mat.NewDense(2, 3, nil))
	var dim *errors.DimensionError
	assert.True(t, errors.As(err, &dim))
}

func TestRandomForestClassifierProgress(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelInfo)
	X, y := blobs(10, 6)
	clf := NewRandomForestClassifier(WithTrees(3), WithMaxDepth(2), WithRandomState(1), WithLogger(logger))
	require.NoError(t, clf.Fit(X, y))

	assert.Equal(t, 3, logger.CountMessages("Trained tree"))
	assert.True(t, logger.ContainsMessage("Fitted classifier"))
	assert.True(t, logger.ContainsField(log.TreesKey, float64(3)))
}

func TestRandomForestRegressor(t *testing.T) {
	rng := rand.New(rand.NewPCG(8, 8))
	n := 200
	X := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x := rng.Float64() * 10
		X.Set(i, 0, x)
		y[i] = 1
		if x >= 5 {
			y[i] = 10
		}
	}

	reg := NewRandomForestRegressor(WithTrees(5), WithMaxDepth(3), WithRandomState(2), WithLogger(log.NopLogger{}))
	require.NoError(t, reg.Fit(X, y))

	pred, err := reg.Predict(mat.NewDense(2, 1, []float64{1, 9}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pred[0], 0.5)
	assert.InDelta(t, 10.0, pred[1], 0.5)

	r2, err := reg.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, r2, 0.9)

	path := filepath.Join(t.TempDir(), "reg.bin")
	require.NoError(t, reg.Save(path))
	loaded := NewRandomForestRegressor(WithLogger(log.NopLogger{}))
	require.NoError(t, loaded.Load(path))
	again, err := loaded.Predict(mat.NewDense(2, 1, []float64{1, 9}))
	require.NoError(t, err)
	assert.Equal(t, pred, again)
	assert.NotNil(t, loaded.Forest())

	assert.Error(t, reg.Fit(X, append([]float64{math.NaN()}, y[1:]...)))
}

func TestDensityForest(t *testing.T) {
	X, _ := blobs(60, 9)
	df := NewDensityForest(WithTrees(4), WithMaxDepth(3), WithRandomState(5), WithLogger(log.NopLogger{}))
	require.NoError(t, df.Fit(X))

	queries := mat.NewDense(3, 2, []float64{
		2, 2,
		8, 8,
		20, -10,
	})
	logp, err := df.LogProbability(queries)
	require.NoError(t, err)
	require.Len(t, logp, 3)
	assert.Greater(t, logp[0], logp[2])
	assert.Greater(t, logp[1], logp[2])
	for _, v := range logp {
		assert.False(t, math.IsNaN(v))
	}

	path := filepath.Join(t.TempDir(), "density.bin")
	require.NoError(t, df.Save(path))
	loaded := NewDensityForest(WithLogger(log.NopLogger{}))
	require.NoError(t, loaded.Load(path))
	again, err := loaded.LogProbability(queries)
	require.NoError(t, err)
	assert.InDeltaSlice(t, logp, again, 1e-9)

	_, err = loaded.LogProbability(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}

func TestDensityForestIntegratesToOne(t *testing.T) {
	rng := rand.New(rand.NewPCG(4, 4))
	X := mat.NewDense(160, 1, nil)
	for i := 0; i < 160; i++ {
		center := -3.0
		if i%2 == 1 {
			center = 3
		}
		X.Set(i, 0, center+rng.NormFloat64()*0.5)
	}
	df := NewDensityForest(WithTrees(3), WithMaxDepth(3), WithRandomState(8),
		WithPrior(stats.Prior{A: 1, B: 0.05}), WithLogger(log.NopLogger{}))
	require.NoError(t, df.Fit(X))

	const lo, hi, steps = -15.0, 15.0, 15000
	h := (hi - lo) / steps
	grid := mat.NewDense(steps, 1, nil)
	for i := 0; i < steps; i++ {
		grid.Set(i, 0, lo+(float64(i)+0.5)*h)
	}
	logp, err := df.LogProbability(grid)
	require.NoError(t, err)
	total := 0.0
	for _, v := range logp {
		total += math.Exp(v) * h
	}
	assert.InDelta(t, 1, total, 0.03)
}

func TestRequiredDimensions(t *testing.T) {
	tree, err := forest.NewTree[features.AxisAligned, *stats.Histogram](1)
	require.NoError(t, err)
	require.NoError(t, tree.SetNode(0, forest.NewSplit(features.AxisAligned{Axis: 4}, 0, histogram(1, 1))))
	require.NoError(t, tree.SetNode(1, forest.NewLeaf[features.AxisAligned](histogram(1, 0))))
	require.NoError(t, tree.SetNode(2, forest.NewLeaf[features.AxisAligned](histogram(0, 1))))
	f := forest.NewForest[features.AxisAligned, *stats.Histogram]()
	require.NoError(t, f.AddTree(tree))

	assert.Equal(t, 5, requiredDimensions(f))
	assert.NoError(t, checkColumns("op", 7, 5, true))
	assert.Error(t, checkColumns("op", 7, 5, false))
	assert.Error(t, checkColumns("op", 4, 5, true))
}

func TestRandomForestClassifierUnlabelledRows(t *testing.T) {
	X, y := blobs(20, 12)
	y[0], y[25] = dataset.UnknownLabel, dataset.UnknownLabel

	clf := NewRandomForestClassifier(WithTrees(3), WithRandomState(4), WithLogger(log.NopLogger{}))
	require.NoError(t, clf.Fit(X, y))
	score, err := clf.Score(X, y)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.95)

	all := make([]float64, len(y))
	for i := range all {
		all[i] = dataset.UnknownLabel
	}
	assert.Error(t, clf.Fit(X, all))
}

func TestDrawTree(t *testing.T) {
	X, y := blobs(20, 8)
	reg := NewRandomForestRegressor(WithTrees(2), WithMaxDepth(2), WithRandomState(4), WithLogger(log.NopLogger{}))
	var buf bytes.Buffer
	var nf *errors.NotFittedError
	assert.True(t, errors.As(reg.DrawTree(0, graphviz.XDOT, &buf), &nf))

	require.NoError(t, reg.Fit(X, y))
	require.NoError(t, reg.DrawTree(1, graphviz.XDOT, &buf))
	assert.Contains(t, buf.String(), "mean=")

	var ve *errors.ValidationError
	assert.True(t, errors.As(reg.DrawTree(2, graphviz.XDOT, &buf), &ve))
}

func TestLoadedLinearClassifierAcceptsWiderInput(t *testing.T) {
	X, y := blobs(20, 6)
	path := filepath.Join(t.TempDir(), "linear.bin")
	clf := NewRandomForestClassifier(WithSplit(Linear), WithTrees(3), WithRandomState(2), WithLogger(log.NopLogger{}))
	require.NoError(t, clf.Fit(X, y))
	require.NoError(t, clf.Save(path))

	loaded := NewRandomForestClassifier(WithSplit(Linear), WithLogger(log.NopLogger{}))
	require.NoError(t, loaded.Load(path))
	wide := mat.NewDense(2, 3, []float64{
		2, 2, 50,
		8, 8, -50,
	})
	pred, err := loaded.Predict(wide)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, pred)

	reg := NewRandomForestRegressor(WithSplit(Linear), WithTrees(2), WithRandomState(2), WithLogger(log.NopLogger{}))
	require.NoError(t, reg.Fit(X, y))
	require.NoError(t, reg.Save(path))
	loadedReg := NewRandomForestRegressor(WithSplit(Linear), WithLogger(log.NopLogger{}))
	require.NoError(t, loadedReg.Load(path))
	_, err = loadedReg.Predict(wide)
	assert.NoError(t, err)
}

// piecewiseLine samples y = 2x below 5 and y = 30 - 3x above.
func piecewiseLine(n int, seed uint64) (*mat.Dense, []float64) {
	rng := rand.New(rand.NewPCG(seed, seed))
	X := mat.NewDense(n, 1, nil)
	y := make([]float64, n)
	for i := range y {
		x := rng.Float64() * 10
		X.Set(i, 0, x)
		if x < 5 {
			y[i] = 2 * x
		} else {
			y[i] = 30 - 3*x
		}
	}
	return X, y
}

func TestRandomForestRegressorLinearLeaves(t *testing.T) {
	X, y := piecewiseLine(300, 12)
	opts := []Option{WithTrees(5), WithMaxDepth(2), WithRandomState(7), WithLogger(log.NopLogger{})}

	constant := NewRandomForestRegressor(opts...)
	require.NoError(t, constant.Fit(X, y))
	constantR2, err := constant.Score(X, y)
	require.NoError(t, err)

	linear := NewRandomForestRegressor(append(opts, WithLeafModel(LinearLeaf))...)
	require.NoError(t, linear.Fit(X, y))
	linearR2, err := linear.Score(X, y)
	require.NoError(t, err)
	assert.Greater(t, linearR2, 0.97)
	assert.Greater(t, linearR2, constantR2)

	pred, err := linear.Predict(mat.NewDense(2, 1, []float64{1, 9}))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, pred[0], 1.0)
	assert.InDelta(t, 3.0, pred[1], 1.0)

	path := filepath.Join(t.TempDir(), "linear-leaves.bin")
	require.NoError(t, linear.Save(path))
	loaded := NewRandomForestRegressor(WithLeafModel(LinearLeaf), WithLogger(log.NopLogger{}))
	require.NoError(t, loaded.Load(path))
	again, err := loaded.Predict(mat.NewDense(2, 1, []float64{1, 9}))
	require.NoError(t, err)
	assert.InDeltaSlice(t, pred, again, 1e-12)

	// Constant-leaf payloads do not decode as line fits.
	assert.Error(t, NewRandomForestRegressor(WithLogger(log.NopLogger{})).Load(path))

	var ve *errors.ValidationError
	wide := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	assert.True(t, errors.As(linear.Fit(wide, []float64{1, 2}), &ve))
	assert.True(t, errors.As(NewRandomForestRegressor(WithLeafModel("cubic")).Fit(X, y), &ve))
}

func TestLinearFitContextGain(t *testing.T) {
	ctx := NewLinearFitContext[features.AxisAligned](features.AxisAlignedFactory{Dimensions: 1})
	X, y := piecewiseLine(200, 3)
	data, err := dataset.FromMatrix(X)
	require.NoError(t, err)
	data, err = data.WithTargets(y)
	require.NoError(t, err)

	parent, left, right := ctx.NewAggregator(), ctx.NewAggregator(), ctx.NewAggregator()
	for i := 0; i < data.Count(); i++ {
		parent.Aggregate(data, i)
		if data.Value(i, 0) < 5 {
			left.Aggregate(data, i)
		} else {
			right.Aggregate(data, i)
		}
	}
	gain := ctx.InformationGain(parent, left, right)
	assert.Greater(t, gain, DefaultRegressionStop)
	assert.False(t, ctx.ShouldTerminate(parent, left, right, gain))
	assert.Zero(t, ctx.InformationGain(ctx.NewAggregator(), left, right))
}

func TestParseLeafModel(t *testing.T) {
	m, err := ParseLeafModel(" Linear ")
	require.NoError(t, err)
	assert.Equal(t, LinearLeaf, m)
	_, err = ParseLeafModel("cubic")
	assert.Error(t, err)
}
