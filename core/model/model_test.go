package model

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/decisionforest/core/forest"
	"github.com/YuminosukeSato/decisionforest/features"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
	"github.com/YuminosukeSato/decisionforest/stats"
)

type stump = forest.Forest[features.AxisAligned, *stats.Histogram]

var stumpCodec = forest.Codec[features.AxisAligned, *stats.Histogram]{
	Learner:    features.DecodeAxisAligned,
	Statistics: stats.DecodeHistogram,
}

func histogram(bins ...int) *stats.Histogram {
	h := stats.NewHistogram(len(bins))
	for i, c := range bins {
		h.Bins[i] = c
		h.SampleCount += c
	}
	return h
}

func newStump(t *testing.T) *stump {
	t.Helper()
	tree, err := forest.NewTree[features.AxisAligned, *stats.Histogram](1)
	require.NoError(t, err)
	require.NoError(t, tree.SetNode(0, forest.NewSplit(features.AxisAligned{Axis: 1}, 0.5, histogram(3, 2))))
	require.NoError(t, tree.SetNode(1, forest.NewLeaf[features.AxisAligned](histogram(3, 0))))
	require.NoError(t, tree.SetNode(2, forest.NewLeaf[features.AxisAligned](histogram(0, 2))))

	f := forest.NewForest[features.AxisAligned, *stats.Histogram]()
	require.NoError(t, f.AddTree(tree))
	return f
}

func TestSaveLoadForest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forest.bin")
	f := newStump(t)

	require.NoError(t, SaveForest(f, path))
	loaded, err := LoadForest(path, stumpCodec)
	require.NoError(t, err)

	require.Equal(t, 1, loaded.TreeCount())
	root := loaded.Tree(0).Node(0)
	assert.True(t, root.IsSplit())
	assert.Equal(t, features.AxisAligned{Axis: 1}, root.Learner)
	assert.Equal(t, 0.5, root.Threshold)
	assert.Equal(t, []int{0, 2}, loaded.Tree(0).Node(2).Statistics.Bins)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestSaveForestNil(t *testing.T) {
	err := SaveForest[features.AxisAligned, *stats.Histogram](nil, filepath.Join(t.TempDir(), "x"))
	var valueErr *errors.ValueError
	assert.True(t, errors.As(err, &valueErr))
}

func TestWriteFileAtomicKeepsOldFileOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o600))

	err := WriteFileAtomic(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("disk full")
	})
	require.Error(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(content))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadForestMissingFile(t *testing.T) {
	_, err := LoadForest(filepath.Join(t.TempDir(), "missing.bin"), stumpCodec)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadForestCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.bin")
	require.NoError(t, os.WriteFile(path, []byte("not a forest"), 0o600))

	_, err := LoadForest(path, stumpCodec)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedFormat))
}

func TestStateManager(t *testing.T) {
	s := NewStateManager()
	assert.False(t, s.IsFitted())

	err := s.RequireFitted("RandomForestClassifier", "Predict")
	var notFitted *errors.NotFittedError
	require.True(t, errors.As(err, &notFitted))
	assert.Equal(t, "Predict", notFitted.Method)

	s.SetFitted(3, 100)
	assert.True(t, s.IsFitted())
	assert.NoError(t, s.RequireFitted("RandomForestClassifier", "Predict"))
	nFeatures, nSamples := s.Dimensions()
	assert.Equal(t, 3, nFeatures)
	assert.Equal(t, 100, nSamples)

	assert.NoError(t, s.RequireFeatures("Predict", 3))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(s.RequireFeatures("Predict", 2), &dimErr))

	s.Reset()
	assert.False(t, s.IsFitted())
}
