package forest

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

func TestNewTreeNodeCount(t *testing.T) {
	for depth := 0; depth <= 6; depth++ {
		tree, err := NewTree[axis, *hist](depth)
		require.NoError(t, err)
		assert.Equal(t, (1<<(depth+1))-1, tree.NodeCount())
		assert.Equal(t, depth, tree.Depth())
	}

	tree, err := NewTree[axis, *hist](MaxDepth)
	require.NoError(t, err)
	assert.Equal(t, 1<<20-1, tree.NodeCount())

	for _, depth := range []int{-1, MaxDepth + 1} {
		_, err := NewTree[axis, *hist](depth)
		var valErr *errors.ValidationError
		require.True(t, errors.As(err, &valErr), "depth %d", depth)
		assert.Equal(t, "MaxDecisionLevels", valErr.ParamName)
	}
}

func leaf(total int) Node[axis, *hist] {
	return NewLeaf[axis](&hist{Bins: []int{total}, Total: total})
}

func split(threshold float64) Node[axis, *hist] {
	return NewSplit(axis{}, threshold, &hist{Bins: []int{0}})
}

func buildTree(t *testing.T, depth int, nodes map[int]Node[axis, *hist]) *Tree[axis, *hist] {
	t.Helper()
	tree, err := NewTree[axis, *hist](depth)
	require.NoError(t, err)
	for i, n := range nodes {
		require.NoError(t, tree.SetNode(i, n))
	}
	return tree
}

func TestTreeValidate(t *testing.T) {
	tests := []struct {
		name    string
		depth   int
		nodes   map[int]Node[axis, *hist]
		wantErr bool
		index   int
	}{
		{"single leaf root", 3, map[int]Node[axis, *hist]{0: leaf(1)}, false, 0},
		{"full depth one", 1, map[int]Node[axis, *hist]{0: split(0), 1: leaf(1), 2: leaf(1)}, false, 0},
		{"unbalanced", 2, map[int]Node[axis, *hist]{0: split(0), 1: leaf(1), 2: split(1), 5: leaf(1), 6: leaf(1)}, false, 0},
		{"empty tree", 2, nil, true, 0},
		{"split at max depth", 1, map[int]Node[axis, *hist]{0: split(0), 1: leaf(1), 2: split(1)}, true, 2},
		{"node beneath leaf", 2, map[int]Node[axis, *hist]{0: leaf(1), 4: leaf(1)}, true, 4},
		{"null child of split", 2, map[int]Node[axis, *hist]{0: split(0), 1: leaf(1)}, true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := buildTree(t, tt.depth, tt.nodes).Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidTree))
			var structErr *errors.StructureError
			require.True(t, errors.As(err, &structErr))
			assert.Equal(t, tt.index, structErr.Index)
		})
	}
}

func TestTreeSetNodeOutOfRange(t *testing.T) {
	tree, err := NewTree[axis, *hist](1)
	require.NoError(t, err)
	var valueErr *errors.ValueError
	assert.True(t, errors.As(tree.SetNode(3, leaf(1)), &valueErr))
	assert.True(t, errors.As(tree.SetNode(-1, leaf(1)), &valueErr))
}

func TestNewLeafCopiesStatistics(t *testing.T) {
	stats := &hist{Bins: []int{2, 1}, Total: 3}
	n := NewLeaf[axis](stats)
	stats.Clear()
	assert.Equal(t, 3, n.Statistics.Total)
	assert.True(t, n.IsLeaf())
	assert.False(t, n.IsSplit())
}

func TestTreeRoute(t *testing.T) {
	// x < 5 goes to node 1; x >= 5 reaches node 2 and splits again at 8.
	tree := buildTree(t, 2, map[int]Node[axis, *hist]{
		0: split(5),
		1: leaf(1),
		2: split(8),
		5: leaf(1),
		6: leaf(1),
	})
	data := newPoints(1, nil, []float64{1}, []float64{5}, []float64{9}, []float64{4.99}, []float64{8})

	leaves, err := tree.Route(data)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 5, 6, 1, 6}, leaves)
	assert.Equal(t, 3, tree.LeafCount())
}

func TestTreeRouteRejectsInvalidTree(t *testing.T) {
	tree := buildTree(t, 1, map[int]Node[axis, *hist]{0: split(0)})
	_, err := tree.Route(newPoints(1, nil, []float64{1}))
	assert.True(t, errors.Is(err, errors.ErrInvalidTree))
}

type pair struct {
	key   float64
	value int
}

func pairs(keys []float64, values []int) []pair {
	out := make([]pair, len(keys))
	for i := range keys {
		out[i] = pair{keys[i], values[i]}
	}
	return out
}

func TestPartition(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	for trial := 0; trial < 50; trial++ {
		n := rng.IntN(20) + 1
		keys := make([]float64, n)
		values := make([]int, n)
		for i := range keys {
			keys[i] = float64(rng.IntN(10))
			values[i] = i
		}
		before := pairs(keys, values)

		i0 := rng.IntN(n)
		i1 := i0 + rng.IntN(n-i0+1)
		threshold := float64(rng.IntN(12)) - 1

		ii := Partition(keys, values, i0, i1, threshold)
		require.GreaterOrEqual(t, ii, i0)
		require.LessOrEqual(t, ii, i1)
		for i := i0; i < ii; i++ {
			assert.Less(t, keys[i], threshold)
		}
		for i := ii; i < i1; i++ {
			assert.GreaterOrEqual(t, keys[i], threshold)
		}

		after := pairs(keys, values)
		// Outside the range nothing moves.
		assert.Equal(t, before[:i0], after[:i0])
		assert.Equal(t, before[i1:], after[i1:])
		assert.ElementsMatch(t, before[i0:i1], after[i0:i1])
	}
}

func TestPartitionEdgeCases(t *testing.T) {
	keys := []float64{3, 1, 2}
	values := []int{0, 1, 2}

	assert.Equal(t, 1, Partition(keys, values, 1, 1, 0), "empty range")
	assert.Equal(t, 0, Partition(slices.Clone(keys), slices.Clone(values), 0, 3, 0), "all right")
	assert.Equal(t, 3, Partition(slices.Clone(keys), slices.Clone(values), 0, 3, 10), "all left")

	ii := Partition(keys, values, 0, 3, 2)
	assert.Equal(t, 1, ii)
	assert.Equal(t, 1.0, keys[0])
	assert.Equal(t, 1, values[0])
}
