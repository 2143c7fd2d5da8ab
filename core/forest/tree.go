package forest

import (
	"fmt"

	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

// MaxDepth is the largest supported maximum depth. It keeps node indices
// (up to 2^20-2) well inside int32 range for the binary format.
const MaxDepth = 19

// NodeCountForDepth returns 2^(depth+1)-1.
func NodeCountForDepth(depth int) int {
	return (1 << (depth + 1)) - 1
}

// Tree is a complete binary tree stored in a flat array. The root is node 0
// and the children of node i are 2i+1 and 2i+2.
type Tree[F WeakLearner, S Aggregator[S]] struct {
	depth int
	nodes []Node[F, S]
}

// NewTree allocates a tree with the given maximum depth. All nodes start as
// NullNode, so the tree is not valid until it has been trained or populated.
func NewTree[F WeakLearner, S Aggregator[S]](depth int) (*Tree[F, S], error) {
	if depth < 0 || depth > MaxDepth {
		return nil, errors.NewValidationError("MaxDecisionLevels",
			fmt.Sprintf("must be in [0, %d]", MaxDepth), depth)
	}
	return &Tree[F, S]{
		depth: depth,
		nodes: make([]Node[F, S], NodeCountForDepth(depth)),
	}, nil
}

// Depth returns the maximum depth D the tree was allocated for.
func (t *Tree[F, S]) Depth() int { return t.depth }

// NodeCount returns the number of node slots, 2^(D+1)-1.
func (t *Tree[F, S]) NodeCount() int { return len(t.nodes) }

// Node returns a copy of the node at index. It panics if index is out of range.
func (t *Tree[F, S]) Node(index int) Node[F, S] { return t.nodes[index] }

// SetNode overwrites the node at index. The caller is responsible for keeping
// the tree valid; Validate reports any violation.
func (t *Tree[F, S]) SetNode(index int, node Node[F, S]) error {
	if index < 0 || index >= len(t.nodes) {
		return errors.NewValueError("Tree.SetNode",
			fmt.Sprintf("node index %d out of range [0, %d)", index, len(t.nodes)))
	}
	t.nodes[index] = node
	return nil
}

// LeafCount returns the number of leaf nodes.
func (t *Tree[F, S]) LeafCount() int {
	n := 0
	for i := range t.nodes {
		if t.nodes[i].Kind == LeafNode {
			n++
		}
	}
	return n
}

// isFinalTier reports whether index lies on the deepest level, where nodes
// have no children.
func (t *Tree[F, S]) isFinalTier(index int) bool {
	return 2*index+1 >= len(t.nodes)
}

// Validate checks the structural invariants: the root is not null, every
// node above a leaf is a split, every descendant of a leaf is null, and every
// node on the deepest level is a leaf unless it lies beneath one.
func (t *Tree[F, S]) Validate() error {
	if len(t.nodes) == 0 {
		return errors.NewStructureError("Tree.Validate", -1, "tree has no nodes")
	}
	if t.nodes[0].Kind == NullNode {
		return errors.NewStructureError("Tree.Validate", 0, "root node is null")
	}
	return t.validate(0, false)
}

func (t *Tree[F, S]) validate(index int, belowLeaf bool) error {
	node := &t.nodes[index]

	if belowLeaf {
		if node.Kind != NullNode {
			return errors.NewStructureError("Tree.Validate", index,
				fmt.Sprintf("descendant of a leaf is %s, want null", node.Kind))
		}
	} else {
		switch node.Kind {
		case NullNode:
			return errors.NewStructureError("Tree.Validate", index, "path ends in a null node")
		case SplitNode:
			if t.isFinalTier(index) {
				return errors.NewStructureError("Tree.Validate", index, "split node at maximum depth")
			}
		case LeafNode:
		default:
			return errors.NewStructureError("Tree.Validate", index,
				fmt.Sprintf("unknown node kind %d", node.Kind))
		}
	}

	if t.isFinalTier(index) {
		return nil
	}
	below := belowLeaf || node.Kind == LeafNode
	if err := t.validate(2*index+1, below); err != nil {
		return err
	}
	return t.validate(2*index+2, below)
}

// Route returns, for every point in data, the index of the leaf it reaches.
// A point goes right at a split node when its response is >= the threshold.
func (t *Tree[F, S]) Route(data PointCollection) ([]int, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	n := data.Count()
	leaves := make([]int, n)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	responses := make([]float64, n)

	t.route(data, 0, indices, responses, 0, n, leaves)
	return leaves, nil
}

func (t *Tree[F, S]) route(data PointCollection, index int, indices []int, responses []float64, i0, i1 int, leaves []int) {
	node := &t.nodes[index]
	if node.Kind == LeafNode {
		for i := i0; i < i1; i++ {
			leaves[indices[i]] = index
		}
		return
	}
	if i0 == i1 {
		return
	}

	for i := i0; i < i1; i++ {
		responses[i] = node.Learner.Response(data, indices[i])
	}
	ii := Partition(responses, indices, i0, i1, node.Threshold)

	t.route(data, 2*index+1, indices, responses, i0, ii, leaves)
	t.route(data, 2*index+2, indices, responses, ii, i1, leaves)
}

// Partition reorders keys[i0:i1] and values[i0:i1] together in a single
// pass so that keys below threshold come first. It returns ii such that
// keys[i0:ii] < threshold and keys[ii:i1] >= threshold.
func Partition(keys []float64, values []int, i0, i1 int, threshold float64) int {
	if i1 <= i0 {
		return i0
	}

	i, j := i0, i1-1
	for i != j {
		if keys[i] >= threshold {
			keys[i], keys[j] = keys[j], keys[i]
			values[i], values[j] = values[j], values[i]
			j--
		} else {
			i++
		}
	}
	if keys[i] >= threshold {
		return i
	}
	return i + 1
}
