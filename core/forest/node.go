package forest

// NodeKind is the state of one tree slot.
type NodeKind uint8

const (
	// NullNode is an unused slot, such as any descendant of a leaf.
	NullNode NodeKind = iota
	// LeafNode terminates a path and holds the statistics used for inference.
	LeafNode
	// SplitNode routes points by comparing a learner response with a threshold.
	SplitNode
)

func (k NodeKind) String() string {
	switch k {
	case NullNode:
		return "null"
	case LeafNode:
		return "leaf"
	case SplitNode:
		return "split"
	default:
		return "unknown"
	}
}

// Node is one slot of a Tree.
//
// Statistics are kept on split nodes as well as leaves so that trees can be
// pruned or relabelled after training. Learner and Threshold are meaningful
// only for split nodes.
type Node[F WeakLearner, S Aggregator[S]] struct {
	Kind       NodeKind
	Learner    F
	Threshold  float64
	Statistics S
}

// NewLeaf returns a leaf holding a deep copy of stats.
func NewLeaf[F WeakLearner, S Aggregator[S]](stats S) Node[F, S] {
	return Node[F, S]{Kind: LeafNode, Statistics: stats.Clone()}
}

// NewSplit returns a split node holding learner, threshold and a deep copy of
// stats. Points whose response is >= threshold go to the right child.
func NewSplit[F WeakLearner, S Aggregator[S]](learner F, threshold float64, stats S) Node[F, S] {
	return Node[F, S]{Kind: SplitNode, Learner: learner, Threshold: threshold, Statistics: stats.Clone()}
}

func (n Node[F, S]) IsNull() bool  { return n.Kind == NullNode }
func (n Node[F, S]) IsLeaf() bool  { return n.Kind == LeafNode }
func (n Node[F, S]) IsSplit() bool { return n.Kind == SplitNode }
