package forest

import (
	"context"
	"time"

	"github.com/YuminosukeSato/decisionforest/pkg/errors"
	"github.com/YuminosukeSato/decisionforest/pkg/log"
)

// splitFinder evaluates the candidate splits of indices[i0:i1] given the
// parent statistics and returns the best one.
type splitFinder[F WeakLearner, S Aggregator[S]] func(data PointCollection, indices []int, i0, i1 int, parent S, node int) (candidate[F], error)

// builder grows one tree by recursive partitioning. The point data is never
// moved; only the index array is reordered.
type builder[F WeakLearner, S Aggregator[S]] struct {
	context  TrainingContext[F, S]
	params   TrainingParameters
	data     PointCollection
	tree     *Tree[F, S]
	find     splitFinder[F, S]
	logger   log.Logger
	recorder Recorder
	verbose  bool

	indices   []int
	responses []float64
	parent    S
	left      S
	right     S
}

func newBuilder[F WeakLearner, S Aggregator[S]](
	ctx TrainingContext[F, S], params TrainingParameters, data PointCollection,
	find splitFinder[F, S], logger log.Logger, recorder Recorder,
) (*builder[F, S], error) {
	tree, err := NewTree[F, S](params.MaxDecisionLevels)
	if err != nil {
		return nil, err
	}
	n := data.Count()
	b := &builder[F, S]{
		context:   ctx,
		params:    params,
		data:      data,
		tree:      tree,
		find:      find,
		logger:    logger,
		recorder:  recorder,
		verbose:   params.Verbose && logger.Enabled(context.Background(), log.LevelDebug),
		indices:   make([]int, n),
		responses: make([]float64, n),
		parent:    ctx.NewAggregator(),
		left:      ctx.NewAggregator(),
		right:     ctx.NewAggregator(),
	}
	for i := range b.indices {
		b.indices[i] = i
	}
	return b, nil
}

func (b *builder[F, S]) build() (*Tree[F, S], error) {
	if b.data.Count() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "forest: cannot train a tree on zero points")
	}

	start := time.Now()
	if err := b.trainNode(0, 0, len(b.indices), 0); err != nil {
		return nil, err
	}
	if err := b.tree.Validate(); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	b.recorder.ObserveTree(elapsed)
	b.logger.Info("Trained tree",
		log.SamplesKey, b.data.Count(),
		log.DepthKey, b.params.MaxDecisionLevels,
		log.LeavesKey, b.tree.LeafCount(),
		log.DurationMsKey, elapsed.Milliseconds(),
	)
	return b.tree, nil
}

func (b *builder[F, S]) trainNode(node, i0, i1, depth int) error {
	b.parent.Clear()
	for i := i0; i < i1; i++ {
		b.parent.Aggregate(b.data, b.indices[i])
	}

	if i0 == i1 {
		errors.Warn(errors.NewEmptyNodeWarning(node, depth))
		return b.finalizeLeaf(node, depth, i1-i0, 0)
	}
	if b.tree.isFinalTier(node) {
		return b.finalizeLeaf(node, depth, i1-i0, 0)
	}

	best, err := b.find(b.data, b.indices, i0, i1, b.parent, node)
	if err != nil {
		return err
	}
	if !best.found || best.gain == 0 {
		return b.finalizeLeaf(node, depth, i1-i0, 0)
	}

	// The winner was scored on sampled thresholds; recompute its split over
	// the actual range before asking whether to stop.
	b.left.Clear()
	b.right.Clear()
	for i := i0; i < i1; i++ {
		r := best.learner.Response(b.data, b.indices[i])
		b.responses[i] = r
		if r < best.threshold {
			b.left.Aggregate(b.data, b.indices[i])
		} else {
			b.right.Aggregate(b.data, b.indices[i])
		}
	}
	if b.context.ShouldTerminate(b.parent, b.left, b.right, best.gain) {
		return b.finalizeLeaf(node, depth, i1-i0, best.gain)
	}

	b.tree.nodes[node] = NewSplit[F, S](best.learner, best.threshold, b.parent)
	b.observe(node, depth, SplitNode, i1-i0, best.gain, best.threshold)

	ii := Partition(b.responses, b.indices, i0, i1, best.threshold)
	if err := b.trainNode(2*node+1, i0, ii, depth+1); err != nil {
		return err
	}
	return b.trainNode(2*node+2, ii, i1, depth+1)
}

func (b *builder[F, S]) finalizeLeaf(node, depth, samples int, gain float64) error {
	b.tree.nodes[node] = NewLeaf[F, S](b.parent)
	b.observe(node, depth, LeafNode, samples, gain, 0)
	return nil
}

func (b *builder[F, S]) observe(node, depth int, kind NodeKind, samples int, gain, threshold float64) {
	b.recorder.ObserveNode(kind, depth)
	if !b.verbose {
		return
	}
	fields := []any{
		log.NodeKey, node,
		log.DepthKey, depth,
		log.NodeKindKey, kind.String(),
		log.SamplesKey, samples,
		log.GainKey, gain,
	}
	if kind == SplitNode {
		fields = append(fields, log.ThresholdKey, threshold)
	}
	b.logger.Debug("Trained node", fields...)
}

// TreeTrainer grows trees single-threaded. A trainer reuses its random
// source across calls, so successive trees differ.
type TreeTrainer[F WeakLearner, S Aggregator[S]] struct {
	context TrainingContext[F, S]
	params  TrainingParameters
	opts    trainerOptions
}

// NewTreeTrainer validates params and returns a sequential trainer.
func NewTreeTrainer[F WeakLearner, S Aggregator[S]](ctx TrainingContext[F, S], params TrainingParameters, opts ...Option) (*TreeTrainer[F, S], error) {
	if ctx == nil {
		return nil, errors.NewValueError("NewTreeTrainer", "training context is nil")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &TreeTrainer[F, S]{context: ctx, params: params, opts: newTrainerOptions(opts)}, nil
}

// Params returns the training parameters.
func (t *TreeTrainer[F, S]) Params() TrainingParameters { return t.params }

// Logger returns the progress sink.
func (t *TreeTrainer[F, S]) Logger() log.Logger { return t.opts.logger }

// Train grows one tree over data.
func (t *TreeTrainer[F, S]) Train(data PointCollection) (*Tree[F, S], error) {
	return t.train(data, t.opts.logger)
}

func (t *TreeTrainer[F, S]) train(data PointCollection, logger log.Logger) (tree *Tree[F, S], err error) {
	defer errors.Recover(&err, "TreeTrainer.Train")

	s := newSearcher(t.context, t.opts.rng, t.params.NumberOfCandidateThresholdsPerFeature, data.Count())
	find := func(data PointCollection, indices []int, i0, i1 int, parent S, node int) (candidate[F], error) {
		err := s.search(data, indices, i0, i1, parent, t.params.NumberOfCandidateFeatures, node)
		return s.best, err
	}

	b, err := newBuilder(t.context, t.params, data, find, logger, t.opts.recorder)
	if err != nil {
		return nil, err
	}
	return b.build()
}
