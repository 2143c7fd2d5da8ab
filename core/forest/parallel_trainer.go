package forest

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/decisionforest/core/parallel"
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
	"github.com/YuminosukeSato/decisionforest/pkg/log"
)

// ParallelTreeTrainer grows trees like TreeTrainer, but distributes the
// candidate-feature search at each node over a fixed worker pool created
// once by NewParallelTreeTrainer. Tree recursion stays on the calling
// goroutine.
//
// Each worker owns its random source, seeded from the trainer's source, and
// its own scratch buffers. Results are merged in worker order with the same
// later-wins tie rule as the sequential search, so a run is reproducible for
// a given seed and worker count. It is not guaranteed to choose the same
// splits as TreeTrainer.
//
// A ParallelTreeTrainer must not be used from more than one goroutine at a
// time. Call Close to stop the workers.
type ParallelTreeTrainer[F WeakLearner, S Aggregator[S]] struct {
	context TrainingContext[F, S]
	params  TrainingParameters
	opts    trainerOptions
	pool    *parallel.Pool
	rngs    []*rand.Rand
}

// NewParallelTreeTrainer validates params and starts the worker pool.
// The pool size comes from WithWorkers and defaults to runtime.NumCPU().
func NewParallelTreeTrainer[F WeakLearner, S Aggregator[S]](ctx TrainingContext[F, S], params TrainingParameters, opts ...Option) (*ParallelTreeTrainer[F, S], error) {
	if ctx == nil {
		return nil, errors.NewValueError("NewParallelTreeTrainer", "training context is nil")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	o := newTrainerOptions(opts)
	rngs := make([]*rand.Rand, o.workers)
	for w := range rngs {
		rngs[w] = rand.New(rand.NewPCG(o.rng.Uint64(), o.rng.Uint64()))
	}

	return &ParallelTreeTrainer[F, S]{
		context: ctx,
		params:  params,
		opts:    o,
		pool:    parallel.NewPool(o.workers),
		rngs:    rngs,
	}, nil
}

// Params returns the training parameters.
func (t *ParallelTreeTrainer[F, S]) Params() TrainingParameters { return t.params }

// Logger returns the progress sink.
func (t *ParallelTreeTrainer[F, S]) Logger() log.Logger { return t.opts.logger }

// Workers returns the worker pool size.
func (t *ParallelTreeTrainer[F, S]) Workers() int { return t.pool.Size() }

// Close stops the worker pool.
func (t *ParallelTreeTrainer[F, S]) Close() {
	t.pool.Close()
}

// Train grows one tree over data.
func (t *ParallelTreeTrainer[F, S]) Train(data PointCollection) (*Tree[F, S], error) {
	return t.train(data, t.opts.logger)
}

func (t *ParallelTreeTrainer[F, S]) train(data PointCollection, logger log.Logger) (tree *Tree[F, S], err error) {
	defer errors.Recover(&err, "ParallelTreeTrainer.Train")

	n := data.Count()
	searchers := make([]*searcher[F, S], t.pool.Size())
	for w := range searchers {
		searchers[w] = newSearcher(t.context, t.rngs[w], t.params.NumberOfCandidateThresholdsPerFeature, n)
	}

	find := func(data PointCollection, indices []int, i0, i1 int, parent S, node int) (candidate[F], error) {
		// Each worker gets a private copy of the parent statistics.
		for _, s := range searchers {
			s.parent.Clear()
			s.parent.Merge(parent)
			s.best = candidate[F]{}
		}

		err := t.pool.Run(t.params.NumberOfCandidateFeatures, func(worker, start, end int) error {
			s := searchers[worker]
			return s.search(data, indices, i0, i1, s.parent, end-start, node)
		})
		if err != nil {
			return candidate[F]{}, err
		}

		var best candidate[F]
		for _, s := range searchers {
			best.consider(s.best)
		}
		return best, nil
	}

	b, err := newBuilder(t.context, t.params, data, find, logger, t.opts.recorder)
	if err != nil {
		return nil, err
	}
	return b.build()
}
