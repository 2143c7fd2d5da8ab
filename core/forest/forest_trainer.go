package forest

import (
	"github.com/YuminosukeSato/decisionforest/pkg/errors"
	"github.com/YuminosukeSato/decisionforest/pkg/log"
)

// TrainForest grows NumberOfTrees trees one after another with trainer.
func (t *TreeTrainer[F, S]) TrainForest(data PointCollection) (*Forest[F, S], error) {
	return trainForest(data, t.params.NumberOfTrees, t.opts.logger, t.train)
}

// TrainForest grows NumberOfTrees trees one after another; only the search
// within each node runs in parallel.
func (t *ParallelTreeTrainer[F, S]) TrainForest(data PointCollection) (*Forest[F, S], error) {
	return trainForest(data, t.params.NumberOfTrees, t.opts.logger, t.train)
}

func trainForest[F WeakLearner, S Aggregator[S]](
	data PointCollection, nTrees int, logger log.Logger,
	train func(PointCollection, log.Logger) (*Tree[F, S], error),
) (*Forest[F, S], error) {
	f := NewForest[F, S]()
	for i := 0; i < nTrees; i++ {
		tree, err := train(data, logger.With(log.TreeKey, i, log.TreesKey, nTrees))
		if err != nil {
			return nil, errors.Wrapf(err, "forest: training tree %d of %d", i+1, nTrees)
		}
		if err := f.AddTree(tree); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// TrainForest is a convenience wrapper around NewTreeTrainer and
// TreeTrainer.TrainForest.
func TrainForest[F WeakLearner, S Aggregator[S]](ctx TrainingContext[F, S], params TrainingParameters, data PointCollection, opts ...Option) (*Forest[F, S], error) {
	trainer, err := NewTreeTrainer(ctx, params, opts...)
	if err != nil {
		return nil, err
	}
	return trainer.TrainForest(data)
}

// TrainForestParallel is a convenience wrapper around NewParallelTreeTrainer
// and ParallelTreeTrainer.TrainForest. The worker pool is closed on return.
func TrainForestParallel[F WeakLearner, S Aggregator[S]](ctx TrainingContext[F, S], params TrainingParameters, data PointCollection, opts ...Option) (*Forest[F, S], error) {
	trainer, err := NewParallelTreeTrainer(ctx, params, opts...)
	if err != nil {
		return nil, err
	}
	defer trainer.Close()
	return trainer.TrainForest(data)
}
