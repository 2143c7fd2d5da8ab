// Package forest trains and applies ensembles of binary decision trees.
//
// The engine is generic over two collaborator types supplied by the caller:
// a weak learner F, which maps a point to a scalar response, and a statistics
// aggregator S, which summarises a set of points. A TrainingContext ties them
// together by drawing random learners, creating empty aggregators, scoring
// candidate splits and deciding when to stop.
//
// Trees are stored as flat arrays with implicit heap indexing: the root is at
// index 0 and the children of node i are at 2i+1 and 2i+2. A tree with maximum
// depth D always has 2^(D+1)-1 node slots, whether or not branches terminate
// early.
//
// Basic usage:
//
//	params := forest.DefaultTrainingParameters()
//	f, err := forest.TrainForest(ctx, params, data, forest.WithSeed(42))
//	if err != nil {
//	    return err
//	}
//	leaves, err := f.Apply(data) // leaves[tree][point] is a leaf node index
//
// ParallelTreeTrainer distributes the per-node search over a fixed worker
// pool; Serialize and Deserialize read and write a versioned binary format.
package forest
