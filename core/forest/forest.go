package forest

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

// Forest is an ordered collection of trees sharing one learner type and one
// aggregator type. Every member tree is valid.
type Forest[F WeakLearner, S Aggregator[S]] struct {
	trees []*Tree[F, S]
}

// NewForest returns an empty forest.
func NewForest[F WeakLearner, S Aggregator[S]]() *Forest[F, S] {
	return &Forest[F, S]{}
}

// AddTree validates t and appends it.
func (f *Forest[F, S]) AddTree(t *Tree[F, S]) error {
	if t == nil {
		return errors.NewValueError("Forest.AddTree", "tree is nil")
	}
	if err := t.Validate(); err != nil {
		return errors.Wrapf(err, "forest: cannot add tree %d", len(f.trees))
	}
	f.trees = append(f.trees, t)
	return nil
}

// TreeCount returns the number of trees.
func (f *Forest[F, S]) TreeCount() int { return len(f.trees) }

// Tree returns the i-th tree. It panics if i is out of range.
func (f *Forest[F, S]) Tree(i int) *Tree[F, S] { return f.trees[i] }

// Apply routes every point through every tree. The result is indexed as
// leaves[tree][point].
func (f *Forest[F, S]) Apply(data PointCollection) ([][]int, error) {
	leaves := make([][]int, len(f.trees))
	for t, tree := range f.trees {
		l, err := tree.Route(data)
		if err != nil {
			return nil, errors.Wrapf(err, "forest: apply tree %d", t)
		}
		leaves[t] = l
	}
	return leaves, nil
}

// ApplyParallel is Apply with up to workers trees routed concurrently.
// workers <= 0 means no limit. The result is identical to Apply.
func (f *Forest[F, S]) ApplyParallel(ctx context.Context, data PointCollection, workers int) ([][]int, error) {
	leaves := make([][]int, len(f.trees))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for t, tree := range f.trees {
		g.Go(func() (err error) {
			defer errors.Recover(&err, fmt.Sprintf("Forest.ApplyParallel tree %d", t))
			if err := ctx.Err(); err != nil {
				return err
			}
			l, err := tree.Route(data)
			if err != nil {
				return errors.Wrapf(err, "forest: apply tree %d", t)
			}
			leaves[t] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return leaves, nil
}
