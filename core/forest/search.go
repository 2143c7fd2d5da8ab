package forest

import (
	"math/rand/v2"

	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

// candidate is the best (learner, threshold, gain) seen by one search.
type candidate[F WeakLearner] struct {
	learner   F
	threshold float64
	gain      float64
	found     bool
}

// consider keeps c when its gain is >= the current best, so later ties win.
func (b *candidate[F]) consider(c candidate[F]) {
	if c.found && c.gain >= b.gain {
		*b = c
	}
}

// searcher holds the scratch state for evaluating candidate splits. The
// sequential trainer owns one; the parallel trainer owns one per worker and
// never shares them.
type searcher[F WeakLearner, S Aggregator[S]] struct {
	context    TrainingContext[F, S]
	rng        *rand.Rand
	nWanted    int
	responses  []float64
	thresholds []float64
	bins       []S
	parent     S
	left       S
	right      S
	best       candidate[F]
}

func newSearcher[F WeakLearner, S Aggregator[S]](ctx TrainingContext[F, S], rng *rand.Rand, nWanted, nPoints int) *searcher[F, S] {
	s := &searcher[F, S]{
		context:    ctx,
		rng:        rng,
		nWanted:    nWanted,
		responses:  make([]float64, nPoints),
		thresholds: make([]float64, 0, nWanted+1),
		bins:       make([]S, nWanted+1),
		parent:     ctx.NewAggregator(),
		left:       ctx.NewAggregator(),
		right:      ctx.NewAggregator(),
	}
	for b := range s.bins {
		s.bins[b] = ctx.NewAggregator()
	}
	return s
}

// search draws nFeatures random learners and evaluates their sampled
// thresholds over indices[i0:i1], recording the best split in s.best.
// parent must already hold the statistics of the whole range.
func (s *searcher[F, S]) search(data PointCollection, indices []int, i0, i1 int, parent S, nFeatures int, node int) error {
	s.best = candidate[F]{}

	for f := 0; f < nFeatures; f++ {
		learner := s.context.RandomLearner(s.rng)

		for i := i0; i < i1; i++ {
			s.responses[i] = learner.Response(data, indices[i])
		}

		s.thresholds = ChooseCandidateThresholds(s.rng, s.responses[i0:i1], s.nWanted, s.thresholds)
		nThresholds := len(s.thresholds)
		if nThresholds == 0 {
			continue
		}

		for b := 0; b <= nThresholds; b++ {
			s.bins[b].Clear()
		}
		for i := i0; i < i1; i++ {
			b := 0
			for b < nThresholds && s.responses[i] >= s.thresholds[b] {
				b++
			}
			s.bins[b].Aggregate(data, indices[i])
		}

		for t := 0; t < nThresholds; t++ {
			s.left.Clear()
			s.right.Clear()
			for b := 0; b <= nThresholds; b++ {
				if b <= t {
					s.left.Merge(s.bins[b])
				} else {
					s.right.Merge(s.bins[b])
				}
			}

			gain := s.context.InformationGain(parent, s.left, s.right)
			if err := errors.CheckScalar("InformationGain", gain, node); err != nil {
				return err
			}
			s.best.consider(candidate[F]{
				learner:   learner,
				threshold: s.thresholds[t],
				gain:      gain,
				found:     true,
			})
		}
	}
	return nil
}
