package forest

import (
	"math/rand/v2"
	"runtime"

	"github.com/YuminosukeSato/decisionforest/pkg/log"
)

type trainerOptions struct {
	rng      *rand.Rand
	logger   log.Logger
	recorder Recorder
	workers  int
}

// Option configures a tree trainer.
type Option func(*trainerOptions)

// WithSeed seeds the trainer's random source. Two sequential trainers with
// the same seed, context and data grow identical trees.
func WithSeed(seed uint64) Option {
	return func(o *trainerOptions) {
		o.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithRand sets the trainer's random source directly.
func WithRand(rng *rand.Rand) Option {
	return func(o *trainerOptions) {
		o.rng = rng
	}
}

// WithProgress sets the progress sink. A nil logger disables progress.
func WithProgress(logger log.Logger) Option {
	return func(o *trainerOptions) {
		o.logger = logger
	}
}

// WithRecorder sets the training observer, typically a telemetry.Recorder.
func WithRecorder(r Recorder) Option {
	return func(o *trainerOptions) {
		o.recorder = r
	}
}

// WithWorkers sets the worker pool size of a ParallelTreeTrainer.
// It has no effect on the sequential trainer.
func WithWorkers(n int) Option {
	return func(o *trainerOptions) {
		o.workers = n
	}
}

func newTrainerOptions(opts []Option) trainerOptions {
	o := trainerOptions{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	o.logger = log.OrNop(o.logger)
	if o.recorder == nil {
		o.recorder = nopRecorder{}
	}
	if o.workers < 1 {
		o.workers = 1
	}
	return o
}
