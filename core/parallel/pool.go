package parallel

import (
	"sync"

	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

// Task is executed by one worker over the half-open range [start, end).
// worker is the worker's stable id in [0, Size()), so callers can index
// per-worker scratch state without locking.
type Task func(worker, start, end int) error

type job struct {
	task       Task
	start, end int
	errs       []error
	wg         *sync.WaitGroup
}

// Pool is a fixed set of goroutines created once and reused for every Run.
// Each Run splits a range across the workers and returns only after every
// worker has finished its share.
type Pool struct {
	size      int
	queues    []chan job
	closeOnce sync.Once
	workers   sync.WaitGroup
}

// NewPool starts size workers. size < 1 is treated as 1.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{size: size, queues: make([]chan job, size)}
	for w := 0; w < size; w++ {
		p.queues[w] = make(chan job)
		p.workers.Add(1)
		go p.loop(w)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) loop(worker int) {
	defer p.workers.Done()
	for j := range p.queues[worker] {
		j.errs[worker] = runTask(j.task, worker, j.start, j.end)
		j.wg.Done()
	}
}

func runTask(task Task, worker, start, end int) (err error) {
	defer errors.Recover(&err, "parallel.Pool.Run")
	return task(worker, start, end)
}

// Run splits [0, items) into contiguous near-equal ranges, one per worker,
// and blocks until all of them return. Worker w always receives the w-th
// range, so results stored per worker can be merged in a fixed order. The
// first error in worker order is returned; a panicking task is reported as
// an *errors.PanicError.
func (p *Pool) Run(items int, task Task) error {
	ranges := Split(items, p.size)
	if len(ranges) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errs := make([]error, p.size)
	wg.Add(len(ranges))
	for w, r := range ranges {
		p.queues[w] <- job{task: task, start: r[0], end: r[1], errs: errs, wg: &wg}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Close stops the workers and waits for them to exit. It is safe to call
// more than once. Run must not be called after Close.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		for _, q := range p.queues {
			close(q)
		}
	})
	p.workers.Wait()
}
