// Package workerpool runs independent jobs on a bounded set of goroutines.
package workerpool

import (
	"runtime"
	"sync"
)

// DefaultWorkers is the pool size used when a caller asks for zero workers.
var DefaultWorkers = runtime.NumCPU()

// Pool distributes jobs across a fixed number of workers and collects their
// results. Results arrive in completion order, not submission order.
type Pool[Job any, Result any] struct {
	numWorkers int
	jobs       chan Job
	results    chan Result
	wg         sync.WaitGroup
}

// New creates a pool with the given number of workers. If numWorkers is 0 or
// negative it defaults to DefaultWorkers. If numJobs is less than numWorkers,
// the pool is sized to match numJobs.
func New[Job any, Result any](numWorkers, numJobs int) *Pool[Job, Result] {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers
	}
	if numJobs > 0 {
		numWorkers = min(numWorkers, numJobs)
	}

	return &Pool[Job, Result]{
		numWorkers: numWorkers,
		jobs:       make(chan Job, numJobs),
		results:    make(chan Result, numJobs),
	}
}

// Start launches the workers. workerFn is called once per submitted job.
func (p *Pool[Job, Result]) Start(workerFn func(Job) Result) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.results <- workerFn(job)
			}
		}()
	}
}

// Submit queues a job.
func (p *Pool[Job, Result]) Submit(job Job) {
	p.jobs <- job
}

// Close stops accepting jobs. The results channel is closed once every
// worker has finished.
func (p *Pool[Job, Result]) Close() {
	close(p.jobs)
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

// Results returns the channel workers write to.
func (p *Pool[Job, Result]) Results() <-chan Result {
	return p.results
}

// Map runs fn over every input on a pool of numWorkers goroutines and returns
// the outputs in input order.
func Map[In any, Out any](numWorkers int, inputs []In, fn func(In) Out) []Out {
	type indexed struct {
		i   int
		out Out
	}

	out := make([]Out, len(inputs))
	if len(inputs) == 0 {
		return out
	}

	pool := New[int, indexed](numWorkers, len(inputs))
	pool.Start(func(i int) indexed {
		return indexed{i: i, out: fn(inputs[i])}
	})
	for i := range inputs {
		pool.Submit(i)
	}
	pool.Close()

	for r := range pool.Results() {
		out[r.i] = r.out
	}
	return out
}
