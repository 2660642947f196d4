/*
 * vcore - Work-stealing vCPU scheduler.
 *
 * Copyright 2026, vcore authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package scheduler runs one goroutine per vCPU plus a shared
// work-stealing pool of JIT compile workers, generalizing the teacher's
// core.go WaitGroup-and-channel run loop from a single fixed CPU count
// to a configurable vCPU set. Compile jobs are a separate FIFO channel per
// worker; a worker whose own queue is empty takes the oldest job from
// the longest peer queue rather than blocking on a single shared
// channel, so one slow compile cannot stall every other worker.
package scheduler

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// VCPU runs one guest virtual CPU to completion or until ctx is
// cancelled.
type VCPU interface {
	Run(ctx context.Context) error
}

// CompileJob is one unit of work submitted to the JIT compile pool.
type CompileJob func(ctx context.Context) error

// Scheduler owns one goroutine per attached vCPU and a
// bounded pool of compile workers that steal work from each other.
type Scheduler struct {
	vcpus       []VCPU
	compileSem  *semaphore.Weighted
	workers     int
	mu          sync.Mutex
	queues      []chan CompileJob
	next        int
}

// Config sizes the scheduler's compile pool.
type Config struct {
	CompileWorkers int
}

// DefaultConfig sizes the compile pool at 4 workers.
func DefaultConfig() Config { return Config{CompileWorkers: 4} }

// New builds a Scheduler for vcpus with a compile pool sized by cfg.
func New(vcpus []VCPU, cfg Config) *Scheduler {
	workers := cfg.CompileWorkers
	if workers <= 0 {
		workers = 1
	}
	queues := make([]chan CompileJob, workers)
	for i := range queues {
		queues[i] = make(chan CompileJob, 64)
	}
	return &Scheduler{
		vcpus:      vcpus,
		compileSem: semaphore.NewWeighted(int64(workers)),
		workers:    workers,
		queues:     queues,
	}
}

// Submit hands a compile job to the next worker queue in round-robin
// order; a worker whose own queue empties takes the oldest job from the
// longest other queue rather than sitting idle while jobs back up
// elsewhere.
func (s *Scheduler) Submit(job CompileJob) {
	s.mu.Lock()
	q := s.queues[s.next%len(s.queues)]
	s.next++
	s.mu.Unlock()
	q <- job
}

// Run starts every vCPU and every compile worker, returning once ctx is
// cancelled or any vCPU returns a non-nil error (errgroup's
// first-error-cancels-the-group semantics, same as the teacher's core.go
// run loop generalized past a single WaitGroup).
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, v := range s.vcpus {
		v := v
		g.Go(func() error {
			return v.Run(gctx)
		})
	}

	for i := 0; i < s.workers; i++ {
		i := i
		g.Go(func() error {
			return s.runCompileWorker(gctx, i)
		})
	}

	return g.Wait()
}

func (s *Scheduler) runCompileWorker(ctx context.Context, id int) error {
	own := s.queues[id]
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-own:
			if !ok {
				return nil
			}
			if err := s.runJob(ctx, job); err != nil {
				return err
			}
		default:
			job, stole := s.steal(id)
			if !stole {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case job, ok := <-own:
					if !ok {
						return nil
					}
					if err := s.runJob(ctx, job); err != nil {
						return err
					}
				}
				continue
			}
			if err := s.runJob(ctx, job); err != nil {
				return err
			}
		}
	}
}

// steal pulls one job from the longest peer queue other than id.
func (s *Scheduler) steal(id int) (CompileJob, bool) {
	best := -1
	bestLen := 0
	for i, q := range s.queues {
		if i == id {
			continue
		}
		if l := len(q); l > bestLen {
			bestLen = l
			best = i
		}
	}
	if best == -1 {
		return nil, false
	}
	select {
	case job := <-s.queues[best]:
		return job, true
	default:
		return nil, false
	}
}

func (s *Scheduler) runJob(ctx context.Context, job CompileJob) error {
	if err := s.compileSem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.compileSem.Release(1)
	return job(ctx)
}
