/*
Copyright © 2018 the cfpipe authors.
This file is part of cfpipe.

cfpipe is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

cfpipe is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with cfpipe.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package threadpool provides a bounded goroutine pool for running
// the per-file NetCDF probes that the CF reader's catalog phase
// issues concurrently, in the same "N workers draining a task
// channel" shape as requestcache.Cache and the inmap run loop's
// GOMAXPROCS-sized worker pool.
package threadpool

import (
	"runtime"
	"sync"
)

// task is the unit of work submitted to a Pool.
type task struct {
	id     int
	fn     func() (interface{}, error)
	result chan Result
}

// Result is a task's outcome, keyed by the id passed to Submit.
type Result struct {
	ID    int
	Value interface{}
	Err   error
}

// Future is a handle to a submitted task's eventual Result.
type Future struct {
	id     int
	result chan Result
	cached *Result
}

// ID returns the id this future was submitted with.
func (f *Future) ID() int { return f.id }

// Wait blocks until the task completes and returns its value and
// error. Calling Wait more than once returns the cached outcome.
func (f *Future) Wait() (interface{}, error) {
	if f.cached == nil {
		r := <-f.result
		f.cached = &r
	}
	return f.cached.Value, f.cached.Err
}

// Pool is a fixed-size set of goroutines draining a shared task
// queue.
type Pool struct {
	tasks chan task
	wg    sync.WaitGroup
	once  sync.Once
}

// New returns a Pool with size worker goroutines. A size of zero or
// less uses runtime.GOMAXPROCS(0).
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	p := &Pool{tasks: make(chan task)}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for t := range p.tasks {
		v, err := t.fn()
		t.result <- Result{ID: t.id, Value: v, Err: err}
	}
}

// Submit enqueues fn for execution and returns a Future for its
// result. id is caller-supplied and has no meaning to the pool beyond
// labeling the Result and the WaitAll map key.
func (p *Pool) Submit(id int, fn func() (interface{}, error)) *Future {
	f := &Future{id: id, result: make(chan Result, 1)}
	p.tasks <- task{id: id, fn: fn, result: f.result}
	return f
}

// Close stops accepting new work and blocks until every in-flight
// task has finished. Submit must not be called after Close.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.tasks)
	})
	p.wg.Wait()
}

// WaitAll blocks on every future in futures and returns their values
// keyed by id, along with the errors (if any) encountered along the
// way. A future whose task errored contributes no entry to the
// returned map.
func WaitAll(futures []*Future) (map[int]interface{}, []error) {
	values := make(map[int]interface{}, len(futures))
	var errs []error
	for _, f := range futures {
		v, err := f.Wait()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		values[f.ID()] = v
	}
	return values, errs
}
