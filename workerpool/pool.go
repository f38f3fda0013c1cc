// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"

	"zetacore.dev/engine/base/logx"
)

// Pool owns two persistent goroutine pools: a foreground pool sized to
// the logical CPU count (runtime.NumCPU) unless told otherwise, and a
// separately-queued background pool. Every worker of both pools calls
// runtime.LockOSThread; no OS thread priority is set (Go has no portable
// thread-priority API), so ThreadPool.cpp's THREAD_PRIORITY split becomes
// fewer, separately-queued workers rather than an OS priority class.
type Pool struct {
	Name string

	fgQueue chan *Task
	bgQueue chan *Task

	fgSize int
	bgSize int

	started  atomic.Bool
	shutdown atomic.Bool
	wg       sync.WaitGroup

	submitted atomic.Int64
	finished  atomic.Int64
}

// New creates a pool with fgSize foreground workers (0 means
// runtime.NumCPU) and bgSize background workers.
func New(name string, fgSize, bgSize int) *Pool {
	if fgSize <= 0 {
		fgSize = runtime.NumCPU()
	}
	if bgSize < 0 {
		bgSize = 0
	}
	return &Pool{
		Name:    name,
		fgQueue: make(chan *Task, fgSize*64),
		bgQueue: make(chan *Task, bgSize*64+1),
		fgSize:  fgSize,
		bgSize:  bgSize,
	}
}

// NumWorkers returns the total number of foreground and background
// worker goroutines.
func (p *Pool) NumWorkers() int { return p.fgSize + p.bgSize }

// Start spawns every worker goroutine. Must be called exactly once.
func (p *Pool) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < p.fgSize; i++ {
		p.wg.Add(1)
		go p.runForeground(ThreadIndex(i))
	}
	for i := 0; i < p.bgSize; i++ {
		p.wg.Add(1)
		go p.runBackground(ThreadIndex(p.fgSize + i))
	}
	logx.PrintInfo("workerpool ", p.Name, ": started ", p.fgSize, " foreground, ", p.bgSize, " background workers")
}

func (p *Pool) runForeground(idx ThreadIndex) {
	defer p.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for t := range p.fgQueue {
		p.runTask(t, idx)
	}
}

func (p *Pool) runBackground(idx ThreadIndex) {
	defer p.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for t := range p.bgQueue {
		t.Fn(idx)
	}
}

// runTask executes a foreground task's full dependency contract: wait for
// producers, run, signal dependents, count toward the flush target.
func (p *Pool) runTask(t *Task, idx ThreadIndex) {
	t.handle.sig.Wait()
	t.Fn(idx)
	t.handle.sig.signalDone()
	p.finished.Add(1)
}

// Submit enqueues a single foreground task. The task's dependency signal
// must already be finalized (see TaskSet.Finalize or Signal.Seal for a
// lone task with no dependencies).
func (p *Pool) Submit(t *Task) {
	p.submitted.Add(1)
	p.fgQueue <- t
}

// SubmitSet enqueues every task in a finalized TaskSet.
func (p *Pool) SubmitSet(ts *TaskSet) {
	tasks := ts.Tasks()
	p.submitted.Add(int64(len(tasks)))
	for _, t := range tasks {
		p.fgQueue <- t
	}
}

// SubmitBackground enqueues a fire-and-forget background task: it does
// not participate in the indegree/signal contract and is not counted
// toward TryFlush's target.
func (p *Pool) SubmitBackground(t *Task) {
	p.bgQueue <- t
}

// TryFlush reports whether every foreground task submitted since the last
// successful flush has finished. If not, it helps drain the foreground
// queue from the calling goroutine (running any tasks immediately
// available without blocking) before returning false; the app loop calls
// this between phases (update -> render -> end-frame, §4.1 "Flush").
func (p *Pool) TryFlush() bool {
	if p.finished.Load() == p.submitted.Load() {
		p.finished.Store(0)
		p.submitted.Store(0)
		return true
	}
	for {
		select {
		case t, ok := <-p.fgQueue:
			if !ok {
				return false
			}
			p.runTask(t, -1)
		default:
			return false
		}
	}
}

// Shutdown stops accepting new work and waits for every worker to exit.
// Matches the original's no-op-task-per-worker join pattern, replaced
// with closing the channels the workers range/select over.
func (p *Pool) Shutdown() {
	if !p.shutdown.CompareAndSwap(false, true) {
		return
	}
	close(p.fgQueue)
	close(p.bgQueue)
	p.wg.Wait()
	logx.PrintInfo("workerpool ", p.Name, ": shut down")
}
