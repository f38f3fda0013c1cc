// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package workerpool owns a fixed set of OS threads and runs a
// dependency-aware task graph across them each frame (§4.1): a foreground
// pool sized to the logical CPU count by default, a smaller,
// separately-queued background pool, and an indegree-counted signal per
// task that blocks a
// worker until every producer it depends on has finished.
//
// Grounded on the atomic-indegree/signal-handle contract in
// ZetaRay's ThreadPool.cpp (Enqueue/WorkerThread/TryFlush), expressed with
// goroutines, channels and atomics in place of a lock-free MPMC queue and
// a condition variable — the idiomatic Go substitute for the same shape,
// per the persistent-pool pattern in the hwy-contrib workerpool package.
package workerpool

import "sync/atomic"

// Signal is a task's dependency gate: a release/acquire pair on an atomic
// indegree counter, paired with a channel that closes when the counter
// reaches zero (replacing the original's wait/notify condition variable).
type Signal struct {
	indegree int32
	ready    chan struct{}
	adjacent []*Signal
}

// NewSignal allocates a signal. Its indegree is set once via SetIndegree
// before the owning task is submitted.
func NewSignal() *Signal {
	return &Signal{ready: make(chan struct{})}
}

// SetIndegree finalizes the number of producers this signal waits on. If
// n is already zero or negative (no producers, or all producers were
// untouched this frame, see §4.4.3 step 1) the signal opens immediately.
func (s *Signal) SetIndegree(n int32) {
	s.indegree = n
	if n <= 0 {
		close(s.ready)
	}
}

// AddAdjacent records that s's owning task's completion must decrement
// tail's indegree. Must be called before Finalize freezes the graph;
// RenderGraph edge assembly (§4.4.3 step 2) is single-threaded so this
// needs no locking.
func (s *Signal) AddAdjacent(tail *Signal) {
	s.adjacent = append(s.adjacent, tail)
}

// Wait blocks until every producer this signal depends on has completed.
func (s *Signal) Wait() {
	<-s.ready
}

// Seal opens the signal now if its indegree (already accumulated via
// AddAdjacent calls on its producers) is zero. Used by Finalize for
// signals whose indegree was built incrementally rather than set in one
// call via SetIndegree.
func (s *Signal) Seal() {
	if atomic.LoadInt32(&s.indegree) <= 0 {
		close(s.ready)
	}
}

// signalDone decrements every adjacent signal's indegree; on a 1->0
// transition for a given adjacent signal, exactly one goroutine observes
// the transition (atomic.AddInt32 returning 0 happens once), so the
// corresponding close is race-free without an extra mutex.
func (s *Signal) signalDone() {
	for _, adj := range s.adjacent {
		if atomic.AddInt32(&adj.indegree, -1) == 0 {
			close(adj.ready)
		}
	}
}
