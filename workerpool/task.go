// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package workerpool

// Priority selects which of the pool's two queues a task runs on.
// Background tasks bypass the signal mechanism entirely (§4.1
// "Background tasks bypass the signal mechanism (fire-and-forget)").
type Priority int

const (
	Normal Priority = iota
	Background
)

// Handle is an opaque reference to a task's dependency signal: a worker
// waits on it before running the task and signals it once the task has
// finished (§6 "To worker pool").
type Handle struct {
	sig *Signal
}

// Valid reports whether h refers to a real signal, mirroring the
// original's sentinel handle value of -1.
func (h Handle) Valid() bool { return h.sig != nil }

// Task is one unit of work submitted to the pool. Fn receives the
// ThreadIndex of the worker goroutine running it, for callers that need
// per-thread state (gpumemory's upload rings).
type Task struct {
	Name     string
	Priority Priority
	Fn       func(idx ThreadIndex)
	handle   Handle
}

// NewTask wraps fn as a foreground task and registers its dependency
// signal. Callers wire up dependencies with AddDependency before
// Finalize, then Submit it (directly, or via a TaskSet).
func NewTask(name string, fn func(idx ThreadIndex)) *Task {
	return &Task{Name: name, Priority: Normal, Fn: fn, handle: Handle{sig: NewSignal()}}
}

// NewBackgroundTask wraps fn as a fire-and-forget background task; it has
// no dependency signal; Handle() returns an invalid Handle.
func NewBackgroundTask(name string, fn func(idx ThreadIndex)) *Task {
	return &Task{Name: name, Priority: Background, Fn: fn}
}

// Handle returns the task's dependency handle.
func (t *Task) Handle() Handle { return t.handle }

// AddDependency records that t must not run until after must completes:
// must's completion decrements t's indegree, and t's indegree is bumped
// by one to account for it. Both tasks must be foreground tasks not yet
// finalized.
func AddDependency(must, t *Task) {
	t.handle.sig.indegree++
	must.handle.sig.AddAdjacent(t.handle.sig)
}

// TaskSet is a batch of tasks whose dependency edges are assembled by the
// caller (typically rendergraph's Build) and then frozen with Finalize
// before being handed to the pool in one Submit call (§4.1 "Tasks are
// finalized before submission").
type TaskSet struct {
	tasks     []*Task
	finalized bool
}

// NewTaskSet creates an empty set.
func NewTaskSet() *TaskSet {
	return &TaskSet{}
}

// Add appends t to the set. Must be called before Finalize.
func (ts *TaskSet) Add(t *Task) {
	if ts.finalized {
		panic("workerpool: Add called on a finalized TaskSet")
	}
	ts.tasks = append(ts.tasks, t)
}

// Finalize records each task's indegree against its signal handle,
// opening the signals of any task whose indegree is already zero. After
// Finalize no more dependencies may be added.
func (ts *TaskSet) Finalize() {
	if ts.finalized {
		return
	}
	for _, t := range ts.tasks {
		if t.Priority == Background {
			continue
		}
		t.handle.sig.Seal()
	}
	ts.finalized = true
}

// Tasks returns the set's tasks in submission order. Finalize must have
// been called first.
func (ts *TaskSet) Tasks() []*Task {
	if !ts.finalized {
		panic("workerpool: Tasks called before Finalize")
	}
	return ts.tasks
}

// Size returns the number of tasks in the set.
func (ts *TaskSet) Size() int { return len(ts.tasks) }
