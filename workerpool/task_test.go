// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package workerpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskSetFinalizeOpensZeroIndegreeSignals(t *testing.T) {
	ts := NewTaskSet()
	root := NewTask("root", func(ThreadIndex) {})
	ts.Add(root)
	ts.Finalize()

	assert.True(t, root.Handle().Valid())
	select {
	case <-root.handle.sig.ready:
	default:
		t.Fatal("a task with no producers must be ready immediately after Finalize")
	}
}

func TestTaskSetFinalizeLeavesDependentSignalClosedUntilProducerDone(t *testing.T) {
	ts := NewTaskSet()
	producer := NewTask("producer", func(ThreadIndex) {})
	consumer := NewTask("consumer", func(ThreadIndex) {})
	AddDependency(producer, consumer)
	ts.Add(producer)
	ts.Add(consumer)
	ts.Finalize()

	select {
	case <-consumer.handle.sig.ready:
		t.Fatal("consumer must not be ready before its producer signals done")
	default:
	}

	producer.handle.sig.signalDone()

	select {
	case <-consumer.handle.sig.ready:
	default:
		t.Fatal("consumer must be ready once its sole producer has signaled done")
	}
}

func TestTaskSetAddAfterFinalizePanics(t *testing.T) {
	ts := NewTaskSet()
	ts.Finalize()
	assert.Panics(t, func() { ts.Add(NewTask("late", func(ThreadIndex) {})) })
}

func TestTaskSetTasksBeforeFinalizePanics(t *testing.T) {
	ts := NewTaskSet()
	assert.Panics(t, func() { ts.Tasks() })
}

func TestTaskSetSize(t *testing.T) {
	ts := NewTaskSet()
	ts.Add(NewTask("a", func(ThreadIndex) {}))
	ts.Add(NewTask("b", func(ThreadIndex) {}))
	assert.Equal(t, 2, ts.Size())
}

func TestBackgroundTaskHasNoDependencyHandle(t *testing.T) {
	bg := NewBackgroundTask("cleanup", func(ThreadIndex) {})
	assert.False(t, bg.Handle().Valid())
}

func TestFinalizeSkipsBackgroundTasks(t *testing.T) {
	ts := NewTaskSet()
	ts.Add(NewBackgroundTask("cleanup", func(ThreadIndex) {}))
	require.NotPanics(t, func() { ts.Finalize() })
}

func TestFinalizeIsIdempotent(t *testing.T) {
	ts := NewTaskSet()
	ts.Add(NewTask("a", func(ThreadIndex) {}))
	ts.Finalize()
	require.NotPanics(t, func() { ts.Finalize() })
}
