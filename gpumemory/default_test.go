// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpumemory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// newTestAlloc builds a DefaultAlloc over a bare, never-allocated
// rawBuffer: Recycle only calls raw.destroy(), which no-ops on every
// all-zero field, so Pool's fence-gating logic needs no live VkDevice.
func newTestAlloc(name string) *DefaultAlloc {
	return &DefaultAlloc{Name: name, raw: &rawBuffer{}}
}

func TestPoolRecycleReleasesOnlyAllocsAtOrBeforeCompletedFence(t *testing.T) {
	p := NewPool(nil)
	early := newTestAlloc("early")
	late := newTestAlloc("late")
	p.Release(early, 5)
	p.Release(late, 10)

	p.Recycle(5)

	assert.Len(t, p.pending, 1, "only the fence-5 allocation should have been retired")
	assert.Equal(t, "late", p.pending[0].alloc.Name)
}

func TestPoolRecycleIsANoOpWhenNothingHasCompleted(t *testing.T) {
	p := NewPool(nil)
	p.Release(newTestAlloc("a"), 100)

	p.Recycle(0)

	assert.Len(t, p.pending, 1)
}

func TestPoolRecycleDrainsEverythingOnceFencePassesAll(t *testing.T) {
	p := NewPool(nil)
	p.Release(newTestAlloc("a"), 1)
	p.Release(newTestAlloc("b"), 2)

	p.Recycle(2)

	assert.Empty(t, p.pending)
}
