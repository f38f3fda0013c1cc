// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpumemory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignUpRoundsToTheRequestedAlignment(t *testing.T) {
	assert.Equal(t, 0, alignUp(0, 16))
	assert.Equal(t, 16, alignUp(1, 16))
	assert.Equal(t, 16, alignUp(16, 16))
	assert.Equal(t, 32, alignUp(17, 16))
}

func TestAlignUpTreatsNonPositiveAlignmentAsNoOp(t *testing.T) {
	assert.Equal(t, 7, alignUp(7, 0))
	assert.Equal(t, 7, alignUp(7, 1))
}

// newTestRing builds an UploadRing over a bare rawBuffer with no backing
// Vulkan memory: Alloc/Retire/TryRecycle only ever read raw.Size and
// compute pointer arithmetic on raw.Ptr (nil here, never dereferenced), so
// none of this needs a live VkDevice.
func newTestRing(size int) *UploadRing {
	return &UploadRing{raw: &rawBuffer{Size: size}}
}

func TestUploadRingAllocAdvancesOffsetWithAlignment(t *testing.T) {
	r := newTestRing(64)

	b1 := r.Alloc(10, 16)
	assert.NotNil(t, b1)
	assert.Equal(t, 0, b1.Offset)

	b2 := r.Alloc(10, 16)
	assert.NotNil(t, b2)
	assert.Equal(t, 16, b2.Offset, "second allocation starts after the first, rounded up to the alignment")
}

func TestUploadRingAllocReturnsNilWhenOutOfRoom(t *testing.T) {
	r := newTestRing(16)
	b1 := r.Alloc(16, 1)
	assert.NotNil(t, b1)
	assert.Nil(t, r.Alloc(1, 1), "the ring has no room left before its next recycle")
}

func TestUploadRingAllocReturnsNilWhilePendingRecycle(t *testing.T) {
	r := newTestRing(64)
	r.Alloc(8, 1)
	r.Retire(5)
	assert.Nil(t, r.Alloc(8, 1), "a retired ring must not be allocated from until recycled")
}

func TestUploadRingRetireIsANoOpOnAnUntouchedRing(t *testing.T) {
	r := newTestRing(64)
	r.Retire(5)
	assert.Equal(t, uint64(0), r.pendingFence, "an empty ring (offset 0) was never actually used this frame")
}

func TestUploadRingTryRecycleWaitsForTheRetiredFenceValue(t *testing.T) {
	r := newTestRing(64)
	r.Alloc(8, 1)
	r.Retire(10)

	assert.False(t, r.TryRecycle(9), "fence hasn't reached the value the ring was retired at")
	assert.True(t, r.TryRecycle(10))
	assert.Equal(t, 0, r.offset, "recycling resets the bump pointer")

	b := r.Alloc(8, 1)
	assert.NotNil(t, b, "ring is live again after a successful recycle")
}

func TestUploadRingTryRecycleOnALiveRingIsTriviallyTrue(t *testing.T) {
	r := newTestRing(64)
	assert.True(t, r.TryRecycle(0), "no retirement pending, nothing to wait for")
}
