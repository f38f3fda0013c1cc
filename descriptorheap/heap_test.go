// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package descriptorheap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// New/Alloc/carveBlock/Release never touch h.direct (only Recycle does, to
// read a fence's completed value), so a nil *device.Fence exercises them
// without a live VkDevice.

func TestLog2CeilRoundsUpToPowerOfTwo(t *testing.T) {
	assert.Equal(t, 0, log2Ceil(1))
	assert.Equal(t, 1, log2Ceil(2))
	assert.Equal(t, 2, log2Ceil(3))
	assert.Equal(t, 2, log2Ceil(4))
	assert.Equal(t, 3, log2Ceil(5))
}

func TestNewRejectsBlockSizeNotDividingTotal(t *testing.T) {
	_, err := New(100, 32, 16, nil)
	assert.Error(t, err)
}

func TestAllocRoundsUpAndAdvancesBumpPointer(t *testing.T) {
	h, err := New(256, 64, 16, nil)
	require.NoError(t, err)

	tbl, err := h.Alloc(3)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Count, "Count reports the requested size, not the rounded-up allocation")
	assert.Less(t, tbl.CPUBase, uint64(64), "carved from the first (and only) block")
	assert.Equal(t, tbl.CPUBase+16, tbl.CPUHandle(1, 16))
}

func TestAllocReusesFreeListBeforeCarvingAnotherBlock(t *testing.T) {
	h, err := New(256, 64, 16, nil)
	require.NoError(t, err)

	a, err := h.Alloc(4)
	require.NoError(t, err)
	b, err := h.Alloc(4)
	require.NoError(t, err)
	// One carveBlock(lg=2) call splits a 64-descriptor block into 16
	// 4-descriptor tables; both allocations come from that single block,
	// so the bump pointer only advances once (64, not 128).
	assert.Less(t, a.CPUBase, uint64(64))
	assert.Less(t, b.CPUBase, uint64(64))
	assert.NotEqual(t, a.CPUBase, b.CPUBase)
}

func TestAllocRejectsNonPositiveRequest(t *testing.T) {
	h, err := New(64, 64, 16, nil)
	require.NoError(t, err)
	_, err = h.Alloc(0)
	assert.Error(t, err)
}

func TestAllocRejectsRequestLargerThanBlockSize(t *testing.T) {
	h, err := New(256, 64, 16, nil)
	require.NoError(t, err)
	_, err = h.Alloc(65)
	assert.Error(t, err)
}

func TestAllocReturnsErrorOnceHeapIsExhausted(t *testing.T) {
	h, err := New(64, 64, 16, nil)
	require.NoError(t, err)
	_, err = h.Alloc(64)
	require.NoError(t, err, "the single block fits exactly once")
	_, err = h.Alloc(64)
	assert.Error(t, err, "no bump-pointer room left and no large block to reclaim")
}

func TestReleaseEnqueuesWithoutTouchingTheFence(t *testing.T) {
	h, err := New(64, 64, 16, nil)
	require.NoError(t, err)
	tbl, err := h.Alloc(8)
	require.NoError(t, err)

	require.NotPanics(t, func() { h.Release(tbl, 42) })
	assert.Len(t, h.pending, 1)
	assert.Equal(t, uint64(42), h.pending[0].fenceValue)
}
