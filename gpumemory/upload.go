// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpumemory

import (
	"fmt"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"zetacore.dev/engine/device"
)

// Block is the result of an upload-ring allocation: a device handle, byte
// offset, GPU address and mapped CPU pointer into the same memory (§4.2
// flavor 1).
type Block struct {
	Buffer   vk.Buffer
	Offset   int
	GPUAddr  vk.DeviceAddress
	Ptr      unsafe.Pointer
}

// UploadRing is a per-thread linear (bump) allocator over one host-visible
// staging buffer, grounded on the teacher's MemBuff host-side staging half
// (vgpu/membuff.go AllocHost), generalized from "one MemBuff per variable
// type" to "one ring per OS thread".
//
// A ring is reclaimed as a whole once the direct queue's fence passes the
// value it was retired at; there is no per-block free, matching the
// spec's "queued with the next fence value... reclaimed" recycling model.
type UploadRing struct {
	mu     sync.Mutex
	raw    *rawBuffer
	offset int

	// pendingFence is the fence value this ring was retired at, or 0 if the
	// ring is currently live (not yet full / not yet reset this frame).
	pendingFence uint64
}

// NewUploadRing allocates a size-byte host-visible ring.
func NewUploadRing(d *device.Device, size int) (*UploadRing, error) {
	raw, err := newRawBuffer(d, KindUpload, size, true)
	if err != nil {
		return nil, err
	}
	return &UploadRing{raw: raw}, nil
}

// Alloc reserves n bytes aligned to align, returning nil if the ring has no
// room left before its next recycle. Callers fall back to a fresh
// allocation-failure path (§4.1 "memory-allocation failures ... are
// fatal" applies to the worker queue, not to this expected, recoverable
// case).
func (r *UploadRing) Alloc(n, align int) *Block {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pendingFence != 0 {
		return nil
	}
	aligned := alignUp(r.offset, align)
	if aligned+n > r.raw.Size {
		return nil
	}
	r.offset = aligned + n
	return &Block{
		Buffer: r.raw.Buffer,
		Offset: aligned,
		Ptr:    unsafe.Add(r.raw.Ptr, aligned),
	}
}

// Retire marks the ring as spent for this frame, to be reclaimed once
// fenceValue completes on the direct queue.
func (r *UploadRing) Retire(fenceValue uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.offset == 0 {
		return
	}
	r.pendingFence = fenceValue
}

// TryRecycle resets the ring if its retired fence value has completed.
// Returns true if the ring is now available for allocation.
func (r *UploadRing) TryRecycle(completed uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pendingFence == 0 {
		return true
	}
	if completed < r.pendingFence {
		return false
	}
	r.offset = 0
	r.pendingFence = 0
	return true
}

func (r *UploadRing) Destroy() {
	r.raw.destroy()
}

func alignUp(v, align int) int {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

func checkedResult(ret vk.Result, what string) error {
	if ret != vk.Success {
		return fmt.Errorf("gpumemory: %s failed: %d", what, ret)
	}
	return nil
}
