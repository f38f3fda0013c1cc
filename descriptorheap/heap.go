// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package descriptorheap implements a free-list suballocator over a
// single shader-visible descriptor heap (§4.3): a set of free lists keyed
// by the log2 of the requested range size, a bump pointer carving fresh
// blocks, and a fence-deferred release queue.
//
// Handle math is modeled on the D3D12 descriptor-handle vocabulary (a CPU
// handle, a GPU handle, and a fixed per-descriptor increment size) rather
// than on the teacher's vgpu.Texture/Sampler descriptor writes, which
// never needed a suballocator of their own; the Table type below mirrors
// D3D12_CPU_DESCRIPTOR_HANDLE/D3D12_GPU_DESCRIPTOR_HANDLE's Offset pattern.
package descriptorheap

import (
	"fmt"
	"math/bits"
	"sync"

	vk "github.com/goki/vulkan"
	"zetacore.dev/engine/device"
)

// Table is a contiguous run of descriptors handed out by a single
// allocation request.
type Table struct {
	CPUBase      uint64 // opaque CPU-side handle base
	GPUBase      vk.DeviceAddress
	Count        int
	slotIdx      int // internal free-list slot index, for the reuse optimization
	log2         int
}

// CPUHandle returns the CPU-visible handle for descriptor i within the
// table, offset by incrementSize bytes per descriptor — the same
// arithmetic as D3D12_CPU_DESCRIPTOR_HANDLE.Offset.
func (t Table) CPUHandle(i int, incrementSize uint32) uint64 {
	return t.CPUBase + uint64(i)*uint64(incrementSize)
}

// GPUHandle returns the GPU-visible handle for descriptor i within the
// table, mirroring D3D12_GPU_DESCRIPTOR_HANDLE.Offset.
func (t Table) GPUHandle(i int, incrementSize uint32) vk.DeviceAddress {
	return t.GPUBase + vk.DeviceAddress(uint64(i)*uint64(incrementSize))
}

type pendingRelease struct {
	table      Table
	fenceValue uint64
}

// Heap is the free-list suballocator. BlockSize is the number of
// descriptors carved from the bump pointer each time a size class's free
// list runs dry (§4.3 "a new block of block_size descriptors").
type Heap struct {
	mu sync.Mutex

	increment uint32
	total     int
	blockSize int

	bump int // next unused descriptor index

	// freeLists[log2(size)] holds tables of exactly 2^log2 descriptors.
	// freeLists[log2(blockSize)] doubles as the "previously-released large
	// blocks" pool carveBlock falls back to once bump reaches the heap's
	// end (§4.3 second paragraph).
	freeLists map[int][]Table

	pending []pendingRelease

	direct *device.Fence
}

// New creates a heap of total descriptors, each incrementBytes apart, with
// blockSize descriptors carved per bump-pointer advance.
func New(total, blockSize int, incrementBytes uint32, direct *device.Fence) (*Heap, error) {
	if blockSize <= 0 || total%blockSize != 0 {
		return nil, fmt.Errorf("descriptorheap: total %d must be a multiple of blockSize %d", total, blockSize)
	}
	return &Heap{
		increment: incrementBytes,
		total:     total,
		blockSize: blockSize,
		freeLists: make(map[int][]Table),
		direct:    direct,
	}, nil
}

func log2Ceil(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// Alloc requests k descriptors, rounding up to the next power of two, and
// returns a Table naming the base handles, range length, and the
// free-list slot it occupies.
func (h *Heap) Alloc(k int) (Table, error) {
	if k <= 0 {
		return Table{}, fmt.Errorf("descriptorheap: invalid request %d", k)
	}
	lg := log2Ceil(k)
	size := 1 << lg

	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.freeLists[lg]
	if len(list) == 0 {
		if err := h.carveBlock(lg); err != nil {
			return Table{}, err
		}
		list = h.freeLists[lg]
	}
	n := len(list)
	t := list[n-1]
	h.freeLists[lg] = list[:n-1]
	t.Count = k
	return t, nil
}

// carveBlock ensures at least one table of size 2^lg is available,
// either by carving a fresh blockSize-sized run from the bump pointer and
// splitting it into 2^lg chunks, or by splitting a reused large block.
func (h *Heap) carveBlock(lg int) error {
	size := 1 << lg
	if size > h.blockSize {
		return fmt.Errorf("descriptorheap: request exceeds block size %d", h.blockSize)
	}
	topLg := log2Ceil(h.blockSize)

	var base int
	switch {
	case h.bump+h.blockSize <= h.total:
		base = h.bump
		h.bump += h.blockSize
	case len(h.freeLists[topLg]) > 0:
		large := h.freeLists[topLg]
		n := len(large)
		base = int(large[n-1].CPUBase)
		h.freeLists[topLg] = large[:n-1]
	default:
		return fmt.Errorf("descriptorheap: heap exhausted (%d descriptors in use)", h.total)
	}

	chunks := h.blockSize / size
	tables := make([]Table, chunks)
	for i := 0; i < chunks; i++ {
		tables[i] = Table{
			CPUBase: uint64(base + i*size),
			GPUBase: vk.DeviceAddress(base+i*size) * vk.DeviceAddress(h.increment),
			log2:    lg,
			slotIdx: len(h.freeLists[lg]) + i,
		}
	}
	h.freeLists[lg] = append(h.freeLists[lg], tables...)
	return nil
}

// Release enqueues t for return to its free list once fenceValue
// completes on the direct queue (§4.3 "Releases are deferred via a
// per-heap pending queue keyed by the next frame's fence value").
func (h *Heap) Release(t Table, fenceValue uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = append(h.pending, pendingRelease{table: t, fenceValue: fenceValue})
}

// Recycle reads the direct queue's completed fence value (it does not
// signal the queue) and appends every pending entry whose fence has
// passed back to its free list, preferring
// to reinsert into the slot it last occupied so list growth stays bounded
// under ping-pong allocation patterns.
func (h *Heap) Recycle() error {
	completed, err := h.direct.CompletedValue()
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.pending[:0]
	for _, p := range h.pending {
		if completed < p.fenceValue {
			kept = append(kept, p)
			continue
		}
		// Reuse-same-slot optimization: reinsert at its recorded slotIdx
		// when the list hasn't shrunk past it, otherwise append normally.
		list := h.freeLists[p.table.log2]
		if p.table.slotIdx <= len(list) {
			list = append(list[:p.table.slotIdx], append([]Table{p.table}, list[p.table.slotIdx:]...)...)
		} else {
			list = append(list, p.table)
		}
		h.freeLists[p.table.log2] = list
	}
	h.pending = kept
	return nil
}
