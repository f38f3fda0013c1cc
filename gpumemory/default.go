// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpumemory

import (
	"sync"

	vk "github.com/goki/vulkan"
	"zetacore.dev/engine/device"
)

// DefaultAlloc is a pooled, device-local buffer or texture (§4.2 flavor 3).
// Creation optionally stages a copy from an upload Block; the actual copy
// command is recorded by the caller into the end-of-frame resource-upload
// command list (Pool does not own command-list recording, matching the
// teacher's separation between MemBuff allocation and System's command
// submission in vgpu/system.go).
type DefaultAlloc struct {
	Name   string
	raw    *rawBuffer
	Source *Block // staging source for the pending upload copy, if any
}

func (a *DefaultAlloc) Buffer() vk.Buffer { return a.raw.Buffer }
func (a *DefaultAlloc) Size() int         { return a.raw.Size }

// pendingFree is one entry in Pool's fence-deferred release queue.
type pendingFree struct {
	alloc       *DefaultAlloc
	fenceValue  uint64
}

// Pool manages the lifetime of pooled default-heap allocations: creation,
// naming, and fence-gated release once nothing in flight still reads them.
// Grounded on the release side of vgpu/memory.go's Memory.Free/FreeBuff,
// generalized from "free at Destroy time" to "free once retired fence
// value completes", matching §3's Lifecycle clause for pooled allocations.
type Pool struct {
	mu      sync.Mutex
	dev     *device.Device
	pending []pendingFree
}

// NewPool creates an empty default-heap allocation pool.
func NewPool(d *device.Device) *Pool {
	return &Pool{dev: d}
}

// Alloc creates a new named, device-local buffer, optionally recording a
// staging source for the end-of-frame upload pass to copy from.
func (p *Pool) Alloc(name string, size int, source *Block) (*DefaultAlloc, error) {
	raw, err := newRawBuffer(p.dev, KindDefault, size, false)
	if err != nil {
		return nil, err
	}
	return &DefaultAlloc{Name: name, raw: raw, Source: source}, nil
}

// Release enqueues alloc for destruction once fenceValue completes on the
// direct queue (the allocation's last possible reader was recorded before
// this value was reserved).
func (p *Pool) Release(alloc *DefaultAlloc, fenceValue uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, pendingFree{alloc: alloc, fenceValue: fenceValue})
}

// Recycle destroys every pending allocation whose retirement fence value
// has completed. Called once per frame from the app loop's end-of-frame
// phase (§2 step 7, "recycles fenced resources").
func (p *Pool) Recycle(completed uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.pending[:0]
	for _, pf := range p.pending {
		if completed >= pf.fenceValue {
			pf.alloc.raw.destroy()
			continue
		}
		kept = append(kept, pf)
	}
	p.pending = kept
}
