// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpumemory

import (
	"fmt"

	"zetacore.dev/engine/base/logx"
	"zetacore.dev/engine/device"
)

// uploadRingSize is the per-thread staging ring size. A single value for
// every thread matches the teacher's fixed-size MemBuff allocations; the
// engine does not attempt to size rings per workload.
const uploadRingSize = 8 << 20 // 8 MiB

// Manager owns every per-thread upload ring (sized to the platform's
// maximum thread count, §4.2 "Per-thread state is sized to the platform's
// maximum thread count"), the default-heap pool, and the process-global
// direct/compute fences allocations are retired against.
type Manager struct {
	dev *device.Device

	Direct  *device.Fence
	Compute *device.Fence

	rings []*UploadRing
	Pool  *Pool
}

// NewManager creates one upload ring per thread slot (maxThreads, from
// workerpool's thread-indexing table) and wires the pool to the supplied
// fences.
func NewManager(d *device.Device, maxThreads int, direct, compute *device.Fence) (*Manager, error) {
	m := &Manager{dev: d, Direct: direct, Compute: compute, Pool: NewPool(d)}
	m.rings = make([]*UploadRing, maxThreads)
	for i := range m.rings {
		ring, err := NewUploadRing(d, uploadRingSize)
		if err != nil {
			return nil, fmt.Errorf("gpumemory: ring %d: %w", i, err)
		}
		m.rings[i] = ring
	}
	return m, nil
}

// Ring returns the upload ring owned by thread index threadIdx (the
// workerpool.ThreadIndex a task receives).
func (m *Manager) Ring(threadIdx int) *UploadRing {
	return m.rings[threadIdx]
}

// NewReadback allocates a standalone readback buffer (§4.2 flavor 2).
func (m *Manager) NewReadback(size int) (*Readback, error) {
	return NewReadback(m.dev, size)
}

// RetireRings marks every live ring as spent for this frame against the
// direct queue's next fence value, reserved once at end-of-frame.
func (m *Manager) RetireRings(fenceValue uint64) {
	for _, r := range m.rings {
		r.Retire(fenceValue)
	}
}

// Recycle walks every thread's ring and the default-heap pool, releasing
// everything whose retirement fence value has completed (§2 step 7, §3
// Lifecycle, §4.2 "Recycle walks each thread's pending lists once per
// frame").
func (m *Manager) Recycle() {
	completedDirect, err := m.Direct.CompletedValue()
	if err != nil {
		logx.PrintWarn("gpumemory: direct fence query failed: ", err)
		return
	}
	for _, r := range m.rings {
		r.TryRecycle(completedDirect)
	}
	m.Pool.Recycle(completedDirect)
}

// Destroy releases every ring. The pool's live allocations must be
// released by the caller first.
func (m *Manager) Destroy() {
	for _, r := range m.rings {
		r.Destroy()
	}
}
