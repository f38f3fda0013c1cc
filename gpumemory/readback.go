// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpumemory

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"zetacore.dev/engine/device"
)

// Readback is a standalone GPU->CPU buffer (§4.2 flavor 2). Its mapped
// pointer is not persistent across GPU writes: callers must Map after the
// GPU-side copy's fence has completed and Unmap before reusing the
// buffer for another copy, matching the platform's host-cache
// invalidation rules the teacher's MapMemory/UnmapMemory pair encodes.
type Readback struct {
	dev vk.Device
	raw *rawBuffer
}

// NewReadback allocates a size-byte host-visible, unmapped readback buffer.
func NewReadback(d *device.Device, size int) (*Readback, error) {
	raw, err := newRawBuffer(d, KindReadback, size, false)
	if err != nil {
		return nil, err
	}
	return &Readback{dev: d.Device, raw: raw}, nil
}

// Map maps the buffer and returns a pointer to its start. The caller must
// not hold the pointer across a subsequent GPU write without an
// intervening Unmap/Map pair.
func (r *Readback) Map() (unsafe.Pointer, error) {
	var ptr unsafe.Pointer
	ret := vk.MapMemory(r.dev, r.raw.Memory, 0, vk.DeviceSize(r.raw.Size), 0, &ptr)
	if ret != vk.Success {
		return nil, fmt.Errorf("gpumemory: readback MapMemory failed: %d", ret)
	}
	return ptr, nil
}

// Unmap unmaps the buffer.
func (r *Readback) Unmap() {
	vk.UnmapMemory(r.dev, r.raw.Memory)
}

// Buffer returns the underlying Vulkan buffer handle, the copy destination.
func (r *Readback) Buffer() vk.Buffer { return r.raw.Buffer }

func (r *Readback) Destroy() {
	r.raw.destroy()
}
