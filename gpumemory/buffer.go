// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gpumemory implements the engine's three GPU allocation flavors
// (§4.2): per-thread upload linear allocators, a readback buffer with an
// explicit map/unmap contract, and pooled default-heap buffers/textures
// whose releases are gated on a fence value rather than freed immediately.
package gpumemory

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"zetacore.dev/engine/device"
)

// Kind mirrors the teacher's BuffTypes enum, generalized to the allocation
// flavors gpumemory exposes rather than shader-variable categories.
type Kind int32

const (
	// KindUpload is a per-thread ring-allocated staging buffer (flavor 1).
	KindUpload Kind = iota
	// KindReadback is a standalone GPU->CPU buffer (flavor 2).
	KindReadback
	// KindDefault is a pooled, device-local buffer or texture (flavor 3).
	KindDefault
)

func usageFor(k Kind) vk.BufferUsageFlagBits {
	switch k {
	case KindUpload:
		return vk.BufferUsageTransferSrcBit
	case KindReadback:
		return vk.BufferUsageTransferDstBit
	case KindDefault:
		return vk.BufferUsageVertexBufferBit | vk.BufferUsageIndexBufferBit |
			vk.BufferUsageStorageBufferBit | vk.BufferUsageTransferDstBit | vk.BufferUsageTransferSrcBit
	}
	return 0
}

func propertiesFor(k Kind) vk.MemoryPropertyFlagBits {
	switch k {
	case KindUpload, KindReadback:
		return vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	case KindDefault:
		return vk.MemoryPropertyDeviceLocalBit
	}
	return 0
}

// rawBuffer is the thin Vulkan buffer+memory pair every allocation flavor
// below is built from, adapted from the teacher's MemBuff/NewBuffer/
// AllocBuffMem/FreeBuffMem quartet in vgpu/membuff.go.
type rawBuffer struct {
	dev vk.Device

	Buffer vk.Buffer
	Memory vk.DeviceMemory
	Size   int
	Ptr    unsafe.Pointer
}

func newRawBuffer(d *device.Device, kind Kind, size int, mapped bool) (*rawBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("gpumemory: invalid buffer size %d", size)
	}
	var buffer vk.Buffer
	ret := vk.CreateBuffer(d.Device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Usage:       vk.BufferUsageFlags(usageFor(kind)),
		Size:        vk.DeviceSize(size),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buffer)
	if ret != vk.Success {
		return nil, fmt.Errorf("gpumemory: CreateBuffer failed: %d", ret)
	}

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.Device, buffer, &memReqs)
	memReqs.Deref()

	memType, ok := findMemoryType(d.GPU.MemoryProperties, vk.MemoryPropertyFlagBits(memReqs.MemoryTypeBits), propertiesFor(kind))
	if !ok {
		vk.DestroyBuffer(d.Device, buffer, nil)
		return nil, fmt.Errorf("gpumemory: no memory type satisfies kind %d", kind)
	}

	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(d.Device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memType,
	}, nil, &mem)
	if ret != vk.Success {
		vk.DestroyBuffer(d.Device, buffer, nil)
		return nil, fmt.Errorf("gpumemory: AllocateMemory failed: %d", ret)
	}
	vk.BindBufferMemory(d.Device, buffer, mem, 0)

	rb := &rawBuffer{dev: d.Device, Buffer: buffer, Memory: mem, Size: size}
	if mapped {
		var ptr unsafe.Pointer
		ret = vk.MapMemory(d.Device, mem, 0, vk.DeviceSize(size), 0, &ptr)
		if ret != vk.Success {
			rb.destroy()
			return nil, fmt.Errorf("gpumemory: MapMemory failed: %d", ret)
		}
		rb.Ptr = ptr
	}
	return rb, nil
}

func (rb *rawBuffer) destroy() {
	if rb.Ptr != nil {
		vk.UnmapMemory(rb.dev, rb.Memory)
		rb.Ptr = nil
	}
	if rb.Memory != nil {
		vk.FreeMemory(rb.dev, rb.Memory, nil)
		rb.Memory = nil
	}
	if rb.Buffer != nil {
		vk.DestroyBuffer(rb.dev, rb.Buffer, nil)
		rb.Buffer = nil
	}
}

func findMemoryType(props vk.PhysicalDeviceMemoryProperties, typeBits vk.MemoryPropertyFlagBits, required vk.MemoryPropertyFlagBits) (uint32, bool) {
	for i := uint32(0); i < vk.MaxMemoryTypes; i++ {
		if typeBits&(vk.MemoryPropertyFlagBits(1)<<i) == 0 {
			continue
		}
		props.MemoryTypes[i].Deref()
		if props.MemoryTypes[i].PropertyFlags&vk.MemoryPropertyFlags(required) == vk.MemoryPropertyFlags(required) {
			return i, true
		}
	}
	return 0, false
}
