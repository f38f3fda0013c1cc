// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import (
	"errors"

	vk "github.com/goki/vulkan"
)

// Role identifies which of the engine's two queues a Device's queue plays.
// The render graph (§4.4) submits graphics and render-target work on
// RoleDirect and async-compute work on RoleCompute.
type Role int

const (
	RoleDirect Role = iota
	RoleCompute
)

func (r Role) String() string {
	if r == RoleCompute {
		return "compute"
	}
	return "direct"
}

// Device holds the logical device and both queues the render graph submits
// to. Unlike the teacher's vgpu.Device (one queue per Device value), a
// zetacore Device owns both queues at once, since §4.4 cross-queue fencing
// requires them to share one logical device.
type Device struct {
	GPU *GPU

	// Device is the logical device shared by both queues.
	Device vk.Device

	// DirectQueueFamily / ComputeQueueFamily are the queue family indices
	// backing each Role. They may be equal on adapters without a distinct
	// async-compute family, in which case RoleCompute submissions simply
	// serialize with RoleDirect ones at the hardware level; the render
	// graph's barrier/fence logic is unaffected either way.
	DirectQueueFamily  uint32
	ComputeQueueFamily uint32

	DirectQueue  vk.Queue
	ComputeQueue vk.Queue
}

// NewDevice creates a logical device on gp with both a direct (graphics)
// and a compute queue, enabling the extensions needed for ray tracing
// acceleration structures (consumed by package accel).
func NewDevice(gp *GPU) (*Device, error) {
	directFamily, err := findQueueFamily(gp.PhysicalDevice, vk.QueueFlags(vk.QueueGraphicsBit))
	if err != nil {
		return nil, err
	}
	computeFamily, err := findQueueFamily(gp.PhysicalDevice, vk.QueueFlags(vk.QueueComputeBit))
	if err != nil {
		return nil, err
	}

	families := []uint32{directFamily}
	if computeFamily != directFamily {
		families = append(families, computeFamily)
	}
	queueInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, f := range families {
		queueInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: f,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	exts := append([]string{vk.KhrAccelerationStructureExtensionName, vk.KhrRayTracingPipelineExtensionName, vk.KhrDeferredHostOperationsExtensionName}, gp.DeviceExts...)

	var dev vk.Device
	ret := vk.CreateDevice(gp.PhysicalDevice, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
		EnabledLayerCount:       uint32(len(gp.ValidationLayers)),
		PpEnabledLayerNames:     gp.ValidationLayers,
	}, nil, &dev)
	if err := checkResult(ret); err != nil {
		return nil, err
	}

	d := &Device{
		GPU:                gp,
		Device:             dev,
		DirectQueueFamily:  directFamily,
		ComputeQueueFamily: computeFamily,
	}
	vk.GetDeviceQueue(dev, directFamily, 0, &d.DirectQueue)
	vk.GetDeviceQueue(dev, computeFamily, 0, &d.ComputeQueue)
	return d, nil
}

// Queue returns the queue handle backing the given role.
func (d *Device) Queue(role Role) vk.Queue {
	if role == RoleCompute {
		return d.ComputeQueue
	}
	return d.DirectQueue
}

// QueueFamily returns the queue family index backing the given role.
func (d *Device) QueueFamily(role Role) uint32 {
	if role == RoleCompute {
		return d.ComputeQueueFamily
	}
	return d.DirectQueueFamily
}

// WaitIdle blocks until every queue on this device has drained. Used only
// at shutdown (§5 "Cancellation and timeouts").
func (d *Device) WaitIdle() {
	vk.DeviceWaitIdle(d.Device)
}

// Destroy destroys the logical device. The owning GPU's instance is
// untouched.
func (d *Device) Destroy() {
	if d.Device == nil {
		return
	}
	vk.DeviceWaitIdle(d.Device)
	vk.DestroyDevice(d.Device, nil)
	d.Device = nil
}

func findQueueFamily(pd vk.PhysicalDevice, required vk.QueueFlags) (uint32, error) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	if count == 0 {
		return 0, errors.New("device: no queue families found")
	}
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, props)

	// Prefer a family that supports the required bits and no other
	// graphics/compute capability, so RoleCompute lands on a true
	// async-compute family when one exists, rather than always reusing the
	// graphics family.
	exclusive := vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueComputeBit)
	for i := uint32(0); i < count; i++ {
		props[i].Deref()
		flags := props[i].QueueFlags
		if flags&required == required && flags&^required&exclusive == 0 {
			return i, nil
		}
	}
	for i := uint32(0); i < count; i++ {
		props[i].Deref()
		if props[i].QueueFlags&required == required {
			return i, nil
		}
	}
	return 0, errors.New("device: no queue family supports the required flags")
}
