// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// CommandPool owns the command buffers acquired for one Role on one
// Device, grounded on the CmdPool field threaded through the teacher's
// vgpu.Memory/System types (vgpu/memory.go, vgpu/system.go), generalized
// here into its own reusable type shared by every queue role instead of
// being embedded once per subsystem.
type CommandPool struct {
	dev  *Device
	role Role
	pool vk.CommandPool
}

// NewCommandPool creates a command pool for role on d.
func NewCommandPool(d *Device, role Role) (*CommandPool, error) {
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(d.Device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: d.QueueFamily(role),
	}, nil, &pool)
	if err := checkResult(ret); err != nil {
		return nil, fmt.Errorf("device: CreateCommandPool(%s) failed: %w", role, err)
	}
	return &CommandPool{dev: d, role: role, pool: pool}, nil
}

// CommandList is a single acquired, recordable command buffer plus the
// queue it will be submitted to.
type CommandList struct {
	Role   Role
	Buffer vk.CommandBuffer
}

// Acquire allocates and begins recording a fresh primary command buffer
// (§4.4.4 step 1, "Acquires a fresh command list from the appropriate
// queue").
func (cp *CommandPool) Acquire() (*CommandList, error) {
	bufs := make([]vk.CommandBuffer, 1)
	ret := vk.AllocateCommandBuffers(cp.dev.Device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        cp.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, bufs)
	if err := checkResult(ret); err != nil {
		return nil, fmt.Errorf("device: AllocateCommandBuffers failed: %w", err)
	}
	cl := &CommandList{Role: cp.Role(), Buffer: bufs[0]}
	ret = vk.BeginCommandBuffer(cl.Buffer, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if err := checkResult(ret); err != nil {
		return nil, fmt.Errorf("device: BeginCommandBuffer failed: %w", err)
	}
	return cl, nil
}

// Role reports the queue role this pool's command buffers submit to.
func (cp *CommandPool) Role() Role { return cp.role }

// Submit ends recording on cl and submits it to role's queue, signaling
// fence at fenceValue once the GPU completes it. waitSemaphores/
// waitValues let the caller wait on another queue's fence first (the
// cross-queue dependency source, §4.4.4 step 5).
func (d *Device) Submit(cl *CommandList, fence *Fence, fenceValue uint64, waitSemaphores []vk.Semaphore, waitValues []uint64) error {
	if err := checkResult(vk.EndCommandBuffer(cl.Buffer)); err != nil {
		return fmt.Errorf("device: EndCommandBuffer failed: %w", err)
	}

	signalSemaphores := []vk.Semaphore{fence.Semaphore}
	signalValues := []uint64{fenceValue}
	timelineInfo := SubmitTimelineInfo(waitValues, signalValues)

	waitStages := make([]vk.PipelineStageFlags, len(waitSemaphores))
	for i := range waitStages {
		waitStages[i] = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	}

	submit := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		PNext:                pNextUnsafe(timelineInfo),
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cl.Buffer},
		WaitSemaphoreCount:   uint32(len(waitSemaphores)),
		PWaitSemaphores:      waitSemaphores,
		PWaitDstStageMask:    waitStages,
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    signalSemaphores,
	}
	return checkResult(vk.QueueSubmit(d.Queue(cl.Role), 1, []vk.SubmitInfo{submit}, nil))
}

// QueueWait makes role's queue wait for fence to reach value before
// executing anything submitted to it afterward, without blocking the CPU
// (§4.4.4 step 2, "queues a GPU wait on the consuming queue").
func (d *Device) QueueWait(role Role, fence *Fence, value uint64) error {
	waitValues := []uint64{value}
	timelineInfo := SubmitTimelineInfo(waitValues, nil)
	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		PNext:              pNextUnsafe(timelineInfo),
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{fence.Semaphore},
		PWaitDstStageMask:  []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)},
	}
	return checkResult(vk.QueueSubmit(d.Queue(role), 1, []vk.SubmitInfo{submit}, nil))
}

// Destroy destroys the pool and every command buffer allocated from it.
func (cp *CommandPool) Destroy() {
	if cp.pool == nil {
		return
	}
	vk.DestroyCommandPool(cp.dev.Device, cp.pool, nil)
	cp.pool = nil
}
