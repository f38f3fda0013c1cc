// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
)

// Fence is a monotonically increasing, CPU-and-GPU-visible counter backing
// one queue's submissions (§3 "Fence"). It is implemented on a Vulkan
// timeline semaphore rather than a binary vk.Fence: a timeline semaphore's
// counter is exactly the D3D12 fence-value model spec.md describes
// ("increment on submit, signal on completion, wait for value N"), whereas
// a vk.Fence is a one-shot signaled/unsignaled flag that would need a pool
// and reset dance to fake the same thing.
type Fence struct {
	Device    vk.Device
	Semaphore vk.Semaphore

	// NextValue is the value that will be assigned to the next submission
	// signaled against this fence. Only the owning queue's submitter
	// goroutine increments it, so it is not atomic.
	NextValue uint64
}

// NewFence creates a Fence starting at counter value 0.
func NewFence(d *Device) (*Fence, error) {
	typeInfo := vk.SemaphoreTypeCreateInfo{
		SType:         vk.StructureTypeSemaphoreTypeCreateInfo,
		SemaphoreType: vk.SemaphoreTypeTimeline,
		InitialValue:  0,
	}
	info := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
		PNext: unsafe.Pointer(&typeInfo),
	}
	var sem vk.Semaphore
	ret := vk.CreateSemaphore(d.Device, &info, nil, &sem)
	if err := checkResult(ret); err != nil {
		return nil, fmt.Errorf("device: CreateSemaphore(timeline) failed: %w", err)
	}
	return &Fence{Device: d.Device, Semaphore: sem}, nil
}

// Next reserves and returns the next fence value a submission should signal.
// The render graph calls this once per aggregate it submits (§4.4.4 step 3).
func (f *Fence) Next() uint64 {
	f.NextValue++
	return f.NextValue
}

// CompletedValue returns the highest value the GPU has signaled so far.
func (f *Fence) CompletedValue() (uint64, error) {
	var value uint64
	ret := vk.GetSemaphoreCounterValue(f.Device, f.Semaphore, &value)
	if err := checkResult(ret); err != nil {
		return 0, fmt.Errorf("device: GetSemaphoreCounterValue failed: %w", err)
	}
	return value, nil
}

// Wait blocks the calling goroutine until the fence reaches at least value,
// or timeoutNs nanoseconds elapse. A timeoutNs of ^uint64(0) waits forever,
// matching the engine's default "block until this frame's resources are
// free" recycling wait (§4.2 "fence-gated recycling").
func (f *Fence) Wait(value uint64, timeoutNs uint64) error {
	semaphores := []vk.Semaphore{f.Semaphore}
	values := []uint64{value}
	info := vk.SemaphoreWaitInfo{
		SType:          vk.StructureTypeSemaphoreWaitInfo,
		SemaphoreCount: 1,
		PSemaphores:    semaphores,
		PValues:        values,
	}
	ret := vk.WaitSemaphores(f.Device, &info, timeoutNs)
	if ret == vk.Timeout {
		return fmt.Errorf("device: fence wait for value %d timed out", value)
	}
	return checkResult(ret)
}

// IsComplete reports whether the fence has already reached value, without
// blocking; a failed query reports false.
func (f *Fence) IsComplete(value uint64) bool {
	completed, err := f.CompletedValue()
	if err != nil {
		return false
	}
	return completed >= value
}

// Destroy destroys the underlying semaphore.
func (f *Fence) Destroy() {
	if f.Semaphore == nil {
		return
	}
	vk.DestroySemaphore(f.Device, f.Semaphore, nil)
	f.Semaphore = nil
}

// pNextUnsafe adapts a typed PNext chain entry to vk's unsafe.Pointer
// chaining convention.
func pNextUnsafe(info *vk.TimelineSemaphoreSubmitInfo) unsafe.Pointer {
	return unsafe.Pointer(info)
}

// SubmitTimelineInfo builds the PNext chain entry needed to signal/wait on
// timeline semaphores from a vk.SubmitInfo. Queue submission call sites
// (gpumemory, rendergraph) construct one of these alongside their
// vk.SubmitInfo.
func SubmitTimelineInfo(waitValues, signalValues []uint64) *vk.TimelineSemaphoreSubmitInfo {
	return &vk.TimelineSemaphoreSubmitInfo{
		SType:                     vk.StructureTypeTimelineSemaphoreSubmitInfo,
		WaitSemaphoreValueCount:   uint32(len(waitValues)),
		PWaitSemaphoreValues:      waitValues,
		SignalSemaphoreValueCount: uint32(len(signalValues)),
		PSignalSemaphoreValues:    signalValues,
	}
}
