// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package accel

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"zetacore.dev/engine/device"
	"zetacore.dev/engine/gpumemory"
)

// buildSizes queries the scratch and acceleration-structure-buffer sizes a
// build of geometries (with the given primitive counts and flags) will
// need, the Go equivalent of vkGetAccelerationStructureBuildSizesKHR used
// throughout RtAccelerationStructure.cpp before every allocation.
func buildSizes(dev *device.Device, kind vk.AccelerationStructureTypeKHR, geoms []vk.AccelerationStructureGeometryKHR, primCounts []uint32, flags vk.BuildAccelerationStructureFlagsKHR) vk.AccelerationStructureBuildSizesInfoKHR {
	info := vk.AccelerationStructureBuildGeometryInfoKHR{
		SType:         vk.StructureTypeAccelerationStructureBuildGeometryInfoKhr,
		Type:          kind,
		Flags:         flags,
		Mode:          vk.BuildAccelerationStructureModeBuildKhr,
		GeometryCount: uint32(len(geoms)),
		PGeometries:   geoms,
	}
	var sizes vk.AccelerationStructureBuildSizesInfoKHR
	sizes.SType = vk.StructureTypeAccelerationStructureBuildSizesInfoKhr
	vk.GetAccelerationStructureBuildSizesKHR(dev.Device, vk.AccelerationStructureBuildTypeDeviceKhr, &info, primCounts, &sizes)
	return sizes
}

// createAS creates an acceleration structure object over buf, the wrapper
// every BLAS/TLAS build routine below calls once it knows the required
// buffer size from buildSizes.
func createAS(dev *device.Device, buf vk.Buffer, size vk.DeviceSize, kind vk.AccelerationStructureTypeKHR) (vk.AccelerationStructureKHR, error) {
	var as vk.AccelerationStructureKHR
	ret := vk.CreateAccelerationStructureKHR(dev.Device, &vk.AccelerationStructureCreateInfoKHR{
		SType:  vk.StructureTypeAccelerationStructureCreateInfoKhr,
		Buffer: buf,
		Size:   size,
		Type:   kind,
	}, nil, &as)
	if ret != vk.Success {
		return nil, fmt.Errorf("accel: CreateAccelerationStructureKHR failed: %d", ret)
	}
	return as, nil
}

func destroyAS(dev *device.Device, as vk.AccelerationStructureKHR) {
	if as == nil {
		return
	}
	vk.DestroyAccelerationStructureKHR(dev.Device, as, nil)
}

func asDeviceAddress(dev *device.Device, as vk.AccelerationStructureKHR) vk.DeviceAddress {
	return vk.GetAccelerationStructureDeviceAddressKHR(dev.Device, &vk.AccelerationStructureDeviceAddressInfoKHR{
		SType:                 vk.StructureTypeAccelerationStructureDeviceAddressInfoKhr,
		AccelerationStructure: as,
	})
}

// cmdBuild records a single-geometry-array build or update into cl,
// scratch supplying the working buffer the device writes through during
// construction (reused across updates when big enough, per §4.5 "reusing
// the scratch if its previous allocation is large enough").
func cmdBuild(cl *device.CommandList, kind vk.AccelerationStructureTypeKHR, mode vk.BuildAccelerationStructureModeKHR,
	src, dst vk.AccelerationStructureKHR, scratch vk.DeviceAddress,
	geoms []vk.AccelerationStructureGeometryKHR, flags vk.BuildAccelerationStructureFlagsKHR,
	ranges []vk.AccelerationStructureBuildRangeInfoKHR) {

	info := vk.AccelerationStructureBuildGeometryInfoKHR{
		SType:                     vk.StructureTypeAccelerationStructureBuildGeometryInfoKhr,
		Type:                      kind,
		Flags:                     flags,
		Mode:                      mode,
		SrcAccelerationStructure:  src,
		DstAccelerationStructure:  dst,
		GeometryCount:             uint32(len(geoms)),
		PGeometries:               geoms,
		ScratchData:               vk.DeviceOrHostAddressKHR{DeviceAddress: scratch},
	}
	infos := []vk.AccelerationStructureBuildGeometryInfoKHR{info}
	rangePtrs := [][]vk.AccelerationStructureBuildRangeInfoKHR{ranges}
	vk.CmdBuildAccelerationStructuresKHR(cl.Buffer, 1, infos, rangePtrs)
}

// uavBarrier inserts a single acceleration-structure-write-write barrier,
// used to serialize a batch of BLAS rebuilds/updates against the TLAS
// build that reads all of them (§4.5 "UAV barriers are batched and
// inserted only once immediately before the TLAS build").
func uavBarrier(cl *device.CommandList) {
	barrier := vk.MemoryBarrier{
		SType:         vk.StructureTypeMemoryBarrier,
		SrcAccessMask: vk.AccessFlags(vk.AccessAccelerationStructureWriteBitKhr),
		DstAccessMask: vk.AccessFlags(vk.AccessAccelerationStructureReadBitKhr | vk.AccessAccelerationStructureWriteBitKhr),
	}
	vk.CmdPipelineBarrier(cl.Buffer,
		vk.PipelineStageFlags(vk.PipelineStageAccelerationStructureBuildBitKhr),
		vk.PipelineStageFlags(vk.PipelineStageAccelerationStructureBuildBitKhr),
		0, 1, []vk.MemoryBarrier{barrier}, 0, nil, 0, nil)
}

func allocASBuffer(pool *gpumemory.Pool, name string, size int) (*gpumemory.DefaultAlloc, error) {
	return pool.Alloc(name, size, nil)
}

// bufferDeviceAddress resolves buf's GPU-visible address, needed wherever
// a build references another buffer (scratch, vertex/index, transform) by
// address rather than by descriptor.
func bufferDeviceAddress(dev *device.Device, buf vk.Buffer) vk.DeviceAddress {
	return vk.GetBufferDeviceAddress(dev.Device, &vk.BufferDeviceAddressInfo{
		SType:  vk.StructureTypeBufferDeviceAddressInfo,
		Buffer: buf,
	})
}
