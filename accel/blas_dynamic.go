// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package accel

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"zetacore.dev/engine/device"
	"zetacore.dev/engine/gpumemory"
	"zetacore.dev/engine/math32"
)

// DynamicInput is one dynamic instance's geometry and current transform,
// supplied fresh every frame it is built or updated.
type DynamicInput struct {
	InstanceID uint64
	MeshID     uint64

	VertexBufferAddr vk.DeviceAddress
	IndexBufferAddr  vk.DeviceAddress
	VertexCount      uint32
	IndexCount       uint32

	Position math32.Vector3
	Rotation math32.Quat
	Scale    math32.Vector3
}

// DynamicBLAS is one per-instance bottom-level acceleration structure
// that is rebuilt from scratch on first appearance and thereafter updated
// in place (§4.5 "Dynamic BLAS").
type DynamicBLAS struct {
	dev    *device.Device
	pool   *gpumemory.Pool
	direct *device.Fence

	handle  vk.AccelerationStructureKHR
	buf     *gpumemory.DefaultAlloc
	scratch *gpumemory.DefaultAlloc

	InstanceID uint64
	MeshID     uint64
	builtFrame uint64
}

// NewDynamicBLAS issues the instance's first PREFER_FAST_BUILD |
// ALLOW_UPDATE build (§4.5 "on first appearance ... a fresh ... build").
func NewDynamicBLAS(dev *device.Device, pool *gpumemory.Pool, direct *device.Fence, cl *device.CommandList, in DynamicInput, frame uint64) (*DynamicBLAS, error) {
	d := &DynamicBLAS{dev: dev, pool: pool, direct: direct, InstanceID: in.InstanceID, MeshID: in.MeshID}
	if err := d.build(cl, in, flagsFor(modeDynamicFresh), nil, frame); err != nil {
		return nil, err
	}
	return d, nil
}

// Rebuild reissues a fresh build for this instance, e.g. when its mesh or
// topology changes (§4.5 "on ... a rebuild flag").
func (d *DynamicBLAS) Rebuild(cl *device.CommandList, in DynamicInput, frame uint64) error {
	oldBuf, oldScratch := d.buf, d.scratch
	oldHandle := d.handle
	if err := d.build(cl, in, flagsFor(modeDynamicFresh), nil, frame); err != nil {
		return err
	}
	if oldHandle != nil {
		v := d.direct.Next()
		destroyAS(d.dev, oldHandle)
		d.pool.Release(oldBuf, v)
		if oldScratch != nil {
			d.pool.Release(oldScratch, v)
		}
	}
	return nil
}

// Update performs an in-place PERFORM_UPDATE build, reusing the existing
// scratch buffer when it is already large enough (§4.5 "reusing the
// scratch if its previous allocation is large enough").
func (d *DynamicBLAS) Update(cl *device.CommandList, in DynamicInput, frame uint64) error {
	if d.handle == nil {
		return fmt.Errorf("accel: Update called before any build for instance %d", in.InstanceID)
	}
	return d.build(cl, in, flagsFor(modeDynamicUpdate), d.handle, frame)
}

func (d *DynamicBLAS) build(cl *device.CommandList, in DynamicInput, flags vk.BuildAccelerationStructureFlagsKHR, updateSrc vk.AccelerationStructureKHR, frame uint64) error {
	// in.Position/Rotation/Scale are not baked into the BLAS geometry: a
	// dynamic instance's transform is carried on its TLAS instance entry
	// instead (§4.5 "one entry per dynamic BLAS with its world transform"),
	// so the BLAS itself stays in object space across Update calls.
	geoms := []vk.AccelerationStructureGeometryKHR{{
		SType:        vk.StructureTypeAccelerationStructureGeometryKhr,
		GeometryType: vk.GeometryTypeTrianglesKhr,
		Flags:        vk.GeometryFlags(vk.GeometryOpaqueBitKhr),
		Geometry: vk.AccelerationStructureGeometryDataKHR{
			Triangles: vk.AccelerationStructureGeometryTrianglesDataKHR{
				SType:        vk.StructureTypeAccelerationStructureGeometryTrianglesDataKhr,
				VertexFormat: vk.FormatR32g32b32Sfloat,
				VertexData:   vk.DeviceOrHostAddressConstKHR{DeviceAddress: in.VertexBufferAddr},
				VertexStride: vk.DeviceSize(12),
				MaxVertex:    in.VertexCount - 1,
				IndexType:    vk.IndexTypeUint32,
				IndexData:    vk.DeviceOrHostAddressConstKHR{DeviceAddress: in.IndexBufferAddr},
			},
		},
	}}
	primCounts := []uint32{in.IndexCount / 3}
	ranges := []vk.AccelerationStructureBuildRangeInfoKHR{{PrimitiveCount: primCounts[0]}}

	mode := vk.BuildAccelerationStructureModeBuildKhr
	if updateSrc != nil {
		mode = vk.BuildAccelerationStructureModeUpdateKhr
	}

	sizes := buildSizes(d.dev, vk.AccelerationStructureTypeBottomLevelKhr, geoms, primCounts, flags)

	scratch := d.scratch
	requiredScratch := int(sizes.BuildScratchSize)
	if updateSrc != nil && scratch != nil {
		requiredScratch = int(sizes.UpdateScratchSize)
	}
	if scratch == nil || scratch.Size() < requiredScratch {
		var err error
		scratch, err = allocASBuffer(d.pool, "dynamic-blas-scratch", requiredScratch)
		if err != nil {
			return err
		}
	}

	handle := updateSrc
	buf := d.buf
	if updateSrc == nil {
		var err error
		buf, err = allocASBuffer(d.pool, "dynamic-blas", int(sizes.AccelerationStructureSize))
		if err != nil {
			return err
		}
		handle, err = createAS(d.dev, buf.Buffer(), sizes.AccelerationStructureSize, vk.AccelerationStructureTypeBottomLevelKhr)
		if err != nil {
			return err
		}
	}

	cmdBuild(cl, vk.AccelerationStructureTypeBottomLevelKhr, mode, updateSrc, handle,
		bufferDeviceAddress(d.dev, scratch.Buffer()), geoms, flags, ranges)

	d.handle, d.buf, d.scratch = handle, buf, scratch
	d.builtFrame = frame
	return nil
}

// Handle returns the current live BLAS handle.
func (d *DynamicBLAS) Handle() vk.AccelerationStructureKHR { return d.handle }

// Destroy destroys the BLAS handle immediately and hands its buffers back
// to the pool gated on the direct queue's next fence value; callers must
// ensure no in-flight frame still references the handle.
func (d *DynamicBLAS) Destroy() {
	v := d.direct.Next()
	destroyAS(d.dev, d.handle)
	if d.buf != nil {
		d.pool.Release(d.buf, v)
	}
	if d.scratch != nil {
		d.pool.Release(d.scratch, v)
	}
}
