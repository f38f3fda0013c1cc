// Copyright (c) 2022, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package accel

import (
	"fmt"
	"sort"
	"unsafe"

	vk "github.com/goki/vulkan"

	"zetacore.dev/engine/device"
	"zetacore.dev/engine/gpumemory"
	"zetacore.dev/engine/math32"
)

// instanceGeometryKHRSize is sizeof(VkAccelerationStructureInstanceKHR).
const instanceGeometryKHRSize = 64

// meshInstanceSize is sizeof the companion per-instance table entry
// (§3 "Entity: TLAS Instance Table").
const meshInstanceSize = 32

// Instance describes one dynamic instance's current pose, material/mesh
// bookkeeping, and its Emissive subgroup membership for TLAS construction.
// Opaque is carried but not currently read: Rebuild forces every
// instance opaque regardless (§8 Open Questions, resolution: the
// render-graph's forced-opaque behavior is kept rather than exposed as a
// per-material declaration).
type Instance struct {
	BLAS     *DynamicBLAS
	Emissive bool
	Opaque   bool

	Position math32.Vector3
	Rotation math32.Quat
	Scale    math32.Vector3

	MatID         uint16
	BaseVtxOffset uint32
	BaseIdxOffset uint32
}

// TLAS is the per-frame top-level acceleration structure stitching the
// static BLAS and every live dynamic BLAS into one scene structure, plus
// the companion instance table shaders use to recover per-instance
// material and mesh data from a TLAS hit's InstanceID (§4.5 "TLAS",
// "Instance table").
type TLAS struct {
	dev    *device.Device
	pool   *gpumemory.Pool
	direct *device.Fence

	static *StaticBLAS

	handle  vk.AccelerationStructureKHR
	buf     *gpumemory.DefaultAlloc
	scratch *gpumemory.DefaultAlloc

	staticMatID   uint16
	staticBaseVtx uint32
	staticBaseIdx uint32
}

// NewTLAS creates an empty top-level structure bound to static.
func NewTLAS(dev *device.Device, pool *gpumemory.Pool, direct *device.Fence, static *StaticBLAS) *TLAS {
	return &TLAS{dev: dev, pool: pool, direct: direct, static: static}
}

// SetStaticMeshInfo records the instance-table entry fields every static
// instance shares (they are drawn as one merged BLAS, so they share one
// mesh/material mapping slot at index 0).
func (t *TLAS) SetStaticMeshInfo(matID uint16, baseVtx, baseIdx uint32) {
	t.staticMatID, t.staticBaseVtx, t.staticBaseIdx = matID, baseVtx, baseIdx
}

// Handle returns the live TLAS, or nil before the first Rebuild.
func (t *TLAS) Handle() vk.AccelerationStructureKHR { return t.handle }

// Rebuild writes a fresh instance-desc buffer (static BLAS at slot 0 with
// an identity transform, then one entry per dynamic instance sorted by
// ID) and the companion instance table, batches one UAV barrier over
// every BLAS build this frame touched, and issues a fresh TLAS build
// (§4.5 "TLAS").
//
// instances is sorted in place by InstanceID before upload: the original
// leaves this ordering as an unfinished TODO
// (original_source/ZetaCore/RayTracing/RtAccelerationStructure.cpp,
// FindDynamicBLAS), and the engine requires it to keep a denoiser's
// history buffer addressable across frames by a stable InstanceID.
func (t *TLAS) Rebuild(cl *device.CommandList, descRing, tableRing *gpumemory.UploadRing, instances []Instance) error {
	sortInstancesByStableID(instances)

	n := len(instances) + 1 // +1 for the merged static-instance slot
	descBlock := descRing.Alloc(n*instanceGeometryKHRSize, 16)
	if descBlock == nil {
		return fmt.Errorf("accel: tlas instance-desc upload ring out of room")
	}
	tableBlock := tableRing.Alloc(n*meshInstanceSize, 16)
	if tableBlock == nil {
		return fmt.Errorf("accel: tlas instance-table upload ring out of room")
	}

	writeInstanceDesc(descBlock, 0, identityAffine3(), 0, asDeviceAddress(t.dev, t.static.Handle()), true, false)
	writeMeshInstance(tableBlock, 0, t.staticMatID, t.staticBaseVtx, t.staticBaseIdx, math32.QIdentity(), math32.Vec3(1, 1, 1))

	for i, inst := range instances {
		slot := i + 1
		affine := composeAffine(inst.Position, inst.Rotation, inst.Scale)
		writeInstanceDesc(descBlock, slot, affine, uint32(slot), asDeviceAddress(t.dev, inst.BLAS.Handle()), true, inst.Emissive)
		writeMeshInstance(tableBlock, slot, inst.MatID, inst.BaseVtxOffset, inst.BaseIdxOffset, inst.Rotation, inst.Scale)
	}

	uavBarrier(cl) // one barrier for every BLAS build/update this frame recorded ahead of this call

	geom := vk.AccelerationStructureGeometryKHR{
		SType:        vk.StructureTypeAccelerationStructureGeometryKhr,
		GeometryType: vk.GeometryTypeInstancesKhr,
		Geometry: vk.AccelerationStructureGeometryDataKHR{
			Instances: vk.AccelerationStructureGeometryInstancesDataKHR{
				SType: vk.StructureTypeAccelerationStructureGeometryInstancesDataKhr,
				Data:  vk.DeviceOrHostAddressConstKHR{DeviceAddress: descBlock.GPUAddr},
			},
		},
	}
	geoms := []vk.AccelerationStructureGeometryKHR{geom}
	primCounts := []uint32{uint32(n)}
	flags := vk.BuildAccelerationStructureFlagsKHR(vk.BuildAccelerationStructurePreferFastTraceBitKhr)

	sizes := buildSizes(t.dev, vk.AccelerationStructureTypeTopLevelKhr, geoms, primCounts, flags)

	if t.buf == nil || t.buf.Size() < int(sizes.AccelerationStructureSize) {
		buf, err := allocASBuffer(t.pool, "tlas", int(sizes.AccelerationStructureSize))
		if err != nil {
			return err
		}
		handle, err := createAS(t.dev, buf.Buffer(), sizes.AccelerationStructureSize, vk.AccelerationStructureTypeTopLevelKhr)
		if err != nil {
			return err
		}
		if t.handle != nil {
			v := t.direct.Next()
			destroyAS(t.dev, t.handle)
			t.pool.Release(t.buf, v)
		}
		t.handle, t.buf = handle, buf
	}
	if t.scratch == nil || t.scratch.Size() < int(sizes.BuildScratchSize) {
		scratch, err := allocASBuffer(t.pool, "tlas-scratch", int(sizes.BuildScratchSize))
		if err != nil {
			return err
		}
		if t.scratch != nil {
			t.pool.Release(t.scratch, t.direct.Next())
		}
		t.scratch = scratch
	}

	ranges := []vk.AccelerationStructureBuildRangeInfoKHR{{PrimitiveCount: uint32(n)}}
	cmdBuild(cl, vk.AccelerationStructureTypeTopLevelKhr, vk.BuildAccelerationStructureModeBuildKhr,
		nil, t.handle, bufferDeviceAddress(t.dev, t.scratch.Buffer()), geoms, flags, ranges)
	return nil
}

// sortInstancesByStableID orders dynamic instances by their BLAS's
// InstanceID so a denoiser's per-instance history buffer stays
// addressable across frames (see Rebuild's doc comment).
func sortInstancesByStableID(instances []Instance) {
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].BLAS.InstanceID < instances[j].BLAS.InstanceID
	})
}

// instanceFlagForceOpaque mirrors VK_GEOMETRY_INSTANCE_FORCE_OPAQUE_BIT_KHR.
const instanceFlagForceOpaque = 0x01

// emissiveSubgroupMask and nonEmissiveSubgroupMask are the two values the
// "1-byte subgroup mask separating emissive from non-emissive" (§4.5,
// GLOSSARY) ever takes: emissive instances set only the low bit of the
// mask byte, every other instance sets every other bit, so a ray tracing
// against "emissive only" or "non-emissive only" can cull the other group
// with a single mask AND in TraceRayKHR.
const (
	emissiveSubgroupMask    = 0x01
	nonEmissiveSubgroupMask = 0xFE
)

// writeInstanceDesc fills one VkAccelerationStructureInstanceKHR: the 3x4
// transform, a subgroup mask (§4.5 "a 1-byte subgroup mask separating
// emissive from non-emissive"), and the BLAS's device address.
// forceOpaque is always true at every call site (§8 Open Questions
// resolution: the engine forces every instance opaque rather than
// exposing it per-material).
func writeInstanceDesc(block *gpumemory.Block, slot int, transform affine3, instanceID uint32, blasRef vk.DeviceAddress, forceOpaque, emissive bool) {
	base := unsafe.Add(block.Ptr, slot*instanceGeometryKHRSize)
	floats := unsafe.Slice((*float32)(base), 12)
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			floats[r*4+c] = transform[r][c]
		}
	}

	maskByte := uint32(nonEmissiveSubgroupMask)
	if emissive {
		maskByte = emissiveSubgroupMask
	}
	mask := maskByte << 24
	words := unsafe.Slice((*uint32)(unsafe.Add(base, 48)), 4)
	words[0] = (instanceID & 0xFFFFFF) | mask
	flags := uint32(0)
	if forceOpaque {
		flags = instanceFlagForceOpaque << 24
	}
	words[1] = flags // sbt record offset 0 | instance flags

	ref := uint64(blasRef)
	words[2] = uint32(ref)
	words[3] = uint32(ref >> 32)
}

func writeMeshInstance(block *gpumemory.Block, slot int, matID uint16, baseVtx, baseIdx uint32, rot math32.Quat, scale math32.Vector3) {
	base := unsafe.Add(block.Ptr, slot*meshInstanceSize)
	*(*uint16)(base) = matID
	u32 := unsafe.Slice((*uint32)(unsafe.Add(base, 4)), 2)
	u32[0], u32[1] = baseVtx, baseIdx
	f32 := unsafe.Slice((*float32)(unsafe.Add(base, 12)), 5)
	f32[0], f32[1], f32[2], f32[3] = rot.X, rot.Y, rot.Z, rot.W
	_ = scale // not stored: the entry holds only matID, the two base offsets and the rotation
}
